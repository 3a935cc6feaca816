package sockets

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

// MulticastWriter sends one datagram per frame to a multicast group.
type MulticastWriter struct {
	conn *net.UDPConn
	pc   *ipv4.PacketConn
}

// NewMulticastWriter opens a sender to group:port, transmitting on the
// named interface. Loopback is left on so same-host consumers receive
// the stream.
func NewMulticastWriter(ifaceName, group string, port int) (*MulticastWriter, error) {
	gip := net.ParseIP(group)
	if gip == nil {
		return nil, fmt.Errorf("sockets: bad multicast group %q", group)
	}
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: gip, Port: port})
	if err != nil {
		return nil, fmt.Errorf("sockets: dial multicast %s:%d: %w", group, port, err)
	}
	pc := ipv4.NewPacketConn(conn)
	if ifaceName != "" {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("sockets: interface %q: %w", ifaceName, err)
		}
		if err := pc.SetMulticastInterface(iface); err != nil {
			conn.Close()
			return nil, err
		}
	}
	_ = pc.SetMulticastLoopback(true)
	return &MulticastWriter{conn: conn, pc: pc}, nil
}

// WriteFrame transmits b as a single datagram.
func (w *MulticastWriter) WriteFrame(b []byte) error {
	_, err := w.conn.Write(b)
	return err
}

func (w *MulticastWriter) Close() error { return w.conn.Close() }

// MulticastReader is a joined membership on a multicast group.
type MulticastReader struct {
	conn  *net.UDPConn
	pc    *ipv4.PacketConn
	iface *net.Interface
	group net.IP
}

// JoinMulticast binds port and joins group on the named interface.
func JoinMulticast(ifaceName, group string, port int) (*MulticastReader, error) {
	gip := net.ParseIP(group)
	if gip == nil {
		return nil, fmt.Errorf("sockets: bad multicast group %q", group)
	}
	var iface *net.Interface
	if ifaceName != "" {
		var err error
		iface, err = net.InterfaceByName(ifaceName)
		if err != nil {
			return nil, fmt.Errorf("sockets: interface %q: %w", ifaceName, err)
		}
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, fmt.Errorf("sockets: listen %d: %w", port, err)
	}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(iface, &net.UDPAddr{IP: gip}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sockets: join %s: %w", group, err)
	}
	return &MulticastReader{conn: conn, pc: pc, iface: iface, group: gip}, nil
}

// ReadFrame reads one datagram into buf, waiting at most timeout.
// Returns 0 and a nil error on timeout so poll loops stay simple.
func (r *MulticastReader) ReadFrame(buf []byte, timeout time.Duration) (int, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	n, _, err := r.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// Close leaves the group and releases the socket.
func (r *MulticastReader) Close() error {
	_ = r.pc.LeaveGroup(r.iface, &net.UDPAddr{IP: r.group})
	return r.conn.Close()
}
