// Package memory provides the pre-allocated primitives the hot path is
// built on: a single-producer single-consumer lock-free ring and a
// fixed-capacity object pool. Neither allocates after construction.
package memory
