// Package bits owns the BITS packet contract and its tree operations.
//
// Ownership boundary:
// - packet model (Packet, Literal, Operator)
// - recursive-descent decode over stream.Stream
// - encode (inverse of decode)
// - version totals, evaluation and expression rendering
package bits
