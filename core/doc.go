// File: doc.go
// Role: package-level invariants not covered by types.go's header.
//
// Invariants enforced by this package:
//   - A loose dot carries at most two joint edges.
//   - A bend wraps exactly one of a core dot or an outer bend.
//   - Every insertion that would infringe clearance against an
//     already-placed primitive is rejected before it touches the
//     arena or the R-tree (draw and tracer rely on this to implement
//     "try and roll back" without ever observing a half-applied move).
package core
