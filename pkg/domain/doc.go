// Package domain defines the value types shared by the conduit transport engine.
//
// This package contains pure domain logic with ZERO external dependencies outside the
// Go standard library: grid positions, faces, connection classes, item stacks and the
// error taxonomy. Everything above it (the pipe engine, the host grid, persistence and
// the CLI) depends on these types, never the other way round.
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain
