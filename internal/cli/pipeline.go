package cli

import (
	"github.com/roach88/manifold/internal/compiler"
	"github.com/roach88/manifold/internal/ir"
	"github.com/roach88/manifold/internal/resolver"
	"github.com/roach88/manifold/internal/sidecar"
)

// buildRequest is the front half of the pipeline: which schema to
// load and how to lower it.
type buildRequest struct {
	Root        string   // entry .mux file
	Annotations []string // overlay files, applied in order
	Floor       int      // lowest assignable field number, 0 = default
}

// buildSchema loads, overlays and lowers one schema. All errors of the
// failing stage are returned together; later stages do not run on a
// broken program.
func buildSchema(req buildRequest) (*ir.Schema, []error) {
	prog, errs := resolver.Load(req.Root, resolver.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, errs
	}

	if len(req.Annotations) > 0 {
		overlay, oerrs := sidecar.LoadOverlays(prog, req.Annotations)
		if len(oerrs) > 0 {
			return nil, oerrs
		}
		sidecar.Apply(prog, overlay)
	}

	schema, berrs := compiler.Build(prog, compiler.Options{Floor: req.Floor})
	if len(berrs) > 0 {
		return nil, berrs
	}
	return schema, nil
}
