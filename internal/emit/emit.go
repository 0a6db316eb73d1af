// Package emit renders a compiled schema into its target artifacts:
// proto3, GraphQL SDL and OpenAPI 3.0 YAML.
//
// The three emitters are pure functions of the IR and run concurrently,
// one goroutine per requested target. Each writes through a temp file
// and renames it into place on success, so a failing target never
// leaves partial output behind and never blocks the other two.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/manifold/internal/compiler"
	"github.com/roach88/manifold/internal/ir"
)

// Artifact file names, fixed per target.
const (
	ProtoFile   = "schema.proto"
	GraphQLFile = "schema.graphql"
	OpenAPIFile = "openapi.yaml"
)

// FileFor returns the artifact file name for a target.
func FileFor(t ir.Target) string {
	switch t {
	case ir.TargetProto:
		return ProtoFile
	case ir.TargetGraphQL:
		return GraphQLFile
	case ir.TargetOpenAPI:
		return OpenAPIFile
	}
	return ""
}

// Result is the outcome of one target's emission.
type Result struct {
	Target ir.Target
	Path   string // written artifact, empty on failure
	Errs   []error
}

// OK reports whether the target emitted successfully.
func (r Result) OK() bool { return len(r.Errs) == 0 }

// Render produces the artifact bytes for one target without touching
// the filesystem. Identical schemas render identical bytes.
func Render(s *ir.Schema, target ir.Target) ([]byte, error) {
	switch target {
	case ir.TargetProto:
		return Proto(s)
	case ir.TargetGraphQL:
		return GraphQL(s)
	case ir.TargetOpenAPI:
		return OpenAPI(s)
	}
	return nil, fmt.Errorf("unknown emit target %q", target)
}

// Emit writes the artifacts for the requested targets under dir, all
// three when targets is empty. Rendered-name collisions are checked
// once up front and fail only the targets they occur in; every other
// failure is likewise contained to its own result.
func Emit(s *ir.Schema, dir string, targets []ir.Target) []Result {
	if len(targets) == 0 {
		targets = ir.AllTargets
	}
	collisions := compiler.CheckCollisions(s)

	results := make([]Result, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		i, target := i, target
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = emitOne(s, dir, target, collisions[target])
		}()
	}
	wg.Wait()
	return results
}

func emitOne(s *ir.Schema, dir string, target ir.Target, collisions []error) Result {
	res := Result{Target: target}
	if len(collisions) > 0 {
		res.Errs = collisions
		return res
	}
	data, err := Render(s, target)
	if err != nil {
		res.Errs = []error{err}
		return res
	}
	path, err := writeArtifact(dir, FileFor(target), data)
	if err != nil {
		res.Errs = []error{err}
		return res
	}
	res.Path = path
	return res
}

// writeArtifact writes data through a temp file in dir and renames it
// over name, so readers never observe a partial artifact.
func writeArtifact(dir, name string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replacing %s: %w", name, err)
	}
	return path, nil
}
