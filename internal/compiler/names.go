package compiler

import (
	"fmt"

	"github.com/roach88/manifold/internal/ir"
)

// declNames renders a top-level declaration's name for each target.
// Declarations render as written everywhere unless overridden.
func declNames(name string, ann *annotations) ir.Names {
	return ir.Names{
		Proto:   ann.nameFor(ir.TargetProto, name),
		GraphQL: ann.nameFor(ir.TargetGraphQL, name),
		OpenAPI: ann.nameFor(ir.TargetOpenAPI, name),
	}
}

// fieldNames renders a field name for each target: as declared in
// proto and OpenAPI, lowerCamelCase in GraphQL.
func fieldNames(name string, ann *annotations) ir.Names {
	return ir.Names{
		Proto:   ann.nameFor(ir.TargetProto, name),
		GraphQL: ann.nameFor(ir.TargetGraphQL, ir.LowerCamel(name)),
		OpenAPI: ann.nameFor(ir.TargetOpenAPI, name),
	}
}

// methodNames renders a method name for each target: as declared in
// proto, lowerCamelCase for GraphQL root fields and OpenAPI operation
// ids.
func methodNames(name string, ann *annotations) ir.Names {
	camel := ir.LowerCamel(name)
	return ir.Names{
		Proto:   ann.nameFor(ir.TargetProto, name),
		GraphQL: ann.nameFor(ir.TargetGraphQL, camel),
		OpenAPI: ann.nameFor(ir.TargetOpenAPI, camel),
	}
}

// graphqlRoots are the synthesized root type names; a declaration
// rendering to one of them collides with the generated document.
var graphqlRoots = map[ir.MethodKind]string{
	ir.MethodQuery:        "Query",
	ir.MethodMutation:     "Mutation",
	ir.MethodSubscription: "Subscription",
}

// CheckCollisions verifies rendered names independently per target and
// reports every collision in one pass. The result maps each target to
// its collisions only: a GraphQL collision must not block Protobuf
// emission, so callers fail targets individually.
//
// Scopes checked: top-level declarations (all namespaces flatten to
// unqualified render names in every output), fields within a type,
// enum values within an enum, method render names within the
// synthesized GraphQL roots, proto rpc names within a service, and
// OpenAPI verb+path pairs.
func CheckCollisions(s *ir.Schema) map[ir.Target][]error {
	out := map[ir.Target][]error{}
	report := func(t ir.Target, format string, args ...any) {
		out[t] = append(out[t], newNameCollision(fmt.Sprintf(format, args...)))
	}

	rootsInUse := map[string]bool{string(ir.MethodQuery): true}
	for _, svc := range s.Services {
		for _, m := range svc.Methods {
			rootsInUse[string(m.Kind)] = true
		}
	}

	for _, target := range ir.AllTargets {
		type topEntry struct{ kind, fqn string }
		seen := map[string]topEntry{}
		check := func(kind, fqn, render string) {
			if prev, ok := seen[render]; ok {
				report(target, "%s: %s %s and %s %s both render as %q",
					target, prev.kind, prev.fqn, kind, fqn, render)
				return
			}
			seen[render] = topEntry{kind, fqn}
		}

		for _, e := range s.Enums {
			check("enum", e.FQN(), e.Names.For(target))
		}
		for _, t := range s.Types {
			check("type", t.FQN(), t.Names.For(target))
		}
		for _, u := range s.Unions {
			check("union", u.FQN(), u.Names.For(target))
		}
		if target == ir.TargetProto {
			for _, svc := range s.Services {
				check("service", svc.FQN(), svc.Names.For(target))
			}
		}
		if target == ir.TargetGraphQL {
			for _, kind := range []ir.MethodKind{ir.MethodQuery, ir.MethodMutation, ir.MethodSubscription} {
				root := graphqlRoots[kind]
				if !rootsInUse[string(kind)] {
					continue
				}
				if prev, ok := seen[root]; ok {
					report(target, "%s: %s %s collides with the generated %s root",
						target, prev.kind, prev.fqn, root)
				}
			}
		}
	}

	for _, t := range s.Types {
		for _, target := range ir.AllTargets {
			seen := map[string]string{}
			for _, f := range t.Fields {
				if !ir.EmitsTo(f.Exclude, target) {
					continue
				}
				render := f.Names.For(target)
				if prev, ok := seen[render]; ok {
					report(target, "%s: fields %s and %s of %s both render as %q",
						target, prev, f.Name, t.FQN(), render)
					continue
				}
				seen[render] = f.Name
			}
		}
	}

	for _, e := range s.Enums {
		seen := map[string]bool{}
		for _, v := range e.Values {
			if seen[v.Name] {
				for _, target := range ir.AllTargets {
					report(target, "%s: enum %s declares value %q twice", target, e.FQN(), v.Name)
				}
				continue
			}
			seen[v.Name] = true
		}
	}

	rootFields := map[ir.MethodKind]map[string]string{}
	for _, svc := range s.Services {
		protoSeen := map[string]string{}
		for _, m := range svc.Methods {
			render := m.Names.For(ir.TargetProto)
			if prev, ok := protoSeen[render]; ok {
				report(ir.TargetProto, "proto: methods %s and %s of %s both render as %q",
					prev, m.Name, svc.FQN(), render)
			} else {
				protoSeen[render] = m.Name
			}

			byKind := rootFields[m.Kind]
			if byKind == nil {
				byKind = map[string]string{}
				rootFields[m.Kind] = byKind
			}
			gql := m.Names.For(ir.TargetGraphQL)
			origin := svc.FQN() + "." + m.Name
			if prev, ok := byKind[gql]; ok {
				report(ir.TargetGraphQL, "graphql: %s and %s both render as %s field %q",
					prev, origin, m.Kind, gql)
			} else {
				byKind[gql] = origin
			}
		}
	}

	pathSeen := map[string]string{}
	for _, svc := range s.Services {
		for _, m := range svc.Methods {
			key := m.HTTP.Method + " " + m.HTTP.Path
			origin := svc.FQN() + "." + m.Name
			if prev, ok := pathSeen[key]; ok {
				report(ir.TargetOpenAPI, "openapi: %s and %s both map to %s", prev, origin, key)
				continue
			}
			pathSeen[key] = origin
		}
	}

	return out
}
