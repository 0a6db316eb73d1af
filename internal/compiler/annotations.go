package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/manifold/internal/ir"
	"github.com/roach88/manifold/internal/syntax"
)

// annContext says what kind of declaration an annotation sits on.
type annContext int

const (
	ctxFile annContext = iota
	ctxType
	ctxEnum
	ctxUnion
	ctxService
	ctxField
	ctxMethod
)

var ctxNames = map[annContext]string{
	ctxFile:    "file",
	ctxType:    "type",
	ctxEnum:    "enum",
	ctxUnion:   "union",
	ctxService: "service",
	ctxField:   "field",
	ctxMethod:  "method",
}

// annRule is one registry entry: where a key may appear and how many
// arguments it takes. maxArgs -1 means unbounded.
type annRule struct {
	contexts uint
	minArgs  int
	maxArgs  int
}

func on(ctxs ...annContext) uint {
	var mask uint
	for _, c := range ctxs {
		mask |= 1 << uint(c)
	}
	return mask
}

func (r annRule) allows(ctx annContext) bool {
	return r.contexts&(1<<uint(ctx)) != 0
}

// annotationRegistry is the closed set of recognized keys. Anything
// else is UNKNOWN_ANNOTATION, never silently ignored.
var annotationRegistry = map[string]annRule{
	"version":      {on(ctxFile), 1, 1},
	"required":     {on(ctxField), 0, 0},
	"default":      {on(ctxField), 1, 1},
	"deprecated":   {on(ctxField), 0, 1},
	"exclude":      {on(ctxField), 1, -1},
	"only":         {on(ctxField), 1, -1},
	"proto.name":   {on(ctxType, ctxEnum, ctxUnion, ctxService, ctxField, ctxMethod), 1, 1},
	"graphql.name": {on(ctxType, ctxEnum, ctxUnion, ctxService, ctxField, ctxMethod), 1, 1},
	"openapi.name": {on(ctxType, ctxEnum, ctxUnion, ctxService, ctxField, ctxMethod), 1, 1},
	"http.method":  {on(ctxMethod), 1, 1},
	"http.path":    {on(ctxMethod), 1, 1},
	"http.success": {on(ctxMethod), 1, -1},
	"http.errors":  {on(ctxMethod), 1, -1},
	"graphql":      {on(ctxMethod), 1, 1},
}

var httpMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

var graphqlKinds = map[string]ir.MethodKind{
	"query":        ir.MethodQuery,
	"mutation":     ir.MethodMutation,
	"subscription": ir.MethodSubscription,
}

// annotations is the validated result of one declaration's attribute
// list.
type annotations struct {
	version     string
	required    bool
	defaultVal  string
	hasDefault  bool
	deprecated  bool
	deprecation string
	exclude     []ir.Target
	names       map[ir.Target]string
	httpMethod  string
	httpPath    string
	httpSuccess []int
	httpErrors  []int
	graphqlKind ir.MethodKind
}

// nameFor returns the override for target, or fallback.
func (a *annotations) nameFor(target ir.Target, fallback string) string {
	if n, ok := a.names[target]; ok {
		return n
	}
	return fallback
}

func parseTarget(s string) (ir.Target, bool) {
	switch s {
	case "proto":
		return ir.TargetProto, true
	case "graphql":
		return ir.TargetGraphQL, true
	case "openapi":
		return ir.TargetOpenAPI, true
	}
	return "", false
}

// parseAnnotations validates attrs against the registry for ctx and
// folds them into one annotation set. Every violation is reported;
// valid keys still apply so later passes see as much as possible.
func parseAnnotations(attrs []*syntax.Attr, ctx annContext, errs *errorList) *annotations {
	ann := &annotations{names: map[ir.Target]string{}}
	seen := map[string]bool{}

	for _, attr := range attrs {
		rule, ok := annotationRegistry[attr.Key]
		if !ok {
			errs.add(newUnknownAnnotation(fmt.Sprintf("unknown annotation @%s", attr.Key), attr.Pos))
			continue
		}
		if !rule.allows(ctx) {
			errs.add(newUnknownAnnotation(
				fmt.Sprintf("annotation @%s is not allowed on a %s", attr.Key, ctxNames[ctx]), attr.Pos))
			continue
		}
		if seen[attr.Key] {
			errs.add(newUnknownAnnotation(
				fmt.Sprintf("annotation @%s given more than once", attr.Key), attr.Pos))
			continue
		}
		seen[attr.Key] = true

		if len(attr.Args) < rule.minArgs || (rule.maxArgs >= 0 && len(attr.Args) > rule.maxArgs) {
			errs.add(newUnknownAnnotation(
				fmt.Sprintf("annotation @%s takes %s", attr.Key, arityText(rule)), attr.Pos))
			continue
		}

		switch attr.Key {
		case "version":
			ann.version = attr.Args[0]
		case "required":
			ann.required = true
		case "default":
			ann.defaultVal = attr.Args[0]
			ann.hasDefault = true
		case "deprecated":
			ann.deprecated = true
			if len(attr.Args) == 1 {
				ann.deprecation = attr.Args[0]
			}
		case "exclude", "only":
			ann.applyExclusion(attr, errs)
		case "proto.name":
			ann.names[ir.TargetProto] = attr.Args[0]
		case "graphql.name":
			ann.names[ir.TargetGraphQL] = attr.Args[0]
		case "openapi.name":
			ann.names[ir.TargetOpenAPI] = attr.Args[0]
		case "http.method":
			verb := strings.ToUpper(attr.Args[0])
			if !httpMethods[verb] {
				errs.add(newUnknownAnnotation(
					fmt.Sprintf("unknown HTTP method %q (want GET, POST, PUT, PATCH or DELETE)", attr.Args[0]), attr.Pos))
				continue
			}
			ann.httpMethod = verb
		case "http.path":
			if !strings.HasPrefix(attr.Args[0], "/") {
				errs.add(newUnknownAnnotation(
					fmt.Sprintf("HTTP path %q must start with /", attr.Args[0]), attr.Pos))
				continue
			}
			ann.httpPath = attr.Args[0]
		case "http.success":
			ann.httpSuccess = parseStatusCodes(attr, errs)
		case "http.errors":
			ann.httpErrors = parseStatusCodes(attr, errs)
		case "graphql":
			kind, ok := graphqlKinds[attr.Args[0]]
			if !ok {
				errs.add(newUnknownAnnotation(
					fmt.Sprintf("unknown GraphQL kind %q (want query, mutation or subscription)", attr.Args[0]), attr.Pos))
				continue
			}
			ann.graphqlKind = kind
		}
	}

	if seen["exclude"] && seen["only"] {
		errs.add(newUnknownAnnotation("cannot combine @exclude and @only", attrs[0].Pos))
	}
	return ann
}

// applyExclusion folds @exclude(targets) or @only(targets) into the
// exclusion list: @only keeps the named targets and excludes the rest.
func (a *annotations) applyExclusion(attr *syntax.Attr, errs *errorList) {
	named := map[ir.Target]bool{}
	for _, arg := range attr.Args {
		t, ok := parseTarget(arg)
		if !ok {
			errs.add(newUnknownAnnotation(
				fmt.Sprintf("unknown target %q in @%s (want proto, graphql or openapi)", arg, attr.Key), attr.Pos))
			return
		}
		named[t] = true
	}
	for _, t := range ir.AllTargets {
		if attr.Key == "exclude" && named[t] {
			a.exclude = append(a.exclude, t)
		}
		if attr.Key == "only" && !named[t] {
			a.exclude = append(a.exclude, t)
		}
	}
}

func parseStatusCodes(attr *syntax.Attr, errs *errorList) []int {
	var codes []int
	for _, arg := range attr.Args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 100 || n > 599 {
			errs.add(newUnknownAnnotation(
				fmt.Sprintf("@%s wants HTTP status codes, got %q", attr.Key, arg), attr.Pos))
			return nil
		}
		codes = append(codes, n)
	}
	return codes
}

func arityText(r annRule) string {
	switch {
	case r.minArgs == 0 && r.maxArgs == 0:
		return "no arguments"
	case r.minArgs == r.maxArgs:
		return fmt.Sprintf("exactly %d argument(s)", r.minArgs)
	case r.maxArgs < 0:
		return fmt.Sprintf("at least %d argument(s)", r.minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", r.minArgs, r.maxArgs)
	}
}
