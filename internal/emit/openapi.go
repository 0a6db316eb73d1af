package emit

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/manifold/internal/ir"
)

// oaDocument is the typed OpenAPI 3.0 document marshalled to YAML.
// Map-valued sections marshal with sorted keys, so identical schemas
// produce identical bytes.
type oaDocument struct {
	OpenAPI    string                             `yaml:"openapi"`
	Info       oaInfo                             `yaml:"info"`
	Paths      map[string]map[string]*oaOperation `yaml:"paths"`
	Components oaComponents                       `yaml:"components"`
}

type oaInfo struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

type oaComponents struct {
	Schemas map[string]*oaSchema `yaml:"schemas"`
}

// oaSchema is one schema node: a named component, an inline property
// or a bare $ref.
type oaSchema struct {
	Ref                  string               `yaml:"$ref,omitempty"`
	Type                 string               `yaml:"type,omitempty"`
	Format               string               `yaml:"format,omitempty"`
	Description          string               `yaml:"description,omitempty"`
	Deprecated           bool                 `yaml:"deprecated,omitempty"`
	Default              any                  `yaml:"default,omitempty"`
	Properties           map[string]*oaSchema `yaml:"properties,omitempty"`
	Required             []string             `yaml:"required,omitempty"`
	Enum                 []string             `yaml:"enum,omitempty"`
	Items                *oaSchema            `yaml:"items,omitempty"`
	AdditionalProperties *oaSchema            `yaml:"additionalProperties,omitempty"`
	OneOf                []*oaSchema          `yaml:"oneOf,omitempty"`
	Discriminator        *oaDiscriminator     `yaml:"discriminator,omitempty"`
}

type oaDiscriminator struct {
	PropertyName string            `yaml:"propertyName"`
	Mapping      map[string]string `yaml:"mapping,omitempty"`
}

type oaOperation struct {
	Summary     string                 `yaml:"summary,omitempty"`
	Description string                 `yaml:"description,omitempty"`
	OperationID string                 `yaml:"operationId"`
	Parameters  []*oaParameter         `yaml:"parameters,omitempty"`
	RequestBody *oaRequestBody         `yaml:"requestBody,omitempty"`
	Responses   map[string]*oaResponse `yaml:"responses"`
}

type oaParameter struct {
	Name     string    `yaml:"name"`
	In       string    `yaml:"in"`
	Required bool      `yaml:"required"`
	Schema   *oaSchema `yaml:"schema"`
}

type oaRequestBody struct {
	Required bool                `yaml:"required"`
	Content  map[string]*oaMedia `yaml:"content"`
}

type oaMedia struct {
	Schema *oaSchema `yaml:"schema"`
}

type oaResponse struct {
	Description string              `yaml:"description"`
	Content     map[string]*oaMedia `yaml:"content,omitempty"`
}

// OpenAPI renders the OpenAPI 3.0.3 artifact. A schema with no methods
// or no declarations would produce a vacuous document and fails with
// EMPTY_API instead.
func OpenAPI(s *ir.Schema) ([]byte, error) {
	idx := ir.NewIndex(s)
	doc := &oaDocument{
		OpenAPI:    "3.0.3",
		Info:       oaInfo{Title: s.RootNamespace, Version: s.Version},
		Paths:      map[string]map[string]*oaOperation{},
		Components: oaComponents{Schemas: map[string]*oaSchema{}},
	}

	for _, e := range s.Enums {
		doc.Components.Schemas[e.Names.OpenAPI] = oaEnum(e)
	}
	for _, t := range s.Types {
		doc.Components.Schemas[t.Names.OpenAPI] = oaType(idx, t)
	}
	for _, u := range s.Unions {
		doc.Components.Schemas[u.Names.OpenAPI] = oaUnion(idx, u)
	}
	for _, svc := range s.Services {
		for _, m := range svc.Methods {
			addOperation(doc, idx, m)
		}
	}

	if len(doc.Paths) == 0 {
		return nil, newEmptyAPI(ir.TargetOpenAPI, "schema declares no service methods, so paths would be empty")
	}
	if len(doc.Components.Schemas) == 0 {
		return nil, newEmptyAPI(ir.TargetOpenAPI, "schema declares no types, so components would be empty")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshalling openapi document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshalling openapi document: %w", err)
	}
	return buf.Bytes(), nil
}

func oaEnum(e *ir.Enum) *oaSchema {
	values := make([]string, len(e.Values))
	for i, v := range e.Values {
		values[i] = v.Name
	}
	return &oaSchema{
		Type:        "string",
		Description: ir.DocFor(e.Doc, ir.TargetOpenAPI),
		Enum:        values,
	}
}

func oaType(idx *ir.Index, t *ir.Type) *oaSchema {
	schema := &oaSchema{
		Type:        "object",
		Description: ir.DocFor(t.Doc, ir.TargetOpenAPI),
		Properties:  map[string]*oaSchema{},
	}
	for _, f := range t.Fields {
		if !ir.EmitsTo(f.Exclude, ir.TargetOpenAPI) {
			continue
		}
		name := f.Names.OpenAPI
		schema.Properties[name] = oaField(idx, f)
		if f.Required && !f.Optional {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

// oaField renders one property. A bare $ref carries no siblings, per
// OpenAPI 3.0 reference semantics.
func oaField(idx *ir.Index, f *ir.Field) *oaSchema {
	schema := oaRef(idx, f.Type)
	if schema.Ref != "" {
		return schema
	}
	schema.Description = ir.DocFor(f.Doc, ir.TargetOpenAPI)
	if f.Deprecated {
		schema.Deprecated = true
		if f.DeprecationNote != "" {
			if schema.Description != "" {
				schema.Description += "\n"
			}
			schema.Description += "Deprecated: " + f.DeprecationNote
		}
	}
	if f.Default != "" && f.Type.Kind == ir.RefScalar {
		schema.Default = oaDefault(f.Default, f.Type.Scalar)
	}
	return schema
}

func oaRef(idx *ir.Index, ref *ir.TypeRef) *oaSchema {
	switch ref.Kind {
	case ir.RefScalar:
		typ, format := oaScalar(ref.Scalar)
		return &oaSchema{Type: typ, Format: format}
	case ir.RefNamed:
		return &oaSchema{Ref: "#/components/schemas/" + oaDeclName(idx, ref.Named)}
	case ir.RefArray:
		return &oaSchema{Type: "array", Items: oaRef(idx, ref.Elem)}
	case ir.RefMap:
		return &oaSchema{Type: "object", AdditionalProperties: oaRef(idx, ref.Value)}
	}
	return &oaSchema{}
}

func oaScalar(s ir.Scalar) (typ, format string) {
	switch s {
	case ir.ScalarInt32:
		return "integer", "int32"
	case ir.ScalarInt64:
		return "integer", "int64"
	case ir.ScalarFloat32:
		return "number", "float"
	case ir.ScalarFloat64:
		return "number", "double"
	case ir.ScalarBool:
		return "boolean", ""
	case ir.ScalarTimestamp:
		return "string", "date-time"
	case ir.ScalarBytes:
		return "string", "byte"
	}
	return "string", ""
}

// oaDefault converts a declared default into the property's native
// YAML type; unparseable values fall back to the raw string.
func oaDefault(raw string, s ir.Scalar) any {
	switch s {
	case ir.ScalarInt32, ir.ScalarInt64:
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
	case ir.ScalarFloat32, ir.ScalarFloat64:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	case ir.ScalarBool:
		return raw == "true"
	}
	return raw
}

func oaUnion(idx *ir.Index, u *ir.Union) *oaSchema {
	schema := &oaSchema{
		Description:   ir.DocFor(u.Doc, ir.TargetOpenAPI),
		Discriminator: &oaDiscriminator{PropertyName: "type", Mapping: map[string]string{}},
	}
	for _, opt := range u.Options {
		ref := "#/components/schemas/" + oaDeclName(idx, opt)
		schema.OneOf = append(schema.OneOf, &oaSchema{Ref: ref})
		schema.Discriminator.Mapping[oaDeclName(idx, opt)] = ref
	}
	return schema
}

func oaDeclName(idx *ir.Index, fqn string) string {
	if t, ok := idx.Types[fqn]; ok {
		return t.Names.OpenAPI
	}
	if e, ok := idx.Enums[fqn]; ok {
		return e.Names.OpenAPI
	}
	if u, ok := idx.Unions[fqn]; ok {
		return u.Names.OpenAPI
	}
	return fqn[strings.LastIndex(fqn, ".")+1:]
}

func addOperation(doc *oaDocument, idx *ir.Index, m *ir.Method) {
	verb := strings.ToLower(m.HTTP.Method)
	op := &oaOperation{
		Summary:     m.Names.OpenAPI + " operation",
		Description: ir.DocFor(m.Doc, ir.TargetOpenAPI),
		OperationID: m.Names.OpenAPI,
		Responses:   map[string]*oaResponse{},
	}
	for _, name := range pathParams(m.HTTP.Path) {
		op.Parameters = append(op.Parameters, &oaParameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   &oaSchema{Type: "string"},
		})
	}

	inRef := &oaSchema{Ref: "#/components/schemas/" + oaDeclName(idx, m.Input)}
	outRef := func() *oaSchema {
		return &oaSchema{Ref: "#/components/schemas/" + oaDeclName(idx, m.Output)}
	}
	switch verb {
	case "post", "put", "patch":
		op.RequestBody = &oaRequestBody{Required: true, Content: oaJSON(inRef)}
	}

	if len(m.HTTP.Success) == 0 {
		op.Responses["200"] = &oaResponse{
			Description: "Successful response",
			Content:     oaJSON(outRef()),
		}
	}
	for _, code := range m.HTTP.Success {
		op.Responses[strconv.Itoa(code)] = &oaResponse{
			Description: successDescription(code),
			Content:     oaJSON(outRef()),
		}
	}
	for _, code := range m.HTTP.Errors {
		op.Responses[strconv.Itoa(code)] = &oaResponse{
			Description: errorDescription(code),
			Content:     oaJSON(errorEnvelope()),
		}
	}

	if doc.Paths[m.HTTP.Path] == nil {
		doc.Paths[m.HTTP.Path] = map[string]*oaOperation{}
	}
	doc.Paths[m.HTTP.Path][verb] = op
}

func oaJSON(schema *oaSchema) map[string]*oaMedia {
	return map[string]*oaMedia{"application/json": {Schema: schema}}
}

// errorEnvelope is the inline body shape of declared error responses.
func errorEnvelope() *oaSchema {
	return &oaSchema{
		Type: "object",
		Properties: map[string]*oaSchema{
			"error": {Type: "string", Description: "Error message"},
			"code":  {Type: "string", Description: "Error code"},
		},
	}
}

// pathParams extracts {name} template segments in order.
func pathParams(path string) []string {
	var params []string
	start := -1
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '{':
			start = i + 1
		case '}':
			if start >= 0 {
				params = append(params, path[start:i])
				start = -1
			}
		}
	}
	return params
}

var successDescriptions = map[int]string{
	200: "OK - Successful response",
	201: "Created - Resource created successfully",
	202: "Accepted - Request accepted for processing",
	204: "No Content - Successful request with no response body",
	206: "Partial Content - Partial resource returned",
}

var errorDescriptions = map[int]string{
	400: "Bad Request - Invalid input parameters",
	401: "Unauthorized - Authentication required",
	403: "Forbidden - Insufficient permissions",
	404: "Not Found - Resource not found",
	409: "Conflict - Resource already exists or conflict",
	422: "Unprocessable Entity - Validation error",
	429: "Too Many Requests - Rate limit exceeded",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

func successDescription(code int) string {
	if d, ok := successDescriptions[code]; ok {
		return d
	}
	return fmt.Sprintf("Success response (%d)", code)
}

func errorDescription(code int) string {
	if d, ok := errorDescriptions[code]; ok {
		return d
	}
	return fmt.Sprintf("Error response (%d)", code)
}
