package sidecar

// Merge layers over onto base, later file wins per leaf. The
// exclusion pair (exclude/only) moves as one unit since the two keys
// express a single concern.
func Merge(base, over *Overlay) *Overlay {
	out := &Overlay{Version: base.Version}
	if over.Version != "" {
		out.Version = over.Version
	}

	out.Types = map[string]*TypeOverlay{}
	for k, v := range base.Types {
		out.Types[k] = v
	}
	for k, v := range over.Types {
		if prev, ok := out.Types[k]; ok {
			out.Types[k] = mergeType(prev, v)
		} else {
			out.Types[k] = v
		}
	}

	out.Services = map[string]*ServiceOverlay{}
	for k, v := range base.Services {
		out.Services[k] = v
	}
	for k, v := range over.Services {
		if prev, ok := out.Services[k]; ok {
			out.Services[k] = mergeService(prev, v)
		} else {
			out.Services[k] = v
		}
	}
	return out
}

func pickRename(base, over *Rename) *Rename {
	if over != nil {
		return over
	}
	return base
}

func mergeType(base, over *TypeOverlay) *TypeOverlay {
	out := &TypeOverlay{
		Proto:   pickRename(base.Proto, over.Proto),
		GraphQL: pickRename(base.GraphQL, over.GraphQL),
		OpenAPI: pickRename(base.OpenAPI, over.OpenAPI),
		Fields:  map[string]*FieldOverlay{},
	}
	for k, v := range base.Fields {
		out.Fields[k] = v
	}
	for k, v := range over.Fields {
		if prev, ok := out.Fields[k]; ok {
			out.Fields[k] = mergeField(prev, v)
		} else {
			out.Fields[k] = v
		}
	}
	return out
}

func mergeField(base, over *FieldOverlay) *FieldOverlay {
	out := &FieldOverlay{
		Proto:      pickRename(base.Proto, over.Proto),
		GraphQL:    pickRename(base.GraphQL, over.GraphQL),
		OpenAPI:    pickRename(base.OpenAPI, over.OpenAPI),
		Required:   base.Required,
		Default:    base.Default,
		Deprecated: base.Deprecated,
		Exclude:    base.Exclude,
		Only:       base.Only,
	}
	if over.Required != nil {
		out.Required = over.Required
	}
	if over.Default != nil {
		out.Default = over.Default
	}
	if over.Deprecated != nil {
		out.Deprecated = over.Deprecated
	}
	if len(over.Exclude) > 0 || len(over.Only) > 0 {
		out.Exclude = over.Exclude
		out.Only = over.Only
	}
	return out
}

func mergeService(base, over *ServiceOverlay) *ServiceOverlay {
	out := &ServiceOverlay{
		Proto:   pickRename(base.Proto, over.Proto),
		GraphQL: pickRename(base.GraphQL, over.GraphQL),
		OpenAPI: pickRename(base.OpenAPI, over.OpenAPI),
		Methods: map[string]*MethodOverlay{},
	}
	for k, v := range base.Methods {
		out.Methods[k] = v
	}
	for k, v := range over.Methods {
		if prev, ok := out.Methods[k]; ok {
			out.Methods[k] = mergeMethod(prev, v)
		} else {
			out.Methods[k] = v
		}
	}
	return out
}

func mergeMethod(base, over *MethodOverlay) *MethodOverlay {
	out := &MethodOverlay{
		Proto:   pickRename(base.Proto, over.Proto),
		GraphQL: pickRename(base.GraphQL, over.GraphQL),
		OpenAPI: pickRename(base.OpenAPI, over.OpenAPI),
		Kind:    base.Kind,
		HTTP:    base.HTTP,
	}
	if over.Kind != "" {
		out.Kind = over.Kind
	}
	if over.HTTP != nil {
		if out.HTTP == nil {
			out.HTTP = over.HTTP
		} else {
			out.HTTP = mergeHTTP(out.HTTP, over.HTTP)
		}
	}
	return out
}

func mergeHTTP(base, over *HTTPOverlay) *HTTPOverlay {
	out := &HTTPOverlay{
		Method:  base.Method,
		Path:    base.Path,
		Success: base.Success,
		Errors:  base.Errors,
	}
	if over.Method != "" {
		out.Method = over.Method
	}
	if over.Path != "" {
		out.Path = over.Path
	}
	if len(over.Success) > 0 {
		out.Success = over.Success
	}
	if len(over.Errors) > 0 {
		out.Errors = over.Errors
	}
	return out
}
