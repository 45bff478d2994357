package schema

import (
	"fmt"
	"strings"

	language "github.com/hanpama/graphexec/internal/language"
)

// Resolver binds a resolver function to a field at schema build time. Async
// marks resolvers that perform I/O or otherwise benefit from concurrent
// scheduling; sync resolvers are invoked inline.
type Resolver struct {
	Fn    ResolveFunc
	Async bool
}

// ScalarConfig supplies serialization hooks for a custom scalar.
type ScalarConfig struct {
	Serialize  SerializeFunc
	ParseValue ParseValueFunc
}

// Config carries the host bindings merged into the type model during build.
type Config struct {
	// Resolvers is keyed by "Type.field". Fields without an entry use the
	// executor's default source projection.
	Resolvers map[string]Resolver
	// Scalars is keyed by scalar type name declared in the SDL.
	Scalars map[string]ScalarConfig
	// TypeResolver overrides DefaultTypeResolver for abstract types.
	TypeResolver TypeResolverFunc
}

// BuildFromSDL parses an SDL document and returns the executable type model
// with resolver handles and leaf coercion hooks bound. Without an explicit
// schema block, the Query and Mutation types bind by their conventional
// names.
func BuildFromSDL(sdl string, cfg Config) (*Schema, error) {
	doc, err := language.ParseSchema("schema.graphql", sdl)
	if err != nil {
		return nil, err
	}

	s := &Schema{
		Types:        map[string]*Type{},
		Directives:   map[string]*Directive{},
		TypeResolver: cfg.TypeResolver,
	}
	if s.TypeResolver == nil {
		s.TypeResolver = DefaultTypeResolver
	}
	for _, t := range []*Type{stringType, intType, floatType, booleanType, idType} {
		s.Types[t.Name] = t
	}
	s.Directives[includeDirective.Name] = includeDirective
	s.Directives[skipDirective.Name] = skipDirective

	for _, sd := range doc.Schema {
		for _, op := range sd.OperationTypes {
			switch op.Operation {
			case language.Query:
				s.QueryType = op.Type
			case language.Mutation:
				s.MutationType = op.Type
			case language.Subscription:
				s.SubscriptionType = op.Type
			}
		}
	}
	if s.QueryType == "" {
		s.QueryType = "Query"
	}

	for _, def := range doc.Definitions {
		t, err := buildDefinition(def, cfg)
		if err != nil {
			return nil, err
		}
		s.Types[t.Name] = t
	}
	for _, ext := range doc.Extensions {
		base := s.Types[ext.Name]
		if base == nil {
			return nil, fmt.Errorf("extension of unknown type %q", ext.Name)
		}
		t, err := buildDefinition(ext, cfg)
		if err != nil {
			return nil, err
		}
		base.Fields = append(base.Fields, t.Fields...)
		base.InputFields = append(base.InputFields, t.InputFields...)
		base.EnumValues = append(base.EnumValues, t.EnumValues...)
		base.PossibleTypes = append(base.PossibleTypes, t.PossibleTypes...)
		base.Interfaces = append(base.Interfaces, t.Interfaces...)
	}
	for _, dd := range doc.Directives {
		d := &Directive{Name: dd.Name, Description: dd.Description, IsRepeatable: dd.IsRepeatable}
		for _, loc := range dd.Locations {
			d.Locations = append(d.Locations, string(loc))
		}
		for _, arg := range dd.Arguments {
			d.Arguments = append(d.Arguments, buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue))
		}
		s.Directives[d.Name] = d
	}

	if s.MutationType == "" && s.Types["Mutation"] != nil {
		s.MutationType = "Mutation"
	}

	linkPossibleTypes(s)
	return s, nil
}

func buildDefinition(def *language.Definition, cfg Config) (*Type, error) {
	switch def.Kind {
	case language.Object, language.Interface:
		kind := TypeKindObject
		if def.Kind == language.Interface {
			kind = TypeKindInterface
		}
		t := &Type{Name: def.Name, Kind: kind, Description: def.Description}
		t.Interfaces = append(t.Interfaces, def.Interfaces...)
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			f := &Field{
				Name:        fd.Name,
				Description: fd.Description,
				Type:        TypeRefFromAST(fd.Type),
			}
			for _, arg := range fd.Arguments {
				f.Arguments = append(f.Arguments, buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue))
			}
			if r, ok := cfg.Resolvers[def.Name+"."+fd.Name]; ok {
				f.Resolve = r.Fn
				f.Async = r.Async
			}
			t.Fields = append(t.Fields, f)
		}
		return t, nil

	case language.Union:
		t := &Type{Name: def.Name, Kind: TypeKindUnion, Description: def.Description}
		t.PossibleTypes = append(t.PossibleTypes, def.Types...)
		return t, nil

	case language.Enum:
		t := &Type{Name: def.Name, Kind: TypeKindEnum, Description: def.Description}
		for _, v := range def.EnumValues {
			t.EnumValues = append(t.EnumValues, &EnumValue{Name: v.Name, Description: v.Description})
		}
		t.ParseValue = enumParser(t)
		t.Serialize = enumSerializer(t)
		return t, nil

	case language.Scalar:
		t := &Type{Name: def.Name, Kind: TypeKindScalar, Description: def.Description}
		if sc, ok := cfg.Scalars[def.Name]; ok {
			t.Serialize = sc.Serialize
			t.ParseValue = sc.ParseValue
		}
		return t, nil

	case language.InputObject:
		t := &Type{Name: def.Name, Kind: TypeKindInputObject, Description: def.Description}
		for _, fd := range def.Fields {
			t.InputFields = append(t.InputFields, buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue))
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported definition kind %q for type %q", def.Kind, def.Name)
}

// TypeRefFromAST converts a parsed type reference into the model
// representation, normalizing Non-Null nesting.
func TypeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return NonNullType(TypeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	return ListType(TypeRefFromAST(t.Elem))
}

func buildInputValue(name, description string, t *language.Type, defaultValue *language.Value) *InputValue {
	in := &InputValue{Name: name, Description: description, Type: TypeRefFromAST(t)}
	if defaultValue != nil {
		in.DefaultValue = language.GoValue(defaultValue)
		in.HasDefault = true
	}
	return in
}

func enumParser(t *Type) ParseValueFunc {
	return func(value any) (any, error) {
		name, ok := value.(string)
		if !ok || !t.HasEnumValue(name) {
			return nil, fmt.Errorf("Value %v is not a member of enum %s", value, t.Name)
		}
		return name, nil
	}
}

func enumSerializer(t *Type) SerializeFunc {
	return func(value any) (any, error) {
		name, ok := value.(string)
		if !ok || !t.HasEnumValue(name) {
			return nil, fmt.Errorf("Enum %s cannot represent value: %v", t.Name, value)
		}
		return name, nil
	}
}

func linkPossibleTypes(s *Schema) {
	for _, t := range s.Types {
		if t.Kind != TypeKindObject {
			continue
		}
		for _, name := range t.Interfaces {
			iface := s.Types[name]
			if iface == nil || iface.Kind != TypeKindInterface {
				continue
			}
			iface.PossibleTypes = append(iface.PossibleTypes, t.Name)
		}
	}
}
