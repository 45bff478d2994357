package schema

import "context"

// Schema represents the complete executable type model
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string

	// TypeResolver determines the concrete object type name for a value of an
	// abstract type. Defaults to probing a "__typename" entry on map values.
	TypeResolver TypeResolverFunc
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// PossibleTypes returns the concrete object type names an abstract type may
// resolve to. For object types it returns the type's own name.
func (s *Schema) PossibleTypes(name string) []string {
	t := s.Types[name]
	if t == nil {
		return nil
	}
	switch t.Kind {
	case TypeKindObject:
		return []string{t.Name}
	case TypeKindUnion:
		return t.PossibleTypes
	case TypeKindInterface:
		if len(t.PossibleTypes) > 0 {
			return t.PossibleTypes
		}
		var out []string
		for _, cand := range s.Types {
			if cand.Kind != TypeKindObject {
				continue
			}
			for _, iface := range cand.Interfaces {
				if iface == t.Name {
					out = append(out, cand.Name)
					break
				}
			}
		}
		return out
	}
	return nil
}

// Applies reports whether a fragment type condition selects fields on the
// given concrete object type: name equality, implemented interface, or union
// membership.
func (s *Schema) Applies(typeCondition string, objectType *Type) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	cond := s.Types[typeCondition]
	if cond == nil {
		return false
	}
	switch cond.Kind {
	case TypeKindInterface:
		for _, iface := range objectType.Interfaces {
			if iface == cond.Name {
				return true
			}
		}
		for _, name := range cond.PossibleTypes {
			if name == objectType.Name {
				return true
			}
		}
	case TypeKindUnion:
		for _, name := range cond.PossibleTypes {
			if name == objectType.Name {
				return true
			}
		}
	}
	return false
}

// ResolveFunc resolves a single field value. source is the parent value (nil
// for root fields) and args are the already-coerced argument values.
type ResolveFunc func(ctx context.Context, source any, args map[string]any) (any, error)

// TypeResolverFunc maps a runtime value of an abstract type to a concrete
// object type name.
type TypeResolverFunc func(ctx context.Context, abstractType string, value any) (string, error)

// SerializeFunc converts a resolved leaf value to a JSON-safe Go value.
type SerializeFunc func(value any) (any, error)

// ParseValueFunc coerces an input value (variable or literal) for a leaf type.
type ParseValueFunc func(value any) (any, error)

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // For OBJECT and INTERFACE
	Interfaces     []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes  []string      // For INTERFACE and UNION
	EnumValues     []*EnumValue  // For ENUM
	InputFields    []*InputValue // For INPUT_OBJECT
	SpecifiedByURL *string
	OneOf          bool

	// Serialize and ParseValue are set for SCALAR and ENUM kinds. Custom
	// scalars without hooks pass values through unchanged.
	Serialize  SerializeFunc
	ParseValue ParseValueFunc
}

// Field returns the field definition with the given name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasEnumValue reports whether name is a declared value of an enum type.
func (t *Type) HasEnumValue(name string) bool {
	for _, v := range t.EnumValues {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Field represents a field on an object or interface. The resolver handle is
// chosen once at schema build: Resolve plus the Async flag form the tagged
// sync/async variant the executor dispatches on without re-inspection. A nil
// Resolve falls back to the executor's default source projection.
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	Resolve           ResolveFunc
	Async             bool
	IsDeprecated      bool
	DeprecationReason string
}

// Argument returns the argument spec with the given name, or nil.
func (f *Field) Argument(name string) *InputValue {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// IsLeaf reports whether the kind carries no sub-selections.
func (k TypeKind) IsLeaf() bool { return k == TypeKindScalar || k == TypeKindEnum }

// IsAbstract reports whether the kind requires runtime type resolution.
func (k TypeKind) IsAbstract() bool { return k == TypeKindInterface || k == TypeKindUnion }

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	return t != nil && t.Kind == TypeRefKindList
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

// String renders the reference in SDL notation.
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	default:
		return t.Named
	}
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	HasDefault        bool
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

// NonNullType wraps t with Non-Null. Wrapping an already Non-Null reference
// returns it unchanged, so NonNull never directly wraps NonNull.
func NonNullType(t *TypeRef) *TypeRef {
	if t != nil && t.Kind == TypeRefKindNonNull {
		return t
	}
	return &TypeRef{Kind: TypeRefKindNonNull, OfType: t}
}
func ListType(t *TypeRef) *TypeRef   { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type is a list type.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// Unwrap removes one layer of Non-Null or List wrapping and returns the inner type.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }

// DefaultTypeResolver probes map values for a "__typename" entry.
func DefaultTypeResolver(ctx context.Context, abstractType string, value any) (string, error) {
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", nil
}
