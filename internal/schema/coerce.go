package schema

import "fmt"

// CoerceInput coerces a runtime input value (variable or literal, already
// converted to plain Go values) against a declared type reference. A nil
// element inside a list of nullable element type is preserved as nil and
// never passed to the leaf parser.
func CoerceInput(s *Schema, value any, targetType *TypeRef) (any, error) {
	if IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type %s", targetType.String())
		}
		return CoerceInput(s, value, Unwrap(targetType))
	}

	if value == nil {
		return nil, nil
	}

	if IsList(targetType) {
		inner := Unwrap(targetType)
		if slice, ok := value.([]any); ok {
			coerced := make([]any, len(slice))
			for i, item := range slice {
				cv, err := CoerceInput(s, item, inner)
				if err != nil {
					return nil, fmt.Errorf("at index %d: %v", i, err)
				}
				coerced[i] = cv
			}
			return coerced, nil
		}
		// Single value coerces to a list of one.
		cv, err := CoerceInput(s, value, inner)
		if err != nil {
			return nil, err
		}
		return []any{cv}, nil
	}

	named := s.Types[GetNamedType(targetType)]
	if named == nil {
		return nil, fmt.Errorf("unknown type %s", GetNamedType(targetType))
	}

	switch named.Kind {
	case TypeKindScalar, TypeKindEnum:
		if named.ParseValue == nil {
			return value, nil
		}
		return named.ParseValue(value)
	case TypeKindInputObject:
		return coerceInputObject(s, named, value)
	default:
		return nil, fmt.Errorf("type %s cannot be used as input", named.Name)
	}
}

func coerceInputObject(s *Schema, t *Type, value any) (any, error) {
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected input object for %s, got %T", t.Name, value)
	}
	coerced := make(map[string]any, len(fields))
	for name := range fields {
		known := false
		for _, in := range t.InputFields {
			if in.Name == name {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("field %q is not defined by input type %s", name, t.Name)
		}
	}
	for _, in := range t.InputFields {
		v, present := fields[in.Name]
		if !present {
			if in.HasDefault {
				coerced[in.Name] = in.DefaultValue
			} else if IsNonNull(in.Type) {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", t.Name, in.Name, in.Type.String())
			}
			continue
		}
		cv, err := CoerceInput(s, v, in.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %v", t.Name, in.Name, err)
		}
		coerced[in.Name] = cv
	}
	return coerced, nil
}
