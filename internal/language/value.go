package language

import "strconv"

// GoValue converts a literal AST value to its Go representation. Variable
// references yield nil; callers that support variables must handle the
// Variable kind before falling back here.
func GoValue(value *Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case StringValue, BlockValue:
		return value.Raw
	case BooleanValue:
		return value.Raw == "true"
	case NullValue:
		return nil
	case EnumValue:
		return value.Raw
	case ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = GoValue(c.Value)
		}
		return out
	case ObjectValue:
		m := make(map[string]any)
		for _, f := range value.Children {
			m[f.Name] = GoValue(f.Value)
		}
		return m
	default:
		return nil
	}
}
