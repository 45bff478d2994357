package plan

import (
	"fmt"

	language "github.com/hanpama/graphexec/internal/language"
	schema "github.com/hanpama/graphexec/internal/schema"
)

// CoercionError reports an invalid literal or variable for a declared
// argument type, naming the argument and the underlying parser message.
type CoercionError struct {
	Argument string
	Err      error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("argument %q cannot be coerced: %v", e.Argument, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// argBinding is one pre-bound argument: either a value fixed at compile time
// (coerced literal or default), a static omission, or a per-execution
// evaluator for variable references.
type argBinding struct {
	name   string
	static bool
	omit   bool
	value  any
	eval   func(vars map[string]any) (value any, present bool, err error)
}

// compileArguments pre-binds the argument evaluator for one field so that
// per-execution extraction does no schema lookup. Literals and defaults are
// coerced here, once; a required argument that is provably absent fails
// compilation rather than execution.
func compileArguments(s *schema.Schema, fieldDef *schema.Field, args language.ArgumentList) (ArgumentEvaluator, error) {
	if len(fieldDef.Arguments) == 0 {
		return nil, nil
	}

	bindings := make([]argBinding, 0, len(fieldDef.Arguments))
	for _, spec := range fieldDef.Arguments {
		b, err := bindArgument(s, fieldDef, spec, args.ForName(spec.Name))
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}

	return func(vars map[string]any) (map[string]any, error) {
		out := make(map[string]any, len(bindings))
		for _, b := range bindings {
			if b.omit {
				continue
			}
			if b.static {
				out[b.name] = b.value
				continue
			}
			v, present, err := b.eval(vars)
			if err != nil {
				return nil, err
			}
			if present {
				out[b.name] = v
			}
		}
		return out, nil
	}, nil
}

func bindArgument(s *schema.Schema, fieldDef *schema.Field, spec *schema.InputValue, astArg *language.Argument) (argBinding, error) {
	b := argBinding{name: spec.Name}

	if astArg == nil {
		if spec.HasDefault {
			dv, err := schema.CoerceInput(s, spec.DefaultValue, spec.Type)
			if err != nil {
				return b, compileErrorf("default for argument %q of field %q cannot be coerced: %v", spec.Name, fieldDef.Name, err)
			}
			b.static = true
			b.value = dv
			return b, nil
		}
		if schema.IsNonNull(spec.Type) {
			return b, compileErrorf("argument %q of required type %s on field %q was not provided", spec.Name, spec.Type.String(), fieldDef.Name)
		}
		b.omit = true
		return b, nil
	}

	if astArg.Value.Kind == language.Variable {
		b.eval = variableBinding(s, spec, astArg.Value.Raw)
		return b, nil
	}

	if hasVariables(astArg.Value) {
		// Literal containing nested variable references; resolved and
		// coerced per execution.
		value := astArg.Value
		b.eval = func(vars map[string]any) (any, bool, error) {
			cv, err := schema.CoerceInput(s, valueWithVars(value, vars), spec.Type)
			if err != nil {
				return nil, false, &CoercionError{Argument: spec.Name, Err: err}
			}
			return cv, true, nil
		}
		return b, nil
	}

	cv, err := schema.CoerceInput(s, language.GoValue(astArg.Value), spec.Type)
	if err != nil {
		return b, compileErrorf("argument %q of field %q cannot be coerced: %v", spec.Name, fieldDef.Name, err)
	}
	b.static = true
	b.value = cv
	return b, nil
}

// variableBinding resolves one variable-valued argument at execution time.
// A variable absent from the coerced variable map is Absent, distinct from
// an explicit null: the argument falls back to its default or is omitted.
func variableBinding(s *schema.Schema, spec *schema.InputValue, varName string) func(vars map[string]any) (any, bool, error) {
	return func(vars map[string]any) (any, bool, error) {
		v, ok := vars[varName]
		if !ok {
			if spec.HasDefault {
				dv, err := schema.CoerceInput(s, spec.DefaultValue, spec.Type)
				if err != nil {
					return nil, false, &CoercionError{Argument: spec.Name, Err: err}
				}
				return dv, true, nil
			}
			if schema.IsNonNull(spec.Type) {
				return nil, false, &CoercionError{Argument: spec.Name, Err: fmt.Errorf("required argument not provided (variable $%s absent)", varName)}
			}
			return nil, false, nil
		}
		cv, err := schema.CoerceInput(s, v, spec.Type)
		if err != nil {
			return nil, false, &CoercionError{Argument: spec.Name, Err: err}
		}
		return cv, true, nil
	}
}

func hasVariables(v *language.Value) bool {
	if v == nil {
		return false
	}
	if v.Kind == language.Variable {
		return true
	}
	for _, c := range v.Children {
		if hasVariables(c.Value) {
			return true
		}
	}
	return false
}

func valueWithVars(v *language.Value, vars map[string]any) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.Variable:
		return vars[v.Raw]
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = valueWithVars(c.Value, vars)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			m[c.Name] = valueWithVars(c.Value, vars)
		}
		return m
	default:
		return language.GoValue(v)
	}
}
