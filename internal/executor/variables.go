package executor

import (
	"fmt"

	language "github.com/hanpama/graphexec/internal/language"
	schema "github.com/hanpama/graphexec/internal/schema"
)

// CoerceVariables coerces the raw variable values of one request against the
// operation's variable definitions. A variable with no provided value and no
// default stays absent from the returned map, which is distinct from an
// explicit null: downstream argument binding falls back to argument defaults
// only for absent variables. Any coercion failure rejects the request as a
// whole.
func CoerceVariables(s *schema.Schema, defs language.VariableDefinitionList, values map[string]any) (map[string]any, error) {
	coerced := make(map[string]any, len(defs))
	for _, def := range defs {
		t := schema.TypeRefFromAST(def.Type)

		val, ok := values[def.Variable]
		if !ok {
			if def.DefaultValue != nil {
				dv, err := schema.CoerceInput(s, language.GoValue(def.DefaultValue), t)
				if err != nil {
					return nil, fmt.Errorf("Variable $%s got invalid default value: %v", def.Variable, err)
				}
				coerced[def.Variable] = dv
				continue
			}
			if schema.IsNonNull(t) {
				return nil, fmt.Errorf("Variable $%s of required type %s was not provided", def.Variable, def.Type.String())
			}
			continue
		}

		if val == nil && schema.IsNonNull(t) {
			return nil, fmt.Errorf("Variable $%s of non-null type %s must not be null", def.Variable, def.Type.String())
		}
		cv, err := schema.CoerceInput(s, val, t)
		if err != nil {
			return nil, fmt.Errorf("Variable $%s got invalid value: %v", def.Variable, err)
		}
		coerced[def.Variable] = cv
	}
	return coerced, nil
}
