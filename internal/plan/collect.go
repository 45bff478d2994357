package plan

import (
	"fmt"

	language "github.com/hanpama/graphexec/internal/language"
	schema "github.com/hanpama/graphexec/internal/schema"
)

// conditioned pairs a selection set with the inclusion condition of the
// occurrence that contributed it. A nil cond means unconditionally included.
type conditioned struct {
	set  language.SelectionSet
	cond ConditionFunc
}

// collectedGroup gathers the AST fields that share one response key on a
// concrete object type, in document order. Conds is parallel to Fields and
// holds each occurrence's own inclusion condition, so sub-selections keep
// their contributing occurrence's condition when the group is merged.
type collectedGroup struct {
	ResponseKey string
	Fields      []*language.Field
	Conds       []ConditionFunc
}

// condition folds the group's inclusion condition: the response key appears
// when any contributing occurrence is included, and an unconditional
// occurrence makes the whole group unconditional.
func (g *collectedGroup) condition() ConditionFunc {
	conds := make([]ConditionFunc, 0, len(g.Conds))
	for _, c := range g.Conds {
		if c == nil {
			return nil
		}
		conds = append(conds, c)
	}
	if len(conds) == 1 {
		return conds[0]
	}
	return func(vars map[string]any) bool {
		for _, c := range conds {
			if c(vars) {
				return true
			}
		}
		return false
	}
}

// childSets pairs each occurrence's sub-selections with that occurrence's own
// condition. Fields contributed only by an excluded occurrence then drop out
// at runtime while the remaining occurrences' fields stay.
func (g *collectedGroup) childSets() []conditioned {
	sets := make([]conditioned, 0, len(g.Fields))
	for i, f := range g.Fields {
		if len(f.SelectionSet) == 0 {
			continue
		}
		sets = append(sets, conditioned{set: f.SelectionSet, cond: g.Conds[i]})
	}
	return sets
}

type fieldCollector struct {
	schema   *schema.Schema
	document *language.QueryDocument

	groups []*collectedGroup
	index  map[string]int
}

// collectFields flattens conditioned selection sets against a concrete object
// type: fragment spreads and inline fragments whose type condition applies
// are expanded in place in document order, selections sharing a response key
// are grouped for sub-selection merging, and statically excluded selections
// (@skip/@include with literal arguments) are dropped.
func collectFields(s *schema.Schema, document *language.QueryDocument, objectType *schema.Type, sets []conditioned) ([]*collectedGroup, error) {
	fc := &fieldCollector{
		schema:   s,
		document: document,
		index:    map[string]int{},
	}
	for _, cs := range sets {
		if err := fc.walk(objectType, cs.set, cs.cond, nil); err != nil {
			return nil, err
		}
	}
	return fc.groups, nil
}

// walk expands one selection set. chain holds the fragment names on the
// current expansion path so spread cycles terminate; a fragment spread twice
// from sibling positions still expands both times, each under its own
// condition.
func (fc *fieldCollector) walk(objectType *schema.Type, selectionSet language.SelectionSet, parentCond ConditionFunc, chain map[string]bool) error {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			excluded, cond := compileCondition(sel.Directives)
			if excluded {
				continue
			}
			responseKey := sel.Alias
			if responseKey == "" {
				responseKey = sel.Name
			}
			fc.add(responseKey, sel, and(parentCond, cond))

		case *language.InlineFragment:
			excluded, cond := compileCondition(sel.Directives)
			if excluded {
				continue
			}
			if !fc.schema.Applies(sel.TypeCondition, objectType) {
				continue
			}
			if err := fc.walk(objectType, sel.SelectionSet, and(parentCond, cond), chain); err != nil {
				return err
			}

		case *language.FragmentSpread:
			excluded, cond := compileCondition(sel.Directives)
			if excluded {
				continue
			}
			if chain[sel.Name] {
				continue
			}
			fragment := fc.document.Fragments.ForName(sel.Name)
			if fragment == nil {
				return fmt.Errorf("unknown fragment %q", sel.Name)
			}
			if !fc.schema.Applies(fragment.TypeCondition, objectType) {
				continue
			}
			fragExcluded, fragCond := compileCondition(fragment.Directives)
			if fragExcluded {
				continue
			}
			next := make(map[string]bool, len(chain)+1)
			for name := range chain {
				next[name] = true
			}
			next[sel.Name] = true
			if err := fc.walk(objectType, fragment.SelectionSet, and(parentCond, and(cond, fragCond)), next); err != nil {
				return err
			}
		}
	}
	return nil
}

func (fc *fieldCollector) add(responseKey string, field *language.Field, cond ConditionFunc) {
	idx, exists := fc.index[responseKey]
	if !exists {
		idx = len(fc.groups)
		fc.index[responseKey] = idx
		fc.groups = append(fc.groups, &collectedGroup{ResponseKey: responseKey})
	}
	g := fc.groups[idx]
	g.Fields = append(g.Fields, field)
	g.Conds = append(g.Conds, cond)
}

// compileCondition folds @skip/@include directives. Literal arguments are
// evaluated now: a selection excluded by a literal never reaches the plan.
// Variable references become a runtime condition; a selection carrying both
// directives is included only when neither says exclude.
func compileCondition(directives language.DirectiveList) (excluded bool, cond ConditionFunc) {
	if skip := directives.ForName("skip"); skip != nil {
		excluded, cond = foldDirective(skip, true, excluded, cond)
	}
	if include := directives.ForName("include"); include != nil {
		excluded, cond = foldDirective(include, false, excluded, cond)
	}
	return excluded, cond
}

// foldDirective merges one directive's condition. excludeWhen is the boolean
// argument value that excludes the selection (true for @skip, false for
// @include).
func foldDirective(d *language.Directive, excludeWhen bool, excluded bool, cond ConditionFunc) (bool, ConditionFunc) {
	if excluded {
		return true, nil
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return excluded, cond
	}
	if arg.Value.Kind == language.Variable {
		name := arg.Value.Raw
		return false, and(cond, func(vars map[string]any) bool {
			b, _ := vars[name].(bool)
			return b != excludeWhen
		})
	}
	b, _ := language.GoValue(arg.Value).(bool)
	if b == excludeWhen {
		return true, nil
	}
	return excluded, cond
}

func and(a, b ConditionFunc) ConditionFunc {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(vars map[string]any) bool { return a(vars) && b(vars) }
}
