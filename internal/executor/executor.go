package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dolmen-go/jsonmap"
	"golang.org/x/sync/errgroup"

	language "github.com/hanpama/graphexec/internal/language"
	plan "github.com/hanpama/graphexec/internal/plan"
	schema "github.com/hanpama/graphexec/internal/schema"
)

// Executor runs compiled plans against a schema. It is stateless and safe for
// concurrent use; all per-request state lives in an execState.
type Executor struct {
	schema *schema.Schema
}

func New(s *schema.Schema) *Executor {
	return &Executor{schema: s}
}

// Execute runs one compiled plan with the given raw variables and root value.
// Variable coercion failures reject the request before any resolver runs;
// resolver and completion errors produce a partial response with located
// errors. When ctx expires during execution, partial data is discarded and
// the response carries a single deadline error.
func (e *Executor) Execute(ctx context.Context, p *plan.CompiledPlan, variables map[string]any, root any) *Response {
	coerced, err := CoerceVariables(e.schema, p.VariableDefs, variables)
	if err != nil {
		return Reject(Error{Message: err.Error()})
	}

	st := &execState{
		schema:    e.schema,
		ctx:       ctx,
		variables: coerced,
	}

	// Mutations execute their root fields serially in declared order so that
	// each root field observes the side effects of the previous one.
	serial := !p.Root.Async || p.Operation == language.Mutation

	ec := &ErrorCollector{}
	data, ok := st.executeObjectPlan(p.Root, root, Path{}, ec, serial)

	if err := ctx.Err(); err != nil {
		msg := "execution deadline exceeded"
		if errors.Is(err, context.Canceled) {
			msg = "execution canceled"
		}
		return &Response{Data: nil, Errors: []Error{{Message: msg}}}
	}

	resp := &Response{Errors: ec.Errors()}
	if ok {
		resp.Data = data
	}
	return resp
}

type execState struct {
	schema    *schema.Schema
	ctx       context.Context
	variables map[string]any
}

// executeObjectPlan produces the response object for one compiled object plan.
// The returned bool is false when a Non-Null field of this object failed and
// the null must propagate to the enclosing nullable position; the originating
// error is already recorded.
func (st *execState) executeObjectPlan(p *plan.CompiledObjectPlan, source any, path Path, ec *ErrorCollector, serial bool) (jsonmap.Ordered, bool) {
	fields := p.Fields
	if conditional(fields) {
		fields = includedFields(fields, st.variables)
	}

	if serial || !p.Async {
		return st.executeSerial(p, fields, source, path, ec)
	}
	return st.executeConcurrent(p, fields, source, path, ec)
}

func conditional(fields []*plan.CompiledField) bool {
	for _, f := range fields {
		if f.Condition != nil {
			return true
		}
	}
	return false
}

func includedFields(fields []*plan.CompiledField, vars map[string]any) []*plan.CompiledField {
	out := make([]*plan.CompiledField, 0, len(fields))
	for _, f := range fields {
		if f.Condition != nil && !f.Condition(vars) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// executeSerial resolves and completes fields inline in declared order with
// no goroutines. This is the path for plans with no async resolvers and for
// mutation roots.
func (st *execState) executeSerial(p *plan.CompiledObjectPlan, fields []*plan.CompiledField, source any, path Path, ec *ErrorCollector) (jsonmap.Ordered, bool) {
	result := jsonmap.Ordered{
		Data:  make(map[string]any, len(fields)),
		Order: make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		v, ok := st.resolveField(p, f, source, appendPath(path, f.ResponseKey), ec)
		if !ok {
			if schema.IsNonNull(f.Type) {
				return jsonmap.Ordered{}, false
			}
			v = nil
		}
		result.Order = append(result.Order, f.ResponseKey)
		result.Data[f.ResponseKey] = v
	}
	return result, true
}

// executeConcurrent resolves async fields in goroutines and sync fields
// inline, each recording into its own collector. Results are assembled and
// collectors merged in declared order once all fields finish, so response
// entries and errors are deterministic regardless of scheduling. After a
// Non-Null failure the remaining collectors are still merged: every field was
// initiated, so every field's errors surface.
func (st *execState) executeConcurrent(p *plan.CompiledObjectPlan, fields []*plan.CompiledField, source any, path Path, ec *ErrorCollector) (jsonmap.Ordered, bool) {
	values := make([]any, len(fields))
	oks := make([]bool, len(fields))
	collectors := make([]*ErrorCollector, len(fields))

	var g errgroup.Group
	for i, f := range fields {
		collectors[i] = &ErrorCollector{}
		fieldPath := appendPath(path, f.ResponseKey)
		if f.Async {
			i, f := i, f
			g.Go(func() error {
				values[i], oks[i] = st.resolveField(p, f, source, fieldPath, collectors[i])
				return nil
			})
			continue
		}
		values[i], oks[i] = st.resolveField(p, f, source, fieldPath, collectors[i])
	}
	g.Wait()

	result := jsonmap.Ordered{
		Data:  make(map[string]any, len(fields)),
		Order: make([]string, 0, len(fields)),
	}
	failed := false
	for i, f := range fields {
		ec.Merge(collectors[i])
		if failed {
			continue
		}
		v := values[i]
		if !oks[i] {
			if schema.IsNonNull(f.Type) {
				failed = true
				continue
			}
			v = nil
		}
		result.Order = append(result.Order, f.ResponseKey)
		result.Data[f.ResponseKey] = v
	}
	if failed {
		return jsonmap.Ordered{}, false
	}
	return result, true
}

// resolveField produces the completed value for one field occurrence. The
// returned bool is false when the value could not be produced; the error is
// already recorded and the caller decides between writing null and
// propagating.
func (st *execState) resolveField(p *plan.CompiledObjectPlan, f *plan.CompiledField, source any, path Path, ec *ErrorCollector) (any, bool) {
	if f.Typename {
		return p.TypeName, true
	}

	if err := st.ctx.Err(); err != nil {
		return nil, false
	}

	var args map[string]any
	if f.Arguments != nil {
		var err error
		args, err = f.Arguments(st.variables)
		if err != nil {
			ec.Record(st.fieldError(f, path, err.Error()))
			return nil, false
		}
	}

	var value any
	var err error
	if f.Resolve != nil {
		value, err = f.Resolve(st.ctx, source, args)
	} else {
		value = defaultResolve(source, f.FieldName)
	}
	if err != nil {
		ec.Record(st.fieldError(f, path, err.Error()))
		return nil, false
	}

	return st.completeValue(f, f.Type, value, path, ec)
}

// completeValue applies the type-directed completion rules. A false result
// means completion failed at this position with the error already recorded;
// in particular a Non-Null wrapper records "Cannot return null" only when the
// inner completion produced a genuine null, never on top of an inner failure,
// so each originating failure surfaces exactly once.
func (st *execState) completeValue(f *plan.CompiledField, t *schema.TypeRef, value any, path Path, ec *ErrorCollector) (any, bool) {
	if schema.IsNonNull(t) {
		v, ok := st.completeValue(f, t.Unwrap(), value, path, ec)
		if !ok {
			return nil, false
		}
		if isNullish(v) {
			ec.Record(st.fieldError(f, path, fmt.Sprintf("Cannot return null for non-nullable field %s", path.String())))
			return nil, false
		}
		return v, true
	}

	if isNullish(value) {
		return nil, true
	}

	if schema.IsList(t) {
		return st.completeListValue(f, t, value, path, ec)
	}

	if f.Leaf != nil {
		return st.completeLeafValue(f, value, path, ec)
	}

	if f.AbstractType != "" {
		return st.completeAbstractValue(f, value, path, ec)
	}

	childPlan := f.Plans[t.GetNamedType()]
	if childPlan == nil {
		ec.Record(st.fieldError(f, path, fmt.Sprintf("Unknown type: %s", t.GetNamedType())))
		return nil, false
	}
	obj, ok := st.executeObjectPlan(childPlan, value, path, ec, !childPlan.Async)
	if !ok {
		return nil, false
	}
	return obj, true
}

func (st *execState) completeLeafValue(f *plan.CompiledField, value any, path Path, ec *ErrorCollector) (any, bool) {
	if f.Leaf.Serialize == nil {
		return value, true
	}
	serialized, err := f.Leaf.Serialize(value)
	if err != nil {
		ec.Record(st.fieldError(f, path, err.Error()))
		return nil, false
	}
	return serialized, true
}

// completeListValue completes every element even after one fails: element
// errors are independent observations and all of them belong in the response.
// A failed element of Non-Null element type fails the list as a whole after
// the remaining elements have been walked.
func (st *execState) completeListValue(f *plan.CompiledField, listType *schema.TypeRef, value any, path Path, ec *ErrorCollector) (any, bool) {
	items, listErr := toSlice(value)
	if listErr != nil {
		ec.Record(st.fieldError(f, path, listErr.Error()))
		return nil, false
	}

	elemType := listType.Unwrap()

	if f.ChildAsync && len(items) > 1 {
		return st.completeListConcurrent(f, elemType, items, path, ec)
	}

	completed := make([]any, len(items))
	failed := false
	for i, item := range items {
		v, ok := st.completeValue(f, elemType, item, appendPath(path, i), ec)
		if !ok {
			if schema.IsNonNull(elemType) {
				failed = true
			}
			v = nil
		}
		completed[i] = v
	}
	if failed {
		return nil, false
	}
	return completed, true
}

// completeListConcurrent completes elements in parallel when async work
// exists below the element type. Per-element collectors are merged in index
// order for deterministic error sequence.
func (st *execState) completeListConcurrent(f *plan.CompiledField, elemType *schema.TypeRef, items []any, path Path, ec *ErrorCollector) (any, bool) {
	values := make([]any, len(items))
	oks := make([]bool, len(items))
	collectors := make([]*ErrorCollector, len(items))

	var g errgroup.Group
	for i, item := range items {
		collectors[i] = &ErrorCollector{}
		i, item := i, item
		g.Go(func() error {
			values[i], oks[i] = st.completeValue(f, elemType, item, appendPath(path, i), collectors[i])
			return nil
		})
	}
	g.Wait()

	completed := make([]any, len(items))
	failed := false
	for i := range items {
		ec.Merge(collectors[i])
		v := values[i]
		if !oks[i] {
			if schema.IsNonNull(elemType) {
				failed = true
			}
			v = nil
		}
		completed[i] = v
	}
	if failed {
		return nil, false
	}
	return completed, true
}

func (st *execState) completeAbstractValue(f *plan.CompiledField, value any, path Path, ec *ErrorCollector) (any, bool) {
	typeName, err := st.schema.TypeResolver(st.ctx, f.AbstractType, value)
	if err != nil {
		ec.Record(st.fieldError(f, path, err.Error()))
		return nil, false
	}
	if typeName == "" {
		ec.Record(st.fieldError(f, path, fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime, got no type", f.AbstractType)))
		return nil, false
	}
	childPlan := f.Plans[typeName]
	if childPlan == nil {
		ec.Record(st.fieldError(f, path, fmt.Sprintf("Abstract type %s resolved to %q, which is not a possible type", f.AbstractType, typeName)))
		return nil, false
	}
	obj, ok := st.executeObjectPlan(childPlan, value, path, ec, !childPlan.Async)
	if !ok {
		return nil, false
	}
	return obj, true
}

func (st *execState) fieldError(f *plan.CompiledField, path Path, message string) Error {
	e := Error{Message: message, Path: path}
	if f.Line > 0 {
		e.Locations = []Location{{Line: f.Line, Column: f.Column}}
	}
	return e
}

// defaultResolve projects a field from the source value when no resolver is
// bound: a map lookup for map sources, an exported struct field matched by
// name for struct sources.
func defaultResolve(source any, fieldName string) any {
	if source == nil {
		return nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[fieldName]
	}

	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Name == fieldName || strings.EqualFold(sf.Name, fieldName) {
			return rv.Field(i).Interface()
		}
	}
	return nil
}

func toSlice(value any) ([]any, error) {
	if direct, ok := value.([]any); ok {
		return direct, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("Expected list value, got %T", value)
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}

// isNullish reports nil interfaces and typed nils.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
