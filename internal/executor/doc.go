// Package executor runs compiled query plans with type-directed value
// completion, exact Non-Null propagation, and selection-set-granularity
// concurrency.
//
// # Execution model
//
// A compiled plan fixes everything that does not depend on variable values:
// field order, resolver handles, argument evaluators, child plans per
// concrete type, and async markers. Execution walks the plan against a source
// value:
//
//   - A plan with no async resolvers anywhere executes inline on the calling
//     goroutine with no concurrency machinery at all.
//   - A plan with async fields runs them in goroutines and sync fields
//     inline, then assembles results in declared order.
//   - List elements complete concurrently only when async work exists below
//     the element type.
//
// Mutation root fields always execute serially in declared order.
//
// # Errors and Non-Null propagation
//
// Each failure is recorded exactly once, at the position where it originated,
// with the field's source location and response path. A null produced at a
// Non-Null position propagates to the nearest nullable enclosing position,
// nulling lists and objects on the way; propagation never records additional
// errors. Concurrently executed fields record into per-field collectors that
// are merged in declared order, so the error list is deterministic and
// follows field initiation order.
package executor
