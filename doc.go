// Package graphexec compiles GraphQL operations into reusable execution
// plans and runs them against resolver-backed schemas.
//
// The engine splits request handling into two phases. Compilation flattens
// the operation's selection sets against the schema (expanding fragments,
// folding literal @skip/@include directives, pre-binding argument coercion)
// and produces an immutable plan that is cached by a signature over the
// operation text and its referenced fragments, independent of variable
// values. Execution walks a compiled plan against a root value: resolvers
// marked async run concurrently per selection set, results assemble in
// declared field order, and errors carry response paths and source locations
// with GraphQL Non-Null propagation applied exactly.
//
// Typical use:
//
//	s, err := graphexec.BuildFromSDL(sdl, graphexec.Config{
//		Resolvers: map[string]graphexec.Resolver{
//			"Query.user": {Fn: resolveUser, Async: true},
//		},
//	})
//	engine := graphexec.New(s)
//	resp := engine.Do(ctx, query, "", nil, variables)
//
// Compile and Execute are also exposed separately for callers that manage
// plan reuse themselves.
package graphexec
