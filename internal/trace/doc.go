// Package trace records span events for the v4c driver and code generator.
//
// Spans nest driver -> pass -> function -> statement. A tracer travels
// through the pipeline on the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "isel", parentID)
//	defer span.End("")
//
// Levels gate scopes: phase shows driver and pass spans, detail adds
// per-function spans, debug adds statements. The ring tracer keeps the
// most recent events in memory so the CLI can dump them when a build
// fails.
package trace
