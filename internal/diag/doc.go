// Package diag models the messages an external script compiler emits and
// collects them during one compilation attempt.
//
// A Diagnostic carries a severity, a message, and an optional source
// location. The Collector receives the full message stream of a compilation:
// fatal messages accumulate into a batch for later aggregation into a report,
// everything else is routed straight to the structured log at a level
// matching its severity. Messages below the logger's level are never
// formatted, so verbose compiler streams cost nothing when nobody listens.
//
// Collectors are safe for concurrent use; compilers may report from several
// goroutines at once.
package diag
