// Package flows contains the orchestration behind Engine operations.
//
// Each flow (RunIssue, RunRefresh, RunRevoke, RunLogin, RunResolvePermissions)
// takes a dependency struct and returns a result value carrying a failure
// kind instead of a root error. The Engine maps kinds to its public errors,
// metrics and log lines in one place.
//
// Flows hold no state between calls and must not import authcore.
package flows
