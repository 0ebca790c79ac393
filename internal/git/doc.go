// Package git provides repository root discovery and asynchronous git
// subprocess invocation for the staging engine.
//
// The package never links against git internals; it shells out to the git
// binary and trusts exit codes and captured output. Root discovery results
// are memoized per query path, including negative results, so repeated
// lookups perform no filesystem probes.
package git
