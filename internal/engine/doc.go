// Package engine wires repository discovery, policy filtering, the
// debounce scheduler, and the git client into one staging engine.
//
// Hosts feed paths in through RequestAdd and receive outcomes through the
// OnResult callback, which fires at most once per completed staging
// attempt (never for rejected or no-op attempts). Setup replaces the
// configuration snapshot and clears the root cache; Cleanup tears down all
// pending timers and per-path state.
package engine
