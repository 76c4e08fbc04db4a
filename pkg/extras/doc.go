// Package extras provides policy wrappers around refs.
//
// Debounced puts a quiet-period gate in front of a ref's writes, so a
// burst of sets commits once. FileRef binds a ref to a file on disk,
// following external edits and writing sets back through.
//
//	search, stop := extras.Debounced(query, 250*time.Millisecond)
//	defer stop()
//	search.Set("lo")
//	search.Set("loom")  // only "loom" reaches query
//
// Both wrappers read and write through the ref they decorate, so
// effects and computeds observe them like any other ref.
package extras
