package loom

import "sync/atomic"

// idCounter issues the unique IDs carried by effects, refs and computeds.
// IDs are monotonic and never reused.
var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}
