// Package merge implements the save contracts for structured entities.
//
// Type-entities accumulate: MergeType unions the array fields and only ever
// raises depth (stub < shallow < deep), so repeated partial saves never lose
// information. Callable- and Field-entities are precise facts: OverlayCallable
// and OverlayField overwrite every supplied field, call-edge lists included.
// The two policies are kept as separate functions so the difference stays
// visible at each call site.
package merge
