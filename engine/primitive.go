package engine

// Primitive is an executable compute step: a primitive descriptor bound to
// concrete memory for every one of its slots. Primitives are created with
// the Instantiate method of a resolved descriptor and are what execution
// nets accumulate.
//
// Execute runs the step synchronously. A primitive may be executed many
// times; each run reads its bound inputs and overwrites its bound outputs.
// Primitives of the same engine are safe to execute sequentially in any
// order that respects their data dependencies; a single primitive must not
// be executed concurrently with itself.
type Primitive interface {
	Execute() error
}
