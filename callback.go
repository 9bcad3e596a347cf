package ember

// Callback bundles a set of related event handlers that are attached to an
// Engine in one call. The callbacks package implements the common ones
// (checkpointing, progress reporting, early stopping), each composed of
// handlers that would otherwise be boilerplate in every training script.
//
// Register is called once by Engine.AddCallbacks. Implementations register
// their handlers on the engine and may inspect or restore engine state; an
// error aborts callback registration and should make the caller abandon the
// run.
type Callback[B any] interface {
	Register(e *Engine[B]) error
}

// CallbackFunc adapts a function to the Callback interface.
type CallbackFunc[B any] func(e *Engine[B]) error

// Register calls f.
func (f CallbackFunc[B]) Register(e *Engine[B]) error {
	return f(e)
}
