package ember

import "github.com/spf13/pflag"

// Model is the interface between user models and training scripts. A Model
// owns its parameters and knows how to build the engines that train and
// evaluate it; the script wires datasets and callbacks around those engines.
//
// Keeping forward-pass logic inside the engines returned by CreateTrainer and
// CreateEvaluator (rather than returning rich outputs for the script to
// inspect) keeps per-iteration data local to the model, which matters when
// batches live on an accelerator.
type Model[B any] interface {
	// CreateTrainer returns an engine that runs the training step for a
	// single batch.
	CreateTrainer() *Engine[B]

	// CreateEvaluator returns an engine that runs the evaluation step for a
	// single batch.
	CreateEvaluator() *Engine[B]

	// CheckpointObjects returns the named objects the Checkpointer callback
	// should persist, typically the model itself under "model".
	CheckpointObjects() map[string]any
}

// FlagRegistrar is implemented by models and datasets that contribute their
// own command line flags. params.Spec and the demo CLI use it to compose
// model-specific and dataset-specific flags into one flag set, so training
// scripts don't have to repeat them.
type FlagRegistrar interface {
	RegisterFlags(fs *pflag.FlagSet)
}

// MetadataReceiver is implemented by models that size themselves from
// dataset metadata. A classifier might need the feature count or the number
// of classes, which is only known once the dataset is loaded; the training
// script passes the dataset's Meta here before building the trainer.
type MetadataReceiver interface {
	ApplyMetadata(meta Meta) error
}
