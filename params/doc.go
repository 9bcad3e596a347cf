// Package params provides declarative parameter specs shared by models,
// datasets, and the scripts that run them.
//
// # Overview
//
// A Spec describes a set of tunable parameters (name, type, default, help,
// bounds) once. From that single description it can:
//
//   - register command line flags on a pflag.FlagSet, so model-specific and
//     dataset-specific flags compose into one CLI without the script
//     repeating them
//   - snapshot the effective values for persistence next to checkpoints
//   - compile a JSON Schema that validates a persisted value file before a
//     resumed run trusts it
//
// # Quick Start
//
//	spec := params.New(
//	    params.Float("lr", 0.001, "learning rate").Min(0),
//	    params.Int("hidden-units", 64, "hidden layer width").Min(1),
//	    params.Bool("shuffle", true, "reshuffle examples every epoch"),
//	)
//
//	spec.RegisterFlags(cmd.Flags())
//	// ... after flag parsing ...
//	values, err := spec.Values(cmd.Flags())
//	schema, err := spec.Schema()
//	err = schema.Validate(loadedValues)
package params
