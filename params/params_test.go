package params

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainerSpec() *Spec {
	return New(
		Float("lr", 0.01, "learning rate").Min(0),
		Int("epochs", 10, "epoch count").Min(1).Max(1000),
		String("optimizer", "sgd", "optimizer name"),
		Bool("shuffle", true, "shuffle each epoch"),
	)
}

func TestSpecNamesAndMerge(t *testing.T) {
	spec := trainerSpec()
	assert.Equal(t, 4, spec.Len())
	assert.Equal(t, []string{"lr", "epochs", "optimizer", "shuffle"}, spec.Names())

	spec.Merge(New(Int("batch-size", 32, "batch size").Min(1)))
	assert.Equal(t, 5, spec.Len())
	assert.Equal(t, "batch-size", spec.Names()[4])

	// Merging nil is a no-op.
	spec.Merge(nil)
	assert.Equal(t, 5, spec.Len())
}

func TestSpecFlagsRoundTrip(t *testing.T) {
	spec := trainerSpec()
	fs := pflag.NewFlagSet("train", pflag.ContinueOnError)
	spec.RegisterFlags(fs)

	require.NoError(t, fs.Parse([]string{"--lr=0.1", "--epochs=50", "--shuffle=false"}))

	values, err := spec.Values(fs)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"lr":        0.1,
		"epochs":    50,
		"optimizer": "sgd",
		"shuffle":   false,
	}, values)
}

func TestSpecValuesUsesDefaults(t *testing.T) {
	spec := trainerSpec()
	fs := pflag.NewFlagSet("train", pflag.ContinueOnError)
	spec.RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	values, err := spec.Values(fs)
	require.NoError(t, err)
	assert.Equal(t, 0.01, values["lr"])
	assert.Equal(t, 10, values["epochs"])
}

func TestSchemaValidation(t *testing.T) {
	schema, err := trainerSpec().Schema()
	require.NoError(t, err)

	tests := []struct {
		name  string
		input map[string]any
		valid bool
	}{
		{
			name: "valid values",
			input: map[string]any{
				"lr": 0.1, "epochs": 50, "optimizer": "adam", "shuffle": true,
			},
			valid: true,
		},
		{
			name: "typed ints validate as integers",
			input: map[string]any{
				"lr": 0.1, "epochs": int(50), "optimizer": "adam", "shuffle": true,
			},
			valid: true,
		},
		{
			name: "below minimum",
			input: map[string]any{
				"lr": -0.5, "epochs": 50, "optimizer": "adam", "shuffle": true,
			},
			valid: false,
		},
		{
			name: "above maximum",
			input: map[string]any{
				"lr": 0.1, "epochs": 5000, "optimizer": "adam", "shuffle": true,
			},
			valid: false,
		},
		{
			name: "wrong type",
			input: map[string]any{
				"lr": "fast", "epochs": 50, "optimizer": "adam", "shuffle": true,
			},
			valid: false,
		},
		{
			name: "missing parameter",
			input: map[string]any{
				"lr": 0.1, "epochs": 50, "optimizer": "adam",
			},
			valid: false,
		},
		{
			name: "unknown parameter",
			input: map[string]any{
				"lr": 0.1, "epochs": 50, "optimizer": "adam", "shuffle": true,
				"momentum": 0.9,
			},
			valid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := schema.Validate(tc.input)
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSchemaRaw(t *testing.T) {
	schema, err := New(Float("lr", 0.01, "learning rate")).Schema()
	require.NoError(t, err)

	raw := schema.Raw()
	assert.Equal(t, "object", raw["type"])
	props := raw["properties"].(map[string]any)
	lr := props["lr"].(map[string]any)
	assert.Equal(t, "number", lr["type"])
	assert.Equal(t, "learning rate", lr["description"])
}

func TestCompileNilSchema(t *testing.T) {
	schema, err := Compile(nil)
	require.NoError(t, err)
	assert.Nil(t, schema)
	assert.NoError(t, schema.Validate(map[string]any{"anything": 1}))
}

func TestCompileInvalidSchema(t *testing.T) {
	_, err := Compile(map[string]any{"type": 42})
	assert.Error(t, err)
}
