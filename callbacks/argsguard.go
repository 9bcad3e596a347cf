package callbacks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/emberml/ember"
	"github.com/emberml/ember/params"
)

// ErrParamsRejected is returned by ArgsGuard.Register when the saved
// parameters differ from the current ones and the user declines to continue.
var ErrParamsRejected = errors.New("callbacks: run rejected, saved parameters differ")

// Prompter asks the user a yes/no question. The default implementation reads
// from the terminal; tests substitute a canned answer.
type Prompter interface {
	Confirm(prompt string) (bool, error)
}

// ReadlinePrompter confirms through an interactive terminal prompt.
type ReadlinePrompter struct{}

// Confirm shows the prompt and reads one line. Only "y" and "yes" count as
// confirmation.
func (ReadlinePrompter) Confirm(prompt string) (bool, error) {
	rl, err := readline.New(prompt)
	if err != nil {
		return false, fmt.Errorf("open prompt: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		return false, fmt.Errorf("read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// ArgsGuardConfig holds configuration options for an ArgsGuard.
type ArgsGuardConfig struct {
	// Path is the JSON file the parameters are persisted to, usually inside
	// the run's checkpoint directory.
	Path string

	// Spec validates the values before anything is persisted.
	Spec *params.Spec

	// Values are the current run's parameter values.
	Values map[string]any

	// Prompter asks for confirmation when saved and current parameters
	// differ. Defaults to ReadlinePrompter.
	Prompter Prompter
}

// ArgsGuard persists run parameters next to the run's artifacts and guards
// against accidentally resuming with different ones.
//
// On the first run it validates the values and writes them to Path. On later
// runs it compares the saved file against the current values: when they
// differ it shows a unified diff and asks for confirmation before
// overwriting. Declining aborts registration with ErrParamsRejected, so
// AddCallbacks fails and the run never starts.
type ArgsGuard[B any] struct {
	cfg ArgsGuardConfig
}

// NewArgsGuard creates an ArgsGuard from the config.
func NewArgsGuard[B any](cfg ArgsGuardConfig) *ArgsGuard[B] {
	if cfg.Prompter == nil {
		cfg.Prompter = ReadlinePrompter{}
	}
	return &ArgsGuard[B]{cfg: cfg}
}

// Register validates and persists the parameters. Implements ember.Callback.
// The guard keeps no handlers; all its work happens here, before the run.
func (g *ArgsGuard[B]) Register(e *ember.Engine[B]) error {
	if g.cfg.Path == "" {
		return errors.New("callbacks: ArgsGuard requires a Path")
	}

	if g.cfg.Spec != nil {
		schema, err := g.cfg.Spec.Schema()
		if err != nil {
			return fmt.Errorf("build parameter schema: %w", err)
		}
		if err := schema.Validate(g.cfg.Values); err != nil {
			return err
		}
	}

	current, err := encodeParams(g.cfg.Values)
	if err != nil {
		return err
	}

	saved, err := os.ReadFile(g.cfg.Path)
	if os.IsNotExist(err) {
		e.Logger().Info("saving run parameters", "path", g.cfg.Path)
		return writeParams(g.cfg.Path, current)
	}
	if err != nil {
		return fmt.Errorf("read saved parameters: %w", err)
	}

	savedNorm, err := normalizeParams(saved)
	if err != nil {
		return fmt.Errorf("decode saved parameters: %w", err)
	}
	if string(savedNorm) == string(current) {
		return nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(savedNorm)),
		B:        difflib.SplitLines(string(current)),
		FromFile: g.cfg.Path,
		ToFile:   "current",
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("diff parameters: %w", err)
	}

	ok, err := g.cfg.Prompter.Confirm(fmt.Sprintf(
		"Run parameters differ from %s:\n%sContinue and overwrite? [y/n]: ",
		g.cfg.Path, diff,
	))
	if err != nil {
		return err
	}
	if !ok {
		return ErrParamsRejected
	}

	e.Logger().Info("overwriting run parameters", "path", g.cfg.Path)
	return writeParams(g.cfg.Path, current)
}

// encodeParams renders values in the canonical form used for comparison and
// on disk: indented JSON with sorted keys.
func encodeParams(values map[string]any) ([]byte, error) {
	if values == nil {
		values = map[string]any{}
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	return append(data, '\n'), nil
}

// normalizeParams re-encodes a saved file so hand edits to whitespace or key
// order do not register as a parameter change.
func normalizeParams(saved []byte) ([]byte, error) {
	var values map[string]any
	if err := json.Unmarshal(saved, &values); err != nil {
		return nil, err
	}
	return encodeParams(values)
}

func writeParams(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write parameters: %w", err)
	}
	return nil
}

var _ ember.Callback[any] = (*ArgsGuard[any])(nil)
