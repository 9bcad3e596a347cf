// Package checkpoint persists and restores training state.
//
// A Manager owns a checkpoint directory: one gob-encoded snapshot file per
// save plus a JSON manifest tracking the latest snapshot and the retention
// window. The callbacks.Checkpointer drives it from engine events; scripts
// can also use it directly to inspect or restore saved runs.
package checkpoint

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const manifestFile = "manifest.json"

// ErrNoCheckpoint is returned by Latest when the directory holds no
// checkpoint yet.
var ErrNoCheckpoint = errors.New("checkpoint: no checkpoint available")

// Saveable is implemented by objects that participate in checkpointing,
// typically models. StateBytes captures the object's state; RestoreBytes
// replaces it.
type Saveable interface {
	StateBytes() ([]byte, error)
	RestoreBytes(data []byte) error
}

// Snapshot is one saved training state: the engine counters plus the
// serialized state of every registered object.
type Snapshot struct {
	Epoch     int64
	Iteration int64
	Objects   map[string][]byte
}

// Config holds configuration options for a Manager.
type Config struct {
	// Dir is the directory checkpoint files are written to. Created if
	// missing.
	Dir string

	// MaxToKeep is the number of checkpoints to retain; older ones are
	// deleted as new ones are saved. Zero keeps all checkpoints.
	MaxToKeep int
}

// Manager saves and restores snapshots in a checkpoint directory.
type Manager struct {
	dir       string
	maxToKeep int
}

type manifest struct {
	Latest      string          `json:"latest"`
	Checkpoints []manifestEntry `json:"checkpoints"`
}

type manifestEntry struct {
	File      string    `json:"file"`
	Epoch     int64     `json:"epoch"`
	Iteration int64     `json:"iteration"`
	SavedAt   time.Time `json:"saved_at"`
}

// NewManager creates a Manager over cfg.Dir, creating the directory when
// missing.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, errors.New("checkpoint: Dir must not be empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &Manager{dir: cfg.Dir, maxToKeep: cfg.MaxToKeep}, nil
}

// Dir returns the checkpoint directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Save writes the snapshot and updates the manifest, pruning checkpoints
// beyond the retention window. Saving twice at the same epoch overwrites the
// earlier snapshot.
func (m *Manager) Save(snap Snapshot) error {
	file := fmt.Sprintf("ckpt-%d.gob", snap.Epoch)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := writeAtomic(filepath.Join(m.dir, file), buf.Bytes()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	man, err := m.readManifest()
	if err != nil {
		return err
	}

	// Re-saving an epoch replaces its entry instead of duplicating it.
	kept := man.Checkpoints[:0]
	for _, entry := range man.Checkpoints {
		if entry.File != file {
			kept = append(kept, entry)
		}
	}
	man.Checkpoints = append(kept, manifestEntry{
		File:      file,
		Epoch:     snap.Epoch,
		Iteration: snap.Iteration,
		SavedAt:   time.Now().UTC(),
	})
	man.Latest = file

	for m.maxToKeep > 0 && len(man.Checkpoints) > m.maxToKeep {
		stale := man.Checkpoints[0]
		man.Checkpoints = man.Checkpoints[1:]
		if err := os.Remove(filepath.Join(m.dir, stale.File)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune checkpoint %s: %w", stale.File, err)
		}
	}

	return m.writeManifest(man)
}

// Latest loads the most recently saved snapshot.
// Returns ErrNoCheckpoint when nothing has been saved yet.
func (m *Manager) Latest() (*Snapshot, error) {
	man, err := m.readManifest()
	if err != nil {
		return nil, err
	}
	if man.Latest == "" {
		return nil, ErrNoCheckpoint
	}

	data, err := os.ReadFile(filepath.Join(m.dir, man.Latest))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Kept returns the epochs of the retained checkpoints, oldest first.
func (m *Manager) Kept() ([]int64, error) {
	man, err := m.readManifest()
	if err != nil {
		return nil, err
	}
	epochs := make([]int64, len(man.Checkpoints))
	for i, entry := range man.Checkpoints {
		epochs[i] = entry.Epoch
	}
	return epochs, nil
}

func (m *Manager) readManifest() (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, manifestFile))
	if os.IsNotExist(err) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var man manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &man, nil
}

func (m *Manager) writeManifest(man *manifest) error {
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeAtomic(filepath.Join(m.dir, manifestFile), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// writeAtomic writes data via a temp file and rename, so a crash mid-write
// never leaves a truncated file behind.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Capture serializes every object into a Snapshot object map.
func Capture(objects map[string]Saveable) (map[string][]byte, error) {
	captured := make(map[string][]byte, len(objects))
	for name, obj := range objects {
		data, err := obj.StateBytes()
		if err != nil {
			return nil, fmt.Errorf("capture %q: %w", name, err)
		}
		captured[name] = data
	}
	return captured, nil
}

// Restore feeds each object its saved state from the snapshot. Objects
// missing from the snapshot are an error: a mismatched object set means the
// checkpoint belongs to a different run layout.
func Restore(objects map[string]Saveable, snap *Snapshot) error {
	for name, obj := range objects {
		data, ok := snap.Objects[name]
		if !ok {
			return fmt.Errorf("checkpoint: snapshot has no state for %q", name)
		}
		if err := obj.RestoreBytes(data); err != nil {
			return fmt.Errorf("restore %q: %w", name, err)
		}
	}
	return nil
}
