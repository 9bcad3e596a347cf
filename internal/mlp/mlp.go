// Package mlp implements a small multilayer perceptron for binary
// classification, trained with plain SGD. It exists to exercise the full
// engine surface end to end (training, evaluation, checkpointing, metrics)
// without an external numerics dependency; it is not a serious model.
package mlp

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/spf13/pflag"

	"github.com/emberml/ember"
	"github.com/emberml/ember/datasets"
	"github.com/emberml/ember/params"
)

// Config holds the model hyperparameters.
type Config struct {
	// Hidden is the hidden layer width.
	Hidden int

	// LR is the SGD learning rate.
	LR float64

	// Seed seeds the weight initialization.
	Seed int64
}

// MLP is a one-hidden-layer perceptron: tanh hidden units and a sigmoid
// output trained against binary cross entropy.
type MLP struct {
	cfg    Config
	inputs int

	w1 [][]float64 // hidden x inputs
	b1 []float64
	w2 []float64 // hidden
	b2 float64
}

// New creates an MLP. The weights are allocated in ApplyMetadata once the
// input width is known.
func New(cfg Config) *MLP {
	if cfg.Hidden <= 0 {
		cfg.Hidden = 16
	}
	if cfg.LR <= 0 {
		cfg.LR = 0.1
	}
	return &MLP{cfg: cfg}
}

// Spec returns the model's tunable parameters.
func (m *MLP) Spec() *params.Spec {
	return params.New(
		params.Int("hidden", m.cfg.Hidden, "hidden layer width").Min(1),
		params.Float("lr", m.cfg.LR, "SGD learning rate").Min(0),
	)
}

// Values returns the model's current hyperparameter values, keyed like Spec.
func (m *MLP) Values() map[string]any {
	return map[string]any{
		"hidden": m.cfg.Hidden,
		"lr":     m.cfg.LR,
	}
}

// RegisterFlags registers the model's hyperparameters as flags.
func (m *MLP) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVar(&m.cfg.Hidden, "hidden", m.cfg.Hidden, "hidden layer width")
	fs.Float64Var(&m.cfg.LR, "lr", m.cfg.LR, "SGD learning rate")
}

// ApplyMetadata sizes the network from the dataset metadata and initializes
// the weights. Restoring a checkpoint afterwards replaces them.
func (m *MLP) ApplyMetadata(meta ember.Meta) error {
	features, ok := meta.Int("num_features")
	if !ok {
		return errors.New("mlp: dataset metadata is missing num_features")
	}
	if classes, ok := meta.Int("num_classes"); ok && classes != 2 {
		return fmt.Errorf("mlp: model is binary, dataset has %d classes", classes)
	}

	m.inputs = features
	rng := rand.New(rand.NewSource(m.cfg.Seed))
	scale := 1 / math.Sqrt(float64(features))

	m.w1 = make([][]float64, m.cfg.Hidden)
	m.b1 = make([]float64, m.cfg.Hidden)
	m.w2 = make([]float64, m.cfg.Hidden)
	for j := range m.w1 {
		m.w1[j] = make([]float64, features)
		for i := range m.w1[j] {
			m.w1[j][i] = rng.NormFloat64() * scale
		}
		m.w2[j] = rng.NormFloat64() * scale
	}
	m.b2 = 0
	return nil
}

// forward runs one example through the network, returning the hidden
// activations and the output probability.
func (m *MLP) forward(x []float64) ([]float64, float64) {
	hidden := make([]float64, len(m.w1))
	for j, row := range m.w1 {
		z := m.b1[j]
		for i, w := range row {
			z += w * x[i]
		}
		hidden[j] = math.Tanh(z)
	}
	z := m.b2
	for j, w := range m.w2 {
		z += w * hidden[j]
	}
	return hidden, sigmoid(z)
}

// Predict returns the predicted class (0 or 1) for a feature vector.
func (m *MLP) Predict(x []float64) float64 {
	_, p := m.forward(x)
	if p >= 0.5 {
		return 1
	}
	return 0
}

// trainBatch runs one SGD step on the batch and returns the mean loss.
func (m *MLP) trainBatch(batch []datasets.Example) float64 {
	gw1 := make([][]float64, len(m.w1))
	gb1 := make([]float64, len(m.b1))
	gw2 := make([]float64, len(m.w2))
	var gb2, loss float64
	for j := range gw1 {
		gw1[j] = make([]float64, m.inputs)
	}

	for _, ex := range batch {
		hidden, p := m.forward(ex.Features)
		loss += bce(p, ex.Target)

		dz2 := p - ex.Target
		gb2 += dz2
		for j, h := range hidden {
			gw2[j] += dz2 * h
			dh := dz2 * m.w2[j] * (1 - h*h)
			gb1[j] += dh
			for i, x := range ex.Features {
				gw1[j][i] += dh * x
			}
		}
	}

	step := m.cfg.LR / float64(len(batch))
	m.b2 -= step * gb2
	for j := range m.w2 {
		m.w2[j] -= step * gw2[j]
		m.b1[j] -= step * gb1[j]
		for i := range m.w1[j] {
			m.w1[j][i] -= step * gw1[j][i]
		}
	}
	return loss / float64(len(batch))
}

// evalBatch scores the batch without updating weights.
func (m *MLP) evalBatch(batch []datasets.Example) (loss float64, correct int) {
	for _, ex := range batch {
		_, p := m.forward(ex.Features)
		loss += bce(p, ex.Target)
		predicted := 0.0
		if p >= 0.5 {
			predicted = 1
		}
		if predicted == ex.Target {
			correct++
		}
	}
	return loss / float64(len(batch)), correct
}

// CreateTrainer returns an engine running one SGD step per batch. The batch
// loss is the iteration output and feeds the "train:loss" gauge.
func (m *MLP) CreateTrainer() *ember.Engine[[]datasets.Example] {
	return ember.New(func(ctx context.Context, e *ember.Engine[[]datasets.Example], batch []datasets.Example) (any, error) {
		if m.inputs == 0 {
			return nil, errors.New("mlp: ApplyMetadata must run before training")
		}
		loss := m.trainBatch(batch)
		e.Metrics().SetGauge("train:loss", loss)
		e.Metrics().IncrCounter("train:examples", int64(len(batch)))
		return loss, nil
	})
}

// CreateEvaluator returns an engine scoring batches without weight updates.
// It maintains the "eval:loss" and "eval:accuracy" gauges as running values
// over the evaluated examples.
func (m *MLP) CreateEvaluator() *ember.Engine[[]datasets.Example] {
	return ember.New(func(ctx context.Context, e *ember.Engine[[]datasets.Example], batch []datasets.Example) (any, error) {
		if m.inputs == 0 {
			return nil, errors.New("mlp: ApplyMetadata must run before evaluation")
		}
		loss, correct := m.evalBatch(batch)
		metrics := e.Metrics()
		metrics.IncrCounter("eval:examples", int64(len(batch)))
		metrics.IncrCounter("eval:correct", int64(correct))

		total := float64(metrics.Counter("eval:examples"))
		metrics.SetGauge("eval:accuracy", float64(metrics.Counter("eval:correct"))/total)
		metrics.IncrGauge("eval:loss_sum", loss*float64(len(batch)))
		sum, _ := metrics.Gauge("eval:loss_sum")
		metrics.SetGauge("eval:loss", sum/total)
		return loss, nil
	})
}

// CheckpointObjects returns the objects the Checkpointer persists.
func (m *MLP) CheckpointObjects() map[string]any {
	return map[string]any{"model": m}
}

type snapshot struct {
	Inputs int
	W1     [][]float64
	B1     []float64
	W2     []float64
	B2     float64
}

// StateBytes serializes the weights.
func (m *MLP) StateBytes() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		Inputs: m.inputs,
		W1:     m.w1,
		B1:     m.b1,
		W2:     m.w2,
		B2:     m.b2,
	})
	if err != nil {
		return nil, fmt.Errorf("encode weights: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreBytes replaces the weights with a serialized snapshot.
func (m *MLP) RestoreBytes(data []byte) error {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return fmt.Errorf("decode weights: %w", err)
	}
	m.inputs = snap.Inputs
	m.w1 = snap.W1
	m.b1 = snap.B1
	m.w2 = snap.W2
	m.b2 = snap.B2
	m.cfg.Hidden = len(snap.W2)
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// bce is binary cross entropy with clamping away from 0 and 1.
func bce(p, y float64) float64 {
	const eps = 1e-12
	p = math.Min(math.Max(p, eps), 1-eps)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

// Compile-time interface checks.
var (
	_ ember.Model[[]datasets.Example] = (*MLP)(nil)
	_ ember.FlagRegistrar             = (*MLP)(nil)
	_ ember.MetadataReceiver          = (*MLP)(nil)
)
