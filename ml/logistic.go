package ml

import (
	"encoding/json"
	"errors"
	"math"
	"os"
)

// LogisticRegression is a binary classifier trained by full-batch
// gradient descent. Training starts from zero weights, runs a fixed
// number of epochs and uses no randomness, so identical inputs always
// produce the identical model.
type LogisticRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`

	learningRate float64
	epochs       int
}

func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		learningRate: 0.1,
		epochs:       500,
	}
}

func (m *LogisticRegression) Fit(features [][]float64, labels []int, classWeights map[int]float64) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	for _, row := range features {
		if len(row) != width {
			return errors.New("ragged feature matrix")
		}
	}
	for _, label := range labels {
		if label != 0 && label != 1 {
			return errors.New("labels must be 0 or 1")
		}
	}

	lr := m.learningRate
	if lr <= 0 {
		lr = 0.1
	}
	epochs := m.epochs
	if epochs <= 0 {
		epochs = 500
	}

	weights := make([]float64, width)
	bias := 0.0
	gradW := make([]float64, width)
	n := float64(len(features))

	for epoch := 0; epoch < epochs; epoch++ {
		for j := range gradW {
			gradW[j] = 0
		}
		gradB := 0.0
		for i, row := range features {
			p := sigmoid(dot(weights, row) + bias)
			sw := 1.0
			if w, ok := classWeights[labels[i]]; ok && w > 0 {
				sw = w
			}
			diff := sw * (p - float64(labels[i]))
			for j, x := range row {
				gradW[j] += diff * x
			}
			gradB += diff
		}
		for j := range weights {
			weights[j] -= lr * gradW[j] / n
		}
		bias -= lr * gradB / n
	}

	m.Weights = weights
	m.Bias = bias
	return nil
}

// PredictLabel returns the predicted class and the delay probability.
func (m *LogisticRegression) PredictLabel(features []float64) (int, float64, error) {
	if len(m.Weights) == 0 {
		return 0, 0, ErrModelNotReady
	}
	if len(features) != len(m.Weights) {
		return 0, 0, errors.New("feature width mismatch")
	}
	p := sigmoid(dot(m.Weights, features) + m.Bias)
	if p >= 0.5 {
		return 1, p, nil
	}
	return 0, p, nil
}

func (m *LogisticRegression) Save(path string) error {
	if len(m.Weights) == 0 {
		return ErrModelNotReady
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (m *LogisticRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded LogisticRegression
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if len(loaded.Weights) == 0 {
		return errors.New("model file has no weights")
	}
	m.Weights = loaded.Weights
	m.Bias = loaded.Bias
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
