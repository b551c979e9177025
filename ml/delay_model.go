package ml

import (
	"fmt"
	"sync"
	"time"
)

// Prediction is the model output for one flight.
type Prediction struct {
	Label       int     `json:"delay"`
	Probability float64 `json:"probability"`
}

// ModelInfo is a read-only snapshot of the trained state.
type ModelInfo struct {
	Ready             bool      `json:"ready"`
	FeatureSetVersion string    `json:"feature_set_version"`
	TrainedAt         time.Time `json:"trained_at,omitempty"`
	Samples           int       `json:"samples"`
	OnTime            int       `json:"on_time"`
	Delayed           int       `json:"delayed"`
}

// trainedModel is the immutable result of one fit: a fitted classifier
// plus the vocabulary it was encoded against. Replaced wholesale on
// refit, never mutated.
type trainedModel struct {
	classifier Classifier
	vocab      *Vocabulary
	trainedAt  time.Time
	samples    int
	classCount [2]int
}

// DelayModel runs feature engineering, encoding and selection over
// flight records and owns the trainable classifier. Fit is serialized by
// a mutex; the trained snapshot is read-only and safe for unlimited
// concurrent Predict calls.
type DelayModel struct {
	featureSet    FeatureSet
	newClassifier func() Classifier
	onUnknown     func(column string)

	fitMu   sync.Mutex
	stateMu sync.RWMutex
	trained *trainedModel
}

func NewDelayModel(featureSet FeatureSet) (*DelayModel, error) {
	if err := featureSet.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature set: %w", err)
	}
	return &DelayModel{
		featureSet:    featureSet,
		newClassifier: func() Classifier { return NewLogisticRegression() },
	}, nil
}

// SetClassifierFactory overrides the classifier construction, mainly for
// tests injecting fakes.
func (m *DelayModel) SetClassifierFactory(factory func() Classifier) {
	m.newClassifier = factory
}

// OnUnknownCategory registers a callback invoked for every inference-time
// category value outside the training vocabulary.
func (m *DelayModel) OnUnknownCategory(fn func(column string)) {
	m.onUnknown = fn
}

// FeatureSet returns the injected feature configuration.
func (m *DelayModel) FeatureSet() FeatureSet {
	return m.featureSet
}

// Preprocess turns records into model-ready vectors. With labels it
// builds a fresh vocabulary from the records themselves (training
// semantics) and returns the derived delay labels aligned by index;
// without labels it encodes against the trained vocabulary.
func (m *DelayModel) Preprocess(records []FlightRecord, withLabels bool) ([][]float64, []int, error) {
	if withLabels {
		return m.preprocessWith(BuildVocabulary(records), records, true)
	}
	snap := m.snapshot()
	if snap == nil {
		return nil, nil, ErrModelNotReady
	}
	vectors, _, err := m.preprocessWith(snap.vocab, records, false)
	return vectors, nil, err
}

func (m *DelayModel) preprocessWith(vocab *Vocabulary, records []FlightRecord, withLabels bool) ([][]float64, []int, error) {
	vectors := make([][]float64, 0, len(records))
	var labels []int
	if withLabels {
		labels = make([]int, 0, len(records))
	}
	for i, rec := range records {
		if err := checkSchema(i, rec); err != nil {
			return nil, nil, err
		}
		if _, err := Engineer(rec); err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		wide, unknown := vocab.Encode(rec)
		if !withLabels && m.onUnknown != nil {
			for _, col := range unknown {
				m.onUnknown(col)
			}
		}
		vectors = append(vectors, m.featureSet.Select(wide))
		if withLabels {
			label, err := DelayLabel(rec)
			if err != nil {
				return nil, nil, fmt.Errorf("record %d: %w", i, err)
			}
			labels = append(labels, label)
		}
	}
	return vectors, labels, nil
}

// Fit trains a new classifier from scratch on the given records and
// replaces any previous trained state. The vocabulary is rebuilt from
// these records only. A failed fit leaves the previous state serving.
func (m *DelayModel) Fit(records []FlightRecord) error {
	m.fitMu.Lock()
	defer m.fitMu.Unlock()
	return m.fitLocked(records)
}

// EnsureTrained fits once from the reference dataset if no trained model
// exists yet. Concurrent callers serialize on the fit mutex, so at most
// one training pass runs.
func (m *DelayModel) EnsureTrained(records []FlightRecord) error {
	m.fitMu.Lock()
	defer m.fitMu.Unlock()
	if m.snapshot() != nil {
		return nil
	}
	return m.fitLocked(records)
}

func (m *DelayModel) fitLocked(records []FlightRecord) error {
	if len(records) == 0 {
		return &InsufficientDataError{Reason: "training set is empty"}
	}

	vocab := BuildVocabulary(records)
	vectors, labels, err := m.preprocessWith(vocab, records, true)
	if err != nil {
		return err
	}

	var classCount [2]int
	for _, label := range labels {
		classCount[label]++
	}
	if classCount[0] == 0 || classCount[1] == 0 {
		return &InsufficientDataError{Reason: "training set contains a single class"}
	}

	// Weight each class by the opposite class's frequency share so the
	// minority (delayed) class is not drowned out.
	total := float64(len(labels))
	classWeights := map[int]float64{
		0: float64(classCount[1]) / total,
		1: float64(classCount[0]) / total,
	}

	classifier := m.newClassifier()
	if err := classifier.Fit(vectors, labels, classWeights); err != nil {
		return fmt.Errorf("classifier fit: %w", err)
	}

	m.stateMu.Lock()
	m.trained = &trainedModel{
		classifier: classifier,
		vocab:      vocab,
		trainedAt:  time.Now().UTC(),
		samples:    len(labels),
		classCount: classCount,
	}
	m.stateMu.Unlock()
	return nil
}

// Predict returns one prediction per record, in request order. It fails
// fast with ErrModelNotReady before the first successful fit; it never
// trains implicitly.
func (m *DelayModel) Predict(records []FlightRecord) ([]Prediction, error) {
	snap := m.snapshot()
	if snap == nil {
		return nil, ErrModelNotReady
	}
	vectors, _, err := m.preprocessWith(snap.vocab, records, false)
	if err != nil {
		return nil, err
	}
	predictions := make([]Prediction, len(vectors))
	for i, vector := range vectors {
		label, probability, err := snap.classifier.PredictLabel(vector)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		predictions[i] = Prediction{Label: label, Probability: probability}
	}
	return predictions, nil
}

// Ready reports whether a trained model is available.
func (m *DelayModel) Ready() bool {
	return m.snapshot() != nil
}

// Info describes the current trained state.
func (m *DelayModel) Info() ModelInfo {
	info := ModelInfo{FeatureSetVersion: m.featureSet.Version}
	snap := m.snapshot()
	if snap == nil {
		return info
	}
	info.Ready = true
	info.TrainedAt = snap.trainedAt
	info.Samples = snap.samples
	info.OnTime = snap.classCount[0]
	info.Delayed = snap.classCount[1]
	return info
}

func (m *DelayModel) snapshot() *trainedModel {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.trained
}

func checkSchema(index int, rec FlightRecord) error {
	var missing []string
	if rec.Airline == "" {
		missing = append(missing, "airline")
	}
	if rec.FlightType == "" {
		missing = append(missing, "flight_type")
	}
	if rec.Month == 0 {
		missing = append(missing, "month")
	}
	if len(missing) > 0 {
		return &SchemaError{Index: index, Missing: missing}
	}
	return nil
}
