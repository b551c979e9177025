package ml

// Classifier is a trainable binary classifier over fixed-width numeric
// vectors. Class weights compensate for label imbalance during Fit.
type Classifier interface {
	Fit(features [][]float64, labels []int, classWeights map[int]float64) error
	PredictLabel(features []float64) (label int, probability float64, err error)
	Save(path string) error
	Load(path string) error
}
