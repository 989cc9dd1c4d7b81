package ml

// Classifier turns one feature vector into a class code.
type Classifier interface {
	Predict(features []float64) (int, error)
}

// ProbabilityClassifier is implemented by classifiers that can also report
// a probability distribution over class codes. Support is optional and
// discovered with a type assertion.
type ProbabilityClassifier interface {
	Classifier
	PredictProba(features []float64) ([]float64, error)
}
