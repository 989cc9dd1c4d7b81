package predict

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"crimecast/mapping"
	"crimecast/ml"
)

// Result is one prediction as returned to the caller. Probabilidade is a
// percentage rounded to two decimals.
type Result struct {
	TipoCrimePrevisto  string        `json:"tipo_crime_previsto"`
	Probabilidade      float64       `json:"probabilidade"`
	Data               string        `json:"data"`
	Bairro             string        `json:"bairro"`
	FeaturesUtilizadas FeatureRecord `json:"features_utilizadas"`
}

// Service owns the serving path. It is assembled once at startup and never
// mutated afterwards, so handlers share it across requests without locking.
type Service struct {
	model      ml.Classifier
	bairros    mapping.NeighborhoodMap
	crimeTypes mapping.CrimeTypeMap
	modelName  string
	cache      *lru.Cache[string, Result]
	logger     *zap.Logger
}

// NewService builds the service around an already resolved model. A nil
// model is allowed and makes every Predict call fail with
// ErrModelUnavailable. cacheSize <= 0 disables the prediction cache.
func NewService(model ml.Classifier, bairros mapping.NeighborhoodMap, crimeTypes mapping.CrimeTypeMap,
	modelName string, cacheSize int, logger *zap.Logger) *Service {
	var cache *lru.Cache[string, Result]
	if cacheSize > 0 {
		cache, _ = lru.New[string, Result](cacheSize)
	}
	return &Service{
		model:      model,
		bairros:    bairros,
		crimeTypes: crimeTypes,
		modelName:  modelName,
		cache:      cache,
		logger:     logger,
	}
}

// Predict classifies one (date, bairro) pair. Identical inputs always
// produce identical results, which is what makes the cache safe.
func (s *Service) Predict(date, bairro string) (Result, error) {
	if s.model == nil {
		return Result{}, ErrModelUnavailable
	}

	key := date + "|" + bairro
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	features, err := BuildFeatures(date, bairro, s.bairros)
	if err != nil {
		return Result{}, err
	}

	vector := features.Vector()
	code, err := s.model.Predict(vector)
	if err != nil {
		s.logger.Error("model prediction failed",
			zap.String("data", date), zap.String("bairro", bairro), zap.Error(err))
		return Result{}, &InternalError{Err: err}
	}

	// Probability support is optional. Models without it report certainty,
	// which the response keeps as 100%.
	probability := 1.0
	if prober, ok := s.model.(ml.ProbabilityClassifier); ok {
		distribution, err := prober.PredictProba(vector)
		if err != nil {
			s.logger.Error("model probability failed",
				zap.String("data", date), zap.String("bairro", bairro), zap.Error(err))
			return Result{}, &InternalError{Err: err}
		}
		if code < 0 || code >= len(distribution) {
			err := fmt.Errorf("class %d outside distribution of size %d", code, len(distribution))
			s.logger.Error("model output inconsistent", zap.Error(err))
			return Result{}, &InternalError{Err: err}
		}
		probability = distribution[code]
	}

	label, ok := s.crimeTypes[code]
	if !ok {
		label = fmt.Sprintf("Desconhecido (%d)", code)
	}

	result := Result{
		TipoCrimePrevisto:  label,
		Probabilidade:      roundPercent(probability),
		Data:               date,
		Bairro:             bairro,
		FeaturesUtilizadas: features,
	}
	if s.cache != nil {
		s.cache.Add(key, result)
	}
	return result, nil
}

// Bairros lists the known neighborhood names in sorted order.
func (s *Service) Bairros() []string {
	return sortedNames(s.bairros)
}

// ModelLoaded reports whether a model was resolved at startup.
func (s *Service) ModelLoaded() bool {
	return s.model != nil
}

// ModelName returns the logical name the model was resolved under.
func (s *Service) ModelName() string {
	return s.modelName
}

func roundPercent(p float64) float64 {
	return math.Round(p*10000) / 100
}
