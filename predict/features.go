// Package predict runs the serving path: request inputs to features, the
// model, and a labeled prediction.
package predict

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"crimecast/mapping"
)

// dateLayouts are the accepted request date formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// FeatureRecord holds the model inputs derived from a request. Field order
// matches the training column order and is a contract with the model;
// dia_semana keeps the training convention Monday=0 through Sunday=6 and
// week is the ISO-8601 week number.
type FeatureRecord struct {
	NeighborhoodEncoded int `json:"neighborhood_encoded"`
	DiaSemana           int `json:"dia_semana"`
	DiaMes              int `json:"dia_mes"`
	Mes                 int `json:"mes"`
	DiaAno              int `json:"dia_ano"`
	Week                int `json:"week"`
}

// Vector returns the features in training column order.
func (f FeatureRecord) Vector() []float64 {
	return []float64{
		float64(f.NeighborhoodEncoded),
		float64(f.DiaSemana),
		float64(f.DiaMes),
		float64(f.Mes),
		float64(f.DiaAno),
		float64(f.Week),
	}
}

// BuildFeatures derives the model features from a request date and bairro.
// Both failure modes are ValidationErrors carrying a user-facing message.
func BuildFeatures(date, bairro string, bairros mapping.NeighborhoodMap) (FeatureRecord, error) {
	parsed, err := parseDate(date)
	if err != nil {
		return FeatureRecord{}, &ValidationError{
			Msg: fmt.Sprintf("Data inválida '%s'. Use o formato YYYY-MM-DD.", date),
		}
	}

	code, ok := bairros[bairro]
	if !ok {
		return FeatureRecord{}, &ValidationError{
			Msg: fmt.Sprintf("Bairro '%s' não encontrado. Bairros disponíveis: %s",
				bairro, strings.Join(sortedNames(bairros), ", ")),
		}
	}

	_, week := parsed.ISOWeek()
	return FeatureRecord{
		NeighborhoodEncoded: code,
		DiaSemana:           (int(parsed.Weekday()) + 6) % 7,
		DiaMes:              parsed.Day(),
		Mes:                 int(parsed.Month()),
		DiaAno:              parsed.YearDay(),
		Week:                week,
	}, nil
}

func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func sortedNames(bairros mapping.NeighborhoodMap) []string {
	names := make([]string, 0, len(bairros))
	for name := range bairros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
