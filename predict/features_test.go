package predict

import (
	"errors"
	"strings"
	"testing"
	"time"

	"crimecast/mapping"
)

var testBairros = mapping.NeighborhoodMap{
	"Boa Viagem":  0,
	"Piedade":     1,
	"Imbiribeira": 2,
}

func TestBuildFeatures(t *testing.T) {
	got, err := BuildFeatures("2024-12-10", "Boa Viagem", testBairros)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2024-12-10 is a Tuesday in ISO week 50, day 345 of a leap year.
	want := FeatureRecord{
		NeighborhoodEncoded: 0,
		DiaSemana:           1,
		DiaMes:              10,
		Mes:                 12,
		DiaAno:              345,
		Week:                50,
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestBuildFeaturesMondayIsZero(t *testing.T) {
	got, err := BuildFeatures("2024-01-01", "Piedade", testBairros)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DiaSemana != 0 {
		t.Fatalf("expected Monday to encode as 0, got %d", got.DiaSemana)
	}
	if got.NeighborhoodEncoded != 1 {
		t.Fatalf("expected code 1 for Piedade, got %d", got.NeighborhoodEncoded)
	}
}

func TestBuildFeaturesDateLayouts(t *testing.T) {
	inputs := []string{
		"2024-12-10",
		"2024-12-10T15:04:05Z",
		"2024-12-10 15:04:05",
		"2024/12/10",
		"  2024-12-10  ",
	}
	for _, input := range inputs {
		got, err := BuildFeatures(input, "Boa Viagem", testBairros)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", input, err)
		}
		if got.DiaMes != 10 || got.Mes != 12 || got.DiaAno != 345 {
			t.Fatalf("%q: unexpected features %+v", input, got)
		}
	}
}

func TestBuildFeaturesBadDate(t *testing.T) {
	for _, input := range []string{"", "not-a-date", "2024-13-45", "10 de dezembro"} {
		_, err := BuildFeatures(input, "Boa Viagem", testBairros)
		var validation *ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("%q: expected ValidationError, got %v", input, err)
		}
		if !strings.Contains(validation.Error(), "YYYY-MM-DD") {
			t.Errorf("%q: expected format hint in message, got %q", input, validation.Error())
		}
	}
}

func TestBuildFeaturesUnknownBairro(t *testing.T) {
	_, err := BuildFeatures("2024-12-10", "Casa Forte", testBairros)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	msg := validation.Error()
	if !strings.Contains(msg, "Bairro 'Casa Forte' não encontrado") {
		t.Errorf("expected rejected name in message, got %q", msg)
	}
	if !strings.Contains(msg, "Boa Viagem, Imbiribeira, Piedade") {
		t.Errorf("expected sorted neighborhood list in message, got %q", msg)
	}
}

func TestBuildFeaturesRanges(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for day.Year() == 2024 {
		got, err := BuildFeatures(day.Format("2006-01-02"), "Imbiribeira", testBairros)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", day.Format("2006-01-02"), err)
		}
		if got.DiaSemana < 0 || got.DiaSemana > 6 {
			t.Fatalf("%s: dia_semana out of range: %d", day, got.DiaSemana)
		}
		if got.DiaMes < 1 || got.DiaMes > 31 {
			t.Fatalf("%s: dia_mes out of range: %d", day, got.DiaMes)
		}
		if got.Mes < 1 || got.Mes > 12 {
			t.Fatalf("%s: mes out of range: %d", day, got.Mes)
		}
		if got.DiaAno < 1 || got.DiaAno > 366 {
			t.Fatalf("%s: dia_ano out of range: %d", day, got.DiaAno)
		}
		if got.Week < 1 || got.Week > 53 {
			t.Fatalf("%s: week out of range: %d", day, got.Week)
		}
		day = day.AddDate(0, 0, 1)
	}
}

func TestFeatureVectorOrder(t *testing.T) {
	record := FeatureRecord{
		NeighborhoodEncoded: 2,
		DiaSemana:           1,
		DiaMes:              10,
		Mes:                 12,
		DiaAno:              345,
		Week:                50,
	}
	want := []float64{2, 1, 10, 12, 345, 50}
	got := record.Vector()
	if len(got) != len(want) {
		t.Fatalf("expected %d features, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("feature %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
