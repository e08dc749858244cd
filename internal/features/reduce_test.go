package features

import (
	"math"
	"testing"

	"setbreak/internal/engine"
)

func TestBandMeansAndFlux(t *testing.T) {
	m := [][]float64{
		{0, 3, 3},
		{0, 4, 4},
	}
	means := BandMeans(m)
	if len(means) != 2 || means[0] != 2 || math.Abs(means[1]-8.0/3) > 1e-12 {
		t.Fatalf("unexpected band means %v", means)
	}
	flux := CrossBandFlux(m)
	if flux == nil || *flux != 2.5 {
		t.Fatalf("expected cross-band flux 2.5, got %v", flux)
	}
	if CrossBandFlux([][]float64{{1}}) != nil {
		t.Fatal("expected nil flux for a single frame")
	}
	if BandMeans([][]float64{{}}) != nil {
		t.Fatal("expected nil means for an empty matrix")
	}
}

func TestStructuralDiversity(t *testing.T) {
	if StructuralDiversity([]engine.Segment{{Energy: 1}}) != nil {
		t.Fatal("expected nil diversity for one segment")
	}
	same := []engine.Segment{{Energy: 0.2, Centroid: 900}, {Energy: 0.2, Centroid: 900}}
	if got := StructuralDiversity(same); got == nil || *got != 0 {
		t.Fatalf("expected zero diversity for identical segments, got %v", got)
	}
	apart := []engine.Segment{
		{Energy: 0.1, Centroid: 500, ZCR: 0.01, DynamicRange: 3},
		{Energy: 0.4, Centroid: 3000, ZCR: 0.2, DynamicRange: 20},
	}
	if got := StructuralDiversity(apart); got == nil || math.Abs(*got-2) > 1e-12 {
		t.Fatalf("expected diversity 2 for opposite corners, got %v", got)
	}
	// constant energy contributes nothing
	partial := []engine.Segment{
		{Energy: 0.3, Centroid: 500},
		{Energy: 0.3, Centroid: 1500},
	}
	if got := StructuralDiversity(partial); got == nil || math.Abs(*got-1) > 1e-12 {
		t.Fatalf("expected diversity 1, got %v", got)
	}
}

func TestReducersLeaveShortInputsAbsent(t *testing.T) {
	if m, s := meanStd([]float64{4}); m == nil || *m != 4 || s != nil {
		t.Fatalf("expected mean without deviation, got %v %v", m, s)
	}
	if slope([]float64{1}) != nil {
		t.Fatal("expected nil slope for one point")
	}
	if got := slope([]float64{1, 3, 5, 7}); got == nil || math.Abs(*got-2) > 1e-12 {
		t.Fatalf("expected slope 2, got %v", got)
	}
	if skewness([]float64{1, 2, 3}) != nil || kurtosis([]float64{5, 5, 5, 5, 5}) != nil {
		t.Fatal("expected nil moments for short or constant input")
	}
	if correlation([]float64{1, 2, 3}, []float64{1, 2, 3}) != nil {
		t.Fatal("expected nil correlation below ten points")
	}
	if entropy([]float64{0, 0, 0}) != nil {
		t.Fatal("expected nil entropy for a zero vector")
	}
	if got := entropy([]float64{1, 1, 1, 1}); got == nil || math.Abs(*got-1) > 1e-12 {
		t.Fatalf("expected maximal entropy 1, got %v", got)
	}
	if finite(math.NaN()) != nil || finite(math.Inf(1)) != nil {
		t.Fatal("expected non-finite values to be absent")
	}
}

func TestEnergyShape(t *testing.T) {
	tests := map[string][]float64{
		ShapeBuilding: {1, 1, 1.2, 1.3, 2, 2},
		ShapeFading:   {2, 2, 1.8, 1.5, 1, 1},
		ShapeArc:      {1, 1, 2, 2, 1, 1},
		ShapeValley:   {2, 2, 1, 1, 2, 2},
		ShapeFlat:     {1, 1, 1, 1, 1, 1},
	}
	for want, series := range tests {
		got := energyShape(series)
		if got == nil || *got != want {
			t.Fatalf("energyShape(%v) = %v, want %s", series, got, want)
		}
	}
	if energyShape([]float64{1, 2}) != nil {
		t.Fatal("expected nil shape for a short envelope")
	}
}

func TestOnsetStatistics(t *testing.T) {
	regular := make([]float64, 40)
	for i := range regular {
		regular[i] = float64(i) * 0.5
	}
	if got := intervalCV(regular); got == nil || *got > 1e-9 {
		t.Fatalf("expected zero interval CV for a metronome, got %v", got)
	}
	if got := onsetIntervalEntropy(regular); got == nil || *got != 0 {
		t.Fatalf("expected zero interval entropy for a metronome, got %v", got)
	}
	if got := onsetDensityStd(regular, 20); got == nil || *got != 0 {
		t.Fatalf("expected flat onset density, got %v", got)
	}
	if onsetDensityStd(regular, 15) != nil {
		t.Fatal("expected nil onset density for short tracks")
	}
	if got := beatAlignment([]float64{0, 0.5, 10.25}, regular); got == nil || math.Abs(*got-2.0/3) > 1e-12 {
		t.Fatalf("expected two of three beats aligned, got %v", got)
	}
}
