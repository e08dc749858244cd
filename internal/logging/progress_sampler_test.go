package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(5, 10) {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_Buckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		done int
		want bool
	}{
		{0, true},
		{1, false},
		{2, false},
		{3, true},
		{4, false},
		{6, true},
		{9, true},
		{12, true},
		{12, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.done, 12); got != step.want {
			t.Fatalf("ShouldLog(%d, 12) = %v, want %v", step.done, got, step.want)
		}
	}
	s.Reset()
	if !s.ShouldLog(0, 12) {
		t.Fatal("expected log after reset")
	}
}

func TestProgressSampler_UnknownTotal(t *testing.T) {
	s := NewProgressSampler(10)
	if s.ShouldLog(3, 0) {
		t.Fatal("unknown total should not log")
	}
}

func TestPercentClamps(t *testing.T) {
	if Percent(5, 0) != 0 || Percent(-1, 10) != 0 || Percent(11, 10) != 100 {
		t.Fatal("Percent should clamp to [0,100]")
	}
	if got := Percent(1, 4); got != 25 {
		t.Fatalf("Percent(1,4) = %v, want 25", got)
	}
}
