// Package scoring turns a feature record into the ten jam scores.
//
// Every score is a sum of saturating components: each component maps one
// feature (or a ratio of features) onto [0,1] and multiplies it by its point
// budget. A missing feature contributes nothing. Totals are clamped to
// [0,100].
package scoring

import (
	"math"
	"strings"
)

// Count is the number of jam scores.
const Count = 10

// Names lists the scores in storage order; the index matches At and Set.
var Names = [Count]string{
	"energy",
	"intensity",
	"groove",
	"improvisation",
	"tightness",
	"build_quality",
	"exploratory",
	"transcendence",
	"valence",
	"arousal",
}

// JamScores holds the ten derived scores, each in [0,100].
type JamScores struct {
	Energy        float64 `json:"energy"`
	Intensity     float64 `json:"intensity"`
	Groove        float64 `json:"groove"`
	Improvisation float64 `json:"improvisation"`
	Tightness     float64 `json:"tightness"`
	BuildQuality  float64 `json:"build_quality"`
	Exploratory   float64 `json:"exploratory"`
	Transcendence float64 `json:"transcendence"`
	Valence       float64 `json:"valence"`
	Arousal       float64 `json:"arousal"`
}

func (s *JamScores) fields() [Count]*float64 {
	return [Count]*float64{
		&s.Energy, &s.Intensity, &s.Groove, &s.Improvisation, &s.Tightness,
		&s.BuildQuality, &s.Exploratory, &s.Transcendence, &s.Valence, &s.Arousal,
	}
}

// At returns the score at index i of Names.
func (s JamScores) At(i int) float64 {
	return *s.fields()[i]
}

// Set assigns the score at index i of Names.
func (s *JamScores) Set(i int, v float64) {
	*s.fields()[i] = v
}

// Clamp forces every score into [0,100]; NaN becomes 0.
func (s JamScores) Clamp() JamScores {
	for i := range Count {
		s.Set(i, clampScore(s.At(i)))
	}
	return s
}

// Index returns the position of a score name in Names, accepting the
// hyphenated and joined spellings used on the command line.
func Index(name string) (int, bool) {
	for i, n := range Names {
		if name == n || name == strings.ReplaceAll(n, "_", "-") || name == strings.ReplaceAll(n, "_", "") {
			return i, true
		}
	}
	return 0, false
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
