// Package sentiment maps lexical polarity scores onto coarse labels.
package sentiment

import (
	"math"
	"strings"
)

// Label is the coarse sentiment of a text.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// Threshold is the half-width of the neutral band. Polarity must exceed it
// strictly to be labelled positive or negative.
const Threshold = 0.1

// Polarizer scores text polarity in [-1, 1].
type Polarizer interface {
	Polarity(text string) float64
}

// Result is a classification outcome.
type Result struct {
	Label      Label   `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels text using a Polarizer.
type Classifier struct {
	polarizer Polarizer
}

func NewClassifier(p Polarizer) *Classifier {
	return &Classifier{polarizer: p}
}

// Classify returns the label and confidence for text. Blank text is neutral
// with zero confidence and never reaches the polarizer.
func (c *Classifier) Classify(text string) Result {
	if strings.TrimSpace(text) == "" {
		return FromPolarity(0)
	}
	return FromPolarity(c.polarizer.Polarity(text))
}

// FromPolarity labels a raw polarity score. NaN is treated as 0 and values
// outside [-1, 1] are clamped.
func FromPolarity(p float64) Result {
	if math.IsNaN(p) {
		p = 0
	}
	p = math.Max(-1, math.Min(1, p))

	label := Neutral
	switch {
	case p > Threshold:
		label = Positive
	case p < -Threshold:
		label = Negative
	}
	return Result{Label: label, Confidence: math.Abs(p)}
}
