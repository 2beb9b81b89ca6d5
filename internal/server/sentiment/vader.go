package sentiment

import "github.com/jonreiter/govader"

// VaderPolarizer scores text with the VADER lexicon and reports the
// compound score.
type VaderPolarizer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

var _ Polarizer = (*VaderPolarizer)(nil)

func NewVaderPolarizer() *VaderPolarizer {
	return &VaderPolarizer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderPolarizer) Polarity(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}
