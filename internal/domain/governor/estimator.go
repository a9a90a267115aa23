package governor

import (
	"context"
	"math"
	"regexp"
)

// WordsPerMinute is the assumed average speech rate for the proportional
// duration model.
const WordsPerMinute = 180

var wordPattern = regexp.MustCompile(`\w+`)

// Estimator predicts the spoken duration of a text in seconds.
type Estimator interface {
	Estimate(ctx context.Context, text string) (float64, error)
}

// CountWords counts the word tokens in text the same way the duration model
// does.
func CountWords(text string) int {
	return len(wordPattern.FindAllString(text, -1))
}

// SplitWords returns the word tokens of text in order.
func SplitWords(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

// WordRateEstimator models spoken duration proportionally to the word count
// at a fixed speech rate. It never fails and needs no network round trip.
type WordRateEstimator struct {
	WordsPerMinute float64
}

// NewWordRateEstimator builds the default proportional estimator.
func NewWordRateEstimator() WordRateEstimator {
	return WordRateEstimator{WordsPerMinute: WordsPerMinute}
}

func (e WordRateEstimator) Estimate(_ context.Context, text string) (float64, error) {
	rate := e.WordsPerMinute
	if rate <= 0 {
		rate = WordsPerMinute
	}
	minutes := float64(CountWords(text)) / rate
	return math.Round(minutes*60*100) / 100, nil
}

// TargetWords converts a duration ceiling into the word budget the shortening
// instruction quotes to the text generator.
func TargetWords(maxDuration float64) int {
	return int(maxDuration / 60 * WordsPerMinute)
}
