package governor

import (
	"context"
	"testing"
)

func TestWordRateEstimator_Estimate(t *testing.T) {
	e := NewWordRateEstimator()

	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "empty", text: "", want: 0},
		{name: "three words per second", text: "one two three", want: 1},
		{name: "twenty words", text: wordsText(20), want: 6.67},
		{name: "punctuation ignored", text: "well, hello there!", want: 1},
		{name: "apostrophes keep tokens", text: "it's fine", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Estimate(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Estimate error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Estimate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hello", 1},
		{"hello, world!", 2},
		{"  spaced   out  ", 2},
		{"dash-joined words count twice", 5},
	}
	for _, tt := range tests {
		if got := CountWords(tt.text); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestTargetWords(t *testing.T) {
	tests := []struct {
		maxDuration float64
		want        int
	}{
		{60, 180},
		{8, 24},
		{5, 15},
		{1, 3},
		{0.1, 0},
	}
	for _, tt := range tests {
		if got := TargetWords(tt.maxDuration); got != tt.want {
			t.Errorf("TargetWords(%v) = %d, want %d", tt.maxDuration, got, tt.want)
		}
	}
}
