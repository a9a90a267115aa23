package governor

import (
	"context"
	"errors"
	"strings"
	"testing"

	platformerrors "voicetrim-server-go/internal/platform/errors"
)

type fakeRewriter struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeRewriter) Shorten(_ context.Context, text string, _ float64, _ int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return text, nil
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next, nil
}

type failingEstimator struct{}

func (failingEstimator) Estimate(context.Context, string) (float64, error) {
	return 0, errors.New("synthesis backend down")
}

func wordsText(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func newTestGovernor(t *testing.T, policy Policy, rewriter Rewriter) *Governor {
	t.Helper()
	g, err := New(policy, NewWordRateEstimator(), rewriter, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return g
}

func TestEvaluate_WithinBudgetAccepted(t *testing.T) {
	rewriter := &fakeRewriter{}
	g := newTestGovernor(t, Policy{MaxDuration: 5, MaxAttempts: 2}, rewriter)

	text := wordsText(12) // 4s at 180wpm
	verdict, err := g.Evaluate(context.Background(), text)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}

	if verdict.Disposition != Accepted {
		t.Fatalf("expected Accepted, got %s", verdict.Disposition)
	}
	if verdict.Candidate.Text != text {
		t.Errorf("accepted text must be the original, unchanged")
	}
	if verdict.Updated() {
		t.Errorf("Accepted verdict must not report an update")
	}
	if rewriter.calls != 0 {
		t.Errorf("no rewrite call expected, got %d", rewriter.calls)
	}
}

func TestEvaluate_OneRewriteShortened(t *testing.T) {
	// policy = {5s, 2 attempts}; 180wpm models 1 second per 3 words.
	// 20 words is about 6.67s, the 12 word rewrite is 4s.
	rewriter := &fakeRewriter{responses: []string{wordsText(12)}}
	g := newTestGovernor(t, Policy{MaxDuration: 5, MaxAttempts: 2}, rewriter)

	verdict, err := g.Evaluate(context.Background(), wordsText(20))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}

	if verdict.Disposition != ShortenedAccepted {
		t.Fatalf("expected ShortenedAccepted, got %s", verdict.Disposition)
	}
	if rewriter.calls != 1 {
		t.Errorf("expected exactly one rewrite call, got %d", rewriter.calls)
	}
	if verdict.Candidate.EstimatedDuration != 4 {
		t.Errorf("expected 4s estimate, got %v", verdict.Candidate.EstimatedDuration)
	}
	if verdict.Candidate.EstimatedDuration >= verdict.Original.EstimatedDuration {
		t.Errorf("shortened candidate must be strictly shorter than the original")
	}
	if verdict.Original.EstimatedDuration != 6.67 {
		t.Errorf("expected 6.67s original estimate, got %v", verdict.Original.EstimatedDuration)
	}
}

func TestEvaluate_AttemptBudgetExhausted(t *testing.T) {
	// Rewriter echoes the input, so no rewrite ever fits.
	for _, maxAttempts := range []int{1, 2, 5} {
		rewriter := &fakeRewriter{}
		g := newTestGovernor(t, Policy{MaxDuration: 5, MaxAttempts: maxAttempts}, rewriter)

		original := wordsText(30)
		verdict, err := g.Evaluate(context.Background(), original)
		if err != nil {
			t.Fatalf("Evaluate error: %v", err)
		}

		if verdict.Disposition != FallbackTruncated {
			t.Fatalf("expected FallbackTruncated, got %s", verdict.Disposition)
		}
		if rewriter.calls != maxAttempts {
			t.Errorf("expected exactly %d rewrite attempts, got %d", maxAttempts, rewriter.calls)
		}
		if verdict.Candidate.EstimatedDuration > 5 {
			t.Errorf("truncated candidate still over budget: %v", verdict.Candidate.EstimatedDuration)
		}
		// Returned tokens must be a prefix of the candidate's tokens.
		got := SplitWords(verdict.Candidate.Text)
		want := SplitWords(original)
		if len(got) == 0 || len(got) > len(want) {
			t.Fatalf("unexpected truncation length: %d of %d", len(got), len(want))
		}
		for i, w := range got {
			if w != want[i] {
				t.Errorf("token %d = %q, expected prefix token %q", i, w, want[i])
			}
		}
	}
}

func TestEvaluate_GenerationUnavailable(t *testing.T) {
	rewriter := &fakeRewriter{err: errors.New("upstream 503")}
	g := newTestGovernor(t, Policy{MaxDuration: 5, MaxAttempts: 2}, rewriter)

	_, err := g.Evaluate(context.Background(), wordsText(20))
	if err == nil {
		t.Fatal("expected error when every rewrite call fails")
	}
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Errorf("expected ErrGenerationUnavailable, got %v", err)
	}
	if !platformerrors.IsKind(err, platformerrors.KindGovernor) {
		t.Errorf("expected governor kind error, got %v", err)
	}
	if rewriter.calls != 1 {
		t.Errorf("must fail after the first failed attempt, got %d calls", rewriter.calls)
	}
}

func TestEvaluate_EstimationUnavailable(t *testing.T) {
	g, err := New(Policy{MaxDuration: 5, MaxAttempts: 1}, failingEstimator{}, &fakeRewriter{}, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	_, err = g.Evaluate(context.Background(), wordsText(3))
	if !errors.Is(err, ErrEstimationUnavailable) {
		t.Errorf("expected ErrEstimationUnavailable, got %v", err)
	}
}

func TestEvaluate_CancelledBeforeRewrite(t *testing.T) {
	rewriter := &fakeRewriter{}
	g := newTestGovernor(t, Policy{MaxDuration: 5, MaxAttempts: 2}, rewriter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Evaluate(ctx, wordsText(20))
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Errorf("expected ErrGenerationUnavailable on cancellation, got %v", err)
	}
	if rewriter.calls != 0 {
		t.Errorf("cancelled evaluation must not issue a rewrite call, got %d", rewriter.calls)
	}
}

func TestEvaluate_EmptyText(t *testing.T) {
	g := newTestGovernor(t, Policy{MaxDuration: 5, MaxAttempts: 1}, &fakeRewriter{})
	if _, err := g.Evaluate(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestEvaluate_SingleWordOverBudget(t *testing.T) {
	rewriter := &fakeRewriter{}
	g := newTestGovernor(t, Policy{MaxDuration: 0.1, MaxAttempts: 1}, rewriter)

	verdict, err := g.Evaluate(context.Background(), "antidisestablishmentarianism")
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if verdict.Disposition != FallbackTruncated {
		t.Fatalf("expected FallbackTruncated, got %s", verdict.Disposition)
	}
	if verdict.Candidate.Text != "antidisestablishmentarianism" {
		t.Errorf("a single unsplittable word must be returned whole, got %q", verdict.Candidate.Text)
	}
}

func TestNew_InvalidPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
	}{
		{name: "zero duration", policy: Policy{MaxDuration: 0, MaxAttempts: 1}},
		{name: "negative duration", policy: Policy{MaxDuration: -2, MaxAttempts: 1}},
		{name: "zero attempts", policy: Policy{MaxDuration: 5, MaxAttempts: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.policy, NewWordRateEstimator(), &fakeRewriter{}, nil)
			if !errors.Is(err, ErrPolicyInvalid) {
				t.Errorf("expected ErrPolicyInvalid, got %v", err)
			}
		})
	}
}

func TestTruncateToFit_PreservesPunctuation(t *testing.T) {
	text := "Hello there, how are you doing today, friend? I have many more things to say."
	got := truncateToFit(text, 2) // 6 word budget at 180wpm
	want := "Hello there, how are you doing"
	if got != want {
		t.Errorf("truncateToFit() = %q, want %q", got, want)
	}
}
