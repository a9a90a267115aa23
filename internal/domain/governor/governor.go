package governor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	platformerrors "voicetrim-server-go/internal/platform/errors"
	"voicetrim-server-go/internal/platform/logging"
)

// Typed failures surfaced to callers. They are never swallowed into a
// possibly-too-long response; the caller decides whether to retry the whole
// pipeline or report to the user.
var (
	ErrGenerationUnavailable = errors.New("text generation unavailable")
	ErrEstimationUnavailable = errors.New("duration estimation unavailable")
	ErrPolicyInvalid         = errors.New("invalid duration policy")
)

// Disposition tags how the governor settled on a candidate.
type Disposition string

const (
	Accepted          Disposition = "accepted"
	ShortenedAccepted Disposition = "shortened"
	FallbackTruncated Disposition = "truncated"
)

// Candidate is a generated text response awaiting duration validation.
// Candidates are immutable; each generation or regeneration call produces a
// fresh one.
type Candidate struct {
	Text              string
	EstimatedDuration float64 // seconds
	Attempt           int
}

// Verdict is the governor's final disposition for an utterance response.
type Verdict struct {
	Disposition Disposition
	Candidate   Candidate
	Original    Candidate
}

// Updated reports whether the returned text differs from the input.
func (v Verdict) Updated() bool {
	return v.Disposition != Accepted
}

// Rewriter requests a shortened rewrite from the text-generation collaborator.
type Rewriter interface {
	Shorten(ctx context.Context, text string, maxDuration float64, targetWords int) (string, error)
}

// Governor decides whether a candidate response fits the spoken duration
// ceiling, requesting shorter rewrites up to the policy's attempt budget and
// falling back to word-boundary truncation when the budget is exhausted.
//
// A Governor holds no mutable state and is safe for concurrent use across
// sessions.
type Governor struct {
	policy    Policy
	estimator Estimator
	rewriter  Rewriter
	logger    *logging.Logger
}

// New builds a governor for the given immutable policy.
func New(policy Policy, estimator Estimator, rewriter Rewriter, logger *logging.Logger) (*Governor, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if estimator == nil {
		return nil, platformerrors.New(platformerrors.KindGovernor, "governor.new", "estimator is required")
	}
	if rewriter == nil {
		return nil, platformerrors.New(platformerrors.KindGovernor, "governor.new", "rewriter is required")
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Governor{
		policy:    policy,
		estimator: estimator,
		rewriter:  rewriter,
		logger:    logger,
	}, nil
}

// Policy exposes the governor's immutable policy.
func (g *Governor) Policy() Policy {
	return g.policy
}

// Evaluate estimates the spoken duration of text and either accepts it,
// returns a within-budget rewrite, or truncates the best candidate on a word
// boundary. Each rewrite attempt issues one outbound call to the
// text-generation collaborator; termination is bounded by the attempt budget.
func (g *Governor) Evaluate(ctx context.Context, text string) (Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return Verdict{}, platformerrors.New(platformerrors.KindGovernor, "governor.evaluate", "text must not be empty")
	}

	estimate, err := g.estimate(ctx, text)
	if err != nil {
		return Verdict{}, err
	}

	original := Candidate{Text: text, EstimatedDuration: estimate}
	if estimate <= g.policy.MaxDuration {
		return Verdict{Disposition: Accepted, Candidate: original, Original: original}, nil
	}

	g.logTag("candidate over budget: %.2fs > %.2fs, requesting rewrites", estimate, g.policy.MaxDuration)

	targetWords := TargetWords(g.policy.MaxDuration)
	best := original
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		// A cancelled session must not issue another rewrite call.
		if err := ctx.Err(); err != nil {
			return Verdict{}, platformerrors.Wrap(platformerrors.KindGovernor, "governor.evaluate",
				"evaluation cancelled", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err))
		}

		rewritten, err := g.rewriter.Shorten(ctx, best.Text, g.policy.MaxDuration, targetWords)
		if err != nil {
			return Verdict{}, platformerrors.Wrap(platformerrors.KindGovernor, "governor.evaluate",
				fmt.Sprintf("rewrite attempt %d failed", attempt),
				fmt.Errorf("%w: %v", ErrGenerationUnavailable, err))
		}

		estimate, err := g.estimate(ctx, rewritten)
		if err != nil {
			return Verdict{}, err
		}

		candidate := Candidate{Text: rewritten, EstimatedDuration: estimate, Attempt: attempt}
		if estimate <= g.policy.MaxDuration {
			g.logTag("rewrite fits after %d attempt(s): %.2fs", attempt, estimate)
			return Verdict{Disposition: ShortenedAccepted, Candidate: candidate, Original: original}, nil
		}
		if estimate < best.EstimatedDuration {
			best = candidate
		}
	}

	truncated := truncateToFit(best.Text, g.policy.MaxDuration)
	estimate, err = g.estimate(ctx, truncated)
	if err != nil {
		return Verdict{}, err
	}

	g.logTag("attempt budget exhausted, truncated to %d word(s)", CountWords(truncated))
	final := Candidate{Text: truncated, EstimatedDuration: estimate, Attempt: g.policy.MaxAttempts}
	return Verdict{Disposition: FallbackTruncated, Candidate: final, Original: original}, nil
}

func (g *Governor) estimate(ctx context.Context, text string) (float64, error) {
	estimate, err := g.estimator.Estimate(ctx, text)
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.KindGovernor, "governor.estimate",
			"duration estimation failed", fmt.Errorf("%w: %v", ErrEstimationUnavailable, err))
	}
	return estimate, nil
}

func (g *Governor) logTag(msg string, args ...interface{}) {
	if g.logger != nil {
		g.logger.InfoTag("Governor", msg, args...)
	}
}

// truncateToFit cuts text to the longest word-boundary prefix whose modelled
// duration fits maxDuration, preserving the original spacing and punctuation.
// A single word that blows the budget on its own is returned whole; there is
// nothing shorter to say.
func truncateToFit(text string, maxDuration float64) string {
	bounds := wordPattern.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return text
	}

	limit := TargetWords(maxDuration)
	if limit < 1 {
		limit = 1
	}
	if limit >= len(bounds) {
		return text
	}

	end := bounds[limit-1][1]
	return strings.TrimSpace(text[:end])
}
