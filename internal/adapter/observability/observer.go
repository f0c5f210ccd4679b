package observability

import (
	"log/slog"

	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
	"github.com/fairyhunter13/scholarship-matcher/internal/usecase"
)

// PipelineObserver feeds pipeline events into the Prometheus collectors.
type PipelineObserver struct {
	tokens      *tokencount.Counter
	model       string
	tokenBudget int
}

var _ usecase.Observer = (*PipelineObserver)(nil)

// NewPipelineObserver returns an observer. A positive tokenBudget logs a warning
// for prompts estimated above it.
func NewPipelineObserver(counter *tokencount.Counter, model string, tokenBudget int) *PipelineObserver {
	if counter == nil {
		counter = tokencount.DefaultCounter
	}
	return &PipelineObserver{tokens: counter, model: model, tokenBudget: tokenBudget}
}

// ObserveOutcome implements usecase.Observer.
func (o *PipelineObserver) ObserveOutcome(variant domain.Variant, outcome string) {
	MatchOutcomesTotal.WithLabelValues(string(variant), outcome).Inc()
}

// ObserveDrops implements usecase.Observer.
func (o *PipelineObserver) ObserveDrops(variant domain.Variant, drops usecase.Drops) {
	for reason, n := range drops {
		if n > 0 {
			MatchDroppedTotal.WithLabelValues(string(variant), reason).Add(float64(n))
		}
	}
}

// ObserveScores implements usecase.Observer.
func (o *PipelineObserver) ObserveScores(variant domain.Variant, scores []int) {
	h := MatchScoreHistogram.WithLabelValues(string(variant))
	for _, s := range scores {
		h.Observe(float64(s))
	}
}

// ObservePromptTokens implements usecase.Observer.
func (o *PipelineObserver) ObservePromptTokens(variant domain.Variant, system, user string) {
	n, err := o.tokens.CountChatTokens(system, user, o.model)
	if err != nil {
		n = tokencount.Estimate(system, user)
	}
	PromptTokensHistogram.WithLabelValues(string(variant)).Observe(float64(n))
	if o.tokenBudget > 0 && n > o.tokenBudget {
		slog.Warn("prompt exceeds token budget",
			slog.String("variant", string(variant)),
			slog.String("model", o.model),
			slog.Int("tokens", n),
			slog.Int("budget", o.tokenBudget))
	}
}
