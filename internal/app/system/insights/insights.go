// internal/app/system/insights/insights.go
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/metrics"
	"github.com/dalemusser/perfhub/internal/app/system/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrAnalysisUnavailable covers every provider failure: transport errors,
// timeouts and replies that are not the expected JSON.
var ErrAnalysisUnavailable = errors.New("behavioral analysis unavailable")

// ErrNoInput is returned when there is nothing to analyze.
var ErrNoInput = errors.New("no feedback to analyze")

// Scores are 0-100 ratings per dimension plus a short narrative.
type Scores struct {
	Communication int      `json:"communication"`
	Collaboration int      `json:"collaboration"`
	Leadership    int      `json:"leadership"`
	Initiative    int      `json:"initiative"`
	Reliability   int      `json:"reliability"`
	Summary       string   `json:"summary"`
	Strengths     []string `json:"strengths"`
	Improvements  []string `json:"improvements"`
}

// Provider is a chat-style LLM completion.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Analyzer turns feedback texts into Scores.
type Analyzer struct {
	provider Provider
	timeout  time.Duration
	maxTexts int
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// New creates an analyzer. A nil provider makes every call unavailable.
func New(p Provider, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Analyzer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{provider: p, timeout: timeout, maxTexts: 50, metrics: m, log: logger}
}

// Enabled reports whether a provider is configured.
func (a *Analyzer) Enabled() bool { return a != nil && a.provider != nil }

// Analyze scores texts. Blank entries are dropped; at most 50 are sent.
func (a *Analyzer) Analyze(ctx context.Context, texts []string) (Scores, error) {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
		if len(kept) == a.maxTexts {
			break
		}
	}
	if len(kept) == 0 {
		return Scores{}, ErrNoInput
	}
	if !a.Enabled() {
		return Scores{}, ErrAnalysisUnavailable
	}

	ctx, span := tracing.AddSpan(ctx, "insights.analyze", attribute.Int("texts", len(kept)))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.provider.Complete(ctx, systemPrompt, buildUserPrompt(kept))
	if err != nil {
		a.metrics.RecordProviderCall("llm", "failed")
		a.log.Error("llm analysis failed", zap.Int("texts", len(kept)), tracing.Field(ctx), zap.Error(err))
		return Scores{}, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	s, err := ParseScores(raw)
	if err != nil {
		a.metrics.RecordProviderCall("llm", "malformed")
		a.log.Warn("llm returned malformed analysis", zap.Error(err))
		return Scores{}, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	a.metrics.RecordProviderCall("llm", "ok")
	return s, nil
}

// ParseScores decodes a provider reply. Markdown code fences are tolerated;
// missing or out-of-range scores are errors.
func ParseScores(raw string) (Scores, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}

	var v struct {
		Communication *int     `json:"communication"`
		Collaboration *int     `json:"collaboration"`
		Leadership    *int     `json:"leadership"`
		Initiative    *int     `json:"initiative"`
		Reliability   *int     `json:"reliability"`
		Summary       string   `json:"summary"`
		Strengths     []string `json:"strengths"`
		Improvements  []string `json:"improvements"`
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Scores{}, fmt.Errorf("decode: %w", err)
	}

	dims := []struct {
		name string
		p    *int
	}{
		{"communication", v.Communication},
		{"collaboration", v.Collaboration},
		{"leadership", v.Leadership},
		{"initiative", v.Initiative},
		{"reliability", v.Reliability},
	}
	for _, d := range dims {
		if d.p == nil {
			return Scores{}, fmt.Errorf("missing score %q", d.name)
		}
		if *d.p < 0 || *d.p > 100 {
			return Scores{}, fmt.Errorf("score %q out of range: %d", d.name, *d.p)
		}
	}

	return Scores{
		Communication: *v.Communication,
		Collaboration: *v.Collaboration,
		Leadership:    *v.Leadership,
		Initiative:    *v.Initiative,
		Reliability:   *v.Reliability,
		Summary:       strings.TrimSpace(v.Summary),
		Strengths:     v.Strengths,
		Improvements:  v.Improvements,
	}, nil
}

const systemPrompt = `You analyze workplace feedback about one employee.
Reply with a single JSON object and nothing else:
{"communication":0-100,"collaboration":0-100,"leadership":0-100,"initiative":0-100,"reliability":0-100,
"summary":"two sentences","strengths":["..."],"improvements":["..."]}
Base every score only on the feedback given. Use 50 when the feedback says nothing about a dimension.`

func buildUserPrompt(texts []string) string {
	var b strings.Builder
	b.WriteString("Feedback entries:\n")
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	return b.String()
}
