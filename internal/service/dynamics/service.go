// Package dynamics runs the full analysis pipeline for one transcript:
// parse, metrics, heuristic scores, model strategy and reply directives.
package dynamics

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gulalabs1-droid/textwingman/backend/internal/analysis/heuristic"
	"github.com/gulalabs1-droid/textwingman/backend/internal/analysis/metrics"
	"github.com/gulalabs1-droid/textwingman/backend/internal/events"
	"github.com/gulalabs1-droid/textwingman/backend/internal/model/conversation"
	strategymodel "github.com/gulalabs1-droid/textwingman/backend/internal/model/strategy"
	"github.com/gulalabs1-droid/textwingman/backend/internal/service/directive"
)

var ErrEmptyTranscript = errors.New("transcript has no messages")

// Inferrer produces a strategy for a transcript. It must never fail.
type Inferrer interface {
	Infer(ctx context.Context, t conversation.Transcript, contextTag string) (strategymodel.Result, time.Duration)
}

// Request is one analysis input. Lines wins over Transcript when both are set.
type Request struct {
	Transcript string   `json:"transcript,omitempty"`
	Lines      []string `json:"lines,omitempty"`
	ContextTag string   `json:"context,omitempty"`
	Draft      string   `json:"draft,omitempty"`
}

// Report is the deterministic half of an analysis.
type Report struct {
	Messages int                   `json:"messages"`
	Metrics  metrics.ThreadMetrics `json:"metrics"`
	Scores   heuristic.Scores      `json:"scores"`
}

// Analysis is the complete result returned to callers.
type Analysis struct {
	ID         string `json:"id"`
	ContextTag string `json:"context,omitempty"`
	Report
	Strategy          strategymodel.Result `json:"strategy"`
	SafeDefault       bool                 `json:"safeDefault"`
	Directives        directive.Set        `json:"directives"`
	Prompt            string               `json:"prompt"`
	StrategyLatencyMs int64                `json:"strategyLatencyMs"`
	LatencyMs         int64                `json:"latencyMs"`
	CreatedAt         time.Time            `json:"createdAt"`
}

// Service is safe for concurrent use.
type Service struct {
	strategy  Inferrer
	publisher events.Publisher
	subject   string
	now       func() time.Time
}

// NewService wires the pipeline. A nil publisher disables events and an
// empty subject falls back to events.SubjectAnalysisCompleted.
func NewService(strategy Inferrer, publisher events.Publisher, subject string) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if strings.TrimSpace(subject) == "" {
		subject = events.SubjectAnalysisCompleted
	}
	return &Service{
		strategy:  strategy,
		publisher: publisher,
		subject:   subject,
		now:       time.Now,
	}
}

// Score runs metrics and heuristics only. No model is called.
func (s *Service) Score(req Request) (Report, error) {
	t, err := parse(req)
	if err != nil {
		return Report{}, err
	}
	return report(t, req.Draft), nil
}

// Analyze runs the whole pipeline. The only error is ErrEmptyTranscript;
// strategy problems surface as a safe default inside the Analysis.
func (s *Service) Analyze(ctx context.Context, req Request) (Analysis, error) {
	start := s.now()

	t, err := parse(req)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{
		ID:         uuid.NewString(),
		ContextTag: strings.TrimSpace(req.ContextTag),
		Report:     report(t, req.Draft),
		Strategy:   strategymodel.SafeDefault(),
	}

	if s.strategy != nil {
		result, latency := s.strategy.Infer(ctx, t, a.ContextTag)
		a.Strategy = result
		a.StrategyLatencyMs = latency.Milliseconds()
	}
	a.SafeDefault = strategymodel.IsSafeDefault(a.Strategy)
	a.Directives = directive.Format(a.Strategy, a.Metrics)
	a.Prompt = a.Directives.String()

	finished := s.now()
	a.CreatedAt = finished.UTC()
	a.LatencyMs = finished.Sub(start).Milliseconds()

	s.publish(a)
	log.Printf("[dynamics] analysis=%s messages=%d risk=%d tier=%s safe_default=%t latency=%dms",
		a.ID, a.Messages, a.Scores.RiskScore, a.Scores.RiskTier, a.SafeDefault, a.LatencyMs)
	return a, nil
}

func (s *Service) publish(a Analysis) {
	evt := events.AnalysisCompleted{
		AnalysisID:  a.ID,
		ContextTag:  a.ContextTag,
		Messages:    a.Messages,
		HealthScore: a.Scores.HealthScore,
		RiskScore:   a.Scores.RiskScore,
		RiskTier:    string(a.Scores.RiskTier),
		Momentum:    string(a.Strategy.Momentum),
		Balance:     string(a.Strategy.Balance),
		MoveEnergy:  string(a.Strategy.Move.Energy),
		SafeDefault: a.SafeDefault,
		LatencyMs:   a.LatencyMs,
		CompletedAt: a.CreatedAt,
	}
	if err := s.publisher.Publish(s.subject, evt); err != nil {
		log.Printf("[dynamics] publish %s for analysis=%s failed: %v", s.subject, a.ID, err)
	}
}

func parse(req Request) (conversation.Transcript, error) {
	var t conversation.Transcript
	if len(req.Lines) > 0 {
		t = conversation.ParseLines(req.Lines)
	} else {
		t = conversation.ParseTranscript(req.Transcript)
	}
	if len(t) == 0 {
		return nil, ErrEmptyTranscript
	}
	return t, nil
}

func report(t conversation.Transcript, draft string) Report {
	m := metrics.Extract(t)
	return Report{
		Messages: len(t),
		Metrics:  m,
		Scores:   heuristic.Score(m, draft),
	}
}
