// Package directive renders a strategy and thread metrics into the ordered
// instructions handed to a reply writer.
package directive

import (
	"fmt"
	"strings"

	"github.com/gulalabs1-droid/textwingman/backend/internal/analysis/metrics"
	"github.com/gulalabs1-droid/textwingman/backend/internal/model/strategy"
)

// Kind tags a directive by the section it belongs to.
type Kind string

const (
	KindHeader Kind = "header"
	KindHint   Kind = "hint"
	KindRule   Kind = "rule"
	KindEnergy Kind = "energy"
)

// Directive is one instruction line.
type Directive struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Set is the formatted output: directives in emission order plus the raw
// constraint flags for consumers that prefer structure.
type Set struct {
	Directives []Directive          `json:"directives"`
	Flags      strategy.Constraints `json:"flags"`
}

const (
	// ShortReplyChars is the longest last reply still treated as a one-word answer.
	ShortReplyChars = 15
	// LowAverageLength is the lifetime average below which Other is a short texter.
	LowAverageLength = 25
)

const (
	RuleNoQuestions = "Do not ask any questions."
	RuleKeepShort   = "Keep it short: one line, no more than 15 words."
	RuleAddTease    = "Add a light tease or playful jab."
	RulePushMeetup  = "Steer toward a concrete plan to meet up."

	HintMatchBrevity = "Their last reply was short and flat. Match the brevity and do not ask questions."
	HintEngage       = "They are engaged. Respond to the specifics of what they said."
	HintBrevity      = "They usually text short. Keep yours brief."
)

// Format is pure and total. The first directive is always the one-liner and
// an energy directive, when present, is always last.
func Format(r strategy.Result, m metrics.ThreadMetrics) Set {
	set := Set{Flags: r.Move.Constraints}

	set.add(KindHeader, r.Move.OneLiner)
	set.add(KindHeader, fmt.Sprintf("Momentum: %s | Balance: %s | Energy: %s | Risk: %s",
		r.Momentum, r.Balance, r.Move.Energy, r.Move.Risk))

	if r.SarcasmDetected != nil {
		if *r.SarcasmDetected {
			set.add(KindHint, "Sarcasm detected: read their tone as playful, not literal.")
		} else {
			set.add(KindHint, "No sarcasm detected: take their words at face value.")
		}
	}
	if r.IsKidding != nil {
		if *r.IsKidding {
			set.add(KindHint, "They are kidding around. Keep it light.")
		} else {
			set.add(KindHint, "They are not joking. Respond sincerely.")
		}
	}
	if r.EnergyLevel != "" {
		set.add(KindHint, fmt.Sprintf("Their energy level: %s.", r.EnergyLevel))
	}
	for _, flag := range r.RiskFlags {
		set.add(KindHint, "Watch out: "+flag)
	}

	c := r.Move.Constraints
	if c.NoQuestions {
		set.add(KindRule, RuleNoQuestions)
	}
	if c.KeepShort {
		set.add(KindRule, RuleKeepShort)
	}
	if c.AddTease {
		set.add(KindRule, RuleAddTease)
	}
	if c.PushMeetup {
		set.add(KindRule, RulePushMeetup)
	}

	if hint := energyHint(m); hint != "" {
		set.add(KindEnergy, hint)
	}
	return set
}

// energyHint picks at most one branch. Engagement signals outrank the
// low-effort reading even when the last reply is short.
func energyHint(m metrics.ThreadMetrics) string {
	engaged := m.LastMessageSubstantive || m.ReInitiated || m.RecentQuestions > 0

	switch {
	case m.OtherCount == 0:
		return ""
	case m.LastOtherLength <= ShortReplyChars && !engaged:
		return HintMatchBrevity
	case engaged:
		return HintEngage
	case m.AvgOtherLength < LowAverageLength:
		return HintBrevity
	default:
		return ""
	}
}

func (s *Set) add(kind Kind, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.Directives = append(s.Directives, Directive{Kind: kind, Text: text})
}

// Lines returns the directive texts in order.
func (s Set) Lines() []string {
	lines := make([]string, 0, len(s.Directives))
	for _, d := range s.Directives {
		lines = append(lines, d.Text)
	}
	return lines
}

// String renders the set as newline separated instructions ready to be
// appended to a generation prompt.
func (s Set) String() string {
	return strings.Join(s.Lines(), "\n")
}
