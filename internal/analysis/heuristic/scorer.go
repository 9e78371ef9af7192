// Package heuristic turns ThreadMetrics into bounded health, risk and timing
// scores. Every function here is pure.
package heuristic

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/gulalabs1-droid/textwingman/backend/internal/analysis/metrics"
	"github.com/gulalabs1-droid/textwingman/backend/internal/model/conversation"
	"github.com/gulalabs1-droid/textwingman/backend/internal/model/strategy"
)

// Momentum says who has been driving the last few messages.
type Momentum string

const (
	MomentumTheirs   Momentum = "theirs"
	MomentumYours    Momentum = "yours"
	MomentumBalanced Momentum = "balanced"
)

// Tier buckets RiskScore.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Risk tier cut points. These are the only tier thresholds in the codebase.
const (
	HighRiskThreshold   = 60
	MediumRiskThreshold = 35
)

// Clamp ranges. Threads shorter than ShortThreadMessages carry too little
// signal for extreme scores and use the narrower band.
const (
	ShortThreadMessages = 3

	HealthMin      = 10
	HealthMax      = 100
	ShortHealthMin = 24
	ShortHealthMax = 96

	RiskMin      = 0
	RiskMax      = 100
	ShortRiskMin = 8
	ShortRiskMax = 95
)

// Health adjustments.
const (
	healthBaseline        = 70
	parityBonus           = 10
	parityBand            = 0.1
	theirsMomentumBonus   = 8
	balancedMomentumBonus = 6
	reInitiationBonus     = 6
	substantiveBonus      = 4
	chasePenaltyPerMsg    = 6
	chasePenaltyCap       = 30
	longDraftHealthCost   = 8
	questionyDraftCost    = 6
)

// Risk adjustments.
const (
	riskBaseline         = 28
	lastWordPenalty      = 12
	yoursMomentumPenalty = 15
	heavyInvestmentRatio = 2.0
	heavyInvestmentCost  = 15
	moderateInvestRatio  = 1.5
	moderateInvestCost   = 8
	lowReciprocity       = 30
	lowReciprocityCost   = 10
	draftQuestionCost    = 6
	draftQuestionCap     = 3
	longDraftRiskCost    = 10
	reInitiationCredit   = 8
	substantiveCredit    = 4
	longDraftChars       = 160
	questionyDraftMarks  = 2
)

// Wait windows, keyed by tier. Monotonic in risk.
const (
	WaitShortest = "15–30min"
	WaitShort    = "45–90min"
	WaitMedium   = "1–2hr"
	WaitLong     = "2–4hr"
)

// Balance cut points on the investment ratio.
const (
	chasingRatio     = 2.0
	selfLeadingRatio = 1.3
	otherLeadRatio   = 0.7
)

// Scores is the heuristic read of a thread.
type Scores struct {
	HealthScore int              `json:"healthScore"`
	RiskScore   int              `json:"riskScore"`
	RiskTier    Tier             `json:"riskTier"`
	Momentum    Momentum         `json:"momentum"`
	Reciprocity int              `json:"reciprocity"`
	Balance     strategy.Balance `json:"balance"`
	WaitWindow  string           `json:"waitWindow"`
}

// Score computes Scores from metrics and an optional unsent draft.
//
// While SelfCount >= OtherCount, an extra Self message never raises health or
// lowers risk. Below parity it can do both, because it pulls reciprocity
// toward balance.
func Score(m metrics.ThreadMetrics, draft string) Scores {
	s := Scores{
		Reciprocity: Reciprocity(m.OtherCount, m.SelfCount),
		Momentum:    momentumFrom(m),
		Balance:     BalanceOf(m),
	}
	d := inspectDraft(draft)

	s.HealthScore = health(m, s, d)
	s.RiskScore = risk(m, s, d)
	s.RiskTier = TierOf(s.RiskScore)
	s.WaitWindow = WaitWindow(s.RiskTier, s.Momentum)
	return s
}

// Reciprocity is round(100 * min / max(them, self, 1)).
func Reciprocity(them, self int) int {
	lo := min(them, self)
	hi := max(them, self, 1)
	return int(math.Round(100 * float64(lo) / float64(hi)))
}

// TierOf maps a risk score to its tier.
func TierOf(risk int) Tier {
	switch {
	case risk >= HighRiskThreshold:
		return TierHigh
	case risk >= MediumRiskThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// WaitWindow looks up the suggested wait before replying.
func WaitWindow(tier Tier, momentum Momentum) string {
	switch tier {
	case TierHigh:
		return WaitLong
	case TierMedium:
		return WaitMedium
	}
	if momentum == MomentumTheirs {
		return WaitShortest
	}
	return WaitShort
}

// BalanceOf classifies whole-thread investment asymmetry.
func BalanceOf(m metrics.ThreadMetrics) strategy.Balance {
	switch {
	case m.TotalMessages == 0:
		return strategy.BalanceUnknown
	case m.OtherCount == 0:
		return strategy.BalanceSelfChasing
	case m.SelfCount > m.OtherCount && m.InvestmentRatio >= chasingRatio:
		return strategy.BalanceSelfChasing
	case m.InvestmentRatio > selfLeadingRatio:
		return strategy.BalanceSelfLeading
	case m.InvestmentRatio < otherLeadRatio:
		return strategy.BalanceOtherLeading
	default:
		return strategy.BalanceBalanced
	}
}

func momentumFrom(m metrics.ThreadMetrics) Momentum {
	switch {
	case m.RecentOtherMessages > m.RecentSelfMessages:
		return MomentumTheirs
	case m.RecentSelfMessages > m.RecentOtherMessages:
		return MomentumYours
	default:
		return MomentumBalanced
	}
}

type draftSignals struct {
	questions int
	long      bool
}

func inspectDraft(draft string) draftSignals {
	draft = strings.TrimSpace(draft)
	return draftSignals{
		questions: strings.Count(draft, "?"),
		long:      utf8.RuneCountInString(draft) > longDraftChars,
	}
}

func health(m metrics.ThreadMetrics, s Scores, d draftSignals) int {
	score := healthBaseline

	if m.TotalMessages > 0 {
		share := float64(m.SelfCount) / float64(m.TotalMessages)
		if math.Abs(share-0.5) <= parityBand {
			score += parityBonus
		}
	}

	switch s.Momentum {
	case MomentumTheirs:
		score += theirsMomentumBonus
	case MomentumBalanced:
		score += balancedMomentumBonus
	}

	if m.ReInitiated {
		score += reInitiationBonus
	}
	if m.LastMessageSubstantive {
		score += substantiveBonus
	}

	if excess := m.SelfCount - m.OtherCount; excess > 0 {
		score -= min(chasePenaltyCap, excess*chasePenaltyPerMsg)
	}

	if d.long {
		score -= longDraftHealthCost
	}
	if d.questions >= questionyDraftMarks {
		score -= questionyDraftCost
	}

	if m.TotalMessages < ShortThreadMessages {
		return clamp(score, ShortHealthMin, ShortHealthMax)
	}
	return clamp(score, HealthMin, HealthMax)
}

func risk(m metrics.ThreadMetrics, s Scores, d draftSignals) int {
	score := riskBaseline

	if m.LastSpeaker == conversation.Self {
		score += lastWordPenalty
	}
	if s.Momentum == MomentumYours {
		score += yoursMomentumPenalty
	}

	switch {
	case m.InvestmentRatio > heavyInvestmentRatio:
		score += heavyInvestmentCost
	case m.InvestmentRatio > moderateInvestRatio:
		score += moderateInvestCost
	}

	if m.TotalMessages > 0 && s.Reciprocity < lowReciprocity {
		score += lowReciprocityCost
	}

	score += min(d.questions, draftQuestionCap) * draftQuestionCost
	if d.long {
		score += longDraftRiskCost
	}

	if m.ReInitiated {
		score -= reInitiationCredit
	}
	if m.LastMessageSubstantive {
		score -= substantiveCredit
	}

	if m.TotalMessages < ShortThreadMessages {
		return clamp(score, ShortRiskMin, ShortRiskMax)
	}
	return clamp(score, RiskMin, RiskMax)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
