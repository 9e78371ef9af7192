package strategy

import (
	"fmt"
	"strings"

	"github.com/gulalabs1-droid/textwingman/backend/internal/analysis/metrics"
	"github.com/gulalabs1-droid/textwingman/backend/internal/model/conversation"
)

// The templates are rendered with schema.FString; literal braces must only
// arrive through variables.
const strategySystemPrompt = `You read text conversations between "You" (the user) and "Them" and decide the user's next strategic move.
Rules:
1. Separate sarcasm and teasing from genuine low investment. Playful cues (lol, haha, jk, emoji, exaggeration) over short replies usually mean banter, not disinterest.
2. When Them re-initiated the conversation or asked questions recently, do not read short replies as low effort.
3. When genuine low effort dominates (short flat replies, no questions, no re-initiation, You sending more), never recommend asking questions or escalating. Set noQuestions to true and choose pull_back or match.
4. oneLiner is a terse directive to the user, at most 100 characters. It is advice, not a message to send.
Return exactly one JSON object that matches the provided schema and nothing else.`

const strategyUserPrompt = `Context: {context}

Thread metrics:
{metrics}

Transcript:
{transcript}

JSON schema:
{schema}`

func describeMetrics(m metrics.ThreadMetrics) string {
	lines := []string{
		fmt.Sprintf("- messages: you=%d them=%d total=%d", m.SelfCount, m.OtherCount, m.TotalMessages),
		fmt.Sprintf("- investment ratio (your chars / their chars): %.2f", m.InvestmentRatio),
		fmt.Sprintf("- recent energy: %s", m.RecentEnergy),
		fmt.Sprintf("- last speaker: %s", speakerLabel(m)),
		fmt.Sprintf("- average length: you=%.0f them=%.0f", m.AvgSelfLength, m.AvgOtherLength),
		fmt.Sprintf("- their last message: %d chars, substantive=%t", m.LastOtherLength, m.LastMessageSubstantive),
		fmt.Sprintf("- their recent average length: %.0f", m.RecentOtherAvgLength),
		fmt.Sprintf("- their recent questions: %d", m.RecentQuestions),
		fmt.Sprintf("- they re-initiated: %t", m.ReInitiated),
		fmt.Sprintf("- playful cues from them: %d", m.PlayfulCues),
	}
	return strings.Join(lines, "\n")
}

func speakerLabel(m metrics.ThreadMetrics) string {
	switch m.LastSpeaker {
	case conversation.Self:
		return "you"
	case conversation.Other:
		return "them"
	default:
		return "none"
	}
}
