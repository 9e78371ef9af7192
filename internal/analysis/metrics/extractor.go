// Package metrics derives deterministic engagement signals from a transcript.
package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/gulalabs1-droid/textwingman/backend/internal/model/conversation"
)

// Energy is a coarse bucket for the tone of the most recent lines.
type Energy string

const (
	EnergyLow    Energy = "low"
	EnergyMedium Energy = "medium"
	EnergyHigh   Energy = "high"
)

const (
	// RecentWindow is how many trailing lines feed the recent-energy bucket.
	RecentWindow = 3
	// HighEnergyQuestions is the question count within RecentWindow that marks high energy.
	HighEnergyQuestions = 2
	// HighEnergyAvgLength and MediumEnergyAvgLength are average-length cut points in characters.
	HighEnergyAvgLength   = 80
	MediumEnergyAvgLength = 30
	// SubstantiveWords is the word count at which a reply counts as substantive.
	SubstantiveWords = 8
	// RecentOtherLengthWindow is how many Other messages feed RecentOtherAvgLength.
	RecentOtherLengthWindow = 2
	// RecentQuestionWindow is how many Other messages are checked for questions.
	RecentQuestionWindow = 3
	// ReInitiationDepth is the minimum index of the Self line in a Self→Other pair.
	ReInitiationDepth = 2
	// SpeakerWindow is how many trailing messages are split by speaker for momentum.
	SpeakerWindow = 4
)

// ThreadMetrics is computed once per request and never mutated.
type ThreadMetrics struct {
	SelfCount              int                  `json:"selfCount"`
	OtherCount             int                  `json:"otherCount"`
	TotalMessages          int                  `json:"totalMessages"`
	InvestmentRatio        float64              `json:"investmentRatio"`
	RecentEnergy           Energy               `json:"recentEnergy"`
	LastSpeaker            conversation.Speaker `json:"lastSpeaker,omitempty"`
	AvgSelfLength          float64              `json:"avgSelfLength"`
	AvgOtherLength         float64              `json:"avgOtherLength"`
	LastOtherLength        int                  `json:"lastOtherLength"`
	LastMessageSubstantive bool                 `json:"lastMessageSubstantive"`
	RecentOtherAvgLength   float64              `json:"recentOtherAvgLength"`
	RecentQuestions        int                  `json:"recentQuestions"`
	ReInitiated            bool                 `json:"reInitiated"`
	PlayfulCues            int                  `json:"playfulCues"`
	RecentSelfMessages     int                  `json:"recentSelfMessages"`
	RecentOtherMessages    int                  `json:"recentOtherMessages"`
}

// Extract computes ThreadMetrics. Missing data yields zero values, never an error.
func Extract(t conversation.Transcript) ThreadMetrics {
	m := ThreadMetrics{
		SelfCount:     t.Count(conversation.Self),
		OtherCount:    t.Count(conversation.Other),
		TotalMessages: len(t),
		RecentEnergy:  recentEnergy(t.Tail(RecentWindow)),
		ReInitiated:   reInitiated(t),
	}

	window := t.Tail(SpeakerWindow)
	m.RecentSelfMessages = window.Count(conversation.Self)
	m.RecentOtherMessages = window.Count(conversation.Other)

	var selfChars, otherChars int
	for _, msg := range t {
		if msg.Speaker == conversation.Self {
			selfChars += charLen(msg.Text)
		} else {
			otherChars += charLen(msg.Text)
		}
	}

	m.InvestmentRatio = 1.0
	if otherChars > 0 {
		m.InvestmentRatio = float64(selfChars) / float64(otherChars)
	}
	m.AvgSelfLength = average(selfChars, m.SelfCount)
	m.AvgOtherLength = average(otherChars, m.OtherCount)

	if last, ok := t.Last(); ok {
		m.LastSpeaker = last.Speaker
	}

	if recent := t.LastFrom(conversation.Other, 1); len(recent) == 1 {
		m.LastOtherLength = charLen(recent[0].Text)
		m.LastMessageSubstantive = wordCount(recent[0].Text) >= SubstantiveWords
	}

	recentOther := t.LastFrom(conversation.Other, RecentOtherLengthWindow)
	recentChars := 0
	for _, msg := range recentOther {
		recentChars += charLen(msg.Text)
	}
	m.RecentOtherAvgLength = average(recentChars, len(recentOther))

	for _, msg := range t.LastFrom(conversation.Other, RecentQuestionWindow) {
		if strings.Contains(msg.Text, "?") {
			m.RecentQuestions++
		}
		m.PlayfulCues += playfulCues(msg.Text)
	}

	return m
}

func recentEnergy(window conversation.Transcript) Energy {
	if len(window) == 0 {
		return EnergyLow
	}

	questions, chars := 0, 0
	for _, msg := range window {
		if strings.Contains(msg.Text, "?") {
			questions++
		}
		chars += charLen(msg.Text)
	}
	avg := average(chars, len(window))

	switch {
	case questions >= HighEnergyQuestions || avg > HighEnergyAvgLength:
		return EnergyHigh
	case avg > MediumEnergyAvgLength:
		return EnergyMedium
	default:
		return EnergyLow
	}
}

// reInitiated finds the most recent Self line immediately followed by an
// Other line and reports whether it sits at depth ReInitiationDepth or later.
func reInitiated(t conversation.Transcript) bool {
	for i := len(t) - 1; i >= 1; i-- {
		if t[i].Speaker == conversation.Other && t[i-1].Speaker == conversation.Self {
			return i-1 >= ReInitiationDepth
		}
	}
	return false
}

func charLen(s string) int {
	return utf8.RuneCountInString(s)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func average(total, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}
