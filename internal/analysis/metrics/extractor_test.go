package metrics

import (
	"math"
	"reflect"
	"testing"

	"github.com/gulalabs1-droid/textwingman/backend/internal/model/conversation"
)

func TestExtractEmptyTranscript(t *testing.T) {
	m := Extract(nil)
	if m.TotalMessages != 0 || m.SelfCount != 0 || m.OtherCount != 0 {
		t.Fatalf("expected zero counts, got %+v", m)
	}
	if m.InvestmentRatio != 1.0 {
		t.Fatalf("expected parity ratio on empty thread, got %f", m.InvestmentRatio)
	}
	if m.RecentEnergy != EnergyLow {
		t.Fatalf("expected low energy, got %s", m.RecentEnergy)
	}
	if m.LastSpeaker != "" || m.ReInitiated || m.LastMessageSubstantive {
		t.Fatalf("expected zero signals, got %+v", m)
	}
}

func TestExtractLowEnergyShortThread(t *testing.T) {
	m := Extract(conversation.ParseTranscript("Them: k\nYou: hey what's up\nThem: nm u"))
	if m.TotalMessages != 3 || m.OtherCount != 2 || m.SelfCount != 1 {
		t.Fatalf("unexpected counts %+v", m)
	}
	if m.RecentEnergy != EnergyLow {
		t.Fatalf("expected low energy, got %s", m.RecentEnergy)
	}
	if m.LastOtherLength != 4 {
		t.Fatalf("expected last other length 4, got %d", m.LastOtherLength)
	}
	if m.LastMessageSubstantive {
		t.Fatalf("4-char reply should not be substantive")
	}
	if m.ReInitiated {
		t.Fatalf("first exchange must not count as re-initiation")
	}
	if m.RecentQuestions != 0 {
		t.Fatalf("expected no recent questions, got %d", m.RecentQuestions)
	}
	if m.LastSpeaker != conversation.Other {
		t.Fatalf("expected other to have the last word")
	}
}

func TestExtractReInitiatedSubstantiveReply(t *testing.T) {
	m := Extract(conversation.ParseTranscript(
		"You: hey\nThem: hey!\nYou: how was the concert\nThem: honestly it was amazing, the opener stole the whole show",
	))
	if !m.ReInitiated {
		t.Fatalf("expected re-initiation at depth 2")
	}
	if !m.LastMessageSubstantive {
		t.Fatalf("expected substantive last reply")
	}
}

func TestExtractReInitiationUsesMostRecentPair(t *testing.T) {
	// The latest Self→Other pair is at depth 0, even though Them keeps talking.
	m := Extract(conversation.ParseTranscript("You: hi\nThem: hey\nThem: so\nThem: anyway"))
	if m.ReInitiated {
		t.Fatalf("expected no re-initiation when the only pair is the opener")
	}
}

func TestExtractInvestmentRatioAndAverages(t *testing.T) {
	m := Extract(conversation.ParseTranscript("You: 1234567890\nThem: 12345\nYou: 1234567890"))
	if m.InvestmentRatio != 4.0 {
		t.Fatalf("expected ratio 4, got %f", m.InvestmentRatio)
	}
	if m.AvgSelfLength != 10 || m.AvgOtherLength != 5 {
		t.Fatalf("unexpected averages self=%f other=%f", m.AvgSelfLength, m.AvgOtherLength)
	}
}

func TestExtractRatioWithoutOtherMessages(t *testing.T) {
	m := Extract(conversation.ParseTranscript("You: hello?\nYou: anyone?"))
	if m.InvestmentRatio != 1.0 {
		t.Fatalf("expected ratio 1.0 with no other messages, got %f", m.InvestmentRatio)
	}
	if m.LastOtherLength != 0 || m.RecentOtherAvgLength != 0 {
		t.Fatalf("expected zero other lengths, got %+v", m)
	}
}

func TestExtractHighEnergyFromQuestions(t *testing.T) {
	m := Extract(conversation.ParseTranscript("Them: wait really?\nYou: yes\nThem: since when?"))
	if m.RecentEnergy != EnergyHigh {
		t.Fatalf("expected high energy from two questions, got %s", m.RecentEnergy)
	}
	if m.RecentQuestions != 2 {
		t.Fatalf("expected two recent questions, got %d", m.RecentQuestions)
	}
}

func TestExtractMediumEnergyFromLength(t *testing.T) {
	m := Extract(conversation.ParseTranscript("Them: this is a slightly longer message here ok"))
	if m.RecentEnergy != EnergyMedium {
		t.Fatalf("expected medium energy, got %s", m.RecentEnergy)
	}
}

func TestExtractRecentOtherAverageUsesLastTwo(t *testing.T) {
	m := Extract(conversation.ParseTranscript("Them: 12345678901234567890\nThem: 1234\nYou: x\nThem: 123456"))
	if math.Abs(m.RecentOtherAvgLength-5) > 1e-9 {
		t.Fatalf("expected recent other avg 5, got %f", m.RecentOtherAvgLength)
	}
}

func TestExtractStripsAnnotationBeforeMeasuring(t *testing.T) {
	m := Extract(conversation.ParseTranscript("You: hey\nThem: ok (4 hours later)"))
	if m.LastOtherLength != 2 {
		t.Fatalf("expected annotation excluded from length, got %d", m.LastOtherLength)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	tr := conversation.ParseTranscript("Them: lol stoppp 😂\nYou: what did I do\nThem: you know what you did haha")
	a, b := Extract(tr), Extract(tr)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical metrics, got %+v vs %+v", a, b)
	}
	if a.PlayfulCues == 0 {
		t.Fatalf("expected playful cues to be detected")
	}
}
