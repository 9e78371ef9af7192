package metrics

import (
	"strings"
	"unicode"
)

// playfulMarkers are softening or joking tokens that usually signal teasing
// rather than disinterest.
var playfulMarkers = []string{
	"lol", "lmao", "haha", "hehe", "jk", "just kidding", "kidding", "omg",
	"stoppp", "nooo", "wdym", ";)", ":p", ":)", "xd",
}

// playfulCues counts joking markers, emoji and exaggerated spelling in text.
func playfulCues(text string) int {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return 0
	}

	score := 0
	for _, marker := range playfulMarkers {
		if strings.Contains(normalized, marker) {
			score++
		}
	}

	for _, r := range text {
		if isEmoji(r) {
			score++
			break
		}
	}

	if hasStretchedLetters(normalized) {
		score++
	}
	if strings.Count(text, "!") >= 2 {
		score++
	}
	return score
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	default:
		return false
	}
}

// hasStretchedLetters spots "sooo" / "nooo" style exaggeration.
func hasStretchedLetters(s string) bool {
	run := 1
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev && unicode.IsLetter(r) {
			run++
			if run >= 3 {
				return true
			}
			continue
		}
		run = 1
		prev = r
	}
	return false
}
