package conversation

import (
	"regexp"
	"strings"
)

// Tag labels used when rendering a transcript back into prompt text.
const (
	SelfTag  = "You"
	OtherTag = "Them"
)

var speakerTags = map[string]Speaker{
	"you":   Self,
	"me":    Self,
	"self":  Self,
	"them":  Other,
	"other": Other,
}

var trailingAnnotation = regexp.MustCompile(`\s*\(([^()]*)\)\s*$`)

// ParseTranscript splits raw text on newlines and parses each line.
func ParseTranscript(raw string) Transcript {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return ParseLines(strings.Split(raw, "\n"))
}

// ParseLines parses "<Tag>: <text>" lines. Untagged lines continue the
// previous message; blank lines and untagged leading lines are skipped.
func ParseLines(lines []string) Transcript {
	out := make(Transcript, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		speaker, text, ok := splitTag(line)
		if !ok {
			if len(out) == 0 {
				continue
			}
			prev := &out[len(out)-1]
			text, note := stripAnnotation(line)
			if text != "" {
				prev.Text = strings.TrimSpace(prev.Text + " " + text)
			}
			if note != "" {
				prev.Annotation = note
			}
			continue
		}

		text, note := stripAnnotation(text)
		out = append(out, Message{
			Speaker:    speaker,
			Text:       text,
			Ordinal:    len(out),
			Annotation: note,
		})
	}
	return out
}

// Render writes the transcript back as "You: …" / "Them: …" lines.
func (t Transcript) Render() string {
	var builder strings.Builder
	for i, m := range t {
		if m.Speaker == Self {
			builder.WriteString(SelfTag)
		} else {
			builder.WriteString(OtherTag)
		}
		builder.WriteString(": ")
		builder.WriteString(m.Text)
		if m.Annotation != "" {
			builder.WriteString(" (")
			builder.WriteString(m.Annotation)
			builder.WriteString(")")
		}
		if i < len(t)-1 {
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

func splitTag(line string) (Speaker, string, bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	speaker, ok := speakerTags[strings.ToLower(strings.TrimSpace(line[:idx]))]
	if !ok {
		return "", "", false
	}
	return speaker, strings.TrimSpace(line[idx+1:]), true
}

func stripAnnotation(text string) (string, string) {
	loc := trailingAnnotation.FindStringSubmatchIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), ""
	}
	note := strings.TrimSpace(text[loc[2]:loc[3]])
	return strings.TrimSpace(text[:loc[0]]), note
}
