// Package prompt assembles the context window sent to the model for
// one generation. Assembly is pure: no I/O, no side effects.
package prompt

import "strings"

// Params carries everything one assembly needs.
type Params struct {
	// CompanionName appears in the directive and the trailing cue.
	CompanionName string

	// Instructions is the persona's system text, included verbatim.
	Instructions string

	// RelevantHistory is the semantically retrieved background, one
	// chunk per element. Empty means the section is omitted entirely.
	RelevantHistory []string

	// RecentHistory is the trailing window of the conversation log,
	// oldest-first.
	RecentHistory []string

	// MaxBytes bounds the assembled prompt. When exceeded, recent
	// history is dropped oldest-first until the prompt fits. Zero
	// means unbounded.
	MaxBytes int
}

// Assemble builds the prompt text. The ordering is load-bearing: the
// leading directive is the only guard against the model echoing
// speaker labels, and the trailing "<Name>:" cue elicits the next
// utterance.
func Assemble(p Params) string {
	recent := p.RecentHistory
	out := render(p, recent)

	if p.MaxBytes > 0 {
		for len(out) > p.MaxBytes && len(recent) > 0 {
			recent = recent[1:]
			out = render(p, recent)
		}
	}

	return out
}

func render(p Params, recent []string) string {
	var b strings.Builder

	b.WriteString("ONLY generate plain sentences without prefix of who is speaking. DO NOT use ")
	b.WriteString(p.CompanionName)
	b.WriteString(": prefix.\n")
	b.WriteString(p.Instructions)
	b.WriteString("\n")

	if len(p.RelevantHistory) > 0 {
		b.WriteString("Below are relevant details about ")
		b.WriteString(p.CompanionName)
		b.WriteString("'s past and the conversation you are in.\n")
		b.WriteString(strings.Join(p.RelevantHistory, "\n"))
		b.WriteString("\n")
	}

	b.WriteString(strings.Join(recent, "\n"))
	b.WriteString("\n")
	b.WriteString(p.CompanionName)
	b.WriteString(":")

	return b.String()
}
