package nlu

import (
	"fmt"
	"strings"

	"github.com/yadbot/yadbot/types"
)

// buildPrompt assembles the single completion request for one turn. The
// recent exchanges and the already-collected fields give the model enough
// context to treat short replies ("no, 6pm instead") as corrections that
// mention only one field.
func buildPrompt(utterance string, history []types.Turn, known Params) string {
	var b strings.Builder

	b.WriteString("You classify messages sent to a reminder assistant and extract parameters.\n")
	b.WriteString("Users write in Persian or English; preserve their wording in extracted fields.\n\n")

	b.WriteString("Recent conversation:\n")
	if len(history) == 0 {
		b.WriteString("(none)\n")
	}
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Speaker, turn.Text)
	}

	b.WriteString("\nAlready collected for the current request (do not repeat unchanged fields):\n")
	writeKnown(&b, known)

	fmt.Fprintf(&b, "\nUser message: %q\n\n", utterance)

	b.WriteString(`Classify the intent as one of: create, view, edit, delete, other.
Extract only the fields this message mentions:
- task: the action to be reminded about, with date/time words removed
- date_phrase: the date expression exactly as written ("tomorrow", "فردا", "12 of December")
- time_phrase: the time expression exactly as written ("3pm", "10 صبح", "12 o'clock")
- recurrence_phrase: any repetition wording ("every day", "هر هفته")
- target_reference: for edit/delete/view, the words identifying which reminder
Set needs_clarification to true when the intent is a reminder action but the message is too vague to act on.
Set confidence to high only when the intent is unmistakable.

Respond with exactly one JSON object, no other text:
{"intent":"create|view|edit|delete|other","confidence":"high|medium|low","task":"","date_phrase":"","time_phrase":"","recurrence_phrase":"","target_reference":"","needs_clarification":false}
`)
	return b.String()
}

func writeKnown(b *strings.Builder, known Params) {
	wrote := false
	write := func(name, v string) {
		if v != "" {
			fmt.Fprintf(b, "- %s: %q\n", name, v)
			wrote = true
		}
	}
	write("task", known.Task)
	write("date_phrase", known.DatePhrase)
	write("time_phrase", known.TimePhrase)
	write("recurrence_phrase", known.RecurrencePhrase)
	write("target_reference", known.TargetReference)
	if !wrote {
		b.WriteString("(nothing yet)\n")
	}
}
