package message

import (
	"fmt"
	"strings"
)

// ThreadSeparator joins the parts of a multi-message thread into the single
// body the pipeline triages. Downstream consumers rely on this exact marker.
const ThreadSeparator = "\n\n----- Thread Separator -----\n\n"

// Attachment carries the extracted text of one attachment. Binary parsing
// happens upstream; by the time a message reaches the pipeline, attachments
// are plain text.
type Attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// JoinThread collapses a thread into one body.
func JoinThread(parts []string) string {
	return strings.Join(parts, ThreadSeparator)
}

// Assemble builds the full triage input from a body and its attachments.
// Each attachment is appended as a labeled section, in the order provided,
// so the classifier sees the combined meaning of the whole message.
func Assemble(body string, attachments []Attachment) string {
	if len(attachments) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString(body)
	for _, att := range attachments {
		fmt.Fprintf(&b, "\n\nATTACHMENT: %s\n%s", att.Filename, att.Content)
	}
	return b.String()
}
