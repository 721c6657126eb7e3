// Package format holds Telegram text helpers shared by handlers.
package format

import "strings"

// Legacy Markdown (tele.ModeMarkdown) treats these as formatting
// triggers; an unbalanced one makes the API reject the whole message.
var mdEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// EscapeMarkdown neutralizes legacy-Markdown control characters in
// user-supplied text so embedding it cannot break the message parse.
func EscapeMarkdown(text string) string {
	return mdEscaper.Replace(text)
}
