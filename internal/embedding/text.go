// Package embedding turns changes into text, and text into vectors.
//
// BuildText is deterministic so repeated requests for the same change are
// byte-identical. Providers implement one batch operation; Local, Remote and
// Cached are the implementations, chosen from configuration by New.
package embedding

import (
	"strings"

	"changelens/internal/diff"
)

// MaxTextLines caps the hunk content lines included per change. Lines past
// the cap are omitted whole.
const MaxTextLines = 200

// BuildText renders a change as its file path, then each hunk header
// followed by that hunk's lines. Hunk headers are always included; only
// content lines count toward MaxTextLines.
func BuildText(c diff.Change) string {
	var b strings.Builder
	b.WriteString(c.FilePath)

	budget := MaxTextLines
	for _, h := range c.Hunks {
		b.WriteByte('\n')
		b.WriteString(h.Header)

		for _, line := range h.Lines {
			if budget == 0 {
				break
			}
			b.WriteByte('\n')
			b.WriteString(line)
			budget--
		}
	}

	return b.String()
}

// BuildTexts applies BuildText to every change, preserving order.
func BuildTexts(changes []diff.Change) []string {
	texts := make([]string, len(changes))
	for i, c := range changes {
		texts[i] = BuildText(c)
	}
	return texts
}
