// Package diff turns unified git diff text into per-file hunk records and
// assembles staged and unstaged diffs into one ordered, identified change set.
package diff

// Line prefixes recognized inside a hunk body.
const (
	PrefixContext   = ' '
	PrefixAdded     = '+'
	PrefixRemoved   = '-'
	PrefixNoNewline = '\\'
)

// NullDevice is the path git uses for the missing side of a created or deleted file.
const NullDevice = "/dev/null"

// Hunk is a contiguous region of changed lines within one file.
type Hunk struct {
	OldStart     int    `json:"oldStart"`
	OldLineCount int    `json:"oldLineCount"`
	NewStart     int    `json:"newStart"`
	NewLineCount int    `json:"newLineCount"`
	Header       string `json:"header"` // verbatim @@ line, including function context
	// Lines holds raw body lines, each still carrying its one-byte prefix.
	Lines []string `json:"lines"`
}

// FileDiff is one file section of a parsed diff, before identifiers are assigned.
type FileDiff struct {
	FilePath string `json:"filePath"`
	Hunks    []Hunk `json:"hunks"`
}

// Change is one file's hunks for the current comparison, identified by position.
// Changes are rebuilt on every call and never persisted.
type Change struct {
	ID       string `json:"id"`
	FilePath string `json:"filePath"`
	Hunks    []Hunk `json:"hunks"`
}

// LineCount returns the number of body lines across all hunks.
func (c *Change) LineCount() int {
	n := 0
	for _, h := range c.Hunks {
		n += len(h.Lines)
	}
	return n
}

// IDs returns the identifiers of changes in order.
func IDs(changes []Change) []string {
	ids := make([]string, len(changes))
	for i, c := range changes {
		ids[i] = c.ID
	}
	return ids
}

func isHunkLine(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case PrefixContext, PrefixAdded, PrefixRemoved, PrefixNoNewline:
		return true
	}
	return false
}
