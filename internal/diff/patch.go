package diff

import (
	"bytes"
	"fmt"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// Stats summarizes the body of a change. Adjacent removed/added pairs are
// counted as Changed rather than as one deletion plus one addition.
type Stats struct {
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
	Changed int `json:"changed"`
}

// Insertions returns every line present only in the post-image.
func (s Stats) Insertions() int {
	return s.Added + s.Changed
}

// Deletions returns every line present only in the pre-image.
func (s Stats) Deletions() int {
	return s.Deleted + s.Changed
}

// StatsFor computes line statistics for a change
func StatsFor(c Change) Stats {
	var st Stats
	for _, h := range c.Hunks {
		hs := toGoDiffHunk(h).Stat()
		st.Added += int(hs.Added)
		st.Deleted += int(hs.Deleted)
		st.Changed += int(hs.Changed)
	}
	return st
}

// FormatPatch renders changes back into git-style unified diff text.
// Hunk headers are normalized to the explicit "-a,b +c,d" form.
func FormatPatch(changes []Change) ([]byte, error) {
	if len(changes) == 0 {
		return []byte{}, nil
	}

	fileDiffs := make([]*godiff.FileDiff, 0, len(changes))
	for _, c := range changes {
		fileDiffs = append(fileDiffs, toGoDiffFile(c))
	}

	out, err := godiff.PrintMultiFileDiff(fileDiffs)
	if err != nil {
		return nil, fmt.Errorf("failed to print patch: %w", err)
	}
	return out, nil
}

// toGoDiffFile converts a Change to a go-diff FileDiff
func toGoDiffFile(c Change) *godiff.FileDiff {
	fd := &godiff.FileDiff{
		OrigName: "a/" + c.FilePath,
		NewName:  "b/" + c.FilePath,
		Extended: []string{fmt.Sprintf("%sa/%s b/%s", fileMarker, c.FilePath, c.FilePath)},
		Hunks:    make([]*godiff.Hunk, 0, len(c.Hunks)),
	}

	// A file whose every hunk starts at 0 on one side was created or deleted.
	created, deleted := len(c.Hunks) > 0, len(c.Hunks) > 0
	for _, h := range c.Hunks {
		if h.OldStart != 0 || h.OldLineCount != 0 {
			created = false
		}
		if h.NewStart != 0 || h.NewLineCount != 0 {
			deleted = false
		}
		fd.Hunks = append(fd.Hunks, toGoDiffHunk(h))
	}
	if created {
		fd.OrigName = NullDevice
	}
	if deleted {
		fd.NewName = NullDevice
	}

	return fd
}

// toGoDiffHunk converts our Hunk to a go-diff Hunk
func toGoDiffHunk(h Hunk) *godiff.Hunk {
	var body bytes.Buffer
	for _, line := range h.Lines {
		body.WriteString(line)
		body.WriteByte('\n')
	}

	return &godiff.Hunk{
		OrigStartLine: int32(h.OldStart),
		OrigLines:     int32(h.OldLineCount),
		NewStartLine:  int32(h.NewStart),
		NewLines:      int32(h.NewLineCount),
		Section:       sectionOf(h.Header),
		Body:          body.Bytes(),
	}
}
