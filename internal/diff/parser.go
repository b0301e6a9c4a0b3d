package diff

import (
	"regexp"
	"strconv"
	"strings"
)

const fileMarker = "diff --git "

var (
	fileHeaderRe = regexp.MustCompile(`^diff --git a/(.+?) b/(.+)$`)
	hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)
	binaryRe     = regexp.MustCompile(`^Binary files .* differ$`)
)

// Parse converts unified diff text into per-file records in source order.
//
// Parsing is permissive: a file section whose header does not match, a binary
// section, or a section without any valid hunk contributes nothing. Malformed
// hunk headers and unrecognized body lines are skipped. Parse never fails;
// empty or whitespace-only input yields an empty slice.
func Parse(text string) []FileDiff {
	files := make([]FileDiff, 0)
	if strings.TrimSpace(text) == "" {
		return files
	}

	for _, chunk := range splitChunks(text) {
		if fd, ok := parseChunk(chunk); ok {
			files = append(files, fd)
		}
	}
	return files
}

// splitChunks groups lines into file sections, each starting at a line that
// begins with the file marker. Lines before the first marker are discarded.
func splitChunks(text string) [][]string {
	var chunks [][]string
	var current []string

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, fileMarker) {
			if current != nil {
				chunks = append(chunks, current)
			}
			current = []string{line}
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	if current != nil {
		chunks = append(chunks, current)
	}
	return chunks
}

func parseChunk(lines []string) (FileDiff, bool) {
	pathA, pathB, ok := parseFileHeader(lines[0])
	if !ok {
		return FileDiff{}, false
	}

	// A deleted file has /dev/null on the b side; a created file has it on the
	// a side, which is never chosen.
	path := pathB
	if path == NullDevice {
		path = pathA
	}

	for _, line := range lines[1:] {
		if binaryRe.MatchString(line) {
			return FileDiff{}, false
		}
	}

	hunks := parseHunks(lines[1:])
	if len(hunks) == 0 {
		return FileDiff{}, false
	}
	return FileDiff{FilePath: path, Hunks: hunks}, true
}

// parseFileHeader extracts both paths from a "diff --git" line. Git wraps a
// path in double quotes with C-style escapes when it contains special bytes,
// independently for each side.
func parseFileHeader(line string) (pathA, pathB string, ok bool) {
	rest := strings.TrimPrefix(line, fileMarker)
	if !strings.Contains(rest, `"`) {
		m := fileHeaderRe.FindStringSubmatch(line)
		if m == nil {
			return "", "", false
		}
		return m[1], m[2], true
	}

	var rawA, rawB string
	if strings.HasPrefix(rest, `"`) {
		end := closingQuote(rest)
		if end < 0 || end+1 >= len(rest) || rest[end+1] != ' ' {
			return "", "", false
		}
		rawA, rawB = rest[:end+1], rest[end+2:]
	} else {
		i := strings.LastIndex(rest, ` "`)
		if i < 0 {
			return "", "", false
		}
		rawA, rawB = rest[:i], rest[i+1:]
	}

	if pathA, ok = unquotePath(rawA, "a/"); !ok {
		return "", "", false
	}
	if pathB, ok = unquotePath(rawB, "b/"); !ok {
		return "", "", false
	}
	return pathA, pathB, true
}

// closingQuote returns the index of the quote ending the string that opens
// at s[0], or -1.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func unquotePath(raw, prefix string) (string, bool) {
	if strings.HasPrefix(raw, `"`) {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return "", false
		}
		raw = s
	}
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	return strings.TrimPrefix(raw, prefix), true
}

func parseHunks(lines []string) []Hunk {
	var hunks []Hunk

	i := 0
	for i < len(lines) {
		m := hunkHeaderRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}

		hunk, ok := newHunk(lines[i], m)
		i++
		if !ok {
			continue
		}

		// Body runs until the next valid header. A malformed @@ line is
		// dropped like any other unrecognized line.
		for i < len(lines) && !hunkHeaderRe.MatchString(lines[i]) {
			if isHunkLine(lines[i]) {
				hunk.Lines = append(hunk.Lines, lines[i])
			}
			i++
		}
		hunks = append(hunks, hunk)
	}

	return hunks
}

// newHunk builds a hunk from a matched header. Omitted counts default to 1.
func newHunk(header string, m []string) (Hunk, bool) {
	oldStart, err := strconv.Atoi(m[1])
	if err != nil {
		return Hunk{}, false
	}
	newStart, err := strconv.Atoi(m[3])
	if err != nil {
		return Hunk{}, false
	}
	oldCount, ok := optionalCount(m[2])
	if !ok {
		return Hunk{}, false
	}
	newCount, ok := optionalCount(m[4])
	if !ok {
		return Hunk{}, false
	}

	return Hunk{
		OldStart:     oldStart,
		OldLineCount: oldCount,
		NewStart:     newStart,
		NewLineCount: newCount,
		Header:       header,
		Lines:        make([]string, 0),
	}, true
}

func optionalCount(s string) (int, bool) {
	if s == "" {
		return 1, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// sectionOf returns the function context that trails the closing @@ of a
// header, without the separating space.
func sectionOf(header string) string {
	m := hunkHeaderRe.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return strings.TrimPrefix(m[5], " ")
}
