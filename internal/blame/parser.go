package blame

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ShortSHALength is the number of hex characters kept for ShortSHA.
const ShortSHALength = 7

// TimeLayout is the wire format of Commit.AuthorTime.
const TimeLayout = "2006-01-02T15:04:05.000Z"

var headerRe = regexp.MustCompile(`^([0-9a-f]{40}) (\d+) (\d+)(?: (\d+))?$`)

const (
	keyAuthor     = "author "
	keyAuthorMail = "author-mail "
	keyAuthorTime = "author-time "
	keySummary    = "summary "
)

// Parse converts line-porcelain blame text into attributed lines.
//
// Each block starts with "<sha> <orig> <final> [<count>]", carries key/value
// metadata lines and ends with a tab-prefixed content line. Lines that cannot
// start a block are skipped, unknown keys are ignored and a block cut off
// before its content line, by end of input or by the next header, is
// discarded. Parse never fails.
func Parse(text string) []Line {
	result := make([]Line, 0)
	if strings.TrimSpace(text) == "" {
		return result
	}

	lines := strings.Split(text, "\n")
	i := 0
	for i < len(lines) {
		m := headerRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}

		finalLine, err := strconv.Atoi(m[3])
		if err != nil {
			i++
			continue
		}

		commit := Commit{
			SHA:      m[1],
			ShortSHA: m[1][:ShortSHALength],
		}

		// A new header before the content line abandons this block and is
		// parsed again by the outer loop.
		i++
		for i < len(lines) && !headerRe.MatchString(lines[i]) {
			line := lines[i]
			i++
			if strings.HasPrefix(line, "\t") {
				result = append(result, Line{
					LineNumber: finalLine,
					Content:    line[1:],
					Commit:     commit,
				})
				break
			}
			applyKey(&commit, line)
		}
	}

	return result
}

// applyKey records a metadata line on the commit. Unknown keys are ignored.
func applyKey(c *Commit, line string) {
	switch {
	case strings.HasPrefix(line, keyAuthorMail):
		c.AuthorEmail = debracket(strings.TrimPrefix(line, keyAuthorMail))
	case strings.HasPrefix(line, keyAuthorTime):
		c.AuthorTime = formatEpoch(strings.TrimPrefix(line, keyAuthorTime))
	case strings.HasPrefix(line, keyAuthor):
		c.AuthorName = strings.TrimPrefix(line, keyAuthor)
	case strings.HasPrefix(line, keySummary):
		c.Summary = strings.TrimPrefix(line, keySummary)
	}
}

// debracket strips one leading '<' and one trailing '>'.
func debracket(s string) string {
	s = strings.TrimPrefix(s, "<")
	return strings.TrimSuffix(s, ">")
}

// formatEpoch converts Unix seconds to TimeLayout, or "" if unparsable.
func formatEpoch(s string) string {
	secs, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return ""
	}
	return time.Unix(secs, 0).UTC().Format(TimeLayout)
}
