// Package blame parses `git blame --line-porcelain` output into per-line
// attribution records and rolls them up into per-author ownership.
package blame

// Commit is the commit metadata attached to one attributed line. Any field
// missing from its porcelain block is the empty string, meaning "unknown".
type Commit struct {
	SHA         string `json:"sha"`
	ShortSHA    string `json:"shortSha"`
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail"`
	AuthorTime  string `json:"authorTime"` // ISO-8601 UTC, millisecond precision
	Summary     string `json:"summary"`
}

// Line is one attributed line of the blamed file.
type Line struct {
	LineNumber int    `json:"lineNumber"` // 1-indexed, final side
	Content    string `json:"content"`
	Commit     Commit `json:"commit"`
}
