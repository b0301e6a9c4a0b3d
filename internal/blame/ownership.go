package blame

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Config controls how attributed lines roll up into ownership
type Config struct {
	// TimeDecayHalfLife is the number of days for time decay (default: 90)
	TimeDecayHalfLife int

	// ExcludeBots indicates whether to exclude bot commits
	ExcludeBots bool

	// BotPatterns are regex patterns to detect bot authors
	BotPatterns []string

	// MinContribution is the minimum share to be listed as a contributor
	MinContribution float64
}

// DefaultConfig returns the default ownership configuration
func DefaultConfig() Config {
	return Config{
		TimeDecayHalfLife: 90,
		ExcludeBots:       true,
		BotPatterns: []string{
			`\[bot\]$`,
			`^dependabot`,
			`^renovate`,
			`^github-actions`,
		},
		MinContribution: 0.05,
	}
}

// AuthorShare is one author's weighted share of the blamed lines
type AuthorShare struct {
	Author        string  `json:"author"`
	Email         string  `json:"email"`
	LineCount     int     `json:"lineCount"`
	WeightedLines float64 `json:"weightedLines"`
	Share         float64 `json:"share"`
	LastCommit    string  `json:"lastCommit,omitempty"`
}

// Ownership summarizes who wrote the blamed range
type Ownership struct {
	TotalLines   int           `json:"totalLines"`
	Contributors []AuthorShare `json:"contributors"`
}

type authorStats struct {
	name        string
	email       string
	lineCount   int
	weightedSum float64
	lastCommit  time.Time
}

// Summarize aggregates attributed lines per author. Each line is weighted by
// 0.5^(age/halfLife); lines with an unknown author time keep full weight.
// Contributors are ordered by share descending, then by author key.
func Summarize(lines []Line, cfg Config, now time.Time) *Ownership {
	result := &Ownership{
		TotalLines:   len(lines),
		Contributors: []AuthorShare{},
	}
	if len(lines) == 0 {
		return result
	}

	var botPatterns []*regexp.Regexp
	if cfg.ExcludeBots {
		for _, pattern := range cfg.BotPatterns {
			if re, err := regexp.Compile(pattern); err == nil {
				botPatterns = append(botPatterns, re)
			}
		}
	}

	halfLife := float64(cfg.TimeDecayHalfLife) * 24 * float64(time.Hour)

	stats := make(map[string]*authorStats)
	totalWeighted := 0.0

	for _, line := range lines {
		c := line.Commit
		if isBot(c.AuthorName, c.AuthorEmail, botPatterns) {
			continue
		}

		weight := 1.0
		ts, err := time.Parse(TimeLayout, c.AuthorTime)
		if err == nil && halfLife > 0 {
			age := now.Sub(ts)
			if age < 0 {
				age = 0
			}
			weight = math.Pow(0.5, float64(age)/halfLife)
		}

		key := authorKey(c.AuthorName, c.AuthorEmail)
		s, ok := stats[key]
		if !ok {
			s = &authorStats{name: c.AuthorName, email: c.AuthorEmail}
			stats[key] = s
		}

		s.lineCount++
		s.weightedSum += weight
		totalWeighted += weight
		if err == nil && ts.After(s.lastCommit) {
			s.lastCommit = ts
		}
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		s := stats[key]
		share := 0.0
		if totalWeighted > 0 {
			share = s.weightedSum / totalWeighted
		}
		if share < cfg.MinContribution {
			continue
		}

		contrib := AuthorShare{
			Author:        s.name,
			Email:         s.email,
			LineCount:     s.lineCount,
			WeightedLines: s.weightedSum,
			Share:         share,
		}
		if !s.lastCommit.IsZero() {
			contrib.LastCommit = s.lastCommit.Format(TimeLayout)
		}
		result.Contributors = append(result.Contributors, contrib)
	}

	// Stable sort keeps key order for equal shares.
	sort.SliceStable(result.Contributors, func(i, j int) bool {
		return result.Contributors[i].Share > result.Contributors[j].Share
	})

	return result
}

// authorKey prefers email for uniqueness, falling back to the author name
func authorKey(author, email string) string {
	if email != "" && email != "noreply@github.com" {
		return strings.ToLower(email)
	}
	return strings.ToLower(author)
}

func isBot(author, email string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(author) || pattern.MatchString(email) {
			return true
		}
	}
	return false
}
