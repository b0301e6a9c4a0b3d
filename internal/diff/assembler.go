package diff

import (
	"fmt"
	"sort"
)

// IDPrefix prefixes every assigned change identifier.
const IDPrefix = "change-"

// Assemble merges staged and unstaged parses into one change set.
//
// Hunks for a path present in both inputs are the staged hunks followed by the
// unstaged hunks. Paths are sorted bytewise and identifiers change-1..change-N
// are assigned in that order, so identifiers are only meaningful for the
// repository state they were computed from.
func Assemble(staged, unstaged []FileDiff) []Change {
	merged := make(map[string][]Hunk)
	var paths []string

	add := func(files []FileDiff) {
		for _, f := range files {
			existing, seen := merged[f.FilePath]
			if !seen {
				paths = append(paths, f.FilePath)
			}
			// First append onto nil copies, so inputs are never aliased.
			merged[f.FilePath] = append(existing, f.Hunks...)
		}
	}
	add(staged)
	add(unstaged)

	sort.Strings(paths)

	changes := make([]Change, 0, len(paths))
	for i, path := range paths {
		changes = append(changes, Change{
			ID:       fmt.Sprintf("%s%d", IDPrefix, i+1),
			FilePath: path,
			Hunks:    merged[path],
		})
	}
	return changes
}

// ResolveResult partitions a set of requested identifiers.
type ResolveResult struct {
	// Changes found, in assembled order rather than request order.
	Changes []Change `json:"changes"`
	// Unknown identifiers in request order, without duplicates.
	Unknown []string `json:"unknown"`
}

// Resolve looks up every requested identifier in an assembled change set and
// reports all misses at once.
func Resolve(changes []Change, ids []string) ResolveResult {
	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	result := ResolveResult{
		Changes: make([]Change, 0, len(ids)),
		Unknown: make([]string, 0),
	}

	known := make(map[string]bool, len(changes))
	for _, c := range changes {
		known[c.ID] = true
		if requested[c.ID] {
			result.Changes = append(result.Changes, c)
		}
	}

	reported := make(map[string]bool)
	for _, id := range ids {
		if known[id] || reported[id] {
			continue
		}
		reported[id] = true
		result.Unknown = append(result.Unknown, id)
	}

	return result
}
