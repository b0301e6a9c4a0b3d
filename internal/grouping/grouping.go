// Package grouping clusters changes by the similarity of their embedded text.
package grouping

import (
	"context"
	"fmt"
	"math"

	"changelens/internal/cluster"
	"changelens/internal/diff"
	"changelens/internal/embedding"
	"changelens/internal/errors"
)

// DefaultThreshold is the cosine similarity a change needs to join a group.
const DefaultThreshold = 0.80

// IDPrefix precedes the 1-based group number.
const IDPrefix = "group-"

// Group is a set of changes judged to belong together.
type Group struct {
	ID        string   `json:"id"`
	ChangeIDs []string `json:"changeIds"`
	FilePaths []string `json:"filePaths"`
	Added     int      `json:"added"`
	Deleted   int      `json:"deleted"`
}

// Build embeds every change once and clusters the vectors. A single change
// forms one group without calling the provider. Provider failures abort the
// whole call with EMBEDDING_FAILED; no partial result is returned.
func Build(ctx context.Context, provider embedding.Provider, changes []diff.Change, threshold float64) ([]Group, error) {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return nil, errors.NewInvalidParameterError("threshold",
			fmt.Sprintf("must be in (0, 1], got %v", threshold))
	}

	switch len(changes) {
	case 0:
		return []Group{}, nil
	case 1:
		return []Group{summarize(1, changes, []int{0})}, nil
	}

	vectors, err := provider.Embed(ctx, embedding.BuildTexts(changes))
	if err != nil {
		return nil, errors.NewEmbeddingError("embedding provider failed", err)
	}
	if len(vectors) != len(changes) {
		return nil, errors.NewEmbeddingError(
			fmt.Sprintf("embedding provider returned %d vectors for %d changes", len(vectors), len(changes)),
			nil,
		)
	}

	clusters, err := cluster.Greedy(vectors, threshold)
	if err != nil {
		// Mixed dimensions come from the provider, not the caller.
		if errors.Is(err, errors.InvalidParameter) {
			return nil, errors.NewEmbeddingError("embedding provider returned inconsistent vectors", err)
		}
		return nil, err
	}

	groups := make([]Group, len(clusters))
	for i, c := range clusters {
		groups[i] = summarize(i+1, changes, c.Members)
	}
	return groups, nil
}

func summarize(n int, changes []diff.Change, members []int) Group {
	g := Group{
		ID:        fmt.Sprintf("%s%d", IDPrefix, n),
		ChangeIDs: make([]string, 0, len(members)),
		FilePaths: make([]string, 0, len(members)),
	}
	for _, idx := range members {
		c := changes[idx]
		st := diff.StatsFor(c)
		g.ChangeIDs = append(g.ChangeIDs, c.ID)
		g.FilePaths = append(g.FilePaths, c.FilePath)
		g.Added += st.Insertions()
		g.Deleted += st.Deletions()
	}
	return g
}
