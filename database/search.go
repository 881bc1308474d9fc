package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SearchSongs fuzzy-matches query against cached song titles and artists.
// Exact matches rank first, then prefix, then substring, then the rest by
// edit distance.
func (d *DB) SearchSongs(ctx context.Context, query string, limit int) ([]Song, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []Song{}, nil
	}

	all, err := d.Songs(ctx, SongQuery{Filter: FilterAll, SortBy: SortByDateAdded, Order: Descending})
	if err != nil {
		return nil, fmt.Errorf("search songs: %w", err)
	}

	targets := make([]string, len(all))
	for i, s := range all {
		targets[i] = strings.ToLower(s.Title + " " + s.ArtistsText)
	}

	type ranked struct {
		song  Song
		score int
	}
	var matches []ranked
	for _, m := range fuzzy.RankFindFold(query, targets) {
		s := all[m.OriginalIndex]
		matches = append(matches, ranked{song: s, score: matchScore(strings.ToLower(s.Title), query, m.Distance)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score < matches[j].score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]Song, len(matches))
	for i, m := range matches {
		results[i] = m.song
	}
	return results, nil
}

// matchScore ranks a title against query. Lower is better.
func matchScore(title, query string, distance int) int {
	switch {
	case title == query:
		return 0
	case strings.HasPrefix(title, query):
		return 10
	case strings.Contains(title, query):
		return 50
	}
	return 100 + distance
}
