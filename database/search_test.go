package database

import (
	"context"
	"testing"
)

func TestSearchSongs_Ranking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustUpsert(t, db, record("contains", "The Around World Tour"))
	mustUpsert(t, db, record("prefix", "Around the World Again"))
	mustUpsert(t, db, record("exact", "Around"))
	mustUpsert(t, db, record("fuzzy", "A Round"))
	mustUpsert(t, db, record("none", "Harder Better"))

	songs, err := db.SearchSongs(ctx, "Around", 0)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}

	want := []string{"exact", "prefix", "contains", "fuzzy"}
	if len(songs) != len(want) {
		t.Fatalf("Expected %d matches, got %d: %+v", len(want), len(songs), songs)
	}
	for i, id := range want {
		if songs[i].ID != id {
			t.Errorf("Expected rank %d to be %s, got %s", i, id, songs[i].ID)
		}
	}
}

func TestSearchSongs_MatchesArtistsAndLimits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		rec := record(id, "Track "+id)
		rec.ArtistsText = "Daft Punk"
		mustUpsert(t, db, rec)
	}

	songs, err := db.SearchSongs(ctx, "daft", 2)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(songs) != 2 {
		t.Errorf("Expected limit of 2, got %d", len(songs))
	}

	if empty, _ := db.SearchSongs(ctx, "   ", 0); len(empty) != 0 {
		t.Errorf("Expected no results for a blank query, got %d", len(empty))
	}
}

func TestMatchScore(t *testing.T) {
	tests := []struct {
		title string
		want  int
	}{
		{"around", 0},
		{"around the world", 10},
		{"all around", 50},
		{"a round", 103},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := matchScore(tt.title, "around", 3); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}
