package database

import (
	"context"
	"music-api-go/logcolors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Table names a table that live queries can depend on.
type Table string

const (
	TableSong            Table = "Song"
	TableArtist          Table = "Artist"
	TableAlbum           Table = "Album"
	TablePlaylist        Table = "Playlist"
	TableSongPlaylistMap Table = "SongPlaylistMap"
	TableSongArtistMap   Table = "SongArtistMap"
	TableSongAlbumMap    Table = "SongAlbumMap"
	TableSearchQuery     Table = "SearchQuery"
	TableEvent           Table = "Event"
	TableFormat          Table = "Format"
)

var allTables = []Table{
	TableSong, TableArtist, TableAlbum, TablePlaylist, TableSongPlaylistMap,
	TableSongArtistMap, TableSongAlbumMap, TableSearchQuery, TableEvent, TableFormat,
}

type subscription struct {
	tables map[Table]struct{}
	// Buffered to one: a pending signal absorbs any further writes until
	// the observer re-queries.
	changed chan struct{}
}

// tracker fans committed-write notifications out to live queries.
type tracker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
}

func newTracker() *tracker {
	return &tracker{subs: make(map[int]*subscription)}
}

func (t *tracker) subscribe(tables []Table) (int, <-chan struct{}) {
	sub := &subscription{
		tables:  make(map[Table]struct{}, len(tables)),
		changed: make(chan struct{}, 1),
	}
	for _, table := range tables {
		sub.tables[table] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.subs[t.nextID] = sub
	return t.nextID, sub.changed
}

func (t *tracker) unsubscribe(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, id)
}

func (t *tracker) notify(tables ...Table) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, sub := range t.subs {
		for _, table := range tables {
			if _, ok := sub.tables[table]; !ok {
				continue
			}
			select {
			case sub.changed <- struct{}{}:
			default:
			}
			break
		}
	}
}

func (t *tracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// LiveQueries reports how many Observe streams are open.
func (d *DB) LiveQueries() int {
	return d.tracker.count()
}

// Observe runs query now and again after every committed write to one of
// tables, sending each result on the returned channel. Writes that land
// while a result is pending are coalesced into one re-query. A failed
// re-query is logged and skipped. The channel closes when ctx is done.
func Observe[T any](ctx context.Context, d *DB, tables []Table, query func(ctx context.Context) (T, error)) <-chan T {
	out := make(chan T)
	// Subscribe before the first query so no write can slip in between.
	id, changed := d.tracker.subscribe(tables)

	go func() {
		defer close(out)
		defer d.tracker.unsubscribe(id)

		emit := func() bool {
			v, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				log.Warnf("%s Re-query failed, keeping previous snapshot: %v", logcolors.LogLiveQuery, err)
				return true
			}
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}
