package cachesync

import (
	"context"
	"fmt"
	"music-api-go/database"
	"music-api-go/logcolors"
	"music-api-go/services/notifier"
	"music-api-go/stats"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

const (
	DefaultQueueSize   = 256
	DefaultWorkers     = 4
	DefaultTaskTimeout = 10 * time.Second

	// saturationAlertEvery throttles queue-full alerts to one per this many drops.
	saturationAlertEvery = 100
)

// Store is the part of the local cache the policy writes to.
type Store interface {
	UpsertSong(ctx context.Context, rec database.SongRecord) error
	RecordPlay(ctx context.Context, songID string, playTime time.Duration) error
	Like(ctx context.Context, songID string, likedAt *time.Time) (int64, error)
	AddToPlaylist(ctx context.Context, playlistID int64, songID string) error
	InsertSearchQuery(ctx context.Context, query string) error
	UpsertFormat(ctx context.Context, f database.Format) error
}

// Options configures a Policy. Zero values take the package defaults.
type Options struct {
	QueueSize          int
	Workers            int
	TaskTimeout        time.Duration
	PauseSearchHistory bool
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

// Policy decides when the local cache is written in response to user
// actions. Every trigger is fire-and-forget: it enqueues a task and returns
// immediately, and task failures are logged and counted, never returned.
type Policy struct {
	store Store
	opts  Options
	queue chan task

	paused  atomic.Bool
	dropped atomic.Int64

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

// New creates a Policy. Call Start to begin draining the queue.
func New(store Store, opts Options) *Policy {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}

	p := &Policy{
		store: store,
		opts:  opts,
		queue: make(chan task, opts.QueueSize),
		done:  make(chan struct{}),
	}
	p.paused.Store(opts.PauseSearchHistory)
	return p
}

// Start launches the dispatcher. Tasks run on a bounded worker pool and
// inherit ctx, so cancelling it abandons whatever has not finished.
func (p *Policy) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)

		workers := pool.New().WithMaxGoroutines(p.opts.Workers)
		for t := range p.queue {
			t := t
			workers.Go(func() {
				p.execute(ctx, t)
			})
		}
		workers.Wait()
	}()

	log.Infof("%s Cache sync started (workers: %d, queue: %d)", logcolors.LogSync, p.opts.Workers, p.opts.QueueSize)
}

// Stop stops accepting tasks and waits for queued ones to finish.
func (p *Policy) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if started {
		<-p.done
	}
	log.Infof("%s Cache sync stopped", logcolors.LogSync)
}

// SetSearchHistoryPaused toggles whether OnSearch records queries.
func (p *Policy) SetSearchHistoryPaused(paused bool) {
	p.paused.Store(paused)
	log.Infof("%s Search history paused: %v", logcolors.LogSync, paused)
}

// SearchHistoryPaused reports whether OnSearch is currently a no-op.
func (p *Policy) SearchHistoryPaused() bool {
	return p.paused.Load()
}

// Dropped returns how many tasks were rejected because the queue was full.
func (p *Policy) Dropped() int64 {
	return p.dropped.Load()
}

// OnPlay caches the song and records a play of playTime.
func (p *Policy) OnPlay(rec database.SongRecord, playTime time.Duration) bool {
	return p.enqueue(task{name: "play " + rec.ID, run: func(ctx context.Context) error {
		if err := p.store.UpsertSong(ctx, rec); err != nil {
			return err
		}
		return p.store.RecordPlay(ctx, rec.ID, playTime)
	}})
}

// OnLike sets (likedAt non-nil) or clears the like. If the song is not cached
// yet it is inserted from rec and the like is applied exactly once more.
func (p *Policy) OnLike(rec database.SongRecord, likedAt *time.Time) bool {
	return p.enqueue(task{name: "like " + rec.ID, run: func(ctx context.Context) error {
		n, err := p.store.Like(ctx, rec.ID, likedAt)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		if err := p.store.UpsertSong(ctx, rec); err != nil {
			return err
		}
		n, err = p.store.Like(ctx, rec.ID, likedAt)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("like %s: %w", rec.ID, database.ErrSongNotFound)
		}
		return nil
	}})
}

// OnAddToPlaylist caches the song, then adds it to the playlist.
func (p *Policy) OnAddToPlaylist(rec database.SongRecord, playlistID int64) bool {
	return p.enqueue(task{name: fmt.Sprintf("add %s to playlist %d", rec.ID, playlistID), run: func(ctx context.Context) error {
		if err := p.store.UpsertSong(ctx, rec); err != nil {
			return err
		}
		return p.store.AddToPlaylist(ctx, playlistID, rec.ID)
	}})
}

// OnSearch remembers a committed search unless search history is paused.
// A paused search reports false without touching the queue.
func (p *Policy) OnSearch(query string) bool {
	if p.paused.Load() {
		return false
	}
	return p.enqueue(task{name: "search", run: func(ctx context.Context) error {
		return p.store.InsertSearchQuery(ctx, query)
	}})
}

// OnFormat records the stream format resolved for a cached song.
func (p *Policy) OnFormat(f database.Format) bool {
	return p.enqueue(task{name: "format " + f.SongID, run: func(ctx context.Context) error {
		return p.store.UpsertFormat(ctx, f)
	}})
}

func (p *Policy) enqueue(t task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		log.Debugf("%s Dropping %s: sync stopped", logcolors.LogSync, t.name)
		return false
	}

	select {
	case p.queue <- t:
		return true
	default:
	}

	dropped := p.dropped.Add(1)
	stats.Get().RecordSyncDropped()
	log.Warnf("%s Queue full, dropping %s (dropped so far: %d)", logcolors.LogSync, t.name, dropped)
	if dropped%saturationAlertEvery == 1 {
		notifier.PublishSyncQueueSaturated(p.opts.QueueSize, dropped)
	}
	return false
}

func (p *Policy) execute(parent context.Context, t task) {
	ctx, cancel := context.WithTimeout(parent, p.opts.TaskTimeout)
	defer cancel()

	err := t.run(ctx)
	stats.Get().RecordSyncTask(err)
	if err != nil {
		log.Warnf("%s Task %s failed: %v", logcolors.LogSync, t.name, err)
		return
	}
	log.Debugf("%s Task %s done", logcolors.LogSync, t.name)
}
