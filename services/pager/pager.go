// Package pager merges continuation-linked pages of a single result set.
//
// A Page carries the items of one upstream response and the token for the
// next one. Accumulate follows tokens until the set is exhausted, a fetch
// fails, or a guard trips. Items are kept in server order. Duplicates across
// pages are preserved.
package pager

import (
	"context"
	"music-api-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// DefaultMaxPages bounds Accumulate when Options.MaxPages is zero.
const DefaultMaxPages = 100

// Page is one upstream response worth of items. An empty Continuation means
// the result set is exhausted.
type Page[T any] struct {
	Items        []T    `json:"items"`
	Continuation string `json:"continuation,omitempty"`
}

// Exhausted reports whether no further page can be requested.
func (p *Page[T]) Exhausted() bool {
	return p.Continuation == ""
}

// ContinuationFunc fetches the page addressed by token.
type ContinuationFunc[T any] func(ctx context.Context, token string) (*Page[T], error)

// InitialFunc fetches the first page of a result set.
type InitialFunc[T any] func(ctx context.Context) (*Page[T], error)

// StopReason records why accumulation ended.
type StopReason string

const (
	StopExhausted     StopReason = "exhausted"
	StopFetchFailed   StopReason = "fetch_failed"
	StopRepeatedToken StopReason = "repeated_token"
	StopMaxPages      StopReason = "max_pages"
)

// Options tunes Accumulate.
type Options struct {
	// MaxPages caps the number of pages merged, seed included. Zero means DefaultMaxPages.
	MaxPages int
	// Label identifies the result set in logs.
	Label string
}

// Result is the merged view of every page fetched from one seed.
type Result[T any] struct {
	Items []T `json:"items"`
	// Continuation is the token that was not followed when accumulation
	// stopped early. Empty when the set was exhausted.
	Continuation string     `json:"continuation,omitempty"`
	Pages        int        `json:"pages"`
	StopReason   StopReason `json:"stopReason"`
	// Err is the continuation failure that ended a partial result.
	Err error `json:"-"`
}

// Partial reports whether the result stopped before the set was exhausted.
func (r *Result[T]) Partial() bool {
	return r.StopReason != StopExhausted
}

// Accumulate follows continuation tokens starting from seed and concatenates
// every page's items in the order they were fetched.
//
// A nil seed yields (nil, nil). A failed continuation fetch stops the loop and
// the items gathered so far are returned as a successful Result with
// StopFetchFailed. Cancellation of ctx is the only error Accumulate returns,
// and no Result accompanies it.
func Accumulate[T any](ctx context.Context, seed *Page[T], next ContinuationFunc[T], opts Options) (*Result[T], error) {
	if seed == nil {
		return nil, nil
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	result := &Result[T]{
		Items: append(make([]T, 0, len(seed.Items)), seed.Items...),
		Pages: 1,
	}
	seen := make(map[string]struct{})
	token := seed.Continuation

	for token != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, repeated := seen[token]; repeated {
			log.Warnf("%s %s: continuation token repeated after %d page(s), stopping", logcolors.LogPager, opts.Label, result.Pages)
			result.Continuation = token
			result.StopReason = StopRepeatedToken
			return result, nil
		}
		if result.Pages >= maxPages {
			log.Warnf("%s %s: reached max of %d page(s), stopping", logcolors.LogPager, opts.Label, maxPages)
			result.Continuation = token
			result.StopReason = StopMaxPages
			return result, nil
		}
		seen[token] = struct{}{}

		page, err := next(ctx, token)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			log.Warnf("%s %s: continuation fetch failed after %d page(s), returning partial result: %v",
				logcolors.LogPager, opts.Label, result.Pages, err)
			result.Continuation = token
			result.StopReason = StopFetchFailed
			result.Err = err
			return result, nil
		}
		if page == nil {
			break
		}

		result.Items = append(result.Items, page.Items...)
		result.Pages++
		token = page.Continuation
	}

	result.StopReason = StopExhausted
	log.Debugf("%s %s: accumulated %d item(s) over %d page(s)", logcolors.LogPager, opts.Label, len(result.Items), result.Pages)
	return result, nil
}

// FetchAll runs initial and then accumulates every continuation after it.
// A failure of the initial fetch is returned as-is since there is nothing to
// fall back to.
func FetchAll[T any](ctx context.Context, initial InitialFunc[T], next ContinuationFunc[T], opts Options) (*Result[T], error) {
	seed, err := initial(ctx)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		seed = &Page[T]{}
	}
	return Accumulate(ctx, seed, next, opts)
}
