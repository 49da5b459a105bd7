// Package search backs search-as-you-type member lookups. Each keystroke
// supersedes the previous query; a late response to an earlier keystroke is
// discarded so it can never overwrite a more recent result.
package search

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rosterhq/huddle/internal/domain"
)

// Directory is the identity collaborator the typeahead queries.
type Directory interface {
	Search(ctx context.Context, query string) ([]domain.Profile, error)
}

type Searcher struct {
	dir Directory
	log *slog.Logger

	gen atomic.Uint64

	mu      sync.Mutex
	results []domain.Profile
	updates chan []domain.Profile
}

func New(dir Directory, log *slog.Logger) *Searcher {
	return &Searcher{
		dir:     dir,
		log:     log,
		updates: make(chan []domain.Profile, 1),
	}
}

// Lookup issues the query asynchronously. Only the response to the most
// recent Lookup call is applied; stale in-flight responses are dropped.
func (s *Searcher) Lookup(ctx context.Context, query string) {
	gen := s.gen.Add(1)

	go func() {
		results, err := s.dir.Search(ctx, query)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("member search failed", "err", err)
			}
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen.Load() {
			// A later keystroke already superseded this query.
			return
		}
		s.results = results
		select {
		case s.updates <- results:
		default:
			select {
			case <-s.updates:
			default:
			}
			select {
			case s.updates <- results:
			default:
			}
		}
	}()
}

// Updates delivers result sets, newest wins, never a stale overwrite.
func (s *Searcher) Updates() <-chan []domain.Profile {
	return s.updates
}

// Current returns the most recent applied result set.
func (s *Searcher) Current() []domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}
