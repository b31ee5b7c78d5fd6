package service

import (
	"sync"
	"time"

	"github.com/noah-isme/exam-timetable-api/internal/engine"
)

// timetableProposal is a generated, not yet saved timetable.
type timetableProposal struct {
	ID          string
	Digest      string
	Snapshot    engine.Snapshot
	Options     engine.Options
	Result      engine.Result
	GeneratedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]timetableProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]timetableProposal),
	}
}

func (s *proposalStore) Save(proposal timetableProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.items[proposal.ID] = proposal
}

func (s *proposalStore) Get(id string) (timetableProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return timetableProposal{}, false
	}
	if time.Since(proposal.GeneratedAt) > s.ttl {
		s.Delete(id)
		return timetableProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// sweepLocked drops expired proposals; callers hold the write lock.
func (s *proposalStore) sweepLocked() {
	for id, p := range s.items {
		if time.Since(p.GeneratedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}
