package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProposalStoreExpires(t *testing.T) {
	store := newProposalStore(time.Minute)
	store.Save(timetableProposal{ID: "fresh", GeneratedAt: time.Now()})
	store.Save(timetableProposal{ID: "stale", GeneratedAt: time.Now().Add(-2 * time.Minute)})

	_, ok := store.Get("fresh")
	assert.True(t, ok)
	_, ok = store.Get("stale")
	assert.False(t, ok)

	store.Save(timetableProposal{ID: "other", GeneratedAt: time.Now()})
	store.mu.RLock()
	assert.Len(t, store.items, 2)
	store.mu.RUnlock()

	store.Delete("fresh")
	_, ok = store.Get("fresh")
	assert.False(t, ok)
}
