// Package notify tracks live notification channels per account and pushes
// business events to them.
//
// The registry is a concurrency-safe multimap from account id to a set of
// channels. It is sharded so that connect/disconnect traffic for unrelated
// accounts never contends on one lock; operations on the same account id are
// linearizable under that account's shard lock.
package notify

import (
	"sync"

	"beacon/internal/metrics"
)

const registryShards = 32

// Registry maps account ids to their open channels.
type Registry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu       sync.RWMutex
	accounts map[int64]map[*Channel]struct{}
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].accounts = make(map[int64]map[*Channel]struct{})
	}
	return r
}

func (r *Registry) shard(accountID int64) *registryShard {
	// Splitmix-style scramble so sequential ids spread across shards.
	h := uint64(accountID)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return &r.shards[h%registryShards]
}

// Register adds ch to the set for accountID, creating the set if absent.
func (r *Registry) Register(accountID int64, ch *Channel) {
	s := r.shard(accountID)

	s.mu.Lock()
	set, ok := s.accounts[accountID]
	if !ok {
		set = make(map[*Channel]struct{})
		s.accounts[accountID] = set
	}
	set[ch] = struct{}{}
	s.mu.Unlock()

	metrics.ChannelsActive.Inc()
}

// Remove deletes ch from the set for accountID. An emptied set is removed
// entirely so dead account keys never accumulate.
func (r *Registry) Remove(accountID int64, ch *Channel) {
	s := r.shard(accountID)

	s.mu.Lock()
	set, ok := s.accounts[accountID]
	if ok {
		if _, present := set[ch]; present {
			delete(set, ch)
			metrics.ChannelsActive.Dec()
		}
		if len(set) == 0 {
			delete(s.accounts, accountID)
		}
	}
	s.mu.Unlock()
}

// ForEachChannel invokes fn once per registered channel for accountID.
//
// fn runs on a snapshot taken under the shard read lock, so a failing or
// slow fn cannot block registration traffic, and a failure on one channel
// neither aborts the remaining calls nor removes the channel — only an
// explicit Remove does that.
func (r *Registry) ForEachChannel(accountID int64, fn func(ch *Channel)) {
	s := r.shard(accountID)

	s.mu.RLock()
	set := s.accounts[accountID]
	snapshot := make([]*Channel, 0, len(set))
	for ch := range set {
		snapshot = append(snapshot, ch)
	}
	s.mu.RUnlock()

	for _, ch := range snapshot {
		fn(ch)
	}
}

// CountFor reports the number of channels registered for accountID.
func (r *Registry) CountFor(accountID int64) int {
	s := r.shard(accountID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts[accountID])
}

// Accounts returns the account ids with at least one registered channel.
// Diagnostic; used by tests to verify emptied keys are dropped.
func (r *Registry) Accounts() []int64 {
	var out []int64
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for id := range s.accounts {
			out = append(out, id)
		}
		s.mu.RUnlock()
	}
	return out
}
