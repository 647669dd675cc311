package dht

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Maintainer runs the DHT's periodic background work: refreshing idle
// buckets with a lookup and republishing the values this node published
// before they expire, per spec.md §4.3's maintenance requirements. Structured on the
// teacher's Maintainer (dht/maintenance.go) — ticker-per-routine,
// context.CancelFunc plus sync.WaitGroup for clean shutdown — narrowed to
// the two routines this overlay's spec calls for instead of the teacher's
// ping/lookup/prune trio (liveness pinging here happens inline during
// lookups and Store, so a dedicated ping routine would duplicate that
// traffic).
type Maintainer struct {
	rt  *RoutingTable
	cfg Config

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

func newMaintainer(rt *RoutingTable, cfg Config) *Maintainer {
	return &Maintainer{rt: rt, cfg: cfg}
}

// Start begins the refresh and republish routines. Calling Start on an
// already-running Maintainer is a no-op.
func (m *Maintainer) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		return
	}
	m.isRunning = true
	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.wg.Add(2)
	go m.refreshRoutine()
	go m.republishRoutine()
}

// Stop halts both routines and waits for them to exit.
func (m *Maintainer) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Maintainer) refreshRoutine() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.refreshIdleBuckets()
		}
	}
}

func (m *Maintainer) republishRoutine() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.RepublishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.republishValues()
		}
	}
}

// refreshIdleBuckets runs a FindNode lookup for a random ID inside every
// non-empty bucket whose NeedsRefresh(RefreshInterval) is true, per
// spec.md §4.3's periodic bucket-refresh rule. A bucket is marked refreshed
// only once its lookup completes successfully; a failed lookup leaves its
// lastRefreshed untouched so the next tick retries it. Empty buckets carry
// nothing worth refreshing — they're populated instead by bootstrap's
// coverage lookups.
func (m *Maintainer) refreshIdleBuckets() {
	now := m.rt.clock.Now()
	for i := 0; i < NumBuckets; i++ {
		if m.rt.table.BucketLen(i) == 0 {
			continue
		}
		if !m.rt.table.BucketNeedsRefresh(i, m.cfg.RefreshInterval, now) {
			continue
		}
		target, err := GenerateIDInBucket(m.rt.local, i)
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(m.ctx, m.cfg.PingTimeout*time.Duration(m.cfg.Alpha))
		_, err = m.rt.FindNode(ctx, target)
		cancel()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Maintainer.refreshIdleBuckets",
				"bucket":   i,
				"error":    err.Error(),
			}).Debug("bucket refresh lookup failed")
			continue
		}
		m.rt.table.MarkBucketRefreshed(i, now)
	}
}

// republishValues prunes expired values, then re-announces every remaining
// value whose publisher is this node; values held on behalf of other
// publishers are kept but not re-announced — generalizing the teacher's
// GroupStorage.CleanExpired (dht/group_storage.go) into the republish-plus-
// expire cycle spec.md's value store requires.
func (m *Maintainer) republishValues() {
	removed := m.rt.store.CleanExpired()
	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Maintainer.republishValues",
			"removed":  removed,
		}).Debug("expired local values")
	}

	for _, key := range m.rt.store.Keys() {
		value, ok := m.rt.store.Get(key)
		if !ok {
			continue
		}
		if NodeID(value.PublisherID) != m.rt.local {
			continue // only the original publisher re-announces a value
		}
		ctx, cancel := context.WithTimeout(m.ctx, m.cfg.PingTimeout*time.Duration(m.cfg.K))
		if _, err := m.rt.Store(ctx, key, value.Data, value.TTL); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Maintainer.republishValues",
				"key":      key,
				"error":    err.Error(),
			}).Debug("republish failed")
		}
		cancel()
	}
}
