package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nyxmesh/dht/dht"
)

// Phase names a stage of a bootstrap run, reported through ProgressFunc, per
// spec.md §4.4's "connecting -> discovering -> populating -> complete|failed"
// progress model.
type Phase string

const (
	PhaseConnecting  Phase = "connecting"
	PhaseDiscovering Phase = "discovering"
	PhasePopulating  Phase = "populating"
	PhaseComplete    Phase = "complete"
	PhaseFailed      Phase = "failed"
)

// ProgressFunc is notified of phase transitions during a bootstrap run, with
// a 0..100 completion estimate and a human-readable message. May be nil.
type ProgressFunc func(phase Phase, percent int, message string)

// Result summarizes a finished (successful or failed) bootstrap run.
type Result struct {
	RespondedSeeds  int
	FailedSeeds     int
	DiscoveredNodes int
	Duration        time.Duration
}

// coverageStride is the bucket-index sampling interval used by the coverage
// phase ("every tenth index plus 159", per spec.md §4.4 step 3).
const coverageStride = 10

// Coordinator joins a dht.RoutingTable to the network: it probes a seed
// list, inserts the seeds that respond, runs a self-lookup to populate the
// buckets nearest the local id, and finishes with coverage lookups spread
// across the rest of the address space. Generalizes the teacher's
// BootstrapManager (opd-ai-toxcore/dht/bootstrap.go) — which dials a fixed
// node list and declares success once minNodes connect — into the four
// explicit phases spec.md §4.4 specifies, with the table-population work
// (self-lookup, coverage) the teacher's Tox-specific bootstrap never does on
// the caller's behalf.
type Coordinator struct {
	rt    *dht.RoutingTable
	seeds []Seed
	cfg   dht.Config

	mu      sync.Mutex
	running bool
}

// NewCoordinator builds a Coordinator for rt, probing seeds on Run using the
// timeouts and parallelism in cfg.
func NewCoordinator(rt *dht.RoutingTable, seeds []Seed, cfg dht.Config) *Coordinator {
	return &Coordinator{rt: rt, seeds: append([]Seed(nil), seeds...), cfg: cfg}
}

// Run executes the connect/self-lookup/coverage protocol once. Only one Run
// may be in flight per Coordinator at a time; a second concurrent call fails
// immediately with dht.ErrBootstrapInProgress, per spec.md §4.4's
// re-entrancy rule. onProgress may be nil.
func (c *Coordinator) Run(ctx context.Context, onProgress ProgressFunc) (*Result, error) {
	if !c.tryAcquire() {
		return nil, fmt.Errorf("bootstrap.Coordinator.Run: %w", dht.ErrBootstrapInProgress)
	}
	defer c.release()

	start := time.Now()
	report(onProgress, PhaseConnecting, 0, fmt.Sprintf("probing %d seeds", len(c.seeds)))

	responded, failed := c.connectPhase(ctx)
	logrus.WithFields(logrus.Fields{
		"function":  "Coordinator.Run",
		"responded": responded,
		"failed":    failed,
	}).Info("bootstrap connect phase complete")

	if responded < c.cfg.MinBootstrapNodes {
		result := &Result{RespondedSeeds: responded, FailedSeeds: failed, Duration: time.Since(start)}
		report(onProgress, PhaseFailed, 100, "too few seeds responded")
		return result, fmt.Errorf("bootstrap.Coordinator.Run: %w", dht.ErrBootstrapInsufficientSeeds)
	}

	report(onProgress, PhaseDiscovering, 40, "self lookup")
	if _, err := c.rt.FindNode(ctx, c.rt.Local()); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Coordinator.Run",
			"error":    err.Error(),
		}).Warn("self-lookup failed")
	}

	report(onProgress, PhasePopulating, 70, "coverage lookups")
	c.coverageLookups(ctx)

	total := len(c.rt.Table().AllContacts())
	report(onProgress, PhaseComplete, 100, "bootstrap complete")
	return &Result{
		RespondedSeeds:  responded,
		FailedSeeds:     failed,
		DiscoveredNodes: total,
		Duration:        time.Since(start),
	}, nil
}

func (c *Coordinator) tryAcquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return false
	}
	c.running = true
	return true
}

func (c *Coordinator) release() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// orderedSeeds returns the seed list with trusted seeds first, per spec.md
// §4.4 step 1 ("Sort seeds with trusted first"). Stable so seeds of equal
// trust keep their original relative order.
func (c *Coordinator) orderedSeeds() []Seed {
	ordered := append([]Seed(nil), c.seeds...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Trusted && !ordered[j].Trusted
	})
	return ordered
}

// connectPhase pings seeds in batches of Config.ParallelBootstraps, inserting
// every seed that responds as a contact and stopping early once
// Config.MinBootstrapNodes have responded.
func (c *Coordinator) connectPhase(ctx context.Context) (responded, failed int) {
	seeds := c.orderedSeeds()
	batchSize := c.cfg.ParallelBootstraps
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(seeds); start += batchSize {
		end := start + batchSize
		if end > len(seeds) {
			end = len(seeds)
		}
		batch := seeds[start:end]

		g, gctx := errgroup.WithContext(ctx)
		results := make([]bool, len(batch))
		for i, seed := range batch {
			i, seed := i, seed
			g.Go(func() error {
				results[i] = c.probeSeed(gctx, seed)
				return nil
			})
		}
		_ = g.Wait()

		for _, ok := range results {
			if ok {
				responded++
			} else {
				failed++
			}
		}

		if responded >= c.cfg.MinBootstrapNodes {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return responded, failed
}

// probeSeed pings one seed with deadline Config.BootstrapTimeout and, on
// success, inserts it into the routing table.
func (c *Coordinator) probeSeed(ctx context.Context, seed Seed) bool {
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.BootstrapTimeout)
	defer cancel()

	contact := seed.contact()
	if err := c.rt.Ping(pingCtx, contact); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Coordinator.probeSeed",
			"seed":     seed.PeerID,
			"error":    err.Error(),
		}).Debug("seed did not respond")
		return false
	}
	c.rt.AddContact(contact)
	return true
}

// coverageLookups runs FindNode against a random id in the range of every
// still-empty bucket at indices 0, coverageStride, 2*coverageStride, ...,
// plus the last bucket, per spec.md §4.4 step 3. Failures are swallowed —
// coverage is best-effort population, not a requirement for success.
func (c *Coordinator) coverageLookups(ctx context.Context) int {
	discovered := 0
	for _, i := range coverageBucketSample() {
		if c.rt.Table().BucketLen(i) > 0 {
			continue
		}
		target, err := dht.GenerateIDInBucket(c.rt.Local(), i)
		if err != nil {
			continue
		}
		result, err := c.rt.FindNode(ctx, target)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Coordinator.coverageLookups",
				"bucket":   i,
				"error":    err.Error(),
			}).Debug("coverage lookup failed")
			continue
		}
		discovered += len(result.Contacts)
	}
	return discovered
}

// coverageBucketSample returns the sampled bucket indices the coverage phase
// probes: every coverageStride-th index across the full 0..NumBuckets-1
// range, plus the final bucket if it wasn't already included.
func coverageBucketSample() []int {
	var sample []int
	for i := 0; i < dht.NumBuckets; i += coverageStride {
		sample = append(sample, i)
	}
	if last := dht.NumBuckets - 1; len(sample) == 0 || sample[len(sample)-1] != last {
		sample = append(sample, last)
	}
	return sample
}

func report(fn ProgressFunc, phase Phase, percent int, message string) {
	if fn == nil {
		return
	}
	fn(phase, percent, message)
}
