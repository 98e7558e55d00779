package stress

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	mrand "math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yndnr/refmap-go/internal/telemetry/logger"
	"github.com/yndnr/refmap-go/pkg/refmap"
)

// progressInterval is how often the runner logs a progress line.
const progressInterval = 5 * time.Second

// Runner executes the configured churn workload against one map
// variant. It implements metric.Source so a live run can be scraped.
type Runner struct {
	cfg     Config
	log     logger.Logger
	tgt     target
	limiter *rate.Limiter
	keys    []string
	ops     atomic.Uint64
}

// NewRunner validates cfg, builds the map under test, and pregenerates
// the key space.
func NewRunner(cfg Config, log logger.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stress config: %w", err)
	}
	tgt, err := newTarget(cfg.Map)
	if err != nil {
		return nil, err
	}

	// Every run gets a fresh key space so repeated runs never collide
	// in logs or traces.
	entropy := ulid.Monotonic(rand.Reader, 0)
	keys := make([]string, cfg.Load.Keys)
	for i := range keys {
		keys[i] = "k-" + strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
	}

	return &Runner{
		cfg:     cfg,
		log:     log,
		tgt:     tgt,
		limiter: newLimiter(cfg.Load.Rate),
		keys:    keys,
	}, nil
}

func newLimiter(opsPerSec float64) *rate.Limiter {
	if opsPerSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(math.Ceil(opsPerSec / 10))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(opsPerSec), burst)
}

// SetRate retargets the total operation rate while a run is in
// progress. Zero or negative lifts the cap.
func (r *Runner) SetRate(opsPerSec float64) {
	if opsPerSec <= 0 {
		r.limiter.SetLimit(rate.Inf)
		r.log.Info("rate limit lifted")
		return
	}
	r.limiter.SetLimit(rate.Limit(opsPerSec))
	r.limiter.SetBurst(newLimiter(opsPerSec).Burst())
	r.log.Info("rate limit updated", "ops_per_sec", opsPerSec)
}

// Stats exposes the live counters of the map under test.
func (r *Runner) Stats() refmap.Stats {
	return r.tgt.Stats()
}

// Ops returns the total number of operations performed so far.
func (r *Runner) Ops() uint64 {
	return r.ops.Load()
}

// Run drives the workload until the configured duration elapses or ctx
// is canceled. It returns nil on a clean stop; every handle taken by a
// worker is released before Run returns, so the map drains to empty.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.Load.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Load.Duration)
		defer cancel()
	}

	r.log.Info("stress run starting",
		"kind", r.cfg.Map.Kind,
		"workers", r.cfg.Load.Workers,
		"keys", len(r.keys),
		"duration", r.cfg.Load.Duration.String(),
	)

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Load.Workers; i++ {
		id := i
		g.Go(func() error {
			return r.worker(ctx, id)
		})
	}
	g.Go(func() error {
		r.progress(ctx)
		return nil
	})

	err := g.Wait()
	elapsed := time.Since(start)
	st := r.tgt.Stats()
	r.log.Info("stress run finished",
		"elapsed", elapsed.String(),
		"ops", r.ops.Load(),
		"ops_per_sec", float64(r.ops.Load())/elapsed.Seconds(),
		"live_entries", st.Size,
		"inserts", st.Inserts,
		"hits", st.Hits,
		"misses", st.Misses,
		"removals", st.Removals,
	)
	return err
}

// worker loops insert/get/release over the shared key space. Handles
// are held in FIFO order up to HoldMax so a window of entries stays
// live while the rest self-clean.
func (r *Runner) worker(ctx context.Context, id int) error {
	rng := mrand.New(mrand.NewPCG(uint64(id), uint64(time.Now().UnixNano())))
	held := make([]handle, 0, r.cfg.Load.HoldMax+1)
	defer func() {
		for _, h := range held {
			h.Release()
		}
	}()

	for {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil // run over
		}
		key := r.keys[rng.IntN(len(r.keys))]
		switch rng.IntN(5) {
		case 0:
			h, err := r.tgt.Insert(ctx, key, time.Now().UnixNano())
			if err != nil {
				return nil
			}
			held = append(held, h)
		case 1, 2:
			h, ok, err := r.tgt.Get(ctx, key)
			if err != nil {
				return nil
			}
			if ok {
				held = append(held, h)
			}
		case 3:
			if len(held) > 0 {
				held = append(held, held[rng.IntN(len(held))].Clone())
			}
		case 4:
			if len(held) > 0 {
				held[0].Release()
				held = held[1:]
			}
		}
		if len(held) > r.cfg.Load.HoldMax {
			held[0].Release()
			held = held[1:]
		}
		r.ops.Add(1)
	}
}

func (r *Runner) progress(ctx context.Context) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := r.tgt.Stats()
			r.log.Info("stress progress",
				"ops", r.ops.Load(),
				"live_entries", st.Size,
				"hits", st.Hits,
				"misses", st.Misses,
			)
		}
	}
}
