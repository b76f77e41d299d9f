package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/arenabot/shotfinder/internal/session"
	"github.com/arenabot/shotfinder/pkg/core"
	"golang.org/x/sync/errgroup"
)

// benchConfig sizes a run.
type benchConfig struct {
	Arena      string
	Workers    int
	Iterations int
	Cars       int
	Seed       uint64
}

// benchResult sums every worker's searches.
type benchResult struct {
	Ticks    int
	Searches int
	Found    int
	Slices   int
	Search   time.Duration
	Elapsed  time.Duration
}

func (r benchResult) String() string {
	if r.Searches == 0 {
		return "no searches"
	}
	return fmt.Sprintf("%d ticks, %d searches (%d found), %d slices judged, %.3fms per search, %s total",
		r.Ticks, r.Searches, r.Found, r.Slices,
		float64(r.Search)/float64(r.Searches)/float64(time.Millisecond), r.Elapsed)
}

var (
	leftPost  = core.Vector3{X: 800, Y: 5120}
	rightPost = core.Vector3{X: -800, Y: 5120}
)

func ptr[T any](v T) *T { return &v }

// targetOptions are the four option sets every iteration registers, once as
// goal targets and once as any targets.
var targetOptions = []*core.TargetOptions{
	{UseAbsoluteMaxValues: ptr(true), All: ptr(true)},
	{UseAbsoluteMaxValues: ptr(true)},
	{All: ptr(true)},
	nil,
}

// runBench runs cfg.Workers independent sessions in parallel.
func runBench(ctx context.Context, cfg benchConfig) (benchResult, error) {
	var (
		mu    sync.Mutex
		total benchResult
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for w := range cfg.Workers {
		g.Go(func() error {
			r, err := runWorker(gctx, cfg, uint64(w))
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			mu.Lock()
			total.Ticks += r.Ticks
			total.Searches += r.Searches
			total.Found += r.Found
			total.Slices += r.Slices
			total.Search += r.Search
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return benchResult{}, err
	}
	total.Elapsed = time.Since(start)
	return total, nil
}

func runWorker(ctx context.Context, cfg benchConfig, worker uint64) (benchResult, error) {
	var r benchResult
	s := session.New(session.WithSearchObserver(func(rep session.SearchReport) {
		r.Searches++
		r.Slices += rep.SlicesTried
		r.Search += rep.Duration
		if rep.Shot != nil {
			r.Found++
		}
	}))
	if err := s.LoadArena(cfg.Arena); err != nil {
		return r, err
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, worker))
	for range cfg.Iterations {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		if err := s.Tick(randomPacket(rng, cfg.Cars), nil); err != nil {
			return r, err
		}
		r.Ticks++

		for _, opts := range targetOptions {
			if _, err := s.NewTarget(leftPost, rightPost, 0, opts); err != nil {
				return r, err
			}
		}
		for _, opts := range targetOptions {
			if _, err := s.NewAnyTarget(0, opts); err != nil {
				return r, err
			}
		}

		for i := range 2 * len(targetOptions) {
			if _, err := s.ShotWithTarget(i, core.ShotRequest{}); err != nil {
				return r, err
			}
			// the last target of each kind is searched again without storing
			if i%len(targetOptions) == len(targetOptions)-1 {
				if _, err := s.ShotWithTarget(i, core.ShotRequest{Temporary: true}); err != nil {
					return r, err
				}
			}
		}
	}
	return r, nil
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func randomVelocity(rng *rand.Rand) core.Vector3 {
	return core.Vector3{
		X: between(rng, -1000, 1000),
		Y: between(rng, -1000, 1000),
		Z: between(rng, -1000, 1000),
	}
}

// randomPacket scatters the ball over most of the field and parks every car
// in the same corner with a random velocity.
func randomPacket(rng *rand.Rand, cars int) core.GamePacket {
	p := core.GamePacket{
		GameInfo: core.GameInfo{WorldGravityZ: -650},
		Ball: core.BallInfo{
			Physics: core.Physics{
				Location: core.Vector3{
					X: between(rng, -3000, 3000),
					Y: between(rng, -4000, 4000),
					Z: between(rng, 20, 1900),
				},
				Velocity: randomVelocity(rng),
			},
			Radius: 91.25,
		},
		Cars: make([]core.CarInfo, cars),
	}
	for i := range p.Cars {
		p.Cars[i] = core.CarInfo{
			Physics: core.Physics{
				Location: core.Vector3{X: 3500, Y: -3500, Z: 100},
				Velocity: randomVelocity(rng),
				Rotation: core.Rotator{Yaw: 1.1},
			},
			Boost:        50,
			Hitbox:       core.Hitbox{Length: 118, Width: 84.2, Height: 36.2},
			HitboxOffset: core.Vector3{X: 13.9, Z: 20.8},
		}
	}
	return p
}
