// Package consumer implements the Consumer service variant: a pull
// driver reading frames from a connected service, either synchronously
// or at wall-clock rate through a bounded queue (spec §3.5, §4.9).
package consumer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mltgo/mlt/internal/errs"
	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/svc"
)

// Service is the pull contract a consumer drives.
type Service interface {
	GetFrame(index int64) (*frame.Frame, error)
}

// RenderFunc is invoked with each frame the consumer reads; it may read
// image/audio from it. The frame is closed by the consumer afterward.
type RenderFunc func(f *frame.Frame) error

// state is the consumer's run state (spec §4.9: stopped -> running ->
// stopping -> stopped).
type state int32

const (
	stateStopped state = iota
	stateRunning
	stateStopping
)

// Consumer pulls frames from a connected Service and renders them,
// optionally through a bounded real-time queue.
type Consumer struct {
	*svc.Service

	mu       sync.Mutex
	source   Service
	render   RenderFunc
	realTime int // 0: synchronous, >0: bounded real-time, <0: unbounded catch-up.
	fps      float64
	queueCap int

	state   int32
	dropped int64

	wg *sync.WaitGroup
}

// New returns a Consumer rendering via render at fps, in real-time mode
// when realTime != 0 (spec §4.9). queueCap bounds the real-time queue;
// it is ignored in synchronous mode.
func New(render RenderFunc, fps float64, realTime int, queueCap int, wg *sync.WaitGroup) *Consumer {
	if queueCap <= 0 {
		queueCap = 1
	}
	return &Consumer{
		Service:  svc.New(svc.KindConsumer),
		render:   render,
		realTime: realTime,
		fps:      fps,
		queueCap: queueCap,
		wg:       wg,
	}
}

// Connect attaches source; it may only be called while stopped.
func (c *Consumer) Connect(source Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state(atomic.LoadInt32(&c.state)) != stateStopped {
		return errs.ErrInvalidArgument
	}
	c.source = source
	return nil
}

// IsStopped reports whether the consumer is not currently running.
func (c *Consumer) IsStopped() bool {
	return state(atomic.LoadInt32(&c.state)) == stateStopped
}

// Dropped returns the number of frames skipped without rendering,
// real-time mode only.
func (c *Consumer) Dropped() int64 {
	return atomic.LoadInt64(&c.dropped)
}

// Start begins pulling frames until ctx is cancelled or Stop is called.
// Start blocks until the consumer stops.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if state(atomic.LoadInt32(&c.state)) != stateStopped {
		c.mu.Unlock()
		return errs.ErrInvalidArgument
	}
	source := c.source
	c.mu.Unlock()
	if source == nil {
		return errs.ErrInvalidArgument
	}

	atomic.StoreInt32(&c.state, int32(stateRunning))
	if c.wg != nil {
		c.wg.Add(1)
		defer c.wg.Done()
	}
	defer atomic.StoreInt32(&c.state, int32(stateStopped))

	if c.realTime == 0 {
		return c.runSynchronous(ctx, source)
	}
	return c.runRealTime(ctx, source)
}

// PullAt performs a single request-driven pull at index against the
// connected source (rather than the continuous loop Start runs),
// rendering it via the configured RenderFunc. Used by callers that
// need one frame on demand, e.g. the frame-rate decoupling producer's
// inner consumer (spec §4.14).
func (c *Consumer) PullAt(index int64) (*frame.Frame, error) {
	c.mu.Lock()
	source := c.source
	c.mu.Unlock()
	if source == nil {
		return nil, errs.ErrInvalidArgument
	}
	f, err := source.GetFrame(index)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	if err := c.render(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Stop requests the run loop to exit; idempotent.
func (c *Consumer) Stop() {
	atomic.CompareAndSwapInt32(&c.state, int32(stateRunning), int32(stateStopping))
}

func (c *Consumer) stopping() bool {
	return state(atomic.LoadInt32(&c.state)) == stateStopping
}

func (c *Consumer) runSynchronous(ctx context.Context, source Service) error {
	var index int64
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if c.stopping() {
			return nil
		}
		f, err := source.GetFrame(index)
		if err != nil {
			return err
		}
		if f == nil {
			return nil
		}
		renderErr := c.render(f)
		f.Close()
		if renderErr != nil {
			return renderErr
		}
		index++
	}
}

// runRealTime separates pulling from rendering via a bounded channel, a
// producer goroutine filling it and this goroutine draining it at
// wall-clock rate (spec §4.9).
func (c *Consumer) runRealTime(ctx context.Context, source Service) error {
	queue := make(chan *frame.Frame, c.queueCap)
	fillErr := make(chan error, 1)
	fillDone := make(chan struct{})

	fillCtx, cancelFill := context.WithCancel(ctx)
	defer cancelFill()

	go func() {
		defer close(fillDone)
		var index int64
		for {
			select {
			case <-fillCtx.Done():
				return
			default:
			}
			f, err := source.GetFrame(index)
			if err != nil {
				fillErr <- err
				return
			}
			if f == nil {
				return
			}
			select {
			case queue <- f:
				index++
			case <-fillCtx.Done():
				f.Close()
				return
			}
		}
	}()

	interval := time.Second
	if c.fps > 0 {
		interval = time.Duration(float64(time.Second) / c.fps)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastFrame *frame.Frame
	repeatedLast := false
	for {
		select {
		case <-ctx.Done():
			if lastFrame != nil {
				lastFrame.Close()
			}
			return nil
		case err := <-fillErr:
			return err
		case <-ticker.C:
			if c.stopping() {
				if lastFrame != nil {
					lastFrame.Close()
				}
				return nil
			}
			select {
			case f := <-queue:
				if lastFrame != nil {
					lastFrame.Close()
				}
				lastFrame = f
				repeatedLast = false
				if err := c.render(f); err != nil {
					return err
				}
			default:
				switch {
				case lastFrame != nil && !repeatedLast:
					// Queue empty: repeat the last frame once.
					repeatedLast = true
					if err := c.render(lastFrame); err != nil {
						return err
					}
				case c.realTime < 0:
					// Unbounded catch-up: keep waiting, no drop.
				default:
					// Still empty on the following deadline: drop.
					atomic.AddInt64(&c.dropped, 1)
				}
			}
		}
	}
}
