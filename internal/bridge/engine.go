// Package bridge relays row changes between daemons that share a database,
// so subscribers on one instance see writes made on another.
package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/collab/internal/metrics"
	"github.com/matheus3301/collab/internal/status"
	"github.com/matheus3301/collab/internal/store"
)

// Directions for the bridge metric.
const (
	DirectionOut = "out"
	DirectionIn  = "in"
)

const feedBuffer = 256

// Transport moves encoded changes between instances.
type Transport interface {
	Publish(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) (<-chan []byte, error)
}

// Engine forwards locally originated changes to the transport and
// announces changes from other instances on the local bus.
type Engine struct {
	live       *store.Live
	transport  Transport
	machine    *status.Machine
	metrics    *metrics.Metrics
	logger     *zap.Logger
	retryDelay time.Duration
	degraded   atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a bridge. machine may be nil.
func NewEngine(live *store.Live, t Transport, machine *status.Machine, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		live:       live,
		transport:  t,
		machine:    machine,
		metrics:    m,
		logger:     logger,
		retryDelay: 2 * time.Second,
	}
}

// Start subscribes to local row changes and to the transport.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.live.Subscribe(store.RowPrefix, feedBuffer)

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		defer unsub()
		for {
			select {
			case evt := <-ch:
				if c, ok := evt.Payload.(store.Change); ok {
					e.forward(ctx, c)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		defer e.wg.Done()
		e.receiveLoop(ctx)
	}()
}

// Stop stops both directions and waits for them to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Engine) forward(ctx context.Context, c store.Change) {
	if c.Origin != e.live.Origin() {
		return
	}
	payload, err := json.Marshal(c)
	if err != nil {
		e.logger.Error("failed to encode change", zap.Error(err))
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := e.transport.Publish(pctx, payload); err != nil {
		if ctx.Err() == nil {
			e.degrade("bridge publish failed", err)
		}
		return
	}
	e.metrics.BridgeEvent(DirectionOut)
	e.restore()
}

func (e *Engine) receiveLoop(ctx context.Context) {
	for ctx.Err() == nil {
		in, err := e.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.degrade("bridge subscribe failed", err)
			select {
			case <-time.After(e.retryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		e.restore()
		e.logger.Info("bridge subscribed")
		for payload := range in {
			e.handle(payload)
		}
		if ctx.Err() == nil {
			e.degrade("bridge subscription lost", nil)
		}
	}
}

// handle announces a change received from the transport. Echoes of local
// changes and malformed payloads are dropped.
func (e *Engine) handle(payload []byte) bool {
	var c store.Change
	if err := json.Unmarshal(payload, &c); err != nil {
		e.logger.Warn("dropping malformed change", zap.Error(err))
		return false
	}
	if c.Origin == e.live.Origin() || c.Table == "" || c.ChatID == "" {
		return false
	}
	e.live.Announce(c)
	e.metrics.BridgeEvent(DirectionIn)
	return true
}

func (e *Engine) degrade(reason string, err error) {
	e.logger.Warn(reason, zap.Error(err))
	if e.machine == nil || e.degraded.Swap(true) {
		return
	}
	if err := e.machine.Ensure(status.Degraded, reason); err != nil {
		e.logger.Debug("state not changed", zap.Error(err))
	}
}

// restore returns the daemon to READY if the bridge was the one that
// degraded it.
func (e *Engine) restore() {
	if e.machine == nil || !e.degraded.Swap(false) {
		return
	}
	if e.machine.Current() != status.Degraded {
		return
	}
	if err := e.machine.Ensure(status.Ready, ""); err != nil {
		e.logger.Debug("state not changed", zap.Error(err))
	}
}
