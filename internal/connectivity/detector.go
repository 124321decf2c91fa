// Package connectivity decides whether the application is online and fires
// a single notification per genuine offline-to-online transition.
package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmaytorres/trackvault/internal/constants"
	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/logger"
)

// Prober checks reachability of the remote service. A nil error means the
// network path is up.
type Prober func(ctx context.Context) error

// HTTPProber probes the given URL with a HEAD request.
func HTTPProber(url string) Prober {
	client := &http.Client{Timeout: constants.DefaultProbeTimeout}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
		}
		resp.Body.Close()
		return nil
	}
}

// Detector owns the connectivity state machine. Inputs: a periodic probe,
// the authentication signal and the user's manual override. The manual
// override takes precedence over probe results while active.
type Detector struct {
	probe    Prober
	interval time.Duration
	logger   *logger.Logger

	mu sync.Mutex
	// generation invalidates in-flight probe results from a stopped cycle:
	// a result that lands after a newer Start discards itself.
	generation    int
	networkUp     bool
	authenticated bool
	manualOffline bool
	online        bool

	nextSubID int
	subs      map[int]chan domain.ConnState
	onOnline  []func()

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDetector(probe Prober, interval time.Duration, log *logger.Logger) *Detector {
	if log == nil {
		log = logger.Default()
	}
	return &Detector{
		probe:    probe,
		interval: interval,
		logger:   log.WithComponent("connectivity"),
		subs:     make(map[int]chan domain.ConnState),
	}
}

// Start begins periodic probing. Restarting stops the previous loop and
// bumps the generation so late results from the old cycle are ignored.
func (d *Detector) Start() {
	if d.cancel != nil {
		d.cancel()
		d.wg.Wait()
	}

	d.mu.Lock()
	d.generation++
	gen := d.generation
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(1)
	go d.probeLoop(ctx, gen)
}

func (d *Detector) Stop() {
	d.mu.Lock()
	d.generation++
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Detector) probeLoop(ctx context.Context, gen int) {
	defer d.wg.Done()

	d.runProbe(ctx, gen)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runProbe(ctx, gen)
		}
	}
}

func (d *Detector) runProbe(ctx context.Context, gen int) {
	err := d.probe(ctx)
	if ctx.Err() != nil {
		return
	}

	d.mu.Lock()
	if gen != d.generation {
		// A newer start/stop cycle owns the state now.
		d.mu.Unlock()
		return
	}
	d.networkUp = err == nil
	d.recomputeLocked()
	d.mu.Unlock()
}

// ProbeNow forces an immediate connectivity check.
func (d *Detector) ProbeNow(ctx context.Context) {
	d.mu.Lock()
	gen := d.generation
	d.mu.Unlock()
	d.runProbe(ctx, gen)
}

// SetAuthenticated feeds the session status signal.
func (d *Detector) SetAuthenticated(ok bool) {
	d.mu.Lock()
	d.authenticated = ok
	d.recomputeLocked()
	d.mu.Unlock()
}

// SetManualOffline toggles the user's explicit offline mode.
func (d *Detector) SetManualOffline(offline bool) {
	d.mu.Lock()
	d.manualOffline = offline
	d.recomputeLocked()
	d.mu.Unlock()
}

// State returns the current connectivity mode.
func (d *Detector) State() domain.ConnState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stateLocked()
}

func (d *Detector) stateLocked() domain.ConnState {
	switch {
	case d.manualOffline:
		return domain.ConnState{Online: false, Reason: domain.ReasonManualOverride}
	case !d.networkUp:
		return domain.ConnState{Online: false, Reason: domain.ReasonNoNetwork}
	case !d.authenticated:
		return domain.ConnState{Online: false, Reason: domain.ReasonNotAuthenticated}
	default:
		return domain.ConnState{Online: true}
	}
}

// recomputeLocked re-derives the mode and fires notifications only on a
// genuine edge. Repeated polls confirming the same state change nothing.
func (d *Detector) recomputeLocked() {
	state := d.stateLocked()
	if state.Online == d.online {
		return
	}
	d.online = state.Online

	if state.Online {
		d.logger.Info("Became online")
	} else {
		d.logger.Info("Became offline", "reason", state.Reason)
	}

	for _, ch := range d.subs {
		select {
		case ch <- state:
		default:
		}
	}

	if state.Online {
		// The sole trigger for reconciliation: exactly one call per
		// offline-to-online edge.
		for _, fn := range d.onOnline {
			go fn()
		}
	}
}

// Subscribe registers a status listener.
func (d *Detector) Subscribe() (int, <-chan domain.ConnState) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSubID++
	id := d.nextSubID
	ch := make(chan domain.ConnState, 8)
	d.subs[id] = ch
	return id, ch
}

func (d *Detector) Unsubscribe(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ch, ok := d.subs[id]; ok {
		delete(d.subs, id)
		close(ch)
	}
}

// OnOnline registers a callback invoked once per offline-to-online
// transition. Register before Start.
func (d *Detector) OnOnline(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onOnline = append(d.onOnline, fn)
}
