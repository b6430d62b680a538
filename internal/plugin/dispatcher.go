package plugin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/store"
)

// Bindings looks up the plugin actions bound to an event.
type Bindings interface {
	ListForEvent(event, exercise string) ([]*store.Action, error)
}

// Dispatcher turns tracker results into plugin runs. Fault and feedback
// events repeat while a person holds a position, so each is announced at most
// once per cooldown for a session.
type Dispatcher struct {
	plugins  *Manager
	executor *Executor
	bindings Bindings
	metrics  *metrics.Manager
	cooldown time.Duration

	mu       sync.Mutex
	sent     map[string]time.Time
	messages map[string]string
	now      func() time.Time

	group errgroup.Group
}

// DispatcherConfig holds the optional Dispatcher settings.
type DispatcherConfig struct {
	Cooldown time.Duration
	// MaxRunning bounds concurrent plugin runs started by Notify.
	MaxRunning int
	Metrics    *metrics.Manager
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(plugins *Manager, executor *Executor, bindings Bindings, cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxRunning <= 0 {
		cfg.MaxRunning = 4
	}
	d := &Dispatcher{
		plugins:  plugins,
		executor: executor,
		bindings: bindings,
		metrics:  cfg.Metrics,
		cooldown: cfg.Cooldown,
		sent:     make(map[string]time.Time),
		messages: make(map[string]string),
		now:      time.Now,
	}
	d.group.SetLimit(cfg.MaxRunning)
	return d
}

// Requests returns the plugin requests a result raises for a session, before
// any binding lookup. Calling it records the result's message as seen.
func (d *Dispatcher) Requests(sessionID string, res exercise.Result) []Request {
	base := Request{
		Exercise:  string(res.Exercise),
		MessageID: res.Message.ID,
		Text:      res.Feedback,
		Severity:  string(res.Severity),
		Reps:      res.Reps,
	}

	var out []Request
	// limit names the cooldown slot; empty means always sent.
	add := func(event string, fault exercise.Fault, limit string) {
		if limit != "" && !d.allow(sessionID+"|"+event+"|"+limit) {
			return
		}
		r := base
		r.Event = event
		r.Fault = string(fault)
		out = append(out, r)
	}

	if res.RepCounted {
		add(EventRepComplete, "", "")
	}
	if res.RepRejected {
		add(EventRepInvalid, "", "")
	}
	for _, f := range res.Faults {
		add(EventFault, f, string(f))
	}

	d.mu.Lock()
	changed := !res.Message.IsZero() && d.messages[sessionID] != res.Message.ID
	d.messages[sessionID] = res.Message.ID
	d.mu.Unlock()
	if changed {
		add(EventFeedback, "", res.Message.ID)
	}

	return out
}

func (d *Dispatcher) allow(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.sent[key]; ok && now.Sub(last) < d.cooldown {
		return false
	}
	d.sent[key] = now
	return true
}

// Forget drops the per-session state of a closed session.
func (d *Dispatcher) Forget(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.messages, sessionID)
	prefix := sessionID + "|"
	for key := range d.sent {
		if strings.HasPrefix(key, prefix) {
			delete(d.sent, key)
		}
	}
}

// Dispatch runs every action bound to the events raised by res and waits for
// them. It returns the number of actions that ran successfully.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, res exercise.Result) (int, error) {
	ok := 0
	var errs []error
	for _, req := range d.Requests(sessionID, res) {
		n, err := d.run(ctx, req)
		ok += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return ok, errors.Join(errs...)
}

// Notify dispatches res in the background. When MaxRunning dispatches are
// already in flight the result is dropped.
func (d *Dispatcher) Notify(ctx context.Context, sessionID string, res exercise.Result) {
	if !res.RepCounted && !res.RepRejected && len(res.Faults) == 0 && res.Message.IsZero() {
		return
	}
	started := d.group.TryGo(func() error {
		if _, err := d.Dispatch(ctx, sessionID, res); err != nil {
			log.WithError(err).WithField("session", sessionID).Warn("plugin dispatch failed")
		}
		return nil
	})
	if !started {
		log.WithField("session", sessionID).Debug("plugin dispatcher busy, dropping result")
	}
}

// Wait blocks until every background dispatch has finished.
func (d *Dispatcher) Wait() {
	_ = d.group.Wait()
}

func (d *Dispatcher) run(ctx context.Context, req Request) (int, error) {
	actions, err := d.bindings.ListForEvent(req.Event, req.Exercise)
	if err != nil {
		return 0, err
	}

	ok := 0
	var errs []error
	for _, action := range actions {
		plugin, err := d.plugins.Get(action.PluginName)
		if err != nil {
			d.count(action.PluginName, "missing")
			errs = append(errs, err)
			continue
		}

		r := req
		r.Action = action.ActionName
		r.Config = action.Config

		resp, err := d.executor.Execute(ctx, plugin, &r)
		logger := log.WithFields(log.Fields{
			"plugin": action.PluginName,
			"action": action.ActionName,
			"event":  req.Event,
		})
		switch {
		case err != nil:
			d.count(action.PluginName, "error")
			logger.WithError(err).Warn("plugin run failed")
			errs = append(errs, err)
		case !resp.Success:
			d.count(action.PluginName, "failed")
			logger.WithField("error", resp.Error).Warn("plugin reported failure")
		default:
			d.count(action.PluginName, "ok")
			logger.Debug("plugin ran")
			ok++
		}
	}
	return ok, errors.Join(errs...)
}

func (d *Dispatcher) count(plugin, result string) {
	if d.metrics != nil {
		d.metrics.CounterPluginRuns.WithLabelValues(plugin, result).Inc()
	}
}
