// Package control implements runtime parameter configuration of live
// pipeline instances: command parsing, parameter validation, stage
// resolution and optional replay of the last applied values onto instances
// built later.
package control

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/rpirtspd/internal/events"
	"github.com/smazurov/rpirtspd/internal/logging"
	"github.com/smazurov/rpirtspd/internal/metrics"
	"github.com/smazurov/rpirtspd/internal/params"
)

// Result is the outcome of one directive.
type Result struct {
	Kind     DirectiveKind
	Token    string
	Stream   string
	Role     string
	Key      string
	Value    string
	Applied  bool
	Recorded bool
	Err      error
}

// Options configures a Controller.
type Options struct {
	Registry  *params.Registry
	Store     *OptionStore
	Instances *InstanceRegistry
	EventBus  *events.Bus
}

// Controller is the single entry point for configuration commands and for
// instance construction notifications. One mutex serializes all of them.
type Controller struct {
	mu sync.Mutex

	registry  *params.Registry
	resolver  *Resolver
	store     *OptionStore
	instances *InstanceRegistry
	eventBus  *events.Bus
	logger    *slog.Logger
}

// NewController creates a controller. Missing collaborators get defaults:
// the stock registry, a disabled option store and an empty instance registry.
func NewController(opts Options) *Controller {
	if opts.Registry == nil {
		opts.Registry = params.DefaultRegistry()
	}
	if opts.Store == nil {
		opts.Store = NewOptionStore(false)
	}
	if opts.Instances == nil {
		opts.Instances = NewInstanceRegistry()
	}
	return &Controller{
		registry:  opts.Registry,
		resolver:  NewResolver(opts.Registry),
		store:     opts.Store,
		instances: opts.Instances,
		eventBus:  opts.EventBus,
		logger:    logging.GetLogger("control"),
	}
}

// Configure processes a command. It returns true once the command has been
// tokenized; individual directive failures are logged, not returned.
func (c *Controller) Configure(command string) bool {
	c.Apply(command)
	return true
}

// Apply processes a command and returns the outcome of every directive in
// source order.
func (c *Controller) Apply(command string) []Result {
	directives := Tokenize(command)

	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		stream string
		inst   params.Instance
	)

	results := make([]Result, 0, len(directives))
	for _, d := range directives {
		res := Result{Kind: d.Kind, Token: d.Token, Stream: stream}

		switch d.Kind {
		case Malformed:
			res.Err = d.Err
			c.logger.Warn("Discarding directive", "token", d.Token, "error", d.Err)
			c.reject(res)

		case Reset:
			cleared := c.store.Clear()
			res.Applied = true
			metrics.IncDirective(metrics.OutcomeReset)
			metrics.SetStoredOptions(c.store.Len())
			if c.store.Enabled() {
				c.logger.Info("Stored options cleared", "count", cleared)
				c.publish(events.OptionsResetEvent{Cleared: cleared, Timestamp: now()})
			}

		case SelectStream:
			stream = d.Stream
			res.Stream = stream
			var ok bool
			inst, ok = c.instances.Lookup(stream)
			if !ok {
				inst = nil
				c.logger.Debug("No active instance", "stream", stream)
			}
			res.Applied = ok
			metrics.IncDirective(metrics.OutcomeSelect)

		case SetParam:
			res.Key, res.Value = d.Key, d.Value
			c.setParam(&res, stream, inst)
		}

		results = append(results, res)
	}

	return results
}

func (c *Controller) setParam(res *Result, stream string, inst params.Instance) {
	role, err := c.resolver.Role(res.Key)
	if err != nil {
		res.Err = err
		c.logger.Warn("Parameter not found", "stream", stream, "key", res.Key, "value", res.Value)
		c.reject(*res)
		return
	}
	res.Role = role.String()

	err = c.resolver.Apply(stream, inst, role, res.Key, res.Value)
	if !errors.Is(err, ErrTypeCoercionFailed) && c.store.Enabled() {
		c.store.Record(res.Key, res.Value)
		res.Recorded = true
		metrics.SetStoredOptions(c.store.Len())
	}

	if err != nil {
		res.Err = err
		if errors.Is(err, ErrTypeCoercionFailed) {
			c.logger.Warn("Parameter rejected", "stream", stream, "key", res.Key, "value", res.Value, "error", err)
		} else {
			c.logger.Debug("Parameter not applied", "stream", stream, "key", res.Key, "error", err)
		}
		c.reject(*res)
		return
	}

	res.Applied = true
	c.logger.Debug("Parameter applied", "stream", stream, "role", res.Role, "key", res.Key, "value", res.Value)
	metrics.IncDirective(metrics.OutcomeApplied)
	c.publish(events.ParameterAppliedEvent{
		Stream:    stream,
		Role:      res.Role,
		Key:       res.Key,
		Value:     res.Value,
		Timestamp: now(),
	})
}

// OnInstanceCreated registers a freshly built instance for stream and, when
// persistence is enabled, replays stored options onto it. It returns the
// number of options applied. Call it before the instance serves clients.
func (c *Controller) OnInstanceCreated(stream string, inst params.Instance) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.instances.Register(stream, inst)

	applied := 0
	for _, res := range c.store.ReplayOnto(stream, inst, c.resolver) {
		switch {
		case res.Err == nil:
			applied++
			c.logger.Debug("Replayed option", "stream", stream, "key", res.Key, "value", res.Value)
			c.publish(events.ParameterAppliedEvent{
				Stream:    stream,
				Role:      res.Role,
				Key:       res.Key,
				Value:     res.Value,
				Replay:    true,
				Timestamp: now(),
			})
		case skippable(res.Err):
			c.logger.Debug("Skipping stored option", "stream", stream, "key", res.Key, "error", res.Err)
		default:
			c.logger.Warn("Stored option not replayed", "stream", stream, "key", res.Key, "error", res.Err)
		}
	}
	metrics.AddReplayed(stream, applied)

	var roles []string
	if r, ok := inst.(interface{ Roles() []params.Role }); ok {
		for _, role := range r.Roles() {
			roles = append(roles, role.String())
		}
	}

	c.logger.Info("Instance registered", "stream", stream, "replayed", applied)
	c.publish(events.InstanceCreatedEvent{
		Stream:    stream,
		Roles:     roles,
		Replayed:  applied,
		Timestamp: now(),
	})
	return applied
}

// Instance returns the instance registered for stream.
func (c *Controller) Instance(stream string) (params.Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instances.Lookup(stream)
}

// Streams returns the names of streams that have had an instance registered.
func (c *Controller) Streams() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instances.Streams()
}

// StoredOptions returns the persisted options in replay order.
func (c *Controller) StoredOptions() []StoredOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Options()
}

// PersistEnabled reports whether options are kept for replay.
func (c *Controller) PersistEnabled() bool {
	return c.store.Enabled()
}

// Registry returns the parameter registry.
func (c *Controller) Registry() *params.Registry {
	return c.registry
}

func (c *Controller) reject(res Result) {
	metrics.IncDirective(Reason(res.Err))
	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}
	c.publish(events.DirectiveRejectedEvent{
		Stream:    res.Stream,
		Token:     res.Token,
		Reason:    Reason(res.Err),
		Error:     errText,
		Timestamp: now(),
	})
}

func (c *Controller) publish(ev events.Event) {
	if c.eventBus != nil {
		c.eventBus.Publish(ev)
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
