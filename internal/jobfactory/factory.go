package jobfactory

import (
	"fmt"

	"github.com/jholhewres/goquartz/internal/store"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// UnknownPropertyBehavior controls what the property-setting strategy does
// when a merged data map key does not correspond to a writable field.
type UnknownPropertyBehavior int

const (
	// Ignore silently skips unmatched keys.
	Ignore UnknownPropertyBehavior = iota
	// Warn logs unmatched keys through the factory's logger, if set.
	Warn
	// Throw fails NewJob when any key is unmatched.
	Throw
)

// Registry maps a job type identifier to a constructor.
type Registry struct {
	ctors map[string]func() Job
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]func() Job)}
}

// Register associates typeID with a constructor. Re-registering the same
// typeID overwrites the previous constructor.
func (r *Registry) Register(typeID string, ctor func() Job) {
	r.ctors[typeID] = ctor
}

// TypeIDs returns every registered job type identifier, for callers (e.g.
// an interactive job-creation wizard) that need to present the known
// types to an operator.
func (r *Registry) TypeIDs() []string {
	ids := make([]string, 0, len(r.ctors))
	for id := range r.ctors {
		ids = append(ids, id)
	}
	return ids
}

// Factory builds Job instances for fired trigger bundles.
type Factory struct {
	registry         *Registry
	bindProperties   bool
	unknownBehavior  UnknownPropertyBehavior
	warnFn           func(key string)
}

// Option configures a Factory.
type Option func(*Factory)

// WithPropertyBinding enables the property-setting strategy: after
// construction, the merged job data map (job detail data, with trigger data
// winning on key collision) is bound onto the instance's settable fields,
// named by a `job:"..."` tag or else by Go field name. No scheduler-context
// data is merged in.
func WithPropertyBinding(behavior UnknownPropertyBehavior) Option {
	return func(f *Factory) {
		f.bindProperties = true
		f.unknownBehavior = behavior
	}
}

// WithWarnFunc sets the callback invoked for each unmatched key when
// UnknownPropertyBehavior is Warn.
func WithWarnFunc(fn func(key string)) Option {
	return func(f *Factory) { f.warnFn = fn }
}

// NewFactory returns a Factory backed by registry.
func NewFactory(registry *Registry, opts ...Option) *Factory {
	f := &Factory{registry: registry}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewJob constructs a Job for bundle's job type, optionally binding the
// merged data map onto the instance when property binding is enabled.
func (f *Factory) NewJob(bundle store.TriggerFiredBundle) (Job, error) {
	ctor, ok := f.registry.ctors[bundle.JobDetail.TypeID]
	if !ok {
		return nil, fmt.Errorf("jobfactory: no constructor registered for job type %q", bundle.JobDetail.TypeID)
	}
	instance := ctor()

	if !f.bindProperties {
		return instance, nil
	}

	merged := mergeJobData(bundle.JobDetail.JobData, bundle.Trigger.JobData())
	if err := bindProperties(instance, merged, f.unknownBehavior, f.warnFn); err != nil {
		return nil, err
	}
	return instance, nil
}

// mergeJobData layers trigger data over job detail data, trigger data
// winning on key collision — matching Quartz's merge order (detail, then
// trigger).
func mergeJobData(detail, trig trigger.JobDataMap) trigger.JobDataMap {
	out := make(trigger.JobDataMap, len(detail)+len(trig))
	for k, v := range detail {
		out[k] = v
	}
	for k, v := range trig {
		out[k] = v
	}
	return out
}
