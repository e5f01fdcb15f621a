// Package factory implements the plugin Repository: a registry of
// (service_type, id, constructor) triples, lazily-loaded metadata, and
// the factory_* lookup-and-construct entry points (spec §4.12).
package factory

import (
	"sync"

	"github.com/mltgo/mlt/internal/consumer"
	"github.com/mltgo/mlt/internal/errs"
	"github.com/mltgo/mlt/internal/filter"
	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/mltgo/mlt/internal/svc"
	"github.com/mltgo/mlt/internal/transition"
	"gopkg.in/yaml.v2"
)

// ProducerConstructor builds a producer for id given arg (spec §4.12).
type ProducerConstructor func(p profile.Profile, id, arg string) (producer.Producer, error)

// FilterConstructor builds a filter for id given arg.
type FilterConstructor func(p profile.Profile, id, arg string) (svc.AttachedFilter, error)

// TransitionConstructor builds a transition for id given arg.
type TransitionConstructor func(p profile.Profile, id, arg string) (*transition.Transition, error)

// ConsumerConstructor builds a consumer for id given arg.
type ConsumerConstructor func(p profile.Profile, id, arg string) (*consumer.Consumer, error)

// ServiceMetadata describes a registered service's declared parameters,
// loaded lazily from a YAML side file so the loader can introspect a
// service without constructing it (spec §4.12 last bullet).
type ServiceMetadata struct {
	ID          string            `yaml:"id"`
	Kind        string            `yaml:"kind"`
	Description string            `yaml:"description,omitempty"`
	Parameters  map[string]string `yaml:"parameters,omitempty"`
}

// metadataFile is the on-disk shape of a metadata side file: one
// document per registered id.
type metadataFile struct {
	Services []ServiceMetadata `yaml:"services"`
}

// Repository is the plugin registry: a startup-time scan registers
// constructors; lookups thereafter are read-only (spec §5 "Factory
// state... initialised once and thereafter read-only").
type Repository struct {
	mu sync.RWMutex

	producers   map[string]ProducerConstructor
	filters     map[string]FilterConstructor
	transitions map[string]TransitionConstructor
	consumers   map[string]ConsumerConstructor

	metadataOnce sync.Once
	metadataPath string
	metadata     map[string]ServiceMetadata
}

// New returns an empty repository. metadataPath, if non-empty, is read
// lazily on first MetadataFor/AllMetadata call.
func New(metadataPath string) *Repository {
	return &Repository{
		producers:    make(map[string]ProducerConstructor),
		filters:      make(map[string]FilterConstructor),
		transitions:  make(map[string]TransitionConstructor),
		consumers:    make(map[string]ConsumerConstructor),
		metadataPath: metadataPath,
	}
}

// RegisterProducer registers a producer constructor under id. Calling
// this more than once for the same id is a programmer error, not a
// runtime condition: it panics at program-wiring time rather than
// silently replacing the prior registration (§10 Open Question 1).
func (r *Repository) RegisterProducer(id string, ctor ProducerConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.producers[id]; dup {
		panic("factory: producer already registered: " + id)
	}
	r.producers[id] = ctor
}

// RegisterFilter registers a filter constructor under id, panicking on
// a duplicate id (see RegisterProducer).
func (r *Repository) RegisterFilter(id string, ctor FilterConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.filters[id]; dup {
		panic("factory: filter already registered: " + id)
	}
	r.filters[id] = ctor
}

// RegisterTransition registers a transition constructor under id,
// panicking on a duplicate id (see RegisterProducer).
func (r *Repository) RegisterTransition(id string, ctor TransitionConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.transitions[id]; dup {
		panic("factory: transition already registered: " + id)
	}
	r.transitions[id] = ctor
}

// RegisterConsumer registers a consumer constructor under id, panicking
// on a duplicate id (see RegisterProducer).
func (r *Repository) RegisterConsumer(id string, ctor ConsumerConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.consumers[id]; dup {
		panic("factory: consumer already registered: " + id)
	}
	r.consumers[id] = ctor
}

// HasProducer reports whether id is a registered plugin producer
// (used by the loader to decide whether to defer to itself, §4.13).
func (r *Repository) HasProducer(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.producers[id]
	return ok
}

// FactoryProducer looks up id and invokes its constructor with
// (profile, id, arg); failure to find or construct returns an error
// (spec §4.12's "construction failure returns null").
func (r *Repository) FactoryProducer(p profile.Profile, id, arg string) (producer.Producer, error) {
	r.mu.RLock()
	ctor, ok := r.producers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	return ctor(p, id, arg)
}

// FactoryFilter is FactoryProducer's counterpart for filters.
func (r *Repository) FactoryFilter(p profile.Profile, id, arg string) (svc.AttachedFilter, error) {
	r.mu.RLock()
	ctor, ok := r.filters[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	return ctor(p, id, arg)
}

// FactoryTransition is FactoryProducer's counterpart for transitions.
func (r *Repository) FactoryTransition(p profile.Profile, id, arg string) (*transition.Transition, error) {
	r.mu.RLock()
	ctor, ok := r.transitions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	return ctor(p, id, arg)
}

// FactoryConsumer is FactoryProducer's counterpart for consumers.
func (r *Repository) FactoryConsumer(p profile.Profile, id, arg string) (*consumer.Consumer, error) {
	r.mu.RLock()
	ctor, ok := r.consumers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	return ctor(p, id, arg)
}

// loadMetadata parses r.metadataPath once; a missing or empty path
// leaves metadata empty and every MetadataFor call returns not-found.
func (r *Repository) loadMetadata(readFile func(string) ([]byte, error)) {
	r.metadataOnce.Do(func() {
		r.metadata = make(map[string]ServiceMetadata)
		if r.metadataPath == "" {
			return
		}
		raw, err := readFile(r.metadataPath)
		if err != nil {
			return
		}
		var mf metadataFile
		if err := yaml.Unmarshal(raw, &mf); err != nil {
			return
		}
		for _, m := range mf.Services {
			r.metadata[m.ID] = m
		}
	})
}

// MetadataFor returns id's declared metadata, reading the side file on
// first use via readFile (injected so callers choose the filesystem
// access pattern, e.g. os.ReadFile or an embedded fs.FS).
func (r *Repository) MetadataFor(id string, readFile func(string) ([]byte, error)) (ServiceMetadata, error) {
	r.loadMetadata(readFile)
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metadata[id]
	if !ok {
		return ServiceMetadata{}, errs.ErrNotFound
	}
	return m, nil
}

// RegisterChannelConform registers the built-in ATSC A/52-capable
// channel-layout converter under the given id (supplemented
// feature, SPEC_FULL.md §4.x).
func (r *Repository) RegisterChannelConform(id string, targetChannels int) {
	r.RegisterFilter(id, func(p profile.Profile, svcID, arg string) (svc.AttachedFilter, error) {
		return filter.NewChannelConform(targetChannels), nil
	})
}
