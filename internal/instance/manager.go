package instance

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/meridian-games/arena/internal/mapcatalog"
)

// ErrUnknownMap is returned by Get when the catalog has no maps loaded at
// all, so mapID cannot be resolved to anything, not even a default.
var ErrUnknownMap = errors.New("instance: no maps loaded")

// Manager owns every live Instance, creating one lazily the first time a
// map id is joined and keeping it running indefinitely afterward. The map
// id itself is the routing key; there is no capacity ceiling on instances.
type Manager struct {
	catalog     *mapcatalog.Catalog
	broadcaster Broadcaster
	tickRate    int
	log         *logrus.Entry

	mu        sync.Mutex
	instances map[string]*Instance
}

// NewManager returns a Manager with no instances running yet.
func NewManager(catalog *mapcatalog.Catalog, broadcaster Broadcaster, tickRate int) *Manager {
	return &Manager{
		catalog:     catalog,
		broadcaster: broadcaster,
		tickRate:    tickRate,
		log:         logrus.WithField("system", "instance-manager"),
		instances:   make(map[string]*Instance),
	}
}

// Get returns the running instance for mapID, creating and starting it if
// this is the first request for that map. mapID is resolved through the
// catalog first (empty or unknown ids fall back to the default map), so
// the Manager always keys instances by a real map id.
func (m *Manager) Get(mapID string) (*Instance, error) {
	desc, ok := m.catalog.Resolve(mapID)
	if !ok {
		return nil, fmt.Errorf("%w: cannot resolve %q", ErrUnknownMap, mapID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if in, ok := m.instances[desc.ID]; ok {
		return in, nil
	}

	in := New(desc.ID, desc, m.tickRate, m.broadcaster)
	m.instances[desc.ID] = in
	in.Start()
	m.log.WithField("map", desc.ID).Info("instance created")
	return in, nil
}

// Find returns the instance id currently holds a player in, if any, without
// creating anything. Used by the router to decide whether an "in" or "chat"
// message is instance-scoped.
func (m *Manager) Find(id string) (*Instance, bool) {
	m.mu.Lock()
	instances := make([]*Instance, 0, len(m.instances))
	for _, in := range m.instances {
		instances = append(instances, in)
	}
	m.mu.Unlock()

	for _, in := range instances {
		if in.IsMember(id) {
			return in, true
		}
	}
	return nil, false
}

// StopAll signals every instance to stop and waits for each tick loop to
// exit, used during server shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	instances := make([]*Instance, 0, len(m.instances))
	for _, in := range m.instances {
		instances = append(instances, in)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, in := range instances {
		wg.Add(1)
		go func(in *Instance) {
			defer wg.Done()
			in.Stop()
		}(in)
	}
	wg.Wait()
}
