package monitor

import "sync"

// entry guards one monitor. Entries are never removed, so the per-id lock
// stays stable across re-registration.
type entry struct {
	mutex   sync.Mutex
	present bool
	monitor Monitor
}

// Store is the concurrent monitor registry. The map lock is only held to
// find or create an entry; record mutations hold the entry lock.
type Store struct {
	mutex   sync.RWMutex
	entries map[string]*entry
	order   []string
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
	}
}

// Put replaces the record for m.ID.
func (s *Store) Put(m Monitor) {
	e := s.getOrCreate(m.ID)

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.monitor = m
	e.present = true
}

// Get returns a copy of the record.
func (s *Store) Get(id string) (Monitor, bool) {
	e := s.lookup(id)
	if e == nil {
		return Monitor{}, false
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.monitor, e.present
}

func (s *Store) Has(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// List returns copies of all records in first-registration order.
func (s *Store) List() []Monitor {
	s.mutex.RLock()
	entries := make([]*entry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.entries[id])
	}
	s.mutex.RUnlock()

	monitors := make([]Monitor, 0, len(entries))
	for _, e := range entries {
		e.mutex.Lock()
		if e.present {
			monitors = append(monitors, e.monitor)
		}
		e.mutex.Unlock()
	}

	return monitors
}

// Update applies fn to the record under its lock. Changes are kept only if
// fn returns nil. It returns ErrNotFound for unknown ids.
func (s *Store) Update(id string, fn func(m *Monitor) error) error {
	e := s.lookup(id)
	if e == nil {
		return ErrNotFound
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.present {
		return ErrNotFound
	}

	m := e.monitor
	if err := fn(&m); err != nil {
		return err
	}
	e.monitor = m

	return nil
}

// Upsert is Update that also runs for absent ids, with exists set to false.
func (s *Store) Upsert(id string, fn func(m *Monitor, exists bool) error) error {
	e := s.getOrCreate(id)

	e.mutex.Lock()
	defer e.mutex.Unlock()

	m := e.monitor
	if err := fn(&m, e.present); err != nil {
		return err
	}
	e.monitor = m
	e.present = true

	return nil
}

func (s *Store) lookup(id string) *entry {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.entries[id]
}

func (s *Store) getOrCreate(id string) *entry {
	if e := s.lookup(id); e != nil {
		return e
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Double-check: another goroutine may have created it.
	if e, ok := s.entries[id]; ok {
		return e
	}

	e := &entry{}
	s.entries[id] = e
	s.order = append(s.order, id)
	return e
}
