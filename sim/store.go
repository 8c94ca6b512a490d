package sim

import (
	"github.com/sirupsen/logrus"
)

// Store owns every buffer of a simulation, indexed by name and by handle.
// It is not safe for concurrent use; the single-writer rule between
// operators is enforced by Graph at registration time.
type Store struct {
	domain  Domain
	buffers []*Buffer
	index   map[string]Handle
	device  Device
	metrics *Metrics
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithDevice sets the device that owns buffer storage. Defaults to HostDevice.
func WithDevice(d Device) StoreOption {
	return func(s *Store) { s.device = d }
}

// WithStoreMetrics attaches prometheus instrumentation.
func WithStoreMetrics(m *Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates an empty store for buffers laid out on domain.
func NewStore(domain Domain, opts ...StoreOption) *Store {
	s := &Store{
		domain: Domain{
			Shape:           append([]int(nil), domain.Shape...),
			ReciprocalShape: append([]int(nil), domain.ReciprocalShape...),
		},
		index:  make(map[string]Handle),
		device: HostDevice{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Domain returns the store's sample layout.
func (s *Store) Domain() Domain { return s.domain }

// Declare creates a zero-initialized buffer.
func (s *Store) Declare(name string, kind ValueKind, reciprocal bool, opts ...BufferOption) (Handle, error) {
	if _, exists := s.index[name]; exists {
		return -1, &DuplicateNameError{Kind: "buffer", Name: name}
	}
	shape := s.domain.StateShape(kind, reciprocal)
	b := &Buffer{
		name:         name,
		handle:       Handle(len(s.buffers)),
		kind:         kind,
		reciprocal:   reciprocal,
		trackHistory: true,
	}
	if reciprocal {
		b.state = NewArray[complex128](shape...)
	} else {
		b.state = NewArray[float64](shape...)
	}
	for _, opt := range opts {
		opt(b)
	}
	s.buffers = append(s.buffers, b)
	s.index[name] = b.handle
	logrus.Debugf("declared buffer %q kind=%s reciprocal=%v shape=%v", name, kind, reciprocal, shape)
	return b.handle, nil
}

// Lookup returns the handle of a declared buffer.
func (s *Store) Lookup(name string) (Handle, error) {
	h, ok := s.index[name]
	if !ok {
		return -1, &UnknownBufferError{Name: name}
	}
	return h, nil
}

// Has reports whether name is declared.
func (s *Store) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Get returns the shared buffer instance for name.
func (s *Store) Get(name string) (*Buffer, error) {
	h, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	return s.buffers[h], nil
}

// At returns the buffer for a handle obtained from this store.
func (s *Store) At(h Handle) *Buffer { return s.buffers[h] }

// Len returns the number of declared buffers.
func (s *Store) Len() int { return len(s.buffers) }

// Names returns buffer names in declaration order.
func (s *Store) Names() []string {
	names := make([]string, len(s.buffers))
	for i, b := range s.buffers {
		names[i] = b.name
	}
	return names
}

// Real returns the real-space state of name.
func (s *Store) Real(name string) (*Array[float64], error) {
	b, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if b.reciprocal {
		return nil, &SpaceMismatchError{Buffer: name, WantReciprocal: false}
	}
	return b.Real(), nil
}

// Spectrum returns the reciprocal-space state of name.
func (s *Store) Spectrum(name string) (*Array[complex128], error) {
	b, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if !b.reciprocal {
		return nil, &SpaceMismatchError{Buffer: name, WantReciprocal: true}
	}
	return b.Spectrum(), nil
}

// RequestHistory raises the retained history depth of name to at least depth
// and returns the live history ring. The ring is empty until Advance is called.
func (s *Store) RequestHistory(name string, depth int) (*History, error) {
	b, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if !b.trackHistory {
		return nil, &HistoryDisabledError{Buffer: name}
	}
	b.history.raise(depth)
	return &b.history, nil
}

// Advance rotates the current state of name into history slot 0 and returns
// the number of occupied slots. It is a no-op returning 0 when no history
// was ever requested.
func (s *Store) Advance(name string) (int, error) {
	b, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	n, err := b.history.push(b.state)
	if err != nil {
		return n, err
	}
	s.metrics.observeHistoryDepth(name, n)
	return n, nil
}

// MaterializeHostCopy marks name as needing a host-resident copy. The copy is
// produced by SyncHostCopies at the end of each evaluation cycle.
func (s *Store) MaterializeHostCopy(name string) error {
	b, err := s.Get(name)
	if err != nil {
		return err
	}
	b.wantHost = true
	return nil
}

// SyncHostCopies refreshes every requested host copy from the authoritative
// state. A failed transfer keeps the previous copy; it is fatal only when no
// previous copy exists.
func (s *Store) SyncHostCopies() error {
	for _, b := range s.buffers {
		if !b.wantHost {
			continue
		}
		copied, err := s.device.ToHost(b.host, b.state)
		if err != nil {
			s.metrics.countTransferFailure(b.name)
			if b.host == nil {
				return &PlatformTransferError{Buffer: b.name, Err: err}
			}
			logrus.Warnf("keeping stale host copy of %q: transfer from %s failed: %v", b.name, s.device.Name(), err)
			continue
		}
		b.host = copied
	}
	return nil
}
