package sim

// Handle is a store-scoped index of a declared buffer. Operators keep handles,
// never buffer pointers of their own.
type Handle int

// Buffer is a named field with a current state, an optional host copy and a
// bounded history of past states.
type Buffer struct {
	name       string
	handle     Handle
	kind       ValueKind
	reciprocal bool
	state      Tensor

	trackHistory bool
	history      History

	wantHost bool
	host     Tensor
}

// BufferOption customizes a buffer at declaration time.
type BufferOption func(*Buffer)

// WithoutHistory disables history tracking for the buffer.
func WithoutHistory() BufferOption {
	return func(b *Buffer) { b.trackHistory = false }
}

// Name returns the buffer's store-unique name.
func (b *Buffer) Name() string { return b.name }

// Handle returns the buffer's index in its store.
func (b *Buffer) Handle() Handle { return b.handle }

// Kind returns the value kind.
func (b *Buffer) Kind() ValueKind { return b.kind }

// Reciprocal reports whether the buffer lives in reciprocal space.
func (b *Buffer) Reciprocal() bool { return b.reciprocal }

// State returns the current state.
func (b *Buffer) State() Tensor { return b.state }

// Shape returns the state shape (domain ++ value shape).
func (b *Buffer) Shape() []int { return b.state.Shape() }

// Real returns the real-space state, or nil for a reciprocal buffer.
func (b *Buffer) Real() *Array[float64] {
	a, _ := b.state.(*Array[float64])
	return a
}

// Spectrum returns the reciprocal-space state, or nil for a real buffer.
func (b *Buffer) Spectrum() *Array[complex128] {
	a, _ := b.state.(*Array[complex128])
	return a
}

// History returns the live history ring.
func (b *Buffer) History() *History { return &b.history }

// HostCopy returns the most recently materialized host copy. ok is false
// when no copy has been produced yet.
func (b *Buffer) HostCopy() (t Tensor, ok bool) {
	return b.host, b.host != nil
}

// HostCopyRequested reports whether MaterializeHostCopy was called.
func (b *Buffer) HostCopyRequested() bool { return b.wantHost }
