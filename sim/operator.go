package sim

// Operator is one pure transform from the current states of the buffers it
// requests to new states of the buffers it supplies. ComputeBuffer runs once
// per evaluation cycle, after every supplier of its requested buffers.
type Operator interface {
	Name() string
	Requested() []string
	Supplied() []string
	ComputeBuffer() error
}

// BaseOperator carries the name and buffer bindings shared by all operators.
// Concrete operators embed it and implement ComputeBuffer.
type BaseOperator struct {
	name      string
	requested []string
	supplied  []string
}

// NewBaseOperator records an operator's identity and bindings.
func NewBaseOperator(name string, requested, supplied []string) BaseOperator {
	return BaseOperator{
		name:      name,
		requested: append([]string(nil), requested...),
		supplied:  append([]string(nil), supplied...),
	}
}

// Name implements Operator.
func (o *BaseOperator) Name() string { return o.name }

// Requested implements Operator.
func (o *BaseOperator) Requested() []string { return append([]string(nil), o.requested...) }

// Supplied implements Operator.
func (o *BaseOperator) Supplied() []string { return append([]string(nil), o.supplied...) }

// Bind resolves a buffer name to a handle on behalf of operator, so a missing
// buffer is reported against the operator that referenced it.
func Bind(s *Store, operator, name string) (Handle, error) {
	h, err := s.Lookup(name)
	if err != nil {
		return -1, &UnknownBufferError{Name: name, Operator: operator}
	}
	return h, nil
}

// BindReal resolves name and checks it is a real-space buffer.
func BindReal(s *Store, operator, name string) (Handle, error) {
	h, err := Bind(s, operator, name)
	if err != nil {
		return h, err
	}
	if s.At(h).Reciprocal() {
		return -1, &SpaceMismatchError{Buffer: name, WantReciprocal: false}
	}
	return h, nil
}

// BindSpectrum resolves name and checks it is a reciprocal-space buffer.
func BindSpectrum(s *Store, operator, name string) (Handle, error) {
	h, err := Bind(s, operator, name)
	if err != nil {
		return h, err
	}
	if !s.At(h).Reciprocal() {
		return -1, &SpaceMismatchError{Buffer: name, WantReciprocal: true}
	}
	return h, nil
}
