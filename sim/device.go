package sim

// Device owns the authoritative storage of buffer states and knows how to
// produce a contiguous host-resident copy of them.
type Device interface {
	Name() string
	// ToHost copies src into dst and returns dst. When dst is nil a new
	// contiguous tensor is allocated. On error dst must be left untouched.
	ToHost(dst, src Tensor) (Tensor, error)
}

// HostDevice keeps buffers in ordinary process memory. Transfers never fail.
type HostDevice struct{}

// Name implements Device.
func (HostDevice) Name() string { return "host" }

// ToHost implements Device.
func (HostDevice) ToHost(dst, src Tensor) (Tensor, error) {
	if dst == nil || !ShapeEqual(dst.Shape(), src.Shape()) || dst.IsComplex() != src.IsComplex() {
		return src.cloneTensor(), nil
	}
	if err := dst.copyTensor(src); err != nil {
		return nil, err
	}
	return dst, nil
}
