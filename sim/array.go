package sim

import "fmt"

// Element is the set of numeric types a field array can hold. Real-space
// buffers use float64, reciprocal-space buffers use complex128.
type Element interface {
	~float64 | ~complex128
}

// Tensor is the type-erased view of an Array used by buffers, history rings
// and host copies, which do not care about the element type.
type Tensor interface {
	Shape() []int
	Len() int
	// IsComplex reports whether the tensor holds reciprocal-space values.
	IsComplex() bool
	cloneTensor() Tensor
	copyTensor(src Tensor) error
}

// Array is a dense row-major n-dimensional array. The last axis varies fastest.
type Array[T Element] struct {
	shape   []int
	strides []int
	data    []T
}

// NewArray allocates a zero-filled array of the given shape.
// A rank-0 array holds a single element.
func NewArray[T Element](shape ...int) *Array[T] {
	for _, n := range shape {
		if n < 0 {
			panic(fmt.Sprintf("sim: negative extent in shape %v", shape))
		}
	}
	s := append([]int(nil), shape...)
	return &Array[T]{shape: s, strides: stridesOf(s), data: make([]T, NumElements(s))}
}

// FromData wraps data in an array of the given shape without copying.
func FromData[T Element](data []T, shape ...int) (*Array[T], error) {
	if NumElements(shape) != len(data) {
		return nil, &ShapeMismatchError{Want: shape, Got: []int{len(data)}}
	}
	s := append([]int(nil), shape...)
	return &Array[T]{shape: s, strides: stridesOf(s), data: data}, nil
}

// NumElements returns the product of the extents in shape.
func NumElements(shape []int) int {
	n := 1
	for _, e := range shape {
		n *= e
	}
	return n
}

// ShapeEqual reports whether two shapes are identical.
func ShapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stridesOf(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

// Shape returns a copy of the array's shape.
func (a *Array[T]) Shape() []int { return append([]int(nil), a.shape...) }

// Rank returns the number of axes.
func (a *Array[T]) Rank() int { return len(a.shape) }

// Len returns the total number of elements.
func (a *Array[T]) Len() int { return len(a.data) }

// Data returns the backing slice. Writes through it mutate the array.
func (a *Array[T]) Data() []T { return a.data }

// IsComplex implements Tensor.
func (a *Array[T]) IsComplex() bool {
	var zero T
	_, ok := any(zero).(complex128)
	return ok
}

// Offset converts a multi-index to a flat offset. It panics on rank or bounds
// mismatch, the same way slice indexing does.
func (a *Array[T]) Offset(idx ...int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("sim: index rank %d does not match array rank %d", len(idx), len(a.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("sim: index %v out of range for shape %v", idx, a.shape))
		}
		off += v * a.strides[i]
	}
	return off
}

// At returns the element at the multi-index idx.
func (a *Array[T]) At(idx ...int) T { return a.data[a.Offset(idx...)] }

// Set stores v at the multi-index idx.
func (a *Array[T]) Set(v T, idx ...int) { a.data[a.Offset(idx...)] = v }

// Fill sets every element to v.
func (a *Array[T]) Fill(v T) {
	for i := range a.data {
		a.data[i] = v
	}
}

// Clone returns a contiguous deep copy.
func (a *Array[T]) Clone() *Array[T] {
	c := NewArray[T](a.shape...)
	copy(c.data, a.data)
	return c
}

// CopyFrom overwrites the contents of a with src. Shapes must match exactly.
func (a *Array[T]) CopyFrom(src *Array[T]) error {
	if !ShapeEqual(a.shape, src.shape) {
		return &ShapeMismatchError{Want: a.Shape(), Got: src.Shape()}
	}
	copy(a.data, src.data)
	return nil
}

// Scale multiplies every element by s in place.
func (a *Array[T]) Scale(s T) {
	for i := range a.data {
		a.data[i] *= s
	}
}

// BroadcastTo materializes a into the target shape. Every axis of a must
// either equal the target extent or be a singleton.
func (a *Array[T]) BroadcastTo(shape ...int) (*Array[T], error) {
	if len(shape) != len(a.shape) {
		return nil, &ShapeMismatchError{Want: shape, Got: a.Shape()}
	}
	for i := range shape {
		if a.shape[i] != shape[i] && a.shape[i] != 1 {
			return nil, &ShapeMismatchError{Want: shape, Got: a.Shape()}
		}
	}
	out := NewArray[T](shape...)
	idx := make([]int, len(shape))
	for flat := range out.data {
		src := 0
		for i := range idx {
			if a.shape[i] != 1 {
				src += idx[i] * a.strides[i]
			}
		}
		out.data[flat] = a.data[src]
		increment(idx, shape)
	}
	return out, nil
}

// Component gathers value component c of an array whose trailing axis holds
// value components, returning an array of the leading (domain) shape.
func (a *Array[T]) Component(c int) (*Array[T], error) {
	if len(a.shape) == 0 {
		return nil, &ShapeMismatchError{Want: []int{c + 1}, Got: a.Shape()}
	}
	k := a.shape[len(a.shape)-1]
	if c < 0 || c >= k {
		return nil, fmt.Errorf("component %d out of range for %d value components", c, k)
	}
	out := NewArray[T](a.shape[:len(a.shape)-1]...)
	for i := range out.data {
		out.data[i] = a.data[i*k+c]
	}
	return out, nil
}

// SetComponent scatters src into value component c of a.
func (a *Array[T]) SetComponent(c int, src *Array[T]) error {
	if len(a.shape) == 0 || !ShapeEqual(a.shape[:len(a.shape)-1], src.shape) {
		return &ShapeMismatchError{Want: src.Shape(), Got: a.Shape()}
	}
	k := a.shape[len(a.shape)-1]
	if c < 0 || c >= k {
		return fmt.Errorf("component %d out of range for %d value components", c, k)
	}
	for i, v := range src.data {
		a.data[i*k+c] = v
	}
	return nil
}

func (a *Array[T]) cloneTensor() Tensor { return a.Clone() }

func (a *Array[T]) copyTensor(src Tensor) error {
	s, ok := src.(*Array[T])
	if !ok {
		return fmt.Errorf("cannot copy %T into %T", src, a)
	}
	return a.CopyFrom(s)
}

// increment advances a row-major multi-index by one position.
func increment(idx, shape []int) {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return
		}
		idx[i] = 0
	}
}

// CloneTensor returns a deep copy of t.
func CloneTensor(t Tensor) Tensor { return t.cloneTensor() }

// CopyTensor copies src into dst. Both must share element type and shape.
func CopyTensor(dst, src Tensor) error { return dst.copyTensor(src) }
