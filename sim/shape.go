package sim

import "fmt"

// ValueKind selects the per-point value carried by a buffer.
type ValueKind int

const (
	Scalar ValueKind = iota
	Vector
	SymmetricTensor
)

// ValidValueKinds is the set of recognized value kind names.
var ValidValueKinds = map[string]ValueKind{
	"":                 Scalar,
	"scalar":           Scalar,
	"vector":           Vector,
	"symmetric_tensor": SymmetricTensor,
}

// ParseValueKind maps a configuration name to a ValueKind.
func ParseValueKind(name string) (ValueKind, error) {
	k, ok := ValidValueKinds[name]
	if !ok {
		return Scalar, fmt.Errorf("unknown value kind %q", name)
	}
	return k, nil
}

func (k ValueKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Vector:
		return "vector"
	case SymmetricTensor:
		return "symmetric_tensor"
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Components returns the number of values stored per grid point in a
// domain of the given rank. Symmetric tensors use Voigt storage.
func (k ValueKind) Components(rank int) int {
	switch k {
	case Vector:
		return rank
	case SymmetricTensor:
		return rank * (rank + 1) / 2
	}
	return 1
}

// Shape returns the trailing value shape appended to the domain shape.
func (k ValueKind) Shape(rank int) []int {
	if k == Scalar {
		return nil
	}
	return []int{k.Components(rank)}
}

// VoigtIndex returns the storage slot of symmetric tensor entry (i, j).
// Diagonal entries come first, then the upper off-diagonals row by row.
func VoigtIndex(i, j, rank int) int {
	if i == j {
		return i
	}
	if i > j {
		i, j = j, i
	}
	slot := rank
	for r := 0; r < i; r++ {
		slot += rank - r - 1
	}
	return slot + (j - i - 1)
}

// Domain is the shard-local sample layout every buffer in a store shares.
// Real-space buffers use Shape, reciprocal-space buffers use ReciprocalShape.
type Domain struct {
	Shape           []int
	ReciprocalShape []int
}

// Rank returns the number of spatial dimensions.
func (d Domain) Rank() int { return len(d.Shape) }

// StateShape returns domain ++ value shape for a buffer.
func (d Domain) StateShape(kind ValueKind, reciprocal bool) []int {
	base := d.Shape
	if reciprocal {
		base = d.ReciprocalShape
	}
	out := append([]int(nil), base...)
	return append(out, kind.Shape(d.Rank())...)
}
