// Package kernel defines the execution geometry for offload kernels: ranges,
// ND-ranges, work-items, work-groups, group barriers, and work-group local
// memory. Devices execute kernels expressed against these types; samples only
// describe the iteration space and the per-item body.
package kernel

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrIndivisibleRange = errors.New("kernel: local range does not evenly divide global range")
	ErrEmptyRange       = errors.New("kernel: range must have at least one element per dimension")
)

// Range describes a 1-, 2-, or 3-dimensional iteration space.
type Range struct {
	dims int
	size [3]int
}

// Range1 returns a one-dimensional range of x items.
func Range1(x int) Range { return Range{dims: 1, size: [3]int{x, 1, 1}} }

// Range2 returns a two-dimensional range of x*y items.
func Range2(x, y int) Range { return Range{dims: 2, size: [3]int{x, y, 1}} }

// Range3 returns a three-dimensional range of x*y*z items.
func Range3(x, y, z int) Range { return Range{dims: 3, size: [3]int{x, y, z}} }

// Dims returns the dimensionality of the range.
func (r Range) Dims() int { return r.dims }

// At returns the extent in dimension dim. Dimensions beyond Dims are 1.
func (r Range) At(dim int) int {
	if dim < 0 || dim > 2 {
		return 1
	}
	return r.size[dim]
}

// Size returns the total number of items in the range.
func (r Range) Size() int {
	return r.size[0] * r.size[1] * r.size[2]
}

func (r Range) String() string {
	switch r.dims {
	case 2:
		return fmt.Sprintf("{%d, %d}", r.size[0], r.size[1])
	case 3:
		return fmt.Sprintf("{%d, %d, %d}", r.size[0], r.size[1], r.size[2])
	default:
		return fmt.Sprintf("{%d}", r.size[0])
	}
}

func (r Range) valid() bool {
	for d := 0; d < r.dims; d++ {
		if r.size[d] < 1 {
			return false
		}
	}
	return r.dims >= 1 && r.dims <= 3
}

// NDRange pairs a global iteration space with a work-group size. Work-items
// sharing a group may use local memory and group barriers.
type NDRange struct {
	Global Range
	Local  Range
}

// NewNDRange validates that local evenly divides global in every dimension.
func NewNDRange(global, local Range) (NDRange, error) {
	if !global.valid() || !local.valid() {
		return NDRange{}, ErrEmptyRange
	}
	if global.dims != local.dims {
		return NDRange{}, fmt.Errorf("kernel: global %s and local %s dimensionality differ", global, local)
	}
	for d := 0; d < global.dims; d++ {
		if global.At(d)%local.At(d) != 0 {
			return NDRange{}, fmt.Errorf("%w: global %s, local %s", ErrIndivisibleRange, global, local)
		}
	}
	return NDRange{Global: global, Local: local}, nil
}

// GroupCount returns how many work-groups the ND-range contains.
func (n NDRange) GroupCount() int {
	count := 1
	for d := 0; d < n.Global.dims; d++ {
		count *= n.Global.At(d) / n.Local.At(d)
	}
	return count
}

// groupRange returns the per-dimension group grid extents.
func (n NDRange) groupRange() [3]int {
	var g [3]int
	for d := 0; d < 3; d++ {
		g[d] = n.Global.At(d) / n.Local.At(d)
	}
	return g
}
