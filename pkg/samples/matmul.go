package samples

import (
	"fmt"

	"github.com/rho180/offload/pkg/buffer"
	"github.com/rho180/offload/pkg/kernel"
	"github.com/rho180/offload/pkg/pool"
	"github.com/rho180/offload/pkg/trace"
	"github.com/rho180/offload/pkg/verify"
)

var matmulLocalmemSample = &Sample{
	Name:            "matmul-localmem",
	Description:     "tiled matrix multiply staging operand tiles in work-group local memory behind a group barrier",
	DefaultElements: 16,
	run:             runMatmulLocalmem,
}

func runMatmulLocalmem(ctx *Context) error {
	// Elements is the matrix dimension here: the whole matrix is one
	// work-group so its items can share local memory.
	n := ctx.Elements
	if n < 1 || n > 64 {
		return fmt.Errorf("matmul-localmem: matrix size must be in 1..64, got %d", n)
	}

	a := pool.GetFloat32Slice(n * n)
	defer pool.PutFloat32Slice(a)
	b := pool.GetFloat32Slice(n * n)
	defer pool.PutFloat32Slice(b)
	c := pool.GetFloat32Slice(n * n)
	defer pool.PutFloat32Slice(c)

	// Integer-valued operands keep every product exactly representable.
	v1, v2 := float32(2), float32(3)
	for i := range a {
		a[i] = v1
		b[i] = v2
		v1++
		v2++
	}
	ctx.Fingerprint = trace.Fingerprint(a)

	bufA := buffer.New(a)
	defer bufA.Close()
	bufB := buffer.New(b)
	defer bufB.Close()
	bufC := buffer.New(c)
	defer bufC.Close()

	accA := bufA.Access(buffer.ReadOnly)
	accB := bufB.Access(buffer.ReadOnly)
	accC := bufC.Access(buffer.WriteOnly)

	nd, err := kernel.NewNDRange(kernel.Range2(n, n), kernel.Range2(n, n))
	if err != nil {
		return err
	}

	ev := ctx.Queue.Submit(kernel.NDRangeKernel("matmul_localmem", nd, func(it kernel.Item) {
		i, j := it.GlobalID(0), it.GlobalID(1)
		x, y := it.LocalID(0), it.LocalID(1)
		g := it.Group()

		// Stage both operand tiles in group-local memory.
		aLocal := kernel.Local[float32](g, "a_tile", n*n)
		bLocal := kernel.Local[float32](g, "b_tile", n*n)
		aLocal[x*n+y] = accA.At(i*n + j)
		bLocal[x*n+y] = accB.At(i*n + j)

		// Every item must finish staging before anyone multiplies.
		g.Barrier()

		var acc float32
		for k := 0; k < n; k++ {
			acc += aLocal[x*n+k] * bLocal[k*n+y]
		}
		accC.Set(i*n+j, acc)
	}))
	if err := ev.Wait(); err != nil {
		return err
	}
	ctx.RecordTime("matmul", ev)

	// Host triple loop for the golden reference.
	want := pool.GetFloat32Slice(n * n)
	defer pool.PutFloat32Slice(want)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var acc float32
			for k := 0; k < n; k++ {
				acc += a[i*n+k] * b[k*n+j]
			}
			want[i*n+j] = acc
		}
	}

	ctx.Checker.CheckSlices("matrix multiply", bufC.HostAccess(), want, verify.DefaultTolerance)
	return nil
}
