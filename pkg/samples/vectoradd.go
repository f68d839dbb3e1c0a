package samples

import (
	"fmt"

	"github.com/rho180/offload/pkg/buffer"
	"github.com/rho180/offload/pkg/kernel"
	"github.com/rho180/offload/pkg/pool"
	"github.com/rho180/offload/pkg/trace"
	"github.com/rho180/offload/pkg/verify"
)

var vectorAddSample = &Sample{
	Name:            "vector-add",
	Description:     "element-wise vector addition, the canonical offload starter walkthrough",
	DefaultElements: 1 << 14,
	run:             runVectorAdd,
}

func runVectorAdd(ctx *Context) error {
	count := ctx.Elements
	if count < 1 {
		return fmt.Errorf("vector-add: element count must be positive, got %d", count)
	}

	a := randomVector(ctx, count)
	defer pool.PutFloat32Slice(a)
	b := randomVector(ctx, count)
	defer pool.PutFloat32Slice(b)
	ctx.Fingerprint = trace.Fingerprint(a)

	bufA := buffer.New(a)
	defer bufA.Close()
	bufB := buffer.New(b)
	defer bufB.Close()
	bufC := buffer.New(make([]float32, count))
	defer bufC.Close()

	accA := bufA.Access(buffer.ReadOnly)
	accB := bufB.Access(buffer.ReadOnly)
	accC := bufC.Access(buffer.WriteOnly)

	ev := ctx.Queue.Submit(kernel.ParallelFor("vector_add", kernel.Range1(count), func(it kernel.Item) {
		i := it.GlobalID(0)
		accC.Set(i, accA.At(i)+accB.At(i))
	}))
	if err := ev.Wait(); err != nil {
		return err
	}
	ctx.RecordTime("add", ev)

	want := pool.GetFloat32Slice(count)
	defer pool.PutFloat32Slice(want)
	for i := range want {
		want[i] = a[i] + b[i]
	}

	ctx.Checker.CheckSlices("vector add", bufC.HostAccess(), want, verify.DefaultTolerance)
	return nil
}
