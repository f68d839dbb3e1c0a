package samples

import (
	"fmt"

	"github.com/rho180/offload/pkg/buffer"
	"github.com/rho180/offload/pkg/kernel"
	"github.com/rho180/offload/pkg/pool"
	"github.com/rho180/offload/pkg/tasks"
	"github.com/rho180/offload/pkg/trace"
	"github.com/rho180/offload/pkg/verify"
)

// dotSpan names one invocation's slice of the input: sz elements starting
// at s.
type dotSpan struct {
	s  int
	sz int
}

var taskSequenceSample = &Sample{
	Name:            "task-sequence",
	Description:     "FIFO task sequences: one handle over the whole input vs four parallel handles over disjoint quarters",
	DefaultElements: 16384,
	run:             runTaskSequence,
}

func runTaskSequence(ctx *Context) error {
	count := ctx.Elements
	if count < 4 {
		return fmt.Errorf("task-sequence: element count must be at least 4, got %d", count)
	}

	a := randomVector(ctx, count)
	defer pool.PutFloat32Slice(a)
	b := randomVector(ctx, count)
	defer pool.PutFloat32Slice(b)
	ctx.Fingerprint = trace.Fingerprint(a)

	// Golden reference on the host. Accumulate in float64 so the quarter
	// split only differs from the whole-vector result by final rounding.
	golden := hostDot(a, b, 0, count)

	inA := buffer.New(a)
	defer inA.Close()
	inB := buffer.New(b)
	defer inB.Close()
	out := buffer.New(make([]float32, 2))
	defer out.Close()

	accA := inA.Access(buffer.ReadOnly)
	accB := inB.Access(buffer.ReadOnly)
	accOut := out.Access(buffer.WriteOnly)

	// The bound task: the fixed computation every sequence instantiates.
	dot := func(sp dotSpan) float32 {
		var acc float64
		for i := sp.s; i < sp.s+sp.sz; i++ {
			acc += float64(accA.At(i)) * float64(accB.At(i))
		}
		return float32(acc)
	}

	// One handle, one invocation over the whole input.
	ev := ctx.Queue.Submit(kernel.SingleTask("sequential_dot", func() {
		whole := tasks.New(dot, nil)
		whole.Async(dotSpan{0, count})
		accOut.Set(0, whole.Get())
		if err := whole.Close(); err != nil {
			panic(err)
		}
	}))
	if err := ev.Wait(); err != nil {
		return err
	}
	ctx.RecordTime("sequential", ev)

	// Four handles, each owning a disjoint quarter. Independent handles are
	// independent instantiations, so the quarters run in parallel; each
	// handle's own submit/collect stream stays FIFO.
	ev = ctx.Queue.Submit(kernel.SingleTask("parallel_dot", func() {
		quarter := count / 4
		var seqs [4]*tasks.Sequence[dotSpan, float32]
		for i := range seqs {
			seqs[i] = tasks.New(dot, nil)
		}
		for i, seq := range seqs {
			sz := quarter
			if i == 3 {
				sz = count - 3*quarter
			}
			seq.Async(dotSpan{i * quarter, sz})
		}

		var sum float32
		for _, seq := range seqs {
			sum += seq.Get()
		}
		accOut.Set(1, sum)

		for _, seq := range seqs {
			if err := seq.Close(); err != nil {
				panic(err)
			}
		}
	}))
	if err := ev.Wait(); err != nil {
		return err
	}
	ctx.RecordTime("parallel", ev)

	results := out.HostAccess()
	ctx.Checker.CheckNear("sequential test", results[0], golden, verify.DefaultTolerance)
	ctx.Checker.CheckNear("parallel test", results[1], golden, verify.DefaultTolerance)
	return nil
}

// hostDot computes the dot product of sz elements of a and b starting at s.
func hostDot(a, b []float32, s, sz int) float32 {
	var acc float64
	for i := s; i < s+sz; i++ {
		acc += float64(a[i]) * float64(b[i])
	}
	return float32(acc)
}
