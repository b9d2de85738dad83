package scan

import "github.com/lyra-lang/multicore"

// Sequential computes the same inclusive scan as Inclusive on the calling
// goroutine, for testing and debugging purposes. It is the reference the
// parallel protocol must agree with for every partition.
func Sequential[T any](op multicore.Operator[T], body multicore.Body[T], out []T) {
	acc := op.Neutral
	for i := range out {
		acc = op.Combine(acc, body(i))
		out[i] = acc
	}
}

// SequentialSegmented computes the same segmented scan as Scan on the
// calling goroutine.
func SequentialSegmented[T any](dom multicore.Domain, op multicore.Operator[T], body multicore.Body[T], out []T) {
	inner := dom.Inner()
	for seg := 0; seg < dom.Segments(); seg++ {
		base := seg * inner
		acc := op.Neutral
		for j := 0; j < inner; j++ {
			acc = op.Combine(acc, body(base+j))
			out[base+j] = acc
		}
	}
}
