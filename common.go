package multicore

import "fmt"

// A Domain is the ordered list of dimension extents of an iteration domain,
// outermost dimension first. A flat index linearizes the domain in row-major
// order. For scans and reductions restricted to the innermost dimension, the
// outer dimensions partition the domain into independent segments.
type Domain []int

// Size returns the number of flat iteration indices in the domain.
//
// Size panics if any extent is negative.
func (d Domain) Size() int {
	size := 1
	for _, extent := range d {
		if extent < 0 {
			panic(fmt.Sprintf("multicore: invalid domain extent: %v", extent))
		}
		size *= extent
	}
	return size
}

// Inner returns the extent of the innermost dimension.
//
// Inner panics on an empty domain.
func (d Domain) Inner() int {
	if len(d) == 0 {
		panic("multicore: empty domain has no innermost dimension")
	}
	return d[len(d)-1]
}

// Segments returns the number of independent segments of a scan restricted
// to the innermost dimension, which is the product of the outer extents.
//
// Segments panics if any outer extent is negative.
func (d Domain) Segments() int {
	if len(d) < 2 {
		return 1
	}
	return d[:len(d)-1].Size()
}

// Segmented reports whether a scan over this domain runs the segmented
// protocol: two or more dimensions, with the scan restricted to the
// innermost one.
func (d Domain) Segmented() bool {
	return len(d) >= 2
}

// A ScalarOp identifies the machine-level scalar operation an operator's
// combining function decomposes into, if any. The front-end sets it when it
// lowers an operator whose components are independent scalar binary
// operations; it stays OpNone for general operators. The histo package
// inspects it to choose a concurrent update protocol.
type ScalarOp uint8

const (
	// OpNone marks an operator with no scalar decomposition.
	OpNone ScalarOp = iota
	OpAdd
	OpAnd
	OpOr
	OpXor
	OpMin
	OpMax
	OpMul
)

func (op ScalarOp) String() string {
	switch op {
	case OpNone:
		return "none"
	case OpAdd:
		return "add"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	case OpMul:
		return "mul"
	}
	return fmt.Sprintf("ScalarOp(%d)", uint8(op))
}

// An Operator describes an associative combining function together with its
// neutral element. The type parameter T is the operator's full result tuple:
// a multi-component operator uses a struct type so that all components are
// combined jointly, as one multi-output function, and components may read
// each other's accumulator slot.
type Operator[T any] struct {
	// Neutral is the identity element of Combine.
	Neutral T

	// Combine folds a new value into an accumulator and returns the updated
	// accumulator. It must be associative over any sequence it is folded
	// across, and Neutral must be its identity on both sides. The runtime
	// trusts these laws without verifying them; use VerifyOperator in test
	// suites.
	Combine func(acc, x T) T

	// Scalar declares the operator's scalar decomposition for the concurrent
	// bucket-update tiers. Leave it OpNone for operators that do not
	// decompose into a single scalar machine operation.
	Scalar ScalarOp
}

// A Body produces the scan operand for one flat iteration index. A body must
// be pure with respect to the scan outputs: it may write its map (side)
// outputs directly, but later scan phases reread only the scan outputs and
// never invoke the body again for an already visited index.
type Body[T any] func(i int) T

// VerifyOperator checks the neutral-element and associativity laws of op
// over the given sample values, using eq to compare results. It returns nil
// if combine(neutral, x) == x == combine(x, neutral) for every sample x, and
// combine(combine(a, b), c) == combine(a, combine(b, c)) for every sample
// triple. The runtime itself never performs these checks; they are meant for
// the test suites of front-ends that register operators.
func VerifyOperator[T any](op Operator[T], eq func(a, b T) bool, samples ...T) error {
	for _, x := range samples {
		if got := op.Combine(op.Neutral, x); !eq(got, x) {
			return fmt.Errorf("multicore: combine(neutral, %v) == %v, want %v", x, got, x)
		}
		if got := op.Combine(x, op.Neutral); !eq(got, x) {
			return fmt.Errorf("multicore: combine(%v, neutral) == %v, want %v", x, got, x)
		}
	}
	for _, a := range samples {
		for _, b := range samples {
			for _, c := range samples {
				left := op.Combine(op.Combine(a, b), c)
				right := op.Combine(a, op.Combine(b, c))
				if !eq(left, right) {
					return fmt.Errorf("multicore: combine is not associative over (%v, %v, %v): %v != %v", a, b, c, left, right)
				}
			}
		}
	}
	return nil
}
