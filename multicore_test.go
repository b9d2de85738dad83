package multicore_test

import (
	"testing"

	"github.com/lyra-lang/multicore"
)

func TestDomainShape(t *testing.T) {
	for _, tc := range []struct {
		dom       multicore.Domain
		size      int
		segments  int
		segmented bool
	}{
		{multicore.Domain{}, 1, 1, false},
		{multicore.Domain{0}, 0, 1, false},
		{multicore.Domain{7}, 7, 1, false},
		{multicore.Domain{3, 4}, 12, 3, true},
		{multicore.Domain{2, 3, 4}, 24, 6, true},
		{multicore.Domain{5, 0}, 0, 5, true},
	} {
		if got := tc.dom.Size(); got != tc.size {
			t.Errorf("%v.Size() = %v, want %v", tc.dom, got, tc.size)
		}
		if got := tc.dom.Segments(); got != tc.segments {
			t.Errorf("%v.Segments() = %v, want %v", tc.dom, got, tc.segments)
		}
		if got := tc.dom.Segmented(); got != tc.segmented {
			t.Errorf("%v.Segmented() = %v, want %v", tc.dom, got, tc.segmented)
		}
	}
}

func TestDomainInner(t *testing.T) {
	if got := (multicore.Domain{3, 4}).Inner(); got != 4 {
		t.Errorf("Inner() = %v, want 4", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for an empty domain")
		}
	}()
	(multicore.Domain{}).Inner()
}

func TestDomainPanicsOnNegativeExtent(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a negative extent")
		}
	}()
	(multicore.Domain{3, -1}).Size()
}

func TestScalarOpString(t *testing.T) {
	for op, want := range map[multicore.ScalarOp]string{
		multicore.OpNone:        "none",
		multicore.OpAdd:         "add",
		multicore.OpXor:         "xor",
		multicore.ScalarOp(200): "ScalarOp(200)",
	} {
		if got := op.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestVerifyOperator(t *testing.T) {
	eq := func(a, b int) bool { return a == b }

	add := multicore.Operator[int]{
		Neutral: 0,
		Combine: func(acc, x int) int { return acc + x },
	}
	if err := multicore.VerifyOperator(add, eq, -5, 0, 1, 42); err != nil {
		t.Errorf("addition rejected: %v", err)
	}

	sub := multicore.Operator[int]{
		Neutral: 0,
		Combine: func(acc, x int) int { return acc - x },
	}
	if err := multicore.VerifyOperator(sub, eq, 1, 2, 3); err == nil {
		t.Error("subtraction accepted despite being non-associative")
	}

	badNeutral := multicore.Operator[int]{
		Neutral: 1,
		Combine: func(acc, x int) int { return acc + x },
	}
	if err := multicore.VerifyOperator(badNeutral, eq, 2); err == nil {
		t.Error("wrong neutral element accepted")
	}
}
