package histo

import (
	"fmt"

	"github.com/lyra-lang/multicore"
)

// A WidthError reports an operator that declares a scalar decomposition
// over a primitive width with neither a native atomic nor a supported
// compare-exchange width. It is returned by Select when the strategy is
// chosen, never deferred to update time: the front-end must treat it as a
// compilation error.
type WidthError struct {
	// Op is the declared scalar operation.
	Op multicore.ScalarOp
	// Width is the operand width in bytes.
	Width uintptr
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("histo: no atomic or compare-exchange support for scalar %v over %d-byte operands", e.Op, e.Width)
}
