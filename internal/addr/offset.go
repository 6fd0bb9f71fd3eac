// Package addr defines the Offset type shared between the BIR view and the
// listing index, so that neither package needs to import the other.
package addr

import (
	"fmt"

	"github.com/google/uuid"
)

// Offset is a pointer at a single byte of a block: the block's UUID plus a
// displacement into it. Displacement is signed because reference resolution
// (spec "C4 References", step 5) computes addresses one byte before a block
// boundary's first instruction.
type Offset struct {
	Block uuid.UUID
	Disp  int64
}

// String renders an offset as "uuid+disp", useful in error messages and
// debug logs.
func (o Offset) String() string {
	return fmt.Sprintf("%s+%d", o.Block, o.Disp)
}
