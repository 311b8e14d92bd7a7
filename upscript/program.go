package upscript

import (
	"reflect"

	"github.com/gofrs/uuid"

	"github.com/mrtrizer/Abuksigun.UpScript/compiler"
	"github.com/mrtrizer/Abuksigun.UpScript/ir"
)

// Program is the compiled, immutable representation of an expression. Per
// spec section 5, a Program may be cached and reused: the same Program can
// be Run against many compatible environments, and concurrently, since
// running only reads Instructions and Type.
type Program struct {
	ID           uuid.UUID
	Type         reflect.Type
	Instructions []ir.Instruction

	source string
}

func newProgram(source string, result compiler.Result) *Program {
	id, err := uuid.NewV4()
	if err != nil {
		// Only cryptographically exhausted entropy makes NewV4 fail; a
		// deterministic nil-version fallback still gives every Program a
		// (non-random) identity rather than propagating this upward.
		id = uuid.UUID{}
	}
	return &Program{
		ID:           id,
		Type:         result.Type,
		Instructions: result.Instructions,
		source:       source,
	}
}

// Source returns the original expression text this Program was compiled
// from.
func (p *Program) Source() string {
	return p.source
}
