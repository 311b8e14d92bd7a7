// Package dis renders an already-compiled ir.Instruction stream as a
// plain-text, one-instruction-per-line disassembly. It is a debugging aid
// only: it takes a finished instruction stream and prints it, defining no
// read-eval-print loop of its own, grounded on the teacher's `dis` package
// and its colorized cmd/risor output conventions.
package dis

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/mrtrizer/Abuksigun.UpScript/ir"
)

// Sprint renders instructions as plain, uncolored text.
func Sprint(instructions []ir.Instruction) string {
	var b strings.Builder
	Fprint(&b, instructions, false)
	return b.String()
}

// Fprint writes one line per instruction to w: an index column, the
// opcode name, and its operands. When colorize is true, opcodes, operand
// kinds, and literal values are colorized with github.com/fatih/color;
// colorize should be false for output going anywhere but an interactive
// terminal, matching how the teacher's CLI guards its own colorized
// output.
func Fprint(w io.Writer, instructions []ir.Instruction, colorize bool) {
	opcode := plainColor
	operand := plainColor
	literal := plainColor
	if colorize {
		opcodeColor := color.New(color.FgCyan, color.Bold)
		operandColor := color.New(color.FgYellow)
		literalColor := color.New(color.FgGreen)
		// colorize is the caller's decision, so the package-level NoColor
		// terminal detection of fatih/color is overridden here.
		for _, c := range []*color.Color{opcodeColor, operandColor, literalColor} {
			c.EnableColor()
		}
		opcode = opcodeColor.Sprint
		operand = operandColor.Sprint
		literal = literalColor.Sprint
	}
	width := len(strconv.Itoa(len(instructions) - 1))
	for i, instr := range instructions {
		fmt.Fprintf(w, "%*d  %s\n", width, i, line(instr, opcode, operand, literal))
	}
}

func plainColor(args ...any) string {
	return fmt.Sprint(args...)
}

func line(instr ir.Instruction, opcode, operand, literal func(...any) string) string {
	switch in := instr.(type) {
	case ir.Const:
		return fmt.Sprintf("%s %s", opcode("CONST"), literal(fmt.Sprintf("%#v", in.Value)))
	case ir.Call:
		return fmt.Sprintf("%s %s", opcode("CALL"), operand(fmt.Sprintf("%s/%d -> %s", in.Name, in.Arity, typeName(in.Return))))
	case ir.Construct:
		return fmt.Sprintf("%s %s", opcode("CONSTRUCT"), operand(fmt.Sprintf("%s/%d", typeName(in.Type), in.Arity)))
	case ir.RunDelegate:
		return fmt.Sprintf("%s %s", opcode("RUN_DELEGATE"), operand(fmt.Sprintf("/%d", in.Arity)))
	case ir.VarPlace:
		return fmt.Sprintf("%s %s", opcode("VAR_PLACE"), operand(fmt.Sprintf("%s: %s", in.Name, typeName(in.Type))))
	case ir.MemberPlace:
		return fmt.Sprintf("%s %s", opcode("MEMBER_PLACE"), operand("."+in.Member.Name))
	case ir.IndexPlace:
		return fmt.Sprintf("%s %s", opcode("INDEX_PLACE"), operand(fmt.Sprintf("/%d", in.N)))
	case ir.SetOp:
		return opcode("SET")
	default:
		return opcode(fmt.Sprintf("UNKNOWN(%T)", instr))
	}
}

func typeName(t interface{ String() string }) string {
	if t == nil {
		return "<void>"
	}
	return t.String()
}
