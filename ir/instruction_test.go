package ir

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrtrizer/Abuksigun.UpScript/reflection"
)

func TestInstructionStringers(t *testing.T) {
	cases := []struct {
		instr Instruction
		want  string
	}{
		{Const{Value: int32(1)}, "CONST 1"},
		{Call{Name: "Addition", Arity: 2}, "CALL Addition/2"},
		{Construct{Type: reflect.TypeOf(int32(0)), Arity: 1}, "CONSTRUCT int32/1"},
		{RunDelegate{Arity: 3}, "RUN_DELEGATE/3"},
		{VarPlace{Name: "x"}, "VAR_PLACE x"},
		{MemberPlace{Member: reflection.Member{Name: "Field"}}, "MEMBER_PLACE .Field"},
		{IndexPlace{N: 2}, "INDEX_PLACE/2"},
		{SetOp{}, "SET"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.instr.String())
	}
}

func TestCallKeepsNilReturnForVoid(t *testing.T) {
	call := Call{Name: "DoNothing", Arity: 0, Return: nil}
	assert.Nil(t, call.Return)
}
