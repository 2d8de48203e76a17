package spirv

import (
	"testing"

	"github.com/gogpu/vkd3d/dxbc"
)

func condSrc(register uint32) dxbc.SrcParam {
	return src(reg(dxbc.RegisterTemp, register, dxbc.TypeUint), dxbc.ScalarSwizzle(0))
}

func ifNZ(register uint32) dxbc.Instruction {
	return dxbc.Instruction{Opcode: dxbc.OpIf, Flags: dxbc.TestNonZero, Src: []dxbc.SrcParam{condSrc(register)}}
}

func ifZ(register uint32) dxbc.Instruction {
	return dxbc.Instruction{Opcode: dxbc.OpIf, Flags: dxbc.TestZero, Src: []dxbc.SrcParam{condSrc(register)}}
}

func elseIns() dxbc.Instruction   { return dxbc.Instruction{Opcode: dxbc.OpElse} }
func endIf() dxbc.Instruction     { return dxbc.Instruction{Opcode: dxbc.OpEndIf} }
func loopIns() dxbc.Instruction   { return dxbc.Instruction{Opcode: dxbc.OpLoop} }
func endLoop() dxbc.Instruction   { return dxbc.Instruction{Opcode: dxbc.OpEndLoop} }
func breakIns() dxbc.Instruction  { return dxbc.Instruction{Opcode: dxbc.OpBreak} }

func breakC(register uint32) dxbc.Instruction {
	return dxbc.Instruction{Opcode: dxbc.OpBreakC, Flags: dxbc.TestNonZero, Src: []dxbc.SrcParam{condSrc(register)}}
}

func compileBody(t *testing.T, body ...dxbc.Instruction) []spvIns {
	t.Helper()
	instructions := []dxbc.Instruction{dclThreadGroup(1, 1, 1), dclTemps(8)}
	instructions = append(instructions, body...)
	result := compile(t, computeShader(instructions...), nil)
	_, decoded := decodeModule(t, result.Code)
	return decoded
}

func TestControlFlowLoopBreak(t *testing.T) {
	decoded := compileBody(t,
		loopIns(),
		movFull(0, 1),
		breakIns(),
		endLoop(),
		ret(),
	)
	if n := countOp(decoded, OpLoopMerge); n != 1 {
		t.Errorf("OpLoopMerge count = %d, want 1", n)
	}
	// Entry, header, body, continue, merge.
	if n := countOp(decoded, OpLabel); n < 5 {
		t.Errorf("OpLabel count = %d, want at least 5", n)
	}
	checkStructure(t, decoded)
}

func TestControlFlowConditionalBreak(t *testing.T) {
	decoded := compileBody(t,
		loopIns(),
		breakC(0),
		movFull(0, 1),
		endLoop(),
		ret(),
	)
	if n := countOp(decoded, OpLoopMerge); n != 1 {
		t.Errorf("OpLoopMerge count = %d, want 1", n)
	}
	if n := countOp(decoded, OpSelectionMerge); n != 1 {
		t.Errorf("OpSelectionMerge count = %d, want 1", n)
	}
	checkStructure(t, decoded)
}

func TestControlFlowBreakInsideIf(t *testing.T) {
	decoded := compileBody(t,
		loopIns(),
		ifNZ(0),
		breakIns(),
		endIf(),
		movFull(0, 1),
		endLoop(),
		ret(),
	)
	checkStructure(t, decoded)
}

func TestControlFlowRetInsideIf(t *testing.T) {
	decoded := compileBody(t,
		ifNZ(0),
		ret(),
		endIf(),
		movFull(0, 1),
		ret(),
	)
	if n := countOp(decoded, OpReturn); n != 2 {
		t.Errorf("OpReturn count = %d, want 2", n)
	}
	checkStructure(t, decoded)
}

func TestControlFlowIfWithoutElse(t *testing.T) {
	decoded := compileBody(t,
		ifZ(0),
		movFull(1, 2),
		endIf(),
		ret(),
	)
	// The missing else side still gets an empty block, so the merge has
	// two predecessors.
	if n := countOp(decoded, OpLabel); n != 4 {
		t.Errorf("OpLabel count = %d, want 4", n)
	}
	checkStructure(t, decoded)
}

func TestControlFlowNesting(t *testing.T) {
	cases := map[string][]dxbc.Instruction{
		"if-if-if-if": {
			ifNZ(0), ifNZ(1), ifNZ(2), ifNZ(3),
			movFull(4, 5),
			endIf(), endIf(), endIf(), endIf(),
			ret(),
		},
		"loop-if-loop-if": {
			loopIns(), ifNZ(0), loopIns(), ifNZ(1),
			breakIns(),
			endIf(), endLoop(), endIf(), endLoop(),
			ret(),
		},
		"if-else-loop-breakc": {
			ifNZ(0),
			loopIns(), breakC(1), endLoop(),
			elseIns(),
			loopIns(), breakIns(), endLoop(),
			endIf(),
			ret(),
		},
		"loop-ret-in-if": {
			loopIns(),
			ifNZ(0), ret(), endIf(),
			breakIns(),
			endLoop(),
			ret(),
		},
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			decoded := compileBody(t, body...)
			checkStructure(t, decoded)
		})
	}
}

func TestControlFlowUnbalanced(t *testing.T) {
	cases := map[string][]dxbc.Instruction{
		"dangling-if":    {ifNZ(0), ret()},
		"stray-endif":    {endIf(), ret()},
		"stray-endloop":  {endLoop(), ret()},
		"break-outside":  {breakIns(), ret()},
		"else-in-loop":   {loopIns(), elseIns(), endLoop(), ret()},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			instructions := []dxbc.Instruction{dclThreadGroup(1, 1, 1), dclTemps(4)}
			instructions = append(instructions, body...)
			if _, err := Compile(computeShader(instructions...), nil, nil, DefaultOptions()); err == nil {
				t.Errorf("unbalanced control flow accepted")
			}
		})
	}
}
