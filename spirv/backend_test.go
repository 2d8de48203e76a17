package spirv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/gogpu/vkd3d/dxbc"
	"github.com/gogpu/vkd3d/rootsig"
)

// spvIns is one decoded instruction of a produced module.
type spvIns struct {
	op  OpCode
	ops []uint32
}

func decodeModule(t *testing.T, code []byte) ([]uint32, []spvIns) {
	t.Helper()
	if len(code) < 20 || len(code)%4 != 0 {
		t.Fatalf("module size %d is not a valid SPIR-V binary", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[4*i:])
	}
	if words[0] != MagicNumber {
		t.Fatalf("bad magic %#x", words[0])
	}

	var instructions []spvIns
	pos := 5
	for pos < len(words) {
		wc := int(words[pos] >> 16)
		op := OpCode(words[pos] & 0xffff)
		if wc == 0 || pos+wc > len(words) {
			t.Fatalf("bad word count %d at word %d", wc, pos)
		}
		instructions = append(instructions, spvIns{op: op, ops: words[pos+1 : pos+wc]})
		pos += wc
	}
	return words[:5], instructions
}

func countOp(instructions []spvIns, op OpCode) int {
	n := 0
	for _, ins := range instructions {
		if ins.op == op {
			n++
		}
	}
	return n
}

func findOps(instructions []spvIns, op OpCode) []spvIns {
	var out []spvIns
	for _, ins := range instructions {
		if ins.op == op {
			out = append(out, ins)
		}
	}
	return out
}

// resultID extracts the result id of an instruction, if it has one.
func resultID(ins spvIns) (uint32, bool) {
	switch ins.op {
	case OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector,
		OpTypeMatrix, OpTypeImage, OpTypeSampler, OpTypeSampledImage,
		OpTypeArray, OpTypeRuntimeArray, OpTypeStruct, OpTypePointer,
		OpTypeFunction, OpExtInstImport, OpString, OpLabel:
		return ins.ops[0], true
	case OpConstant, OpConstantComposite, OpConstantNull, OpUndef,
		OpVariable, OpLoad, OpAccessChain, OpInBoundsAccessChain,
		OpVectorShuffle, OpCompositeConstruct, OpCompositeExtract,
		OpSelect, OpExtInst, OpFunction, OpFunctionParameter,
		OpFunctionCall, OpSampledImage, OpImageSampleImplicitLod,
		OpImageFetch, OpImageTexelPointer, OpAtomicIIncrement,
		OpAtomicIDecrement, OpAtomicIAdd:
		return ins.ops[1], true
	}
	// Conversion, arithmetic, comparison, shift and bitfield groups all
	// carry (result type, result id, operands...).
	if (ins.op >= OpConvertFToU && ins.op <= OpBitcast) ||
		(ins.op >= OpSNegate && ins.op <= OpDot) ||
		(ins.op >= OpLogicalOr && ins.op <= OpFOrdGreaterThanEqual) ||
		(ins.op >= OpShiftRightLogical && ins.op <= OpBitCount) {
		return ins.ops[1], true
	}
	return 0, false
}

func isTerminator(op OpCode) bool {
	switch op {
	case OpBranch, OpBranchConditional, OpReturn, OpReturnValue, OpKill, OpUnreachable:
		return true
	}
	return false
}

// checkStructure verifies the structural invariants of the produced
// function bodies: every block ends with exactly one terminator, merge
// targets exist, and function-scope variables lead the entry block.
func checkStructure(t *testing.T, instructions []spvIns) {
	t.Helper()

	labels := map[uint32]bool{}
	var merges []uint32
	for _, ins := range instructions {
		switch ins.op {
		case OpLabel:
			labels[ins.ops[0]] = true
		case OpSelectionMerge:
			merges = append(merges, ins.ops[0])
		case OpLoopMerge:
			merges = append(merges, ins.ops[0], ins.ops[1])
		}
	}
	for _, merge := range merges {
		if !labels[merge] {
			t.Errorf("merge target %%%d has no label", merge)
		}
	}

	inFunction := false
	inBlock := false
	firstBlock := false
	nonVarSeen := false
	for _, ins := range instructions {
		switch {
		case ins.op == OpFunction:
			if inFunction {
				t.Fatalf("nested OpFunction")
			}
			inFunction, firstBlock = true, true
		case ins.op == OpFunctionEnd:
			if inBlock {
				t.Errorf("function ends inside an unterminated block")
			}
			inFunction = false
		case ins.op == OpFunctionParameter:
		case ins.op == OpLabel:
			if inBlock {
				t.Errorf("label %%%d opens before the previous block terminated", ins.ops[0])
			}
			inBlock = true
			nonVarSeen = false
		case isTerminator(ins.op):
			if !inBlock {
				t.Errorf("terminator %d outside a block", ins.op)
			}
			inBlock = false
			firstBlock = false
		default:
			if !inFunction {
				continue
			}
			if !inBlock {
				t.Errorf("instruction %d emitted outside a block", ins.op)
			}
			if ins.op == OpVariable {
				if !firstBlock || nonVarSeen {
					t.Errorf("function variable not at the head of the entry block")
				}
			} else {
				nonVarSeen = true
			}
		}
	}
}

// Convenience builders for hand-written instruction streams.

func reg(kind dxbc.RegisterKind, index uint32, dt dxbc.DataType) dxbc.Register {
	return dxbc.Register{
		Kind:     kind,
		DataType: dt,
		Index:    [2]dxbc.RegisterIndex{{Offset: index}},
	}
}

func dst(r dxbc.Register, mask dxbc.WriteMask) dxbc.DstParam {
	return dxbc.DstParam{Reg: r, Mask: mask}
}

func src(r dxbc.Register, swizzle dxbc.Swizzle) dxbc.SrcParam {
	return dxbc.SrcParam{Reg: r, Swizzle: swizzle}
}

func imm4(x, y, z, w uint32) dxbc.Register {
	return dxbc.Register{
		Kind:      dxbc.RegisterImmediate,
		DataType:  dxbc.TypeFloat,
		ImmKind:   dxbc.ImmediateVec4,
		Immediate: [4]uint32{x, y, z, w},
	}
}

func dclTemps(n uint32) dxbc.Instruction {
	return dxbc.Instruction{Opcode: dxbc.OpDclTemps, Dcl: &dxbc.Declaration{Count: n}}
}

func dclThreadGroup(x, y, z uint32) dxbc.Instruction {
	return dxbc.Instruction{Opcode: dxbc.OpDclThreadGroup, Dcl: &dxbc.Declaration{ThreadGroup: [3]uint32{x, y, z}}}
}

func ret() dxbc.Instruction {
	return dxbc.Instruction{Opcode: dxbc.OpRet}
}

func movFull(to, from uint32) dxbc.Instruction {
	return dxbc.Instruction{
		Opcode: dxbc.OpMov,
		Dst:    []dxbc.DstParam{dst(reg(dxbc.RegisterTemp, to, dxbc.TypeFloat), dxbc.WriteMaskAll)},
		Src:    []dxbc.SrcParam{src(reg(dxbc.RegisterTemp, from, dxbc.TypeFloat), dxbc.NoSwizzle)},
	}
}

func computeShader(instructions ...dxbc.Instruction) *dxbc.Shader {
	return &dxbc.Shader{
		Version:      dxbc.Version{Stage: dxbc.StageCompute, Major: 5},
		Instructions: instructions,
	}
}

func compile(t *testing.T, shader *dxbc.Shader, layout *rootsig.BindingLayout) *Result {
	t.Helper()
	result, err := Compile(shader, layout, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return result
}

func TestCompileTrivialCompute(t *testing.T) {
	shader := computeShader(dclThreadGroup(8, 8, 1), ret())
	result := compile(t, shader, nil)
	_, instructions := decodeModule(t, result.Code)

	caps := findOps(instructions, OpCapability)
	if len(caps) != 1 || Capability(caps[0].ops[0]) != CapabilityShader {
		t.Errorf("expected exactly the Shader capability, got %v", caps)
	}

	entry := findOps(instructions, OpEntryPoint)
	if len(entry) != 1 {
		t.Fatalf("expected one entry point, got %d", len(entry))
	}
	if ExecutionModel(entry[0].ops[0]) != ExecutionModelGLCompute {
		t.Errorf("execution model = %d, want GLCompute", entry[0].ops[0])
	}
	// "main\0" packs into two words; no interface ids follow.
	if len(entry[0].ops) != 4 {
		t.Errorf("expected an empty interface list, got %d operand words", len(entry[0].ops))
	}

	modes := findOps(instructions, OpExecutionMode)
	if len(modes) != 1 {
		t.Fatalf("expected one execution mode, got %d", len(modes))
	}
	want := []uint32{uint32(ExecutionModeLocalSize), 8, 8, 1}
	if !equalWords(modes[0].ops[1:], want) {
		t.Errorf("execution mode operands = %v, want %v", modes[0].ops[1:], want)
	}

	if countOp(instructions, OpReturn) != 1 {
		t.Errorf("expected exactly one OpReturn")
	}
	checkStructure(t, instructions)
}

func equalWords(got, want []uint32) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCompileMovBetweenTemps(t *testing.T) {
	shader := computeShader(dclThreadGroup(1, 1, 1), dclTemps(2), movFull(0, 1), ret())
	result := compile(t, shader, nil)
	_, instructions := decodeModule(t, result.Code)

	if n := countOp(instructions, OpTypeFloat); n != 1 {
		t.Errorf("OpTypeFloat count = %d, want 1", n)
	}
	vectors := findOps(instructions, OpTypeVector)
	if len(vectors) != 1 || vectors[0].ops[2] != 4 {
		t.Errorf("expected exactly one 4-component vector type, got %v", vectors)
	}

	variables := findOps(instructions, OpVariable)
	functionVars := 0
	for _, v := range variables {
		if StorageClass(v.ops[2]) == StorageClassFunction {
			functionVars++
		}
	}
	if functionVars != 2 {
		t.Errorf("function variable count = %d, want 2", functionVars)
	}

	if n := countOp(instructions, OpLoad); n != 1 {
		t.Errorf("OpLoad count = %d, want 1", n)
	}
	if n := countOp(instructions, OpStore); n != 1 {
		t.Errorf("OpStore count = %d, want 1", n)
	}
	checkStructure(t, instructions)
}

func TestCompileConstantBufferRead(t *testing.T) {
	desc := rootsig.Desc{
		Parameters: []rootsig.RootParameter{
			{Kind: rootsig.ParameterCBV, Descriptor: rootsig.RootDescriptorDesc{Register: 0}},
		},
	}
	layout, err := rootsig.New(&desc, rootsig.Options{})
	if err != nil {
		t.Fatalf("rootsig.New failed: %v", err)
	}

	cb := dxbc.Register{
		Kind:     dxbc.RegisterConstantBuffer,
		DataType: dxbc.TypeFloat,
		Index:    [2]dxbc.RegisterIndex{{Offset: 0}, {Offset: 4}},
	}
	dclCB := dxbc.Instruction{
		Opcode: dxbc.OpDclConstantBuffer,
		Src:    []dxbc.SrcParam{src(cb, dxbc.NoSwizzle)},
		Dcl:    &dxbc.Declaration{Count: 4},
	}
	read := cb
	read.Index[1].Offset = 3
	mov := dxbc.Instruction{
		Opcode: dxbc.OpMov,
		Dst:    []dxbc.DstParam{dst(reg(dxbc.RegisterTemp, 0, dxbc.TypeFloat), dxbc.WriteMaskX)},
		Src:    []dxbc.SrcParam{src(read, dxbc.ScalarSwizzle(0))},
	}
	shader := computeShader(dclThreadGroup(1, 1, 1), dclCB, dclTemps(1), mov, ret())
	result := compile(t, shader, layout)
	_, instructions := decodeModule(t, result.Code)

	strided := false
	for _, d := range findOps(instructions, OpDecorate) {
		if Decoration(d.ops[1]) == DecorationArrayStride && d.ops[2] == 16 {
			strided = true
		}
	}
	if !strided {
		t.Errorf("missing ArrayStride 16 decoration")
	}

	offsetZero := false
	for _, d := range findOps(instructions, OpMemberDecorate) {
		if Decoration(d.ops[2]) == DecorationOffset && d.ops[1] == 0 && d.ops[3] == 0 {
			offsetZero = true
		}
	}
	if !offsetZero {
		t.Errorf("missing member Offset 0 decoration")
	}

	entry, ok := layout.Binding(rootsig.DescriptorCBV, 0, true)
	if !ok {
		t.Fatalf("layout has no CBV binding")
	}
	if !hasDescriptorBinding(instructions, entry.Set, entry.Binding) {
		t.Errorf("no variable decorated with set %d binding %d", entry.Set, entry.Binding)
	}
	checkStructure(t, instructions)
}

// hasDescriptorBinding reports whether some id carries both the
// DescriptorSet and Binding decorations with the given values.
func hasDescriptorBinding(instructions []spvIns, set, binding uint32) bool {
	sets := map[uint32]uint32{}
	bindings := map[uint32]uint32{}
	for _, d := range findOps(instructions, OpDecorate) {
		switch Decoration(d.ops[1]) {
		case DecorationDescriptorSet:
			sets[d.ops[0]] = d.ops[2]
		case DecorationBinding:
			bindings[d.ops[0]] = d.ops[2]
		}
	}
	for id, s := range sets {
		if b, ok := bindings[id]; ok && s == set && b == binding {
			return true
		}
	}
	return false
}

func TestCompileIfElse(t *testing.T) {
	condition := src(reg(dxbc.RegisterTemp, 0, dxbc.TypeUint), dxbc.ScalarSwizzle(0))
	shader := computeShader(
		dclThreadGroup(1, 1, 1),
		dclTemps(4),
		dxbc.Instruction{Opcode: dxbc.OpIf, Flags: dxbc.TestNonZero, Src: []dxbc.SrcParam{condition}},
		movFull(1, 2),
		dxbc.Instruction{Opcode: dxbc.OpElse},
		movFull(1, 3),
		dxbc.Instruction{Opcode: dxbc.OpEndIf},
		ret(),
	)
	result := compile(t, shader, nil)
	_, instructions := decodeModule(t, result.Code)

	if n := countOp(instructions, OpSelectionMerge); n != 1 {
		t.Errorf("OpSelectionMerge count = %d, want 1", n)
	}
	if n := countOp(instructions, OpBranchConditional); n != 1 {
		t.Errorf("OpBranchConditional count = %d, want 1", n)
	}
	// Entry block plus true, false and merge labels.
	if n := countOp(instructions, OpLabel); n != 4 {
		t.Errorf("OpLabel count = %d, want 4", n)
	}
	// One store to r1 on each branch.
	if n := countOp(instructions, OpStore); n != 2 {
		t.Errorf("OpStore count = %d, want 2", n)
	}
	checkStructure(t, instructions)
}

func pixelShaderSample() *dxbc.Shader {
	input := reg(dxbc.RegisterInput, 0, dxbc.TypeFloat)
	return &dxbc.Shader{
		Version: dxbc.Version{Stage: dxbc.StagePixel, Major: 5},
		InputSignature: dxbc.Signature{Elements: []dxbc.SignatureElement{
			{SemanticName: "TEXCOORD", Register: 0, ComponentType: dxbc.TypeFloat, Mask: dxbc.WriteMaskXY},
		}},
		Instructions: []dxbc.Instruction{
			{Opcode: dxbc.OpDclInputPS, Flags: uint32(dxbc.InterpolationLinear),
				Dst: []dxbc.DstParam{dst(input, dxbc.WriteMaskXY)}},
			{Opcode: dxbc.OpDclResource,
				Dst: []dxbc.DstParam{dst(reg(dxbc.RegisterResource, 0, dxbc.TypeFloat), 0)},
				Dcl: &dxbc.Declaration{ResourceKind: dxbc.ResourceTexture2D, ResourceDataType: dxbc.TypeFloat}},
			{Opcode: dxbc.OpDclSampler,
				Dst: []dxbc.DstParam{dst(reg(dxbc.RegisterSampler, 0, dxbc.TypeFloat), 0)}},
			dclTemps(1),
			{Opcode: dxbc.OpSample,
				Dst: []dxbc.DstParam{dst(reg(dxbc.RegisterTemp, 0, dxbc.TypeFloat), dxbc.WriteMaskAll)},
				Src: []dxbc.SrcParam{
					src(input, dxbc.MakeSwizzle(0, 1, 0, 0)),
					src(reg(dxbc.RegisterResource, 0, dxbc.TypeFloat), dxbc.NoSwizzle),
					src(reg(dxbc.RegisterSampler, 0, dxbc.TypeFloat), dxbc.NoSwizzle),
				}},
			ret(),
		},
	}
}

func TestCompileTextureSample(t *testing.T) {
	result := compile(t, pixelShaderSample(), nil)
	_, instructions := decodeModule(t, result.Code)

	images := findOps(instructions, OpTypeImage)
	if len(images) != 1 {
		t.Fatalf("OpTypeImage count = %d, want 1", len(images))
	}
	img := images[0]
	// Sampled type, dim 2D, depth 0, arrayed 0, ms 0, sampled 1, Unknown.
	if Dim(img.ops[2]) != Dim2D || img.ops[3] != 0 || img.ops[4] != 0 || img.ops[5] != 0 ||
		img.ops[6] != 1 || img.ops[7] != uint32(ImageFormatUnknown) {
		t.Errorf("unexpected image type operands %v", img.ops)
	}

	if n := countOp(instructions, OpTypeSampledImage); n != 1 {
		t.Errorf("OpTypeSampledImage count = %d, want 1", n)
	}
	if n := countOp(instructions, OpSampledImage); n != 1 {
		t.Errorf("OpSampledImage count = %d, want 1", n)
	}
	if n := countOp(instructions, OpImageSampleImplicitLod); n != 1 {
		t.Errorf("OpImageSampleImplicitLod count = %d, want 1", n)
	}
	checkStructure(t, instructions)
}

func TestCompileUAVTypedStore(t *testing.T) {
	threadID := reg(dxbc.RegisterThreadID, 0, dxbc.TypeUint)
	uav := reg(dxbc.RegisterUAV, 0, dxbc.TypeFloat)
	shader := computeShader(
		dclThreadGroup(8, 8, 1),
		dxbc.Instruction{Opcode: dxbc.OpDclInput,
			Dst: []dxbc.DstParam{dst(threadID, dxbc.WriteMaskXYZ)}},
		dxbc.Instruction{Opcode: dxbc.OpDclUAVTyped,
			Dst: []dxbc.DstParam{dst(uav, 0)},
			Dcl: &dxbc.Declaration{ResourceKind: dxbc.ResourceTexture2D, ResourceDataType: dxbc.TypeFloat}},
		dclTemps(1),
		dxbc.Instruction{Opcode: dxbc.OpStoreUAVTyped,
			Dst: []dxbc.DstParam{dst(uav, dxbc.WriteMaskAll)},
			Src: []dxbc.SrcParam{
				src(threadID, dxbc.MakeSwizzle(0, 1, 0, 0)),
				src(reg(dxbc.RegisterTemp, 0, dxbc.TypeFloat), dxbc.NoSwizzle),
			}},
		ret(),
	)
	result := compile(t, shader, nil)
	_, instructions := decodeModule(t, result.Code)

	hasWriteCap := false
	for _, c := range findOps(instructions, OpCapability) {
		if Capability(c.ops[0]) == CapabilityStorageImageWriteWithoutFormat {
			hasWriteCap = true
		}
	}
	if !hasWriteCap {
		t.Errorf("missing StorageImageWriteWithoutFormat capability")
	}

	storageImage := false
	for _, img := range findOps(instructions, OpTypeImage) {
		if img.ops[6] == 2 {
			storageImage = true
		}
	}
	if !storageImage {
		t.Errorf("no image type with sampled=2")
	}
	if n := countOp(instructions, OpImageWrite); n != 1 {
		t.Errorf("OpImageWrite count = %d, want 1", n)
	}
	checkStructure(t, instructions)
}

func TestCompileDeterminism(t *testing.T) {
	first := compile(t, pixelShaderSample(), nil)
	second := compile(t, pixelShaderSample(), nil)
	if !bytes.Equal(first.Code, second.Code) {
		t.Errorf("two recompiles of the same shader differ")
	}
}

func TestCompileIDDensity(t *testing.T) {
	shaders := map[string]*dxbc.Shader{
		"trivial": computeShader(dclThreadGroup(8, 8, 1), ret()),
		"sample":  pixelShaderSample(),
	}
	for name, shader := range shaders {
		t.Run(name, func(t *testing.T) {
			result := compile(t, shader, nil)
			header, instructions := decodeModule(t, result.Code)
			bound := header[3]

			seen := map[uint32]bool{}
			for _, ins := range instructions {
				id, ok := resultID(ins)
				if !ok {
					continue
				}
				if seen[id] {
					t.Errorf("id %%%d defined twice", id)
				}
				seen[id] = true
			}
			for id := uint32(1); id < bound; id++ {
				if !seen[id] {
					t.Errorf("id %%%d inside the bound is never defined", id)
				}
			}
			if seen[bound] || seen[0] {
				t.Errorf("defined id outside [1, bound)")
			}
		})
	}
}

func TestCompileTypeDeduplication(t *testing.T) {
	result := compile(t, pixelShaderSample(), nil)
	_, instructions := decodeModule(t, result.Code)

	seen := map[string]bool{}
	for _, ins := range instructions {
		var operands []uint32
		switch ins.op {
		case OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector,
			OpTypeImage, OpTypeSampler, OpTypeSampledImage, OpTypeArray,
			OpTypePointer:
			// (result, operands...)
			operands = ins.ops[1:]
		case OpConstant, OpConstantComposite:
			// (type, result, operands...)
			operands = append([]uint32{ins.ops[0]}, ins.ops[2:]...)
		default:
			continue
		}
		key := fmt.Sprintf("%d:%v", ins.op, operands)
		if seen[key] {
			t.Errorf("duplicate declaration for %v %v", ins.op, ins.ops)
		}
		seen[key] = true
	}
}

func TestCompileImmediateRoundTrip(t *testing.T) {
	values := [4]uint32{
		math.Float32bits(1.0),
		math.Float32bits(2.5),
		math.Float32bits(-3.0),
		0x7f800000, // +Inf
	}
	shader := computeShader(
		dclThreadGroup(1, 1, 1),
		dclTemps(1),
		dxbc.Instruction{
			Opcode: dxbc.OpMov,
			Dst:    []dxbc.DstParam{dst(reg(dxbc.RegisterTemp, 0, dxbc.TypeFloat), dxbc.WriteMaskAll)},
			Src:    []dxbc.SrcParam{src(imm4(values[0], values[1], values[2], values[3]), dxbc.NoSwizzle)},
		},
		ret(),
	)
	result := compile(t, shader, nil)
	_, instructions := decodeModule(t, result.Code)

	got := map[uint32]bool{}
	for _, c := range findOps(instructions, OpConstant) {
		got[c.ops[2]] = true
	}
	for _, v := range values {
		if !got[v] {
			t.Errorf("constant %#x lost in translation", v)
		}
	}
}

func TestCompileUDivZeroWrap(t *testing.T) {
	shader := computeShader(
		dclThreadGroup(1, 1, 1),
		dclTemps(3),
		dxbc.Instruction{
			Opcode: dxbc.OpUDiv,
			Dst: []dxbc.DstParam{
				dst(reg(dxbc.RegisterTemp, 0, dxbc.TypeUint), dxbc.WriteMaskAll),
				dst(reg(dxbc.RegisterTemp, 1, dxbc.TypeUint), dxbc.WriteMaskAll),
			},
			Src: []dxbc.SrcParam{
				src(reg(dxbc.RegisterTemp, 2, dxbc.TypeUint), dxbc.NoSwizzle),
				src(reg(dxbc.RegisterTemp, 2, dxbc.TypeUint), dxbc.NoSwizzle),
			},
		},
		ret(),
	)
	result := compile(t, shader, nil)
	_, instructions := decodeModule(t, result.Code)

	if n := countOp(instructions, OpUDiv); n != 1 {
		t.Errorf("OpUDiv count = %d, want 1", n)
	}
	if n := countOp(instructions, OpUMod); n != 1 {
		t.Errorf("OpUMod count = %d, want 1", n)
	}
	// One select per result wraps division by zero to 0xffffffff.
	if n := countOp(instructions, OpSelect); n != 2 {
		t.Errorf("OpSelect count = %d, want 2", n)
	}
	found := false
	for _, c := range findOps(instructions, OpConstant) {
		if c.ops[2] == 0xffffffff {
			found = true
		}
	}
	if !found {
		t.Errorf("missing the 0xffffffff wrap constant")
	}
	checkStructure(t, instructions)
}

func TestCompileSaturate(t *testing.T) {
	mov := movFull(0, 1)
	mov.Dst[0].Modifier = dxbc.DstModifierSaturate
	shader := computeShader(dclThreadGroup(1, 1, 1), dclTemps(2), mov, ret())
	result := compile(t, shader, nil)
	_, instructions := decodeModule(t, result.Code)

	clamped := false
	for _, e := range findOps(instructions, OpExtInst) {
		if e.ops[3] == GLSLstd450NClamp {
			clamped = true
		}
	}
	if !clamped {
		t.Errorf("saturate did not lower to NClamp")
	}
}

func TestCompileBindingFidelity(t *testing.T) {
	desc := rootsig.Desc{
		Parameters: []rootsig.RootParameter{
			{Kind: rootsig.ParameterTable, Table: []rootsig.DescriptorRange{
				{Kind: rootsig.RangeSRV, Count: 1, BaseRegister: 0},
				{Kind: rootsig.RangeSampler, Count: 1, BaseRegister: 0},
			}},
		},
	}
	layout, err := rootsig.New(&desc, rootsig.Options{})
	if err != nil {
		t.Fatalf("rootsig.New failed: %v", err)
	}

	result := compile(t, pixelShaderSample(), layout)
	_, instructions := decodeModule(t, result.Code)

	srv, ok := layout.Binding(rootsig.DescriptorSRV, 0, false)
	if !ok {
		t.Fatalf("layout has no SRV binding")
	}
	if !hasDescriptorBinding(instructions, srv.Set, srv.Binding) {
		t.Errorf("t0 not decorated with set %d binding %d", srv.Set, srv.Binding)
	}

	sampler, ok := layout.Binding(rootsig.DescriptorSampler, 0, false)
	if !ok {
		t.Fatalf("layout has no sampler binding")
	}
	if !hasDescriptorBinding(instructions, sampler.Set, sampler.Binding) {
		t.Errorf("s0 not decorated with set %d binding %d", sampler.Set, sampler.Binding)
	}
}

func TestCompileLayoutMismatch(t *testing.T) {
	desc := rootsig.Desc{
		Parameters: []rootsig.RootParameter{
			{Kind: rootsig.ParameterTable, Table: []rootsig.DescriptorRange{
				{Kind: rootsig.RangeCBV, Count: 1, BaseRegister: 5},
			}},
		},
	}
	layout, err := rootsig.New(&desc, rootsig.Options{})
	if err != nil {
		t.Fatalf("rootsig.New failed: %v", err)
	}

	_, err = Compile(pixelShaderSample(), layout, nil, DefaultOptions())
	if !IsLayoutMismatch(err) {
		t.Errorf("expected a layout mismatch, got %v", err)
	}
}

func TestCompileTexelOffsetRejected(t *testing.T) {
	shader := pixelShaderSample()
	for i := range shader.Instructions {
		if shader.Instructions[i].Opcode == dxbc.OpSample {
			shader.Instructions[i].TexelOffset = [3]int8{1, -1, 0}
		}
	}
	_, err := Compile(shader, nil, nil, DefaultOptions())
	if !IsUnsupported(err) {
		t.Errorf("expected unsupported texel offsets, got %v", err)
	}
}

func TestCompileRelativeResourceIndexRejected(t *testing.T) {
	addr := src(reg(dxbc.RegisterTemp, 0, dxbc.TypeUint), dxbc.ScalarSwizzle(0))
	uav := reg(dxbc.RegisterUAV, 0, dxbc.TypeFloat)
	uav.Index[0].Rel = &addr
	shader := computeShader(
		dclThreadGroup(1, 1, 1),
		dxbc.Instruction{Opcode: dxbc.OpDclUAVTyped,
			Dst: []dxbc.DstParam{dst(uav, 0)},
			Dcl: &dxbc.Declaration{ResourceKind: dxbc.ResourceTexture2D, ResourceDataType: dxbc.TypeFloat}},
		ret(),
	)
	_, err := Compile(shader, nil, nil, DefaultOptions())
	if !IsUnsupported(err) {
		t.Errorf("expected unsupported relative resource index, got %v", err)
	}
}

func TestCompilePushConstantSizeMismatch(t *testing.T) {
	desc := rootsig.Desc{
		Parameters: []rootsig.RootParameter{
			{Kind: rootsig.ParameterConstants, Constants: rootsig.RootConstantsDesc{Register: 0, Count: 8}},
		},
	}
	layout, err := rootsig.New(&desc, rootsig.Options{})
	if err != nil {
		t.Fatalf("rootsig.New failed: %v", err)
	}

	cb := dxbc.Register{
		Kind:     dxbc.RegisterConstantBuffer,
		DataType: dxbc.TypeFloat,
		Index:    [2]dxbc.RegisterIndex{{Offset: 0}, {Offset: 4}},
	}
	shader := computeShader(
		dclThreadGroup(1, 1, 1),
		dxbc.Instruction{Opcode: dxbc.OpDclConstantBuffer,
			Src: []dxbc.SrcParam{src(cb, dxbc.NoSwizzle)},
			Dcl: &dxbc.Declaration{Count: 4}},
		ret(),
	)
	_, err = Compile(shader, layout, nil, DefaultOptions())
	if !IsLayoutMismatch(err) {
		t.Errorf("expected a push constant size mismatch, got %v", err)
	}
}

func TestCompilePushConstantBuffer(t *testing.T) {
	desc := rootsig.Desc{
		Parameters: []rootsig.RootParameter{
			{Kind: rootsig.ParameterConstants, Constants: rootsig.RootConstantsDesc{Register: 0, Count: 16}},
		},
	}
	layout, err := rootsig.New(&desc, rootsig.Options{})
	if err != nil {
		t.Fatalf("rootsig.New failed: %v", err)
	}

	cb := dxbc.Register{
		Kind:     dxbc.RegisterConstantBuffer,
		DataType: dxbc.TypeFloat,
		Index:    [2]dxbc.RegisterIndex{{Offset: 0}, {Offset: 4}},
	}
	read := cb
	read.Index[1].Offset = 2
	shader := computeShader(
		dclThreadGroup(1, 1, 1),
		dxbc.Instruction{Opcode: dxbc.OpDclConstantBuffer,
			Src: []dxbc.SrcParam{src(cb, dxbc.NoSwizzle)},
			Dcl: &dxbc.Declaration{Count: 4}},
		dclTemps(1),
		dxbc.Instruction{Opcode: dxbc.OpMov,
			Dst: []dxbc.DstParam{dst(reg(dxbc.RegisterTemp, 0, dxbc.TypeFloat), dxbc.WriteMaskAll)},
			Src: []dxbc.SrcParam{src(read, dxbc.NoSwizzle)}},
		ret(),
	)
	result := compile(t, shader, layout)
	_, instructions := decodeModule(t, result.Code)

	pushVar := false
	for _, v := range findOps(instructions, OpVariable) {
		if StorageClass(v.ops[2]) == StorageClassPushConstant {
			pushVar = true
		}
	}
	if !pushVar {
		t.Errorf("cb0 did not land in push-constant storage")
	}
	checkStructure(t, instructions)
}

func TestCompileUAVCounterReflection(t *testing.T) {
	uav := reg(dxbc.RegisterUAV, 0, dxbc.TypeFloat)
	shader := computeShader(
		dclThreadGroup(64, 1, 1),
		dxbc.Instruction{Opcode: dxbc.OpDclUAVTyped,
			Dst: []dxbc.DstParam{dst(uav, 0)},
			Dcl: &dxbc.Declaration{ResourceKind: dxbc.ResourceBuffer, ResourceDataType: dxbc.TypeUint}},
		dclTemps(1),
		dxbc.Instruction{Opcode: dxbc.OpImmAtomicAlloc,
			Dst: []dxbc.DstParam{
				dst(reg(dxbc.RegisterTemp, 0, dxbc.TypeUint), dxbc.WriteMaskX),
				dst(uav, 0),
			}},
		ret(),
	)
	result := compile(t, shader, nil)
	if len(result.UAVCounters) != 1 || result.UAVCounters[0].Register != 0 {
		t.Fatalf("UAV counter reflection = %v, want one entry for u0", result.UAVCounters)
	}

	_, instructions := decodeModule(t, result.Code)
	if n := countOp(instructions, OpAtomicIIncrement); n != 1 {
		t.Errorf("OpAtomicIIncrement count = %d, want 1", n)
	}
	if n := countOp(instructions, OpImageTexelPointer); n != 1 {
		t.Errorf("OpImageTexelPointer count = %d, want 1", n)
	}
	checkStructure(t, instructions)
}

func TestCompileStripDebug(t *testing.T) {
	shader := computeShader(dclThreadGroup(1, 1, 1), dclTemps(1), movFull(0, 0), ret())
	result, err := Compile(shader, nil, nil, Options{StripDebug: true})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	_, instructions := decodeModule(t, result.Code)
	if n := countOp(instructions, OpName); n != 0 {
		t.Errorf("stripped module still has %d OpName instructions", n)
	}
}

func TestCompileEmptyShaderRejected(t *testing.T) {
	if _, err := Compile(nil, nil, nil, DefaultOptions()); err == nil {
		t.Errorf("nil shader accepted")
	}
	if _, err := Compile(&dxbc.Shader{}, nil, nil, DefaultOptions()); err == nil {
		t.Errorf("empty instruction stream accepted")
	}
}
