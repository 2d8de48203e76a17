package spirv

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"
)

// stream is an append-only sequence of instruction words.
type stream []uint32

func (s *stream) word(w uint32) {
	*s = append(*s, w)
}

// op appends one instruction: a header word holding the opcode and total
// word count, then the operand words.
func (s *stream) op(opcode OpCode, operands ...uint32) {
	*s = append(*s, uint32(len(operands)+1)<<16|uint32(opcode))
	*s = append(*s, operands...)
}

// encodeString packs a NUL-terminated UTF-8 string into little-endian
// words, zero-padding the final word.
func encodeString(text string) []uint32 {
	raw := append([]byte(text), 0)
	for len(raw)%4 != 0 {
		raw = append(raw, 0)
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = uint32(raw[4*i]) | uint32(raw[4*i+1])<<8 | uint32(raw[4*i+2])<<16 | uint32(raw[4*i+3])<<24
	}
	return words
}

// Builder accumulates a SPIR-V module across four ordered word streams:
// debug instructions, annotations, globals (types, constants, global
// variables) and the function bodies. Keeping the streams separate
// enforces the SPIR-V section ordering without a second pass.
type Builder struct {
	debug       stream
	annotations stream
	globals     stream
	functions   stream

	nextID uint32
	caps   *bitset.BitSet
	decls  map[declKey]uint32

	glslImportID uint32

	execModel    ExecutionModel
	localSize    [3]uint32
	hasLocalSize bool
	iface        []uint32
}

// NewBuilder creates an empty module builder. Result id 0 is reserved;
// allocation starts at 1.
func NewBuilder() *Builder {
	return &Builder{
		nextID: 1,
		caps:   bitset.New(capabilityLimit),
		decls:  make(map[declKey]uint32),
	}
}

// AllocID allocates a fresh result id.
func (b *Builder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

// Bound returns the id bound the module header will carry.
func (b *Builder) Bound() uint32 { return b.nextID }

// EnableCapability marks a capability as required by the module.
func (b *Builder) EnableCapability(cap Capability) {
	b.caps.Set(uint(cap))
}

// HasCapability reports whether a capability has been enabled.
func (b *Builder) HasCapability(cap Capability) bool {
	return b.caps.Test(uint(cap))
}

// GLSLStd450 returns the id of the GLSL.std.450 instruction set import,
// allocating it on first use.
func (b *Builder) GLSLStd450() uint32 {
	if b.glslImportID == 0 {
		b.glslImportID = b.AllocID()
	}
	return b.glslImportID
}

// SetExecutionModel records the entry point's execution model.
func (b *Builder) SetExecutionModel(model ExecutionModel) {
	b.execModel = model
	switch model {
	case ExecutionModelGeometry:
		b.EnableCapability(CapabilityGeometry)
	case ExecutionModelTessellationControl, ExecutionModelTessellationEvaluation:
		b.EnableCapability(CapabilityTessellation)
	default:
		b.EnableCapability(CapabilityShader)
	}
}

// SetLocalSize records the compute workgroup size.
func (b *Builder) SetLocalSize(x, y, z uint32) {
	b.localSize = [3]uint32{x, y, z}
	b.hasLocalSize = true
}

// AddInterface appends a variable to the entry-point interface list.
func (b *Builder) AddInterface(id uint32) {
	b.iface = append(b.iface, id)
}

// Name attaches an OpName debug name to an id.
func (b *Builder) Name(id uint32, name string) {
	b.debug.op(OpName, append([]uint32{id}, encodeString(name)...)...)
}

// MemberName attaches an OpMemberName debug name to a struct member.
func (b *Builder) MemberName(structID, member uint32, name string) {
	b.debug.op(OpMemberName, append([]uint32{structID, member}, encodeString(name)...)...)
}

// Decorate appends an OpDecorate annotation.
func (b *Builder) Decorate(id uint32, decoration Decoration, params ...uint32) {
	b.annotations.op(OpDecorate, append([]uint32{id, uint32(decoration)}, params...)...)
}

// MemberDecorate appends an OpMemberDecorate annotation.
func (b *Builder) MemberDecorate(structID, member uint32, decoration Decoration, params ...uint32) {
	b.annotations.op(OpMemberDecorate, append([]uint32{structID, member, uint32(decoration)}, params...)...)
}

// globalOpR emits an instruction with a leading result id into the
// globals stream and returns the id.
func (b *Builder) globalOpR(opcode OpCode, operands ...uint32) uint32 {
	id := b.AllocID()
	b.globals.op(opcode, append([]uint32{id}, operands...)...)
	return id
}

// globalOpTR emits an instruction with result type and result id into
// the globals stream and returns the id.
func (b *Builder) globalOpTR(opcode OpCode, typeID uint32, operands ...uint32) uint32 {
	id := b.AllocID()
	b.globals.op(opcode, append([]uint32{typeID, id}, operands...)...)
	return id
}

// fnOp emits a result-less instruction into the function stream.
func (b *Builder) fnOp(opcode OpCode, operands ...uint32) {
	b.functions.op(opcode, operands...)
}

// fnOpTR emits an instruction with result type and result id into the
// function stream and returns the id.
func (b *Builder) fnOpTR(opcode OpCode, typeID uint32, operands ...uint32) uint32 {
	id := b.AllocID()
	b.functions.op(opcode, append([]uint32{typeID, id}, operands...)...)
	return id
}

// GlobalVariable emits an OpVariable into the globals stream. A zero
// initializer id means no initializer.
func (b *Builder) GlobalVariable(ptrTypeID uint32, class StorageClass, initializer uint32) uint32 {
	if initializer != 0 {
		return b.globalOpTR(OpVariable, ptrTypeID, uint32(class), initializer)
	}
	return b.globalOpTR(OpVariable, ptrTypeID, uint32(class))
}

// FunctionVariable emits an OpVariable into the function stream. Callers
// must only do this at the head of the entry block.
func (b *Builder) FunctionVariable(ptrTypeID uint32, class StorageClass) uint32 {
	return b.fnOpTR(OpVariable, ptrTypeID, uint32(class))
}

// BeginFunction emits OpFunction with a fresh result id.
func (b *Builder) BeginFunction(returnTypeID, fnTypeID uint32) uint32 {
	id := b.AllocID()
	b.functions.op(OpFunction, returnTypeID, id, uint32(FunctionControlNone), fnTypeID)
	return id
}

// BeginFunctionWithID emits OpFunction using a pre-allocated result id,
// for functions that were forward-called.
func (b *Builder) BeginFunctionWithID(returnTypeID, id, fnTypeID uint32) {
	b.functions.op(OpFunction, returnTypeID, id, uint32(FunctionControlNone), fnTypeID)
}

// FunctionParameter emits an OpFunctionParameter.
func (b *Builder) FunctionParameter(typeID uint32) uint32 {
	return b.fnOpTR(OpFunctionParameter, typeID)
}

// EndFunction emits OpFunctionEnd.
func (b *Builder) EndFunction() {
	b.fnOp(OpFunctionEnd)
}

// Label opens a new block with a fresh id and returns it.
func (b *Builder) Label() uint32 {
	id := b.AllocID()
	b.functions.op(OpLabel, id)
	return id
}

// LabelID opens a new block with a pre-allocated id.
func (b *Builder) LabelID(id uint32) {
	b.functions.op(OpLabel, id)
}

// Load emits OpLoad.
func (b *Builder) Load(typeID, pointer uint32) uint32 {
	return b.fnOpTR(OpLoad, typeID, pointer)
}

// Store emits OpStore.
func (b *Builder) Store(pointer, value uint32) {
	b.fnOp(OpStore, pointer, value)
}

// AccessChain emits OpAccessChain.
func (b *Builder) AccessChain(typeID, base uint32, indexes ...uint32) uint32 {
	return b.fnOpTR(OpAccessChain, typeID, append([]uint32{base}, indexes...)...)
}

// InBoundsAccessChain emits OpInBoundsAccessChain.
func (b *Builder) InBoundsAccessChain(typeID, base uint32, indexes ...uint32) uint32 {
	return b.fnOpTR(OpInBoundsAccessChain, typeID, append([]uint32{base}, indexes...)...)
}

// VectorShuffle emits OpVectorShuffle.
func (b *Builder) VectorShuffle(typeID, vec1, vec2 uint32, components []uint32) uint32 {
	return b.fnOpTR(OpVectorShuffle, typeID, append([]uint32{vec1, vec2}, components...)...)
}

// CompositeConstruct emits OpCompositeConstruct.
func (b *Builder) CompositeConstruct(typeID uint32, constituents ...uint32) uint32 {
	return b.fnOpTR(OpCompositeConstruct, typeID, constituents...)
}

// CompositeExtract emits OpCompositeExtract.
func (b *Builder) CompositeExtract(typeID, composite uint32, indexes ...uint32) uint32 {
	return b.fnOpTR(OpCompositeExtract, typeID, append([]uint32{composite}, indexes...)...)
}

// Bitcast emits OpBitcast.
func (b *Builder) Bitcast(typeID, value uint32) uint32 {
	return b.fnOpTR(OpBitcast, typeID, value)
}

// Select emits OpSelect.
func (b *Builder) Select(typeID, condition, accept, reject uint32) uint32 {
	return b.fnOpTR(OpSelect, typeID, condition, accept, reject)
}

// BinOp emits a generic two-operand instruction with a result.
func (b *Builder) BinOp(opcode OpCode, typeID, left, right uint32) uint32 {
	return b.fnOpTR(opcode, typeID, left, right)
}

// UnOp emits a generic one-operand instruction with a result.
func (b *Builder) UnOp(opcode OpCode, typeID, operand uint32) uint32 {
	return b.fnOpTR(opcode, typeID, operand)
}

// OpV emits a generic instruction with a result and a variable operand
// list.
func (b *Builder) OpV(opcode OpCode, typeID uint32, operands ...uint32) uint32 {
	return b.fnOpTR(opcode, typeID, operands...)
}

// ExtInst emits a GLSL.std.450 extended instruction.
func (b *Builder) ExtInst(typeID, instruction uint32, operands ...uint32) uint32 {
	set := b.GLSLStd450()
	return b.fnOpTR(OpExtInst, typeID, append([]uint32{set, instruction}, operands...)...)
}

// FunctionCall emits OpFunctionCall.
func (b *Builder) FunctionCall(typeID, function uint32, arguments ...uint32) uint32 {
	return b.fnOpTR(OpFunctionCall, typeID, append([]uint32{function}, arguments...)...)
}

// SampledImageOp emits OpSampledImage.
func (b *Builder) SampledImageOp(typeID, image, sampler uint32) uint32 {
	return b.fnOpTR(OpSampledImage, typeID, image, sampler)
}

// ImageSampleImplicitLod emits the basic sampling instruction.
func (b *Builder) ImageSampleImplicitLod(typeID, sampledImage, coordinate uint32) uint32 {
	return b.fnOpTR(OpImageSampleImplicitLod, typeID, sampledImage, coordinate)
}

// ImageFetchLod emits OpImageFetch with an explicit Lod operand.
func (b *Builder) ImageFetchLod(typeID, image, coordinate, lod uint32) uint32 {
	return b.fnOpTR(OpImageFetch, typeID, image, coordinate, ImageOperandsLod, lod)
}

// ImageFetch emits OpImageFetch without image operands.
func (b *Builder) ImageFetch(typeID, image, coordinate uint32) uint32 {
	return b.fnOpTR(OpImageFetch, typeID, image, coordinate)
}

// ImageWrite emits OpImageWrite.
func (b *Builder) ImageWrite(image, coordinate, texel uint32) {
	b.fnOp(OpImageWrite, image, coordinate, texel)
}

// ImageTexelPointer emits OpImageTexelPointer.
func (b *Builder) ImageTexelPointer(typeID, image, coordinate, sample uint32) uint32 {
	return b.fnOpTR(OpImageTexelPointer, typeID, image, coordinate, sample)
}

// Atomic emits a one-pointer atomic instruction. Scope and semantics are
// ids of integer constants.
func (b *Builder) Atomic(opcode OpCode, typeID, pointer, scopeID, semanticsID uint32) uint32 {
	return b.fnOpTR(opcode, typeID, pointer, scopeID, semanticsID)
}

// Branch emits OpBranch.
func (b *Builder) Branch(target uint32) {
	b.fnOp(OpBranch, target)
}

// BranchConditional emits OpBranchConditional.
func (b *Builder) BranchConditional(condition, trueLabel, falseLabel uint32) {
	b.fnOp(OpBranchConditional, condition, trueLabel, falseLabel)
}

// SelectionMergeOp emits OpSelectionMerge.
func (b *Builder) SelectionMergeOp(mergeLabel uint32) {
	b.fnOp(OpSelectionMerge, mergeLabel, uint32(SelectionControlNone))
}

// LoopMergeOp emits OpLoopMerge.
func (b *Builder) LoopMergeOp(mergeLabel, continueLabel uint32) {
	b.fnOp(OpLoopMerge, mergeLabel, continueLabel, uint32(LoopControlNone))
}

// Return emits OpReturn.
func (b *Builder) Return() {
	b.fnOp(OpReturn)
}

// StripDebug discards the debug stream.
func (b *Builder) StripDebug() {
	b.debug = nil
}

// Assemble concatenates the header, the fixed leading sections and the
// four streams into the final little-endian module. After assembly every
// id referenced by the function stream has its defining instruction
// lexically earlier, because types, constants and globals all live in
// the globals stream.
func (b *Builder) Assemble(version Version, entryName string, entryPoint uint32) []byte {
	var head stream

	for c, ok := b.caps.NextSet(0); ok; c, ok = b.caps.NextSet(c + 1) {
		head.op(OpCapability, uint32(c))
	}
	if b.glslImportID != 0 {
		head.op(OpExtInstImport, append([]uint32{b.glslImportID}, encodeString("GLSL.std.450")...)...)
	}
	head.op(OpMemoryModel, uint32(AddressingModelLogical), uint32(MemoryModelGLSL450))

	entry := []uint32{uint32(b.execModel), entryPoint}
	entry = append(entry, encodeString(entryName)...)
	entry = append(entry, b.iface...)
	head.op(OpEntryPoint, entry...)

	if b.execModel == ExecutionModelFragment {
		head.op(OpExecutionMode, entryPoint, uint32(ExecutionModeOriginUpperLeft))
	}
	if b.hasLocalSize {
		head.op(OpExecutionMode, entryPoint, uint32(ExecutionModeLocalSize),
			b.localSize[0], b.localSize[1], b.localSize[2])
	}

	total := 5 + len(head) + len(b.debug) + len(b.annotations) + len(b.globals) + len(b.functions)
	out := make([]byte, 0, total*4)
	putWord := func(w uint32) {
		out = binary.LittleEndian.AppendUint32(out, w)
	}

	putWord(MagicNumber)
	putWord(uint32(version.Major)<<16 | uint32(version.Minor)<<8)
	putWord(GeneratorID)
	putWord(b.Bound())
	putWord(0)

	for _, s := range []stream{head, b.debug, b.annotations, b.globals, b.functions} {
		for _, w := range s {
			putWord(w)
		}
	}
	return out
}
