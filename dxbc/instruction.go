package dxbc

// Opcode identifies an instruction, numbered as in the tokenized program
// format so decoded streams can be compared against disassembly.
type Opcode uint32

// Shader model 4 opcodes.
const (
	OpAdd        Opcode = 0
	OpAnd        Opcode = 1
	OpBreak      Opcode = 2
	OpBreakC     Opcode = 3
	OpCall       Opcode = 4
	OpCallC      Opcode = 5
	OpCase       Opcode = 6
	OpContinue   Opcode = 7
	OpContinueC  Opcode = 8
	OpCut        Opcode = 9
	OpDefault    Opcode = 10
	OpDerivRTX   Opcode = 11
	OpDerivRTY   Opcode = 12
	OpDiscard    Opcode = 13
	OpDiv        Opcode = 14
	OpDp2        Opcode = 15
	OpDp3        Opcode = 16
	OpDp4        Opcode = 17
	OpElse       Opcode = 18
	OpEmit       Opcode = 19
	OpEmitThenCut Opcode = 20
	OpEndIf      Opcode = 21
	OpEndLoop    Opcode = 22
	OpEndSwitch  Opcode = 23
	OpEq         Opcode = 24
	OpExp        Opcode = 25
	OpFrc        Opcode = 26
	OpFToI       Opcode = 27
	OpFToU       Opcode = 28
	OpGe         Opcode = 29
	OpIAdd       Opcode = 30
	OpIf         Opcode = 31
	OpIEq        Opcode = 32
	OpIGe        Opcode = 33
	OpILt        Opcode = 34
	OpIMad       Opcode = 35
	OpIMax       Opcode = 36
	OpIMin       Opcode = 37
	OpIMul       Opcode = 38
	OpINe        Opcode = 39
	OpINeg       Opcode = 40
	OpIShl       Opcode = 41
	OpIShr       Opcode = 42
	OpIToF       Opcode = 43
	OpLabel      Opcode = 44
	OpLd         Opcode = 45
	OpLdMS       Opcode = 46
	OpLog        Opcode = 47
	OpLoop       Opcode = 48
	OpLt         Opcode = 49
	OpMad        Opcode = 50
	OpMax        Opcode = 52
	OpMin        Opcode = 51
	OpCustomData Opcode = 53
	OpMov        Opcode = 54
	OpMovC       Opcode = 55
	OpMul        Opcode = 56
	OpNe         Opcode = 57
	OpNop        Opcode = 58
	OpNot        Opcode = 59
	OpOr         Opcode = 60
	OpResInfo    Opcode = 61
	OpRet        Opcode = 62
	OpRetC       Opcode = 63
	OpRoundNE    Opcode = 64
	OpRoundNI    Opcode = 65
	OpRoundPI    Opcode = 66
	OpRoundZ     Opcode = 67
	OpRsq        Opcode = 68
	OpSample     Opcode = 69
	OpSampleC    Opcode = 70
	OpSampleCLZ  Opcode = 71
	OpSampleL    Opcode = 72
	OpSampleD    Opcode = 73
	OpSampleB    Opcode = 74
	OpSqrt       Opcode = 75
	OpSwitch     Opcode = 76
	OpSinCos     Opcode = 77
	OpUDiv       Opcode = 78
	OpULt        Opcode = 79
	OpUGe        Opcode = 80
	OpUMul       Opcode = 81
	OpUMad       Opcode = 82
	OpUMax       Opcode = 83
	OpUMin       Opcode = 84
	OpUShr       Opcode = 85
	OpUToF       Opcode = 86
	OpXor        Opcode = 87

	OpDclResource        Opcode = 88
	OpDclConstantBuffer  Opcode = 89
	OpDclSampler         Opcode = 90
	OpDclIndexRange      Opcode = 91
	OpDclOutputTopology  Opcode = 92
	OpDclInputPrimitive  Opcode = 93
	OpDclVerticesOut     Opcode = 94
	OpDclInput           Opcode = 95
	OpDclInputSgv        Opcode = 96
	OpDclInputSiv        Opcode = 97
	OpDclInputPS         Opcode = 98
	OpDclInputPSSgv      Opcode = 99
	OpDclInputPSSiv      Opcode = 100
	OpDclOutput          Opcode = 101
	OpDclOutputSgv       Opcode = 102
	OpDclOutputSiv       Opcode = 103
	OpDclTemps           Opcode = 104
	OpDclIndexableTemp   Opcode = 105
	OpDclGlobalFlags     Opcode = 106
)

// Shader model 5 opcodes.
const (
	OpRcp         Opcode = 129
	OpF32ToF16    Opcode = 130
	OpF16ToF32    Opcode = 131
	OpCountBits   Opcode = 134
	OpFirstBitHi  Opcode = 135
	OpFirstBitLo  Opcode = 136
	OpFirstBitSHi Opcode = 137
	OpUBfe        Opcode = 138
	OpIBfe        Opcode = 139
	OpBfi         Opcode = 140
	OpBfRev       Opcode = 141
	OpSwapC       Opcode = 142

	OpDclThreadGroup Opcode = 155
	OpDclUAVTyped    Opcode = 156

	OpStoreUAVTyped Opcode = 164

	OpImmAtomicAlloc   Opcode = 178
	OpImmAtomicConsume Opcode = 179

	OpSync Opcode = 190
)

// IsDeclaration reports whether the opcode belongs to the declarations
// section of the instruction stream.
func (op Opcode) IsDeclaration() bool {
	switch {
	case op >= OpDclResource && op <= OpDclGlobalFlags:
		return true
	case op == OpDclThreadGroup || op == OpDclUAVTyped:
		return true
	case op == OpCustomData:
		// Immediate constant buffers arrive as custom data.
		return true
	}
	return false
}

// RegisterIndex addresses one dimension of a register, optionally with a
// relative component loaded from another register.
type RegisterIndex struct {
	Offset uint32
	Rel    *SrcParam
}

// ImmediateKind distinguishes scalar from four-component immediates.
type ImmediateKind uint8

const (
	ImmediateVec4 ImmediateKind = iota
	ImmediateScalar
)

// Register is a reference into one of the shader register files.
type Register struct {
	Kind     RegisterKind
	DataType DataType
	Index    [2]RegisterIndex

	// Immediate data, valid when Kind == RegisterImmediate.
	ImmKind   ImmediateKind
	Immediate [4]uint32
}

// SrcParam is a source operand: a register with swizzle and modifier.
type SrcParam struct {
	Reg      Register
	Swizzle  Swizzle
	Modifier SrcModifier
}

// DstParam is a destination operand: a register with write mask and
// modifier.
type DstParam struct {
	Reg      Register
	Mask     WriteMask
	Modifier DstModifier
}

// Declaration carries the payload of a dcl_* instruction that does not fit
// in the operands.
type Declaration struct {
	// Count is the register count for dcl_temps and the vec4 size for
	// dcl_constant_buffer.
	Count uint32

	// ThreadGroup is the compute local size for dcl_thread_group.
	ThreadGroup [3]uint32

	// ResourceKind and ResourceDataType describe dcl_resource and
	// dcl_uav_typed.
	ResourceKind     ResourceKind
	ResourceDataType DataType

	// SysVal is the semantic for *_siv and *_sgv declarations.
	SysVal SysVal

	// ICB is the immediate constant buffer contents, one vec4 per entry.
	ICB [][4]uint32
}

// Instruction is one decoded instruction.
type Instruction struct {
	Opcode Opcode
	// Flags holds opcode-specific controls: conditional test bits, global
	// flags, or an interpolation mode.
	Flags uint32
	Dst   []DstParam
	Src   []SrcParam
	// Dcl is non-nil for declaration instructions.
	Dcl *Declaration
	// TexelOffset is non-zero when the sample instruction carried an
	// aoffimmi suffix; it has no SPIR-V mapping here and is rejected.
	TexelOffset [3]int8
}

// HasTexelOffset reports whether any aoffimmi component is non-zero.
func (ins *Instruction) HasTexelOffset() bool {
	return ins.TexelOffset != [3]int8{}
}

// Shader is a fully parsed shader: version, signatures and instruction
// stream.
type Shader struct {
	Version         Version
	InputSignature  Signature
	OutputSignature Signature
	Instructions    []Instruction
}
