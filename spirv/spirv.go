// Package spirv generates SPIR-V modules from Direct3D shader bytecode.
//
// SPIR-V is the standard intermediate language for GPU shaders consumed
// by Vulkan. The package contains the binary module writer, the
// deduplicating type/constant table, and the recompiler backend that
// walks a decoded dxbc instruction stream and emits an equivalent
// SPIR-V 1.0 module for a Vulkan 1.0 environment.
package spirv

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Version1_0 is the only version the Vulkan 1.0 environment accepts.
var Version1_0 = Version{1, 0}

// SPIR-V magic number and constants.
const (
	MagicNumber = 0x07230203
	GeneratorID = 0x00000000 // Unregistered generator
)

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Debug and annotation opcodes.
const (
	OpNop            OpCode = 0
	OpUndef          OpCode = 1
	OpSource         OpCode = 3
	OpName           OpCode = 5
	OpMemberName     OpCode = 6
	OpString         OpCode = 7
	OpExtension      OpCode = 10
	OpExtInstImport  OpCode = 11
	OpExtInst        OpCode = 12
	OpMemoryModel    OpCode = 14
	OpEntryPoint     OpCode = 15
	OpExecutionMode  OpCode = 16
	OpCapability     OpCode = 17
	OpDecorate       OpCode = 71
	OpMemberDecorate OpCode = 72
)

// Type-declaration opcodes.
const (
	OpTypeVoid         OpCode = 19
	OpTypeBool         OpCode = 20
	OpTypeInt          OpCode = 21
	OpTypeFloat        OpCode = 22
	OpTypeVector       OpCode = 23
	OpTypeMatrix       OpCode = 24
	OpTypeImage        OpCode = 25
	OpTypeSampler      OpCode = 26
	OpTypeSampledImage OpCode = 27
	OpTypeArray        OpCode = 28
	OpTypeRuntimeArray OpCode = 29
	OpTypeStruct       OpCode = 30
	OpTypePointer      OpCode = 32
	OpTypeFunction     OpCode = 33
)

// Constant opcodes.
const (
	OpConstantTrue      OpCode = 41
	OpConstantFalse     OpCode = 42
	OpConstant          OpCode = 43
	OpConstantComposite OpCode = 44
	OpConstantNull      OpCode = 46
)

// Function and memory opcodes.
const (
	OpFunction            OpCode = 54
	OpFunctionParameter   OpCode = 55
	OpFunctionEnd         OpCode = 56
	OpFunctionCall        OpCode = 57
	OpVariable            OpCode = 59
	OpImageTexelPointer   OpCode = 60
	OpLoad                OpCode = 61
	OpStore               OpCode = 62
	OpAccessChain         OpCode = 65
	OpInBoundsAccessChain OpCode = 66
)

// Composite opcodes.
const (
	OpVectorShuffle      OpCode = 79
	OpCompositeConstruct OpCode = 80
	OpCompositeExtract   OpCode = 81
)

// Image opcodes.
const (
	OpSampledImage           OpCode = 86
	OpImageSampleImplicitLod OpCode = 87
	OpImageFetch             OpCode = 95
	OpImageRead              OpCode = 98
	OpImageWrite             OpCode = 99
)

// Conversion opcodes.
const (
	OpConvertFToU OpCode = 109
	OpConvertFToS OpCode = 110
	OpConvertSToF OpCode = 111
	OpConvertUToF OpCode = 112
	OpBitcast     OpCode = 124
)

// Arithmetic opcodes.
const (
	OpSNegate OpCode = 126
	OpFNegate OpCode = 127
	OpIAdd    OpCode = 128
	OpFAdd    OpCode = 129
	OpISub    OpCode = 130
	OpFSub    OpCode = 131
	OpIMul    OpCode = 132
	OpFMul    OpCode = 133
	OpUDiv    OpCode = 134
	OpSDiv    OpCode = 135
	OpFDiv    OpCode = 136
	OpUMod    OpCode = 137
	OpSMod    OpCode = 139
	OpFMod    OpCode = 141
	OpDot     OpCode = 148
)

// Logical and comparison opcodes.
const (
	OpLogicalOr            OpCode = 166
	OpLogicalAnd           OpCode = 167
	OpLogicalNot           OpCode = 168
	OpSelect               OpCode = 169
	OpIEqual               OpCode = 170
	OpINotEqual            OpCode = 171
	OpUGreaterThan         OpCode = 172
	OpSGreaterThan         OpCode = 173
	OpUGreaterThanEqual    OpCode = 174
	OpSGreaterThanEqual    OpCode = 175
	OpULessThan            OpCode = 176
	OpSLessThan            OpCode = 177
	OpULessThanEqual       OpCode = 178
	OpSLessThanEqual       OpCode = 179
	OpFOrdEqual            OpCode = 180
	OpFUnordEqual          OpCode = 181
	OpFOrdNotEqual         OpCode = 182
	OpFUnordNotEqual       OpCode = 183
	OpFOrdLessThan         OpCode = 184
	OpFOrdGreaterThan      OpCode = 186
	OpFOrdLessThanEqual    OpCode = 188
	OpFOrdGreaterThanEqual OpCode = 190
)

// Bitwise opcodes.
const (
	OpShiftRightLogical    OpCode = 194
	OpShiftRightArithmetic OpCode = 195
	OpShiftLeftLogical     OpCode = 196
	OpBitwiseOr            OpCode = 197
	OpBitwiseXor           OpCode = 198
	OpBitwiseAnd           OpCode = 199
	OpNot                  OpCode = 200
	OpBitFieldInsert       OpCode = 201
	OpBitFieldSExtract     OpCode = 202
	OpBitFieldUExtract     OpCode = 203
	OpBitReverse           OpCode = 204
	OpBitCount             OpCode = 205
)

// Atomic opcodes.
const (
	OpAtomicIIncrement OpCode = 232
	OpAtomicIDecrement OpCode = 233
	OpAtomicIAdd       OpCode = 234
)

// Control flow opcodes.
const (
	OpLoopMerge         OpCode = 246
	OpSelectionMerge    OpCode = 247
	OpLabel             OpCode = 248
	OpBranch            OpCode = 249
	OpBranchConditional OpCode = 250
	OpKill              OpCode = 252
	OpReturn            OpCode = 253
	OpReturnValue       OpCode = 254
	OpUnreachable       OpCode = 255
)

// Capability represents a SPIR-V capability.
type Capability uint32

// Capabilities this backend can require.
const (
	CapabilityShader                            Capability = 1
	CapabilityGeometry                          Capability = 2
	CapabilityTessellation                      Capability = 3
	CapabilityUniformBufferArrayDynamicIndexing Capability = 28
	CapabilityImageCubeArray                    Capability = 34
	CapabilitySampled1D                         Capability = 43
	CapabilityImage1D                           Capability = 44
	CapabilitySampledCubeArray                  Capability = 45
	CapabilitySampledBuffer                     Capability = 46
	CapabilityImageBuffer                       Capability = 47
	CapabilityStorageImageWriteWithoutFormat    Capability = 56
)

// capabilityLimit bounds the capability bitset.
const capabilityLimit = 64

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Decorations this backend emits.
const (
	DecorationBlock         Decoration = 2
	DecorationArrayStride   Decoration = 6
	DecorationBuiltIn       Decoration = 11
	DecorationFlat          Decoration = 14
	DecorationNonReadable   Decoration = 25
	DecorationLocation      Decoration = 30
	DecorationComponent     Decoration = 31
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// BuiltIn represents a SPIR-V built-in decoration value.
type BuiltIn uint32

// Built-in variables the input/output router targets.
const (
	BuiltInPosition             BuiltIn = 0
	BuiltInFragCoord            BuiltIn = 15
	BuiltInWorkgroupID          BuiltIn = 26
	BuiltInLocalInvocationID    BuiltIn = 27
	BuiltInGlobalInvocationID   BuiltIn = 28
	BuiltInLocalInvocationIndex BuiltIn = 29
	BuiltInVertexIndex          BuiltIn = 42
	BuiltInInstanceIndex        BuiltIn = 43
)

// ExecutionModel represents a SPIR-V execution model.
type ExecutionModel uint32

// Execution models, one per shader stage.
const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
)

// ExecutionMode represents a SPIR-V execution mode.
type ExecutionMode uint32

// Execution modes this backend emits.
const (
	ExecutionModeOriginUpperLeft ExecutionMode = 7
	ExecutionModeLocalSize       ExecutionMode = 17
)

// StorageClass represents a SPIR-V storage class.
type StorageClass uint32

// Storage classes.
const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassPushConstant    StorageClass = 9
	StorageClassImage           StorageClass = 11
)

// AddressingModel represents a SPIR-V addressing model.
type AddressingModel uint32

// AddressingModelLogical is the only model shaders use.
const AddressingModelLogical AddressingModel = 0

// MemoryModel represents a SPIR-V memory model.
type MemoryModel uint32

// MemoryModelGLSL450 is the memory model for Vulkan shaders.
const MemoryModelGLSL450 MemoryModel = 1

// FunctionControl represents SPIR-V function control flags.
type FunctionControl uint32

// FunctionControlNone requests no special function treatment.
const FunctionControlNone FunctionControl = 0

// SelectionControl flags for OpSelectionMerge.
type SelectionControl uint32

// SelectionControlNone requests no flattening hints.
const SelectionControlNone SelectionControl = 0

// LoopControl flags for OpLoopMerge.
type LoopControl uint32

// LoopControlNone requests no unrolling hints.
const LoopControlNone LoopControl = 0

// Dim represents an image dimensionality.
type Dim uint32

// Image dimensionalities.
const (
	Dim1D     Dim = 0
	Dim2D     Dim = 1
	Dim3D     Dim = 2
	DimCube   Dim = 3
	DimBuffer Dim = 5
)

// ImageFormat represents a SPIR-V image format.
type ImageFormat uint32

// Image formats this backend emits.
const (
	ImageFormatUnknown ImageFormat = 0
	ImageFormatR32ui   ImageFormat = 33
)

// Image operand bits.
const (
	ImageOperandsLod    uint32 = 0x2
	ImageOperandsSample uint32 = 0x40
)

// ScopeDevice is the memory scope for UAV counter atomics.
const ScopeDevice uint32 = 1

// MemorySemanticsNone relaxes atomic ordering.
const MemorySemanticsNone uint32 = 0

// GLSL.std.450 extended instruction numbers.
const (
	GLSLstd450RoundEven      uint32 = 2
	GLSLstd450Trunc          uint32 = 3
	GLSLstd450FAbs           uint32 = 4
	GLSLstd450Floor          uint32 = 8
	GLSLstd450Ceil           uint32 = 9
	GLSLstd450Fract          uint32 = 10
	GLSLstd450Exp2           uint32 = 29
	GLSLstd450Log2           uint32 = 30
	GLSLstd450Sqrt           uint32 = 31
	GLSLstd450InverseSqrt    uint32 = 32
	GLSLstd450FMin           uint32 = 37
	GLSLstd450UMin           uint32 = 38
	GLSLstd450SMin           uint32 = 39
	GLSLstd450FMax           uint32 = 40
	GLSLstd450UMax           uint32 = 41
	GLSLstd450SMax           uint32 = 42
	GLSLstd450Fma            uint32 = 50
	GLSLstd450PackHalf2x16   uint32 = 58
	GLSLstd450UnpackHalf2x16 uint32 = 62
	GLSLstd450FindILsb       uint32 = 73
	GLSLstd450FindSMsb       uint32 = 74
	GLSLstd450FindUMsb       uint32 = 75
	GLSLstd450NClamp         uint32 = 81
)

// ComponentType classifies the scalar component of a value.
type ComponentType uint8

// Component types.
const (
	ComponentVoid ComponentType = iota
	ComponentBool
	ComponentFloat
	ComponentInt
	ComponentUint
)

// VectorSize is the register width everything is staged through.
const VectorSize = 4
