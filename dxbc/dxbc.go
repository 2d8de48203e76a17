package dxbc

import "math/bits"

// Stage identifies the pipeline stage a shader targets.
type Stage uint8

const (
	StagePixel Stage = iota
	StageVertex
	StageGeometry
	StageHull
	StageDomain
	StageCompute
)

// String returns a human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StagePixel:
		return "pixel"
	case StageVertex:
		return "vertex"
	case StageGeometry:
		return "geometry"
	case StageHull:
		return "hull"
	case StageDomain:
		return "domain"
	case StageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// Version is the shader model version from the instruction stream header.
type Version struct {
	Stage Stage
	Major uint8
	Minor uint8
}

// RegisterKind identifies a register file.
type RegisterKind uint8

const (
	RegisterTemp RegisterKind = iota
	RegisterInput
	RegisterOutput
	RegisterConstantBuffer
	RegisterImmediateConstantBuffer
	RegisterSampler
	RegisterResource
	RegisterUAV
	RegisterThreadID
	RegisterLocalThreadID
	RegisterLocalThreadIndex
	RegisterThreadGroupID
	RegisterImmediate
	RegisterNull
)

// String returns the assembly-style register prefix.
func (k RegisterKind) String() string {
	switch k {
	case RegisterTemp:
		return "r"
	case RegisterInput:
		return "v"
	case RegisterOutput:
		return "o"
	case RegisterConstantBuffer:
		return "cb"
	case RegisterImmediateConstantBuffer:
		return "icb"
	case RegisterSampler:
		return "s"
	case RegisterResource:
		return "t"
	case RegisterUAV:
		return "u"
	case RegisterThreadID:
		return "vThreadID"
	case RegisterLocalThreadID:
		return "vThreadIDInGroup"
	case RegisterLocalThreadIndex:
		return "vThreadIDInGroupFlattened"
	case RegisterThreadGroupID:
		return "vThreadGroupID"
	case RegisterImmediate:
		return "l"
	case RegisterNull:
		return "null"
	default:
		return "?"
	}
}

// DataType is the data type carried by a register reference.
type DataType uint8

const (
	TypeFloat DataType = iota
	TypeInt
	TypeUint
)

// SysVal is a system-value semantic attached to an input or output.
type SysVal uint32

// System-value semantics, numbered as in signature chunks and *_siv tokens.
const (
	SysValNone           SysVal = 0
	SysValPosition       SysVal = 1
	SysValClipDistance   SysVal = 2
	SysValCullDistance   SysVal = 3
	SysValRTArrayIndex   SysVal = 4
	SysValViewportIndex  SysVal = 5
	SysValVertexID       SysVal = 6
	SysValPrimitiveID    SysVal = 7
	SysValInstanceID     SysVal = 8
	SysValIsFrontFace    SysVal = 9
	SysValSampleIndex    SysVal = 10
)

// ResourceKind is the dimensionality of a declared resource or UAV.
type ResourceKind uint8

const (
	ResourceUnknown ResourceKind = iota
	ResourceBuffer
	ResourceTexture1D
	ResourceTexture2D
	ResourceTexture2DMS
	ResourceTexture3D
	ResourceTextureCube
	ResourceTexture1DArray
	ResourceTexture2DArray
	ResourceTexture2DMSArray
	ResourceTextureCubeArray
)

// String returns a human-readable resource kind name.
func (k ResourceKind) String() string {
	switch k {
	case ResourceBuffer:
		return "buffer"
	case ResourceTexture1D:
		return "texture1d"
	case ResourceTexture2D:
		return "texture2d"
	case ResourceTexture2DMS:
		return "texture2dms"
	case ResourceTexture3D:
		return "texture3d"
	case ResourceTextureCube:
		return "texturecube"
	case ResourceTexture1DArray:
		return "texture1darray"
	case ResourceTexture2DArray:
		return "texture2darray"
	case ResourceTexture2DMSArray:
		return "texture2dmsarray"
	case ResourceTextureCubeArray:
		return "texturecubearray"
	default:
		return "unknown"
	}
}

// InterpolationMode is the interpolation qualifier on a pixel-shader input.
type InterpolationMode uint32

const (
	InterpolationUndefined InterpolationMode = iota
	InterpolationConstant
	InterpolationLinear
	InterpolationLinearCentroid
	InterpolationLinearNoPerspective
	InterpolationLinearNoPerspectiveCentroid
	InterpolationLinearSample
	InterpolationLinearNoPerspectiveSample
)

// WriteMask selects destination components. Bit i selects component i.
type WriteMask uint32

// Component write-mask bits.
const (
	WriteMaskX   WriteMask = 0x1
	WriteMaskY   WriteMask = 0x2
	WriteMaskZ   WriteMask = 0x4
	WriteMaskW   WriteMask = 0x8
	WriteMaskXY  WriteMask = WriteMaskX | WriteMaskY
	WriteMaskXYZ WriteMask = WriteMaskXY | WriteMaskZ
	WriteMaskAll WriteMask = 0xf
)

// ComponentCount returns the number of selected components.
func (m WriteMask) ComponentCount() int {
	return bits.OnesCount32(uint32(m) & 0xf)
}

// FirstComponent returns the index of the lowest selected component.
func (m WriteMask) FirstComponent() int {
	return bits.TrailingZeros32(uint32(m) | 0x10)
}

// Swizzle packs four 2-bit source component selectors, component i in
// bits 2i..2i+1.
type Swizzle uint32

// NoSwizzle selects .xyzw.
const NoSwizzle Swizzle = 0xe4

// Component returns the source component selected for destination
// component i.
func (s Swizzle) Component(i int) int {
	return int(s>>(2*uint(i))) & 0x3
}

// MakeSwizzle packs four component selectors.
func MakeSwizzle(x, y, z, w int) Swizzle {
	return Swizzle(x&3 | (y&3)<<2 | (z&3)<<4 | (w&3)<<6)
}

// ScalarSwizzle replicates a single component to all four lanes.
func ScalarSwizzle(c int) Swizzle {
	return MakeSwizzle(c, c, c, c)
}

// SrcModifier alters a source operand before use.
type SrcModifier uint8

const (
	SrcModifierNone SrcModifier = iota
	SrcModifierNeg
	SrcModifierAbs
	SrcModifierAbsNeg
)

// DstModifier alters a result before the destination store.
type DstModifier uint8

// DstModifierSaturate clamps the result to [0, 1].
const (
	DstModifierNone     DstModifier = 0
	DstModifierSaturate DstModifier = 0x1
)

// Instruction flag bits. Conditional instructions (if, breakc, retc) carry
// exactly one of the test flags; dcl_global_flags carries the global flag
// bits; dcl_input_ps carries an InterpolationMode.
const (
	TestNonZero uint32 = 0x1
	TestZero    uint32 = 0x2

	GlobalFlagRefactoringAllowed       uint32 = 0x1
	GlobalFlagDoublePrecision          uint32 = 0x2
	GlobalFlagRawAndStructuredBuffers  uint32 = 0x8
)

// SignatureElement describes one row of an input or output signature.
type SignatureElement struct {
	SemanticName  string
	SemanticIndex uint32
	SysVal        SysVal
	ComponentType DataType
	Register      uint32
	// Mask is the components written by the producing stage; UsedMask the
	// components read by the consuming stage.
	Mask     WriteMask
	UsedMask WriteMask
}

// Signature is an ordered input or output signature table.
type Signature struct {
	Elements []SignatureElement
}

// Element returns the element covering the given register whose mask
// matches, or nil.
func (s *Signature) Element(register uint32, mask WriteMask) (*SignatureElement, int) {
	for i := range s.Elements {
		e := &s.Elements[i]
		if e.Register == register && e.Mask == mask {
			return e, i
		}
	}
	return nil, -1
}

// ElementByRegister returns the first element declared on the given
// register, ignoring the mask, or nil.
func (s *Signature) ElementByRegister(register uint32) *SignatureElement {
	for i := range s.Elements {
		if s.Elements[i].Register == register {
			return &s.Elements[i]
		}
	}
	return nil
}
