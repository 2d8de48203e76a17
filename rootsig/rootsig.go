package rootsig

// Visibility restricts a root parameter to one shader stage.
type Visibility uint8

const (
	VisibilityAll Visibility = iota
	VisibilityVertex
	VisibilityHull
	VisibilityDomain
	VisibilityGeometry
	VisibilityPixel
)

// visibilityCount is the size of per-visibility accumulation tables.
const visibilityCount = int(VisibilityPixel) + 1

// StageMask is a Vulkan shader-stage bitmask.
type StageMask uint32

// Shader stage bits.
const (
	StageVertex         StageMask = 0x01
	StageTessControl    StageMask = 0x02
	StageTessEvaluation StageMask = 0x04
	StageGeometry       StageMask = 0x08
	StageFragment       StageMask = 0x10
	StageCompute        StageMask = 0x20
	StageAllGraphics    StageMask = 0x1f
	StageAll            StageMask = 0x7fffffff
)

// Stages returns the stage mask a visibility translates to. Compute
// pipelines only ever see VisibilityAll, which maps to all stages.
func (v Visibility) Stages() StageMask {
	switch v {
	case VisibilityVertex:
		return StageVertex
	case VisibilityHull:
		return StageTessControl
	case VisibilityDomain:
		return StageTessEvaluation
	case VisibilityGeometry:
		return StageGeometry
	case VisibilityPixel:
		return StageFragment
	default:
		return StageAll
	}
}

// RangeKind identifies the descriptor kind of a table range.
type RangeKind uint8

const (
	RangeSRV RangeKind = iota
	RangeUAV
	RangeCBV
	RangeSampler
)

// DescriptorRange is a contiguous run of descriptors inside a table.
type DescriptorRange struct {
	Kind          RangeKind
	Count         uint32
	BaseRegister  uint32
	RegisterSpace uint32
	// OffsetInTable is the descriptor offset from the table start, or
	// OffsetAppend.
	OffsetInTable uint32
}

// OffsetAppend places a range directly after the previous one.
const OffsetAppend = 0xffffffff

// UnboundedCount marks a range with no declared descriptor count.
const UnboundedCount = 0xffffffff

// ParameterKind identifies a root parameter.
type ParameterKind uint8

const (
	ParameterTable ParameterKind = iota
	ParameterConstants
	ParameterCBV
	ParameterSRV
	ParameterUAV
)

// RootConstantsDesc is a run of 32-bit root constants.
type RootConstantsDesc struct {
	Register      uint32
	RegisterSpace uint32
	Count         uint32
}

// RootDescriptorDesc is a single root CBV/SRV/UAV.
type RootDescriptorDesc struct {
	Register      uint32
	RegisterSpace uint32
}

// RootParameter is one entry of a root signature.
type RootParameter struct {
	Kind       ParameterKind
	Visibility Visibility

	// Table is valid for ParameterTable.
	Table []DescriptorRange
	// Constants is valid for ParameterConstants.
	Constants RootConstantsDesc
	// Descriptor is valid for ParameterCBV/SRV/UAV.
	Descriptor RootDescriptorDesc
}

// Filter selects texel filtering for a static sampler.
type Filter uint8

const (
	FilterPoint Filter = iota
	FilterLinear
	FilterAnisotropic
)

// AddressMode selects coordinate wrapping for a static sampler.
type AddressMode uint8

const (
	AddressWrap AddressMode = iota
	AddressMirror
	AddressClamp
	AddressBorder
	AddressMirrorOnce
)

// CompareOp is a depth-comparison operator.
type CompareOp uint8

const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

// StaticSamplerDesc describes one immutable sampler of the signature.
type StaticSamplerDesc struct {
	Filter        Filter
	AddressU      AddressMode
	AddressV      AddressMode
	AddressW      AddressMode
	MipLODBias    float32
	MaxAnisotropy uint32
	CompareOp     CompareOp
	CompareEnable bool
	MinLOD        float32
	MaxLOD        float32
	Register      uint32
	RegisterSpace uint32
	Visibility    Visibility
}

// Desc is a complete root-signature description.
type Desc struct {
	Parameters     []RootParameter
	StaticSamplers []StaticSamplerDesc
	Flags          uint32
}
