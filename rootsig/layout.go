package rootsig

import (
	log "github.com/sirupsen/logrus"
)

// MaxRootCost is the root-signature size ceiling, in 32-bit units.
const MaxRootCost = 64

// DescriptorKind is the shader-visible descriptor class of a binding.
type DescriptorKind uint8

const (
	DescriptorCBV DescriptorKind = iota
	DescriptorSRV
	DescriptorUAV
	DescriptorSampler
)

// String returns a human-readable descriptor kind name.
func (k DescriptorKind) String() string {
	switch k {
	case DescriptorCBV:
		return "CBV"
	case DescriptorSRV:
		return "SRV"
	case DescriptorUAV:
		return "UAV"
	case DescriptorSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// BindingEntry maps one shader register to a descriptor-set binding.
// SRV and UAV registers from descriptor tables appear twice, once as the
// buffer-view variant and once as the image-view variant, so the set
// layout stays compatible regardless of the resource kind bound at run
// time.
type BindingEntry struct {
	Kind          DescriptorKind
	RegisterSpace uint32
	Register      uint32
	Set           uint32
	Binding       uint32
	IsBuffer      bool
}

// PushConstantRange is one stage-disjoint push-constant range.
type PushConstantRange struct {
	Stages StageMask
	Offset uint32
	Size   uint32
}

// RootConstant records where a 32-bit-constants parameter landed inside
// the push-constant block.
type RootConstant struct {
	Register uint32
	Stages   StageMask
	Offset   uint32
	Size     uint32
}

// FilterMode is a Vulkan min/mag filter.
type FilterMode uint8

const (
	FilterNearest FilterMode = iota
	FilterModeLinear
)

// MipmapMode is a Vulkan mipmap filter.
type MipmapMode uint8

const (
	MipmapNearest MipmapMode = iota
	MipmapLinear
)

// WrapMode is a Vulkan sampler address mode.
type WrapMode uint8

const (
	WrapRepeat WrapMode = iota
	WrapMirroredRepeat
	WrapClampToEdge
	WrapClampToBorder
	WrapMirrorClampToEdge
)

// SamplerSpec is a translated immutable sampler together with its binding.
type SamplerSpec struct {
	Set     uint32
	Binding uint32
	Stages  StageMask

	MagFilter     FilterMode
	MinFilter     FilterMode
	MipmapMode    MipmapMode
	AddressU      WrapMode
	AddressV      WrapMode
	AddressW      WrapMode
	MipLODBias    float32
	Anisotropy    float32
	CompareEnable bool
	CompareOp     CompareOp
	MinLOD        float32
	MaxLOD        float32
}

// DescriptorType is a Vulkan descriptor type, for pool sizing.
type DescriptorType uint8

const (
	TypeUniformBuffer DescriptorType = iota
	TypeUniformTexelBuffer
	TypeSampledImage
	TypeStorageTexelBuffer
	TypeStorageImage
	TypeSampler
)

// PoolSize is the descriptor count required for one descriptor type.
type PoolSize struct {
	Type  DescriptorType
	Count uint32
}

// Parameter echoes one translated root parameter so the command-list
// machinery can map root-argument updates without re-deriving the
// translation.
type Parameter struct {
	Kind ParameterKind

	// Constant is the push-constant placement of a 32-bit-constants
	// parameter.
	Constant RootConstant

	// Set and Binding locate the first descriptor of a table or root
	// descriptor.
	Set     uint32
	Binding uint32
}

// CounterBinding locates the auxiliary storage-texel-buffer binding
// backing a UAV counter.
type CounterBinding struct {
	Register uint32
	Set      uint32
	Binding  uint32
}

// Options configures layout translation.
type Options struct {
	// UsePushDescriptors places root descriptors in their own
	// push-descriptor set.
	UsePushDescriptors bool
}

// BindingLayout is the immutable result of translating a root signature.
type BindingLayout struct {
	entries       []BindingEntry
	parameters    []Parameter
	pushRanges    []PushConstantRange
	rootConstants []RootConstant
	samplers      []SamplerSpec
	counters      []CounterBinding
	poolSizes     []PoolSize

	pushSet        int
	mainSet        uint32
	setCount       uint32
	defaultSampler int
}

type layoutCounts struct {
	cbv       uint32
	srv       uint32
	bufferSRV uint32
	uav       uint32
	bufferUAV uint32
	sampler   uint32
	constants uint32
	cost      uint32
}

// New translates a root-signature description into a binding layout.
func New(desc *Desc, opts Options) (*BindingLayout, error) {
	if desc == nil {
		return nil, NewError(ErrInvalidArgument, "nil root signature description")
	}
	if desc.Flags != 0 {
		log.Warnf("ignoring root signature flags %#x", desc.Flags)
	}

	counts, err := countDescriptors(desc)
	if err != nil {
		return nil, err
	}
	if counts.cost > MaxRootCost {
		return nil, NewError(ErrCapacityExceeded, "root signature cost %d exceeds the %d-slot limit", counts.cost, MaxRootCost)
	}

	layout := &BindingLayout{pushSet: -1, defaultSampler: -1}
	layout.parameters = make([]Parameter, len(desc.Parameters))
	layout.initPoolSizes(counts)

	var set, binding uint32

	// Root descriptors come first so they can form the push-descriptor
	// set on their own.
	for i := range desc.Parameters {
		p := &desc.Parameters[i]
		var kind DescriptorKind
		switch p.Kind {
		case ParameterCBV:
			kind = DescriptorCBV
		case ParameterSRV:
			kind = DescriptorSRV
		case ParameterUAV:
			kind = DescriptorUAV
		default:
			continue
		}
		if p.Descriptor.RegisterSpace != 0 {
			return nil, NewError(ErrUnsupported, "register space %d on root descriptor", p.Descriptor.RegisterSpace)
		}
		layout.parameters[i] = Parameter{Kind: p.Kind, Set: set, Binding: binding}
		layout.entries = append(layout.entries, BindingEntry{
			Kind:     kind,
			Register: p.Descriptor.Register,
			Set:      set,
			Binding:  binding,
			IsBuffer: true,
		})
		binding++
	}

	if opts.UsePushDescriptors && binding > 0 {
		layout.pushSet = int(set)
		set++
		binding = 0
	}

	if err := layout.initPushConstants(desc); err != nil {
		return nil, err
	}

	// Descriptor-table ranges, with the SRV/UAV buffer/image doubling.
	for i := range desc.Parameters {
		p := &desc.Parameters[i]
		if p.Kind != ParameterTable {
			continue
		}
		layout.parameters[i] = Parameter{Kind: ParameterTable, Set: set, Binding: binding}
		for j := range p.Table {
			r := &p.Table[j]
			if r.RegisterSpace != 0 {
				return nil, NewError(ErrUnsupported, "register space %d in descriptor table", r.RegisterSpace)
			}
			if r.Count == UnboundedCount {
				return nil, NewError(ErrUnsupported, "unbounded descriptor range")
			}
			var kind DescriptorKind
			doubled := false
			switch r.Kind {
			case RangeCBV:
				kind = DescriptorCBV
			case RangeSRV:
				kind = DescriptorSRV
				doubled = true
			case RangeUAV:
				kind = DescriptorUAV
				doubled = true
			case RangeSampler:
				kind = DescriptorSampler
			default:
				return nil, NewError(ErrUnsupported, "descriptor range kind %d", r.Kind)
			}
			for k := uint32(0); k < r.Count; k++ {
				register := r.BaseRegister + k
				if doubled {
					layout.entries = append(layout.entries, BindingEntry{
						Kind: kind, Register: register, Set: set, Binding: binding, IsBuffer: true,
					})
					binding++
				}
				layout.entries = append(layout.entries, BindingEntry{
					Kind: kind, Register: register, Set: set, Binding: binding,
					IsBuffer: kind == DescriptorCBV,
				})
				binding++
			}
		}
	}

	// Static samplers, then the default sampler image fetch needs.
	for i := range desc.StaticSamplers {
		s := &desc.StaticSamplers[i]
		if s.RegisterSpace != 0 {
			log.Warnf("ignoring register space %d on static sampler %d", s.RegisterSpace, i)
		}
		spec := translateSampler(s)
		spec.Set = set
		spec.Binding = binding
		layout.entries = append(layout.entries, BindingEntry{
			Kind: DescriptorSampler, Register: s.Register, Set: set, Binding: binding,
		})
		layout.samplers = append(layout.samplers, spec)
		binding++
	}
	if counts.srv+counts.bufferSRV > 0 {
		layout.defaultSampler = len(layout.samplers)
		layout.samplers = append(layout.samplers, SamplerSpec{
			Set:       set,
			Binding:   binding,
			Stages:    StageAll,
			MagFilter: FilterNearest,
			MinFilter: FilterNearest,
			AddressU:  WrapClampToEdge,
			AddressV:  WrapClampToEdge,
			AddressW:  WrapClampToEdge,
		})
		binding++
	}

	layout.mainSet = set
	if binding > 0 {
		set++
	}

	// UAV counters live in their own set so updating them never disturbs
	// the main set layout.
	counterRegisters := uavRegisters(desc)
	if len(counterRegisters) > 0 {
		for i, register := range counterRegisters {
			layout.counters = append(layout.counters, CounterBinding{
				Register: register,
				Set:      set,
				Binding:  uint32(i),
			})
		}
		set++
	}
	layout.setCount = set

	return layout, nil
}

// countDescriptors validates the description and accumulates descriptor
// counts and root cost.
func countDescriptors(desc *Desc) (layoutCounts, error) {
	var c layoutCounts
	for i := range desc.Parameters {
		p := &desc.Parameters[i]
		switch p.Kind {
		case ParameterTable:
			for j := range p.Table {
				r := &p.Table[j]
				if r.Count == UnboundedCount {
					return c, NewError(ErrUnsupported, "unbounded descriptor range")
				}
				switch r.Kind {
				case RangeCBV:
					c.cbv += r.Count
				case RangeSRV:
					c.srv += r.Count
				case RangeUAV:
					c.uav += r.Count
				case RangeSampler:
					c.sampler += r.Count
				default:
					return c, NewError(ErrUnsupported, "descriptor range kind %d", r.Kind)
				}
			}
			c.cost++
		case ParameterCBV:
			c.cbv++
			c.cost += 2
		case ParameterSRV:
			c.bufferSRV++
			c.cost += 2
		case ParameterUAV:
			c.bufferUAV++
			c.cost += 2
		case ParameterConstants:
			c.constants++
			c.cost += p.Constants.Count
		default:
			return c, NewError(ErrUnsupported, "root parameter kind %d", p.Kind)
		}
	}
	c.sampler += uint32(len(desc.StaticSamplers))
	return c, nil
}

// initPoolSizes fixes the descriptor-pool requirements, doubling table
// SRVs and UAVs between the texel-buffer and image descriptor types.
func (l *BindingLayout) initPoolSizes(c layoutCounts) {
	add := func(t DescriptorType, n uint32) {
		if n > 0 {
			l.poolSizes = append(l.poolSizes, PoolSize{Type: t, Count: n})
		}
	}
	add(TypeUniformBuffer, c.cbv)
	add(TypeUniformTexelBuffer, c.bufferSRV+c.srv)
	add(TypeSampledImage, c.srv)
	add(TypeStorageTexelBuffer, c.bufferUAV+c.uav)
	add(TypeStorageImage, c.uav)
	sampler := c.sampler
	if c.srv+c.bufferSRV > 0 {
		sampler++
	}
	add(TypeSampler, sampler)
}

// initPushConstants packs 32-bit-constants parameters into ranges. A
// parameter with visibility ALL forces a single range because Vulkan
// forbids two ranges covering the same stage.
func (l *BindingLayout) initPushConstants(desc *Desc) error {
	var sizes [visibilityCount]uint32
	for i := range desc.Parameters {
		p := &desc.Parameters[i]
		if p.Kind != ParameterConstants {
			continue
		}
		if p.Constants.RegisterSpace != 0 {
			return NewError(ErrUnsupported, "register space %d on root constants", p.Constants.RegisterSpace)
		}
		if int(p.Visibility) >= visibilityCount {
			return NewError(ErrInvalidArgument, "bad visibility %d on root constants", p.Visibility)
		}
		sizes[p.Visibility] += p.Constants.Count * 4
	}

	var offsets [visibilityCount]uint32
	single := sizes[VisibilityAll] > 0
	if single {
		total := uint32(0)
		for _, s := range sizes {
			total += s
		}
		l.pushRanges = []PushConstantRange{{Stages: StageAll, Offset: 0, Size: total}}
	} else {
		offset := uint32(0)
		for v := 0; v < visibilityCount; v++ {
			if sizes[v] == 0 {
				continue
			}
			l.pushRanges = append(l.pushRanges, PushConstantRange{
				Stages: Visibility(v).Stages(),
				Offset: offset,
				Size:   sizes[v],
			})
			offsets[v] = offset
			offset += sizes[v]
		}
	}

	for i := range desc.Parameters {
		p := &desc.Parameters[i]
		if p.Kind != ParameterConstants {
			continue
		}
		v := p.Visibility
		idx := v
		stages := v.Stages()
		if single {
			idx = VisibilityAll
			stages = StageAll
		}
		size := p.Constants.Count * 4
		rc := RootConstant{
			Register: p.Constants.Register,
			Stages:   stages,
			Offset:   offsets[idx],
			Size:     size,
		}
		l.rootConstants = append(l.rootConstants, rc)
		l.parameters[i] = Parameter{Kind: ParameterConstants, Constant: rc}
		offsets[idx] += size
	}
	return nil
}

// uavRegisters collects every UAV register the signature binds, in
// parameter order.
func uavRegisters(desc *Desc) []uint32 {
	seen := map[uint32]bool{}
	var registers []uint32
	add := func(r uint32) {
		if !seen[r] {
			seen[r] = true
			registers = append(registers, r)
		}
	}
	for i := range desc.Parameters {
		p := &desc.Parameters[i]
		switch p.Kind {
		case ParameterUAV:
			add(p.Descriptor.Register)
		case ParameterTable:
			for j := range p.Table {
				r := &p.Table[j]
				if r.Kind != RangeUAV || r.Count == UnboundedCount {
					continue
				}
				for k := uint32(0); k < r.Count; k++ {
					add(r.BaseRegister + k)
				}
			}
		}
	}
	return registers
}

func translateSampler(s *StaticSamplerDesc) SamplerSpec {
	spec := SamplerSpec{
		Stages:        s.Visibility.Stages(),
		MipLODBias:    s.MipLODBias,
		CompareEnable: s.CompareEnable,
		CompareOp:     s.CompareOp,
		MinLOD:        s.MinLOD,
		MaxLOD:        s.MaxLOD,
		AddressU:      translateAddressMode(s.AddressU),
		AddressV:      translateAddressMode(s.AddressV),
		AddressW:      translateAddressMode(s.AddressW),
	}
	switch s.Filter {
	case FilterLinear:
		spec.MagFilter = FilterModeLinear
		spec.MinFilter = FilterModeLinear
		spec.MipmapMode = MipmapLinear
	case FilterAnisotropic:
		spec.MagFilter = FilterModeLinear
		spec.MinFilter = FilterModeLinear
		spec.MipmapMode = MipmapLinear
		spec.Anisotropy = float32(s.MaxAnisotropy)
	default:
		spec.MagFilter = FilterNearest
		spec.MinFilter = FilterNearest
		spec.MipmapMode = MipmapNearest
	}
	return spec
}

func translateAddressMode(m AddressMode) WrapMode {
	switch m {
	case AddressMirror:
		return WrapMirroredRepeat
	case AddressClamp:
		return WrapClampToEdge
	case AddressBorder:
		return WrapClampToBorder
	case AddressMirrorOnce:
		return WrapMirrorClampToEdge
	default:
		return WrapRepeat
	}
}

// Entries returns the ordered binding entries.
func (l *BindingLayout) Entries() []BindingEntry { return l.entries }

// Parameters returns the translated root parameters in signature order.
func (l *BindingLayout) Parameters() []Parameter { return l.parameters }

// PushConstantRanges returns the stage-disjoint push-constant ranges.
func (l *BindingLayout) PushConstantRanges() []PushConstantRange { return l.pushRanges }

// RootConstants returns the per-parameter root-constant placements.
func (l *BindingLayout) RootConstants() []RootConstant { return l.rootConstants }

// Samplers returns the translated immutable samplers, including the
// appended default sampler if present.
func (l *BindingLayout) Samplers() []SamplerSpec { return l.samplers }

// PoolSizes returns the descriptor-pool requirements.
func (l *BindingLayout) PoolSizes() []PoolSize { return l.poolSizes }

// SetCount returns the number of descriptor sets the layout occupies.
func (l *BindingLayout) SetCount() uint32 { return l.setCount }

// PushSet returns the push-descriptor set index, or -1 when root
// descriptors share the main set.
func (l *BindingLayout) PushSet() int { return l.pushSet }

// MainSet returns the set holding descriptor-table bindings and samplers.
func (l *BindingLayout) MainSet() uint32 { return l.mainSet }

// Binding looks up the set/binding for a register of the given kind.
// For SRVs and UAVs, wantBuffer selects between the buffer-view and
// image-view variants of a doubled binding.
func (l *BindingLayout) Binding(kind DescriptorKind, register uint32, wantBuffer bool) (BindingEntry, bool) {
	var fallback *BindingEntry
	for i := range l.entries {
		e := &l.entries[i]
		if e.Kind != kind || e.Register != register {
			continue
		}
		if e.IsBuffer == wantBuffer {
			return *e, true
		}
		if fallback == nil {
			fallback = e
		}
	}
	if fallback != nil {
		// A root SRV/UAV has only a buffer binding; image requests fall
		// back to it rather than failing the lookup.
		return *fallback, true
	}
	return BindingEntry{}, false
}

// PushConstant returns the root-constant placement for a constant-buffer
// register, if the register is backed by push constants.
func (l *BindingLayout) PushConstant(register uint32) (RootConstant, bool) {
	for _, rc := range l.rootConstants {
		if rc.Register == register {
			return rc, true
		}
	}
	return RootConstant{}, false
}

// CounterBinding returns the UAV-counter binding for a UAV register.
func (l *BindingLayout) CounterBinding(register uint32) (CounterBinding, bool) {
	for _, cb := range l.counters {
		if cb.Register == register {
			return cb, true
		}
	}
	return CounterBinding{}, false
}

// DefaultSampler returns the point-clamp sampler appended for image
// fetch, if the layout has one.
func (l *BindingLayout) DefaultSampler() (SamplerSpec, bool) {
	if l.defaultSampler < 0 {
		return SamplerSpec{}, false
	}
	return l.samplers[l.defaultSampler], true
}
