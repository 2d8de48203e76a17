package spirv

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/gogpu/vkd3d/dxbc"
	"github.com/gogpu/vkd3d/rootsig"
)

func (c *Compiler) emitDclTemps(ins *dxbc.Instruction) error {
	if c.tempCount != 0 {
		return NewError(ErrMalformedBytecode, "duplicate dcl_temps")
	}
	count := ins.Dcl.Count

	// Resolve the type and pointer first so the variable ids come out
	// consecutive: temp i is always tempID + i.
	typeID := c.b.TypeID(ComponentFloat, VectorSize)
	ptrID := c.b.TypePointer(StorageClassFunction, typeID)
	for i := uint32(0); i < count; i++ {
		id := c.b.FunctionVariable(ptrID, StorageClassFunction)
		if i == 0 {
			c.tempID = id
		}
		c.b.Name(id, fmt.Sprintf("r%d", i))
	}
	c.tempCount = count
	return nil
}

// decorateStridedArray attaches ArrayStride once per array type id.
func (c *Compiler) decorateStridedArray(arrayID, stride uint32) {
	if c.stridedArrays == nil {
		c.stridedArrays = make(map[uint32]bool)
	}
	if !c.stridedArrays[arrayID] {
		c.stridedArrays[arrayID] = true
		c.b.Decorate(arrayID, DecorationArrayStride, stride)
	}
}

// decorateBlock attaches the Block decoration once per struct type id.
func (c *Compiler) decorateBlock(structID uint32) bool {
	if c.blockStructs == nil {
		c.blockStructs = make(map[uint32]bool)
	}
	if c.blockStructs[structID] {
		return false
	}
	c.blockStructs[structID] = true
	c.b.Decorate(structID, DecorationBlock)
	return true
}

// emitPushConstantBuffers materializes the push-constant block. It runs
// in the main prolog, once all constant-buffer declarations have been
// matched against the root-constant ranges.
func (c *Compiler) emitPushConstantBuffers() error {
	count := 0
	for i := range c.pushCBs {
		if c.pushCBs[i].declared {
			count++
		}
	}
	if count == 0 {
		return nil
	}

	vec4 := c.b.TypeID(ComponentFloat, VectorSize)
	memberIDs := make([]uint32, 0, count)
	for i := range c.pushCBs {
		cb := &c.pushCBs[i]
		if !cb.declared {
			continue
		}
		lengthID := c.b.ConstantUint(cb.size)
		arrayID := c.b.TypeArray(vec4, lengthID)
		c.decorateStridedArray(arrayID, 16)
		memberIDs = append(memberIDs, arrayID)
	}

	structID := c.b.TypeStruct(memberIDs...)
	if c.decorateBlock(structID) {
		c.b.Name(structID, "push_cb")
	}

	ptrID := c.b.TypePointer(StorageClassPushConstant, structID)
	varID := c.b.GlobalVariable(ptrID, StorageClassPushConstant, 0)

	member := uint32(0)
	for i := range c.pushCBs {
		cb := &c.pushCBs[i]
		if !cb.declared {
			continue
		}
		c.b.MemberDecorate(structID, member, DecorationOffset, cb.rc.Offset)
		c.b.MemberName(structID, member, fmt.Sprintf("cb%d", cb.register))
		c.putSymbol(dxbc.RegisterConstantBuffer, cb.register, regInfo{
			id:     varID,
			class:  StorageClassPushConstant,
			member: member,
		})
		member++
	}
	return nil
}

func (c *Compiler) emitDclConstantBuffer(ins *dxbc.Instruction) error {
	src := &ins.Src[0]
	reg := &src.Reg
	register := reg.Index[0].Offset
	size := reg.Index[1].Offset

	if ins.Flags&0x1 != 0 {
		c.b.EnableCapability(CapabilityUniformBufferArrayDynamicIndexing)
	}

	for i := range c.pushCBs {
		cb := &c.pushCBs[i]
		if cb.register != register {
			continue
		}
		if size*16 != cb.rc.Size {
			return NewError(ErrLayoutMismatch,
				"cb%d declares %d vec4s but the root signature supplies %d bytes of constants",
				register, size, cb.rc.Size)
		}
		cb.declared = true
		cb.size = size
		return nil
	}

	vec4 := c.b.TypeID(ComponentFloat, VectorSize)
	lengthID := c.b.ConstantUint(size)
	arrayID := c.b.TypeArray(vec4, lengthID)
	c.decorateStridedArray(arrayID, 16)

	structID := c.b.TypeStruct(arrayID)
	if c.decorateBlock(structID) {
		c.b.MemberDecorate(structID, 0, DecorationOffset, 0)
	}

	ptrID := c.b.TypePointer(StorageClassUniform, structID)
	varID := c.b.GlobalVariable(ptrID, StorageClassUniform, 0)

	if err := c.decorateDescriptor(varID, rootsig.DescriptorCBV, register, true); err != nil {
		return err
	}
	c.b.Name(varID, registerName(reg))

	c.putSymbol(dxbc.RegisterConstantBuffer, register, regInfo{id: varID, class: StorageClassUniform})
	return nil
}

func (c *Compiler) emitDclImmediateConstantBuffer(ins *dxbc.Instruction) error {
	icb := ins.Dcl.ICB
	if len(icb) == 0 {
		return NewError(ErrMalformedBytecode, "empty immediate constant buffer")
	}

	vec4 := c.b.TypeID(ComponentFloat, VectorSize)
	elements := make([]uint32, len(icb))
	for i, v := range icb {
		elements[i] = c.b.ConstantVector(ComponentFloat, VectorSize, v[:])
	}
	lengthID := c.b.ConstantUint(uint32(len(icb)))
	arrayID := c.b.TypeArray(vec4, lengthID)
	constID := c.b.ConstantComposite(arrayID, elements...)

	ptrID := c.b.TypePointer(StorageClassPrivate, arrayID)
	varID := c.b.GlobalVariable(ptrID, StorageClassPrivate, constID)
	c.b.Name(varID, "icb")

	c.putSymbol(dxbc.RegisterImmediateConstantBuffer, 0, regInfo{id: varID, class: StorageClassPrivate})
	return nil
}

func (c *Compiler) emitDclSampler(ins *dxbc.Instruction) error {
	reg := &ins.Dst[0].Reg
	register := reg.Index[0].Offset

	typeID := c.b.TypeSampler()
	ptrID := c.b.TypePointer(StorageClassUniformConstant, typeID)
	varID := c.b.GlobalVariable(ptrID, StorageClassUniformConstant, 0)

	if err := c.decorateDescriptor(varID, rootsig.DescriptorSampler, register, false); err != nil {
		return err
	}
	c.b.Name(varID, registerName(reg))

	c.putSymbol(dxbc.RegisterSampler, register, regInfo{id: varID, class: StorageClassUniformConstant})
	return nil
}

// resourceTypeInfo fixes the SPIR-V image shape for each resource kind.
type resourceTypeInfo struct {
	kind       dxbc.ResourceKind
	dim        Dim
	arrayed    uint32
	ms         uint32
	coordCount int

	capability    Capability
	uavCapability Capability
}

var resourceTypeTable = []resourceTypeInfo{
	{dxbc.ResourceBuffer, DimBuffer, 0, 0, 1, CapabilitySampledBuffer, CapabilityImageBuffer},
	{dxbc.ResourceTexture1D, Dim1D, 0, 0, 1, CapabilitySampled1D, CapabilityImage1D},
	{dxbc.ResourceTexture2DMS, Dim2D, 0, 1, 2, 0, 0},
	{dxbc.ResourceTexture2D, Dim2D, 0, 0, 2, 0, 0},
	{dxbc.ResourceTexture3D, Dim3D, 0, 0, 3, 0, 0},
	{dxbc.ResourceTextureCube, DimCube, 0, 0, 3, 0, 0},
	{dxbc.ResourceTexture1DArray, Dim1D, 1, 0, 2, CapabilitySampled1D, CapabilityImage1D},
	{dxbc.ResourceTexture2DArray, Dim2D, 1, 0, 3, 0, 0},
	{dxbc.ResourceTextureCubeArray, DimCube, 1, 0, 4, CapabilitySampledCubeArray, CapabilityImageCubeArray},
}

func resourceType(kind dxbc.ResourceKind) *resourceTypeInfo {
	for i := range resourceTypeTable {
		if resourceTypeTable[i].kind == kind {
			return &resourceTypeTable[i]
		}
	}
	return nil
}

func (c *Compiler) emitDclResource(ins *dxbc.Instruction) error {
	reg := &ins.Dst[0].Reg
	if reg.Index[0].Rel != nil || reg.Index[1].Rel != nil {
		return NewError(ErrUnsupported, "relative addressing in resource declaration")
	}
	register := reg.Index[0].Offset
	isUAV := reg.Kind == dxbc.RegisterUAV

	info := resourceType(ins.Dcl.ResourceKind)
	if info == nil {
		return NewError(ErrUnsupported, "resource dimension %v", ins.Dcl.ResourceKind)
	}
	if info.capability != 0 {
		c.b.EnableCapability(info.capability)
	}
	if isUAV && info.uavCapability != 0 {
		c.b.EnableCapability(info.uavCapability)
	}

	sampledType := componentType(ins.Dcl.ResourceDataType)
	sampledTypeID := c.b.TypeID(sampledType, 1)

	sampled := uint32(1)
	kind := rootsig.DescriptorSRV
	if isUAV {
		sampled = 2
		kind = rootsig.DescriptorUAV
	}
	typeID := c.b.TypeImage(sampledTypeID, info.dim, 0, info.arrayed, info.ms, sampled, ImageFormatUnknown)

	ptrID := c.b.TypePointer(StorageClassUniformConstant, typeID)
	varID := c.b.GlobalVariable(ptrID, StorageClassUniformConstant, 0)

	if err := c.decorateDescriptor(varID, kind, register, ins.Dcl.ResourceKind == dxbc.ResourceBuffer); err != nil {
		return err
	}
	c.b.Name(varID, registerName(reg))

	res := resourceInfo{
		id:          varID,
		typeID:      typeID,
		kind:        ins.Dcl.ResourceKind,
		sampledType: sampledType,
		coordMask:   dxbc.WriteMask(1<<uint(info.coordCount)) - 1,
		isUAV:       isUAV,
	}

	if isUAV && c.scan.UsesUAVCounter(register) {
		counterID, err := c.emitUAVCounter(register)
		if err != nil {
			return err
		}
		res.counterID = counterID
	}

	c.putResource(reg, res)
	return nil
}

// emitUAVCounter declares the storage-texel-buffer variable backing a
// UAV counter and records its reflection entry.
func (c *Compiler) emitUAVCounter(register uint32) (uint32, error) {
	c.b.EnableCapability(CapabilityImageBuffer)

	uintID := c.b.TypeID(ComponentUint, 1)
	typeID := c.b.TypeImage(uintID, DimBuffer, 0, 0, 0, 2, ImageFormatR32ui)
	ptrID := c.b.TypePointer(StorageClassUniformConstant, typeID)
	varID := c.b.GlobalVariable(ptrID, StorageClassUniformConstant, 0)
	c.b.Name(varID, fmt.Sprintf("u%d_counter", register))

	binding := rootsig.CounterBinding{Register: register, Set: 0, Binding: register}
	if c.layout != nil {
		if cb, ok := c.layout.CounterBinding(register); ok {
			binding = cb
		} else if len(c.layout.Entries()) != 0 {
			return 0, NewError(ErrLayoutMismatch, "no counter binding for u%d", register)
		}
	}
	c.b.Decorate(varID, DecorationDescriptorSet, binding.Set)
	c.b.Decorate(varID, DecorationBinding, binding.Binding)

	c.uavCounters = append(c.uavCounters, binding)
	return varID, nil
}

// builtinInfo routes a system value or register kind to a SPIR-V
// built-in of mandated shape.
type builtinInfo struct {
	sysval  dxbc.SysVal
	regKind dxbc.RegisterKind
	byKind  bool

	componentType  ComponentType
	componentCount int
	builtin        BuiltIn
}

var builtinTable = []builtinInfo{
	{dxbc.SysValNone, dxbc.RegisterThreadID, true, ComponentInt, 3, BuiltInGlobalInvocationID},
	{dxbc.SysValNone, dxbc.RegisterLocalThreadID, true, ComponentInt, 3, BuiltInLocalInvocationID},
	{dxbc.SysValNone, dxbc.RegisterLocalThreadIndex, true, ComponentInt, 1, BuiltInLocalInvocationIndex},
	{dxbc.SysValNone, dxbc.RegisterThreadGroupID, true, ComponentInt, 3, BuiltInWorkgroupID},

	{dxbc.SysValPosition, 0, false, ComponentFloat, 4, BuiltInPosition},
	{dxbc.SysValVertexID, 0, false, ComponentInt, 1, BuiltInVertexIndex},
	{dxbc.SysValInstanceID, 0, false, ComponentInt, 1, BuiltInInstanceIndex},
}

func findBuiltin(regKind dxbc.RegisterKind, sysval dxbc.SysVal) *builtinInfo {
	for i := range builtinTable {
		entry := &builtinTable[i]
		if entry.byKind && entry.regKind == regKind {
			return entry
		}
		if !entry.byKind && sysval != dxbc.SysValNone && entry.sysval == sysval {
			return entry
		}
	}
	return nil
}

// decorateBuiltin attaches a BuiltIn decoration, remapping Position to
// FragCoord in the fragment stage.
func (c *Compiler) decorateBuiltin(id uint32, builtin BuiltIn) {
	if c.stage == dxbc.StagePixel && builtin == BuiltInPosition {
		builtin = BuiltInFragCoord
	}
	c.b.Decorate(id, DecorationBuiltIn, uint32(builtin))
}

func (c *Compiler) emitDclInputAny(ins *dxbc.Instruction) error {
	sysval := dxbc.SysValNone
	if ins.Dcl != nil {
		sysval = ins.Dcl.SysVal
	}

	inputID, err := c.emitInput(&ins.Dst[0], sysval)
	if err != nil {
		return err
	}

	switch ins.Opcode {
	case dxbc.OpDclInputPS:
		c.emitInterpolationDecorations(inputID, dxbc.InterpolationMode(ins.Flags))
	case dxbc.OpDclInputPSSiv, dxbc.OpDclInputPSSgv:
		if sysval == dxbc.SysValNone {
			c.emitInterpolationDecorations(inputID, dxbc.InterpolationMode(ins.Flags))
		}
	}
	return nil
}

func (c *Compiler) emitInterpolationDecorations(id uint32, mode dxbc.InterpolationMode) {
	switch mode {
	case dxbc.InterpolationConstant:
		c.b.Decorate(id, DecorationFlat)
	case dxbc.InterpolationLinear, dxbc.InterpolationUndefined:
	default:
		log.Warnf("unhandled interpolation mode %d", mode)
	}
}

func (c *Compiler) emitInput(dst *dxbc.DstParam, sysval dxbc.SysVal) (uint32, error) {
	reg := &dst.Reg
	register := reg.Index[0].Offset

	// vThreadIDInGroupFlattened is declared with no write mask.
	writeMask := dst.Mask
	if writeMask == 0 && reg.Kind == dxbc.RegisterLocalThreadIndex {
		writeMask = dxbc.WriteMaskX
	}

	signatureElement, _ := c.shader.InputSignature.Element(register, writeMask)
	builtin := findBuiltin(reg.Kind, sysval)

	componentIdx := writeMask.FirstComponent()
	componentCount := writeMask.ComponentCount()

	var ct ComponentType
	inputComponentCount := componentCount
	if builtin != nil {
		ct = builtin.componentType
		inputComponentCount = builtin.componentCount
	} else {
		ct = ComponentFloat
		if signatureElement != nil {
			ct = componentType(signatureElement.ComponentType)
		}
	}
	if componentCount > inputComponentCount {
		return 0, NewError(ErrMalformedBytecode, "input %s mask wider than its declared shape", registerName(reg))
	}

	inputID := c.emitGlobalVariable(StorageClassInput, ct, inputComponentCount)
	c.b.AddInterface(inputID)
	if builtin != nil {
		c.decorateBuiltin(inputID, builtin.builtin)
		if componentIdx != 0 {
			log.Warnf("ignoring component index %d on builtin input", componentIdx)
		}
	} else {
		c.b.Decorate(inputID, DecorationLocation, register)
		if componentIdx != 0 {
			c.b.Decorate(inputID, DecorationComponent, uint32(componentIdx))
		}
	}

	usePrivate := ct != ComponentFloat || componentCount != VectorSize

	varID := inputID
	class := StorageClassInput
	existing, haveSymbol := c.symbol(reg.Kind, register)
	if usePrivate {
		if haveSymbol {
			varID = existing.id
			class = existing.class
		} else {
			class = StorageClassPrivate
			varID = c.emitGlobalVariable(class, ComponentFloat, VectorSize)
		}
	}
	if !haveSymbol {
		c.putSymbol(reg.Kind, register, regInfo{id: varID, class: class})
		c.b.Name(varID, registerName(reg))
	}

	if usePrivate {
		// The copy into the private staging variable runs in the main
		// prolog; emitting it here would put loads ahead of the
		// function-scope OpVariables of a later dcl_temps.
		c.deferredInputs = append(c.deferredInputs, deferredInput{
			reg:            *reg,
			writeMask:      writeMask,
			inputID:        inputID,
			componentType:  ct,
			inputCount:     inputComponentCount,
			componentCount: componentCount,
		})
	}
	return inputID, nil
}

// emitInputSetup copies non-canonical inputs into their private staging
// variables at the top of the shader body.
func (c *Compiler) emitInputSetup() error {
	for i := range c.deferredInputs {
		in := &c.deferredInputs[i]

		typeID := c.b.TypeID(in.componentType, in.inputCount)
		valID := c.b.Load(typeID, in.inputID)
		if in.componentType != ComponentFloat {
			valID = c.b.Bitcast(c.b.TypeID(ComponentFloat, in.inputCount), valID)
		}
		if in.inputCount != in.componentCount {
			valID = c.swizzleValue(valID, dxbc.NoSwizzle, in.writeMask, ComponentFloat)
		}
		if err := c.storeRegister(&in.reg, in.writeMask, valID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) emitDclOutputAny(ins *dxbc.Instruction) error {
	sysval := dxbc.SysValNone
	if ins.Dcl != nil {
		sysval = ins.Dcl.SysVal
	}
	return c.emitOutput(&ins.Dst[0], sysval)
}

func (c *Compiler) emitOutput(dst *dxbc.DstParam, sysval dxbc.SysVal) error {
	reg := &dst.Reg
	register := reg.Index[0].Offset
	if register >= maxOutputRegisters {
		return NewError(ErrMalformedBytecode, "output register o%d out of range", register)
	}

	signatureElement, signatureIdx := c.shader.OutputSignature.Element(register, dst.Mask)
	builtin := findBuiltin(reg.Kind, sysval)

	componentIdx := dst.Mask.FirstComponent()
	componentCount := dst.Mask.ComponentCount()

	var ct ComponentType
	if builtin != nil {
		ct = builtin.componentType
	} else {
		ct = ComponentFloat
		if signatureElement != nil {
			ct = componentType(signatureElement.ComponentType)
		}
	}

	id := c.emitGlobalVariable(StorageClassOutput, ct, componentCount)
	c.b.AddInterface(id)
	if builtin != nil {
		c.decorateBuiltin(id, builtin.builtin)
		if componentIdx != 0 {
			log.Warnf("ignoring component index %d on builtin output", componentIdx)
		}
	} else {
		c.b.Decorate(id, DecorationLocation, register)
		if componentIdx != 0 {
			c.b.Decorate(id, DecorationComponent, uint32(componentIdx))
		}
	}
	if signatureElement != nil {
		c.outputInfo[signatureIdx] = outputInfo{id: id, componentType: ct}
	}

	usePrivate := ct != ComponentFloat || componentCount != VectorSize

	varID := id
	class := StorageClassOutput
	existing, haveSymbol := c.symbol(reg.Kind, register)
	if usePrivate {
		if haveSymbol {
			varID = existing.id
			class = existing.class
		} else {
			class = StorageClassPrivate
			varID = c.emitGlobalVariable(class, ComponentFloat, VectorSize)
		}
	}
	if !haveSymbol {
		c.putSymbol(reg.Kind, register, regInfo{id: varID, class: class})
		c.b.Name(varID, registerName(reg))
	}

	if usePrivate {
		c.privateOutput[register] = varID
		if c.outputSetupID == 0 {
			c.outputSetupID = c.b.AllocID()
		}
	}
	return nil
}
