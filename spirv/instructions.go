package spirv

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/gogpu/vkd3d/dxbc"
)

// aluOps is the closed table of simple one-result ALU mappings.
var aluOps = map[dxbc.Opcode]OpCode{
	dxbc.OpAdd:       OpFAdd,
	dxbc.OpAnd:       OpBitwiseAnd,
	dxbc.OpBfRev:     OpBitReverse,
	dxbc.OpCountBits: OpBitCount,
	dxbc.OpDiv:       OpFDiv,
	dxbc.OpFToI:      OpConvertFToS,
	dxbc.OpFToU:      OpConvertFToU,
	dxbc.OpIAdd:      OpIAdd,
	dxbc.OpINeg:      OpSNegate,
	dxbc.OpIShl:      OpShiftLeftLogical,
	dxbc.OpIShr:      OpShiftRightArithmetic,
	dxbc.OpIToF:      OpConvertSToF,
	dxbc.OpMul:       OpFMul,
	dxbc.OpNot:       OpNot,
	dxbc.OpOr:        OpBitwiseOr,
	dxbc.OpUShr:      OpShiftRightLogical,
	dxbc.OpUToF:      OpConvertUToF,
	dxbc.OpXor:       OpBitwiseXor,
}

func (c *Compiler) emitALU(ins *dxbc.Instruction) error {
	op, ok := aluOps[ins.Opcode]
	if !ok {
		return NewError(ErrInternal, "instruction %d missing from the ALU table", ins.Opcode)
	}
	dst := &ins.Dst[0]
	count := dst.Mask.ComponentCount()
	typeID := c.b.TypeID(componentType(dst.Reg.DataType), count)

	srcIDs := make([]uint32, len(ins.Src))
	for i := range ins.Src {
		id, err := c.loadSrc(&ins.Src[i], dst.Mask)
		if err != nil {
			return err
		}
		srcIDs[i] = id
	}

	valID := c.b.OpV(op, typeID, srcIDs...)
	return c.storeDst(dst, valID)
}

// extGLSLOps maps extended-math instructions to GLSL.std.450 numbers.
var extGLSLOps = map[dxbc.Opcode]uint32{
	dxbc.OpExp:         GLSLstd450Exp2,
	dxbc.OpFirstBitHi:  GLSLstd450FindUMsb,
	dxbc.OpFirstBitLo:  GLSLstd450FindILsb,
	dxbc.OpFirstBitSHi: GLSLstd450FindSMsb,
	dxbc.OpFrc:         GLSLstd450Fract,
	dxbc.OpIMax:        GLSLstd450SMax,
	dxbc.OpIMin:        GLSLstd450SMin,
	dxbc.OpLog:         GLSLstd450Log2,
	dxbc.OpMad:         GLSLstd450Fma,
	dxbc.OpMax:         GLSLstd450FMax,
	dxbc.OpMin:         GLSLstd450FMin,
	dxbc.OpRoundNE:     GLSLstd450RoundEven,
	dxbc.OpRoundNI:     GLSLstd450Floor,
	dxbc.OpRoundPI:     GLSLstd450Ceil,
	dxbc.OpRoundZ:      GLSLstd450Trunc,
	dxbc.OpRsq:         GLSLstd450InverseSqrt,
	dxbc.OpSqrt:        GLSLstd450Sqrt,
	dxbc.OpUMax:        GLSLstd450UMax,
	dxbc.OpUMin:        GLSLstd450UMin,
}

func (c *Compiler) emitExtGLSL(ins *dxbc.Instruction) error {
	glslOp, ok := extGLSLOps[ins.Opcode]
	if !ok {
		return NewError(ErrInternal, "instruction %d missing from the extended-math table", ins.Opcode)
	}
	dst := &ins.Dst[0]
	count := dst.Mask.ComponentCount()
	typeID := c.b.TypeID(componentType(dst.Reg.DataType), count)

	srcIDs := make([]uint32, len(ins.Src))
	for i := range ins.Src {
		id, err := c.loadSrc(&ins.Src[i], dst.Mask)
		if err != nil {
			return err
		}
		srcIDs[i] = id
	}

	valID := c.b.ExtInst(typeID, glslOp, srcIDs...)

	if ins.Opcode == dxbc.OpFirstBitHi || ins.Opcode == dxbc.OpFirstBitSHi {
		// D3D numbers bits from the most significant end.
		values := make([]uint32, count)
		for i := range values {
			values[i] = 31
		}
		thirtyOne := c.b.ConstantVector(componentType(dst.Reg.DataType), count, values)
		valID = c.b.BinOp(OpISub, typeID, thirtyOne, valID)
	}

	return c.storeDst(dst, valID)
}

func (c *Compiler) emitMov(ins *dxbc.Instruction) error {
	dst := &ins.Dst[0]
	src := &ins.Src[0]
	count := dst.Mask.ComponentCount()

	if count == 1 || count == VectorSize || dst.Modifier != dxbc.DstModifierNone ||
		src.Modifier != dxbc.SrcModifierNone || src.Reg.Kind == dxbc.RegisterImmediate {
		valID, err := c.loadSrc(src, dst.Mask)
		if err != nil {
			return err
		}
		return c.storeDst(dst, valID)
	}

	// Partial register-to-register moves collapse into a single shuffle
	// of the destination's current value with the source.
	typeID := c.b.TypeID(ComponentFloat, VectorSize)
	dstInfo, err := c.registerInfo(&dst.Reg)
	if err != nil {
		return err
	}
	srcInfo, err := c.registerInfo(&src.Reg)
	if err != nil {
		return err
	}

	srcVal := c.b.Load(typeID, srcInfo.id)
	dstVal := c.b.Load(typeID, dstInfo.id)

	var components [VectorSize]uint32
	for i := 0; i < VectorSize; i++ {
		if dst.Mask&(1<<uint(i)) != 0 {
			components[i] = VectorSize + uint32(src.Swizzle.Component(i))
		} else {
			components[i] = uint32(i)
		}
	}
	valID := c.b.VectorShuffle(typeID, dstVal, srcVal, components[:])
	c.b.Store(dstInfo.id, valID)
	return nil
}

func (c *Compiler) emitMovC(ins *dxbc.Instruction) error {
	dst := &ins.Dst[0]
	count := dst.Mask.ComponentCount()

	conditionID, err := c.loadSrc(&ins.Src[0], dst.Mask)
	if err != nil {
		return err
	}
	src1ID, err := c.loadSrc(&ins.Src[1], dst.Mask)
	if err != nil {
		return err
	}
	src2ID, err := c.loadSrc(&ins.Src[2], dst.Mask)
	if err != nil {
		return err
	}

	typeID := c.b.TypeID(ComponentFloat, count)
	conditionID = c.intToBool(dxbc.TestNonZero, count, conditionID)
	valID := c.b.Select(typeID, conditionID, src1ID, src2ID)
	return c.storeDst(dst, valID)
}

func (c *Compiler) emitSwapC(ins *dxbc.Instruction) error {
	dst := ins.Dst
	if dst[0].Mask != dst[1].Mask {
		return NewError(ErrUnsupported, "swapc with mismatched write masks")
	}
	count := dst[0].Mask.ComponentCount()

	conditionID, err := c.loadSrc(&ins.Src[0], dst[0].Mask)
	if err != nil {
		return err
	}
	src1ID, err := c.loadSrc(&ins.Src[1], dst[0].Mask)
	if err != nil {
		return err
	}
	src2ID, err := c.loadSrc(&ins.Src[2], dst[0].Mask)
	if err != nil {
		return err
	}

	typeID := c.b.TypeID(ComponentFloat, count)
	conditionID = c.intToBool(dxbc.TestNonZero, count, conditionID)

	valID := c.b.Select(typeID, conditionID, src2ID, src1ID)
	if err := c.storeDst(&dst[0], valID); err != nil {
		return err
	}
	valID = c.b.Select(typeID, conditionID, src1ID, src2ID)
	return c.storeDst(&dst[1], valID)
}

func (c *Compiler) emitDot(ins *dxbc.Instruction) error {
	dst := &ins.Dst[0]
	if dst.Mask.ComponentCount() != 1 {
		return NewError(ErrMalformedBytecode, "dot product with non-scalar destination")
	}

	var mask dxbc.WriteMask
	switch ins.Opcode {
	case dxbc.OpDp4:
		mask = dxbc.WriteMaskAll
	case dxbc.OpDp3:
		mask = dxbc.WriteMaskXYZ
	default:
		mask = dxbc.WriteMaskXY
	}

	src0ID, err := c.loadSrc(&ins.Src[0], mask)
	if err != nil {
		return err
	}
	src1ID, err := c.loadSrc(&ins.Src[1], mask)
	if err != nil {
		return err
	}

	typeID := c.b.TypeID(componentType(dst.Reg.DataType), 1)
	valID := c.b.BinOp(OpDot, typeID, src0ID, src1ID)
	return c.storeDst(dst, valID)
}

func (c *Compiler) emitRcp(ins *dxbc.Instruction) error {
	dst := &ins.Dst[0]
	count := dst.Mask.ComponentCount()
	typeID := c.b.TypeID(ComponentFloat, count)

	srcID, err := c.loadSrc(&ins.Src[0], dst.Mask)
	if err != nil {
		return err
	}
	ones := make([]uint32, count)
	for i := range ones {
		ones[i] = math.Float32bits(1.0)
	}
	oneID := c.b.ConstantVector(ComponentFloat, count, ones)
	valID := c.b.BinOp(OpFDiv, typeID, oneID, srcID)
	return c.storeDst(dst, valID)
}

func (c *Compiler) emitIMul(ins *dxbc.Instruction) error {
	dst := ins.Dst
	if dst[0].Reg.Kind != dxbc.RegisterNull {
		log.Warnf("extended multiply high bits not implemented")
	}
	if dst[1].Reg.Kind == dxbc.RegisterNull {
		return nil
	}

	count := dst[1].Mask.ComponentCount()
	typeID := c.b.TypeID(componentType(dst[1].Reg.DataType), count)

	src0ID, err := c.loadSrc(&ins.Src[0], dst[1].Mask)
	if err != nil {
		return err
	}
	src1ID, err := c.loadSrc(&ins.Src[1], dst[1].Mask)
	if err != nil {
		return err
	}

	valID := c.b.BinOp(OpIMul, typeID, src0ID, src1ID)
	return c.storeDst(&dst[1], valID)
}

func (c *Compiler) emitIMad(ins *dxbc.Instruction) error {
	dst := &ins.Dst[0]
	count := dst.Mask.ComponentCount()
	typeID := c.b.TypeID(ComponentInt, count)

	var srcIDs [3]uint32
	for i := range srcIDs {
		id, err := c.loadSrc(&ins.Src[i], dst.Mask)
		if err != nil {
			return err
		}
		srcIDs[i] = id
	}

	valID := c.b.BinOp(OpIMul, typeID, srcIDs[0], srcIDs[1])
	valID = c.b.BinOp(OpIAdd, typeID, valID, srcIDs[2])
	return c.storeDst(dst, valID)
}

// emitUDiv lowers udiv's quotient and remainder. SPIR-V leaves division
// by zero undefined while the source API mandates 0xffffffff, so both
// results select against an all-ones vector on a zero divisor.
func (c *Compiler) emitUDiv(ins *dxbc.Instruction) error {
	dst := ins.Dst

	emit := func(d *dxbc.DstParam, op OpCode) error {
		count := d.Mask.ComponentCount()
		typeID := c.b.TypeID(componentType(d.Reg.DataType), count)

		src0ID, err := c.loadSrc(&ins.Src[0], d.Mask)
		if err != nil {
			return err
		}
		src1ID, err := c.loadSrc(&ins.Src[1], d.Mask)
		if err != nil {
			return err
		}

		conditionID := c.intToBool(dxbc.TestNonZero, count, src1ID)
		ones := make([]uint32, count)
		for i := range ones {
			ones[i] = 0xffffffff
		}
		onesID := c.b.ConstantVector(ComponentUint, count, ones)

		valID := c.b.BinOp(op, typeID, src0ID, src1ID)
		valID = c.b.Select(typeID, conditionID, valID, onesID)
		return c.storeDst(d, valID)
	}

	if dst[0].Reg.Kind != dxbc.RegisterNull {
		if err := emit(&dst[0], OpUDiv); err != nil {
			return err
		}
	}
	if dst[1].Reg.Kind != dxbc.RegisterNull {
		if err := emit(&dst[1], OpUMod); err != nil {
			return err
		}
	}
	return nil
}

// comparisonOps maps comparison instructions to their SPIR-V opcodes.
var comparisonOps = map[dxbc.Opcode]OpCode{
	dxbc.OpEq:  OpFOrdEqual,
	dxbc.OpGe:  OpFOrdGreaterThanEqual,
	dxbc.OpIEq: OpIEqual,
	dxbc.OpIGe: OpSGreaterThanEqual,
	dxbc.OpILt: OpSLessThan,
	dxbc.OpINe: OpINotEqual,
	dxbc.OpLt:  OpFOrdLessThan,
	dxbc.OpNe:  OpFUnordNotEqual,
	dxbc.OpUGe: OpUGreaterThanEqual,
	dxbc.OpULt: OpULessThan,
}

// emitComparison lowers a comparison to a boolean vector, then selects
// between all-ones and all-zero to match the 0xffffffff/0 convention.
func (c *Compiler) emitComparison(ins *dxbc.Instruction) error {
	op, ok := comparisonOps[ins.Opcode]
	if !ok {
		return NewError(ErrInternal, "instruction %d missing from the comparison table", ins.Opcode)
	}
	dst := &ins.Dst[0]
	count := dst.Mask.ComponentCount()

	src0ID, err := c.loadSrc(&ins.Src[0], dst.Mask)
	if err != nil {
		return err
	}
	src1ID, err := c.loadSrc(&ins.Src[1], dst.Mask)
	if err != nil {
		return err
	}

	boolType := c.b.TypeID(ComponentBool, count)
	resultID := c.b.BinOp(op, boolType, src0ID, src1ID)

	ones := make([]uint32, count)
	zeros := make([]uint32, count)
	for i := range ones {
		ones[i] = 0xffffffff
	}
	trueID := c.b.ConstantVector(ComponentUint, count, ones)
	falseID := c.b.ConstantVector(ComponentUint, count, zeros)
	typeID := c.b.TypeID(ComponentUint, count)
	resultID = c.b.Select(typeID, resultID, trueID, falseID)

	return c.storeRegister(&dst.Reg, dst.Mask, resultID)
}

// emitBitfield lowers bfi/ibfe/ubfe componentwise: the source API's
// width and offset operands are per-component, SPIR-V's are scalar.
func (c *Compiler) emitBitfield(ins *dxbc.Instruction) error {
	var op OpCode
	switch ins.Opcode {
	case dxbc.OpBfi:
		op = OpBitFieldInsert
	case dxbc.OpIBfe:
		op = OpBitFieldSExtract
	default:
		op = OpBitFieldUExtract
	}

	dst := &ins.Dst[0]
	srcCount := len(ins.Src)
	typeID := c.b.TypeID(componentType(dst.Reg.DataType), 1)
	uintType := c.b.TypeID(ComponentUint, 1)
	maskID := c.b.ConstantUint(0x1f)

	for i := 0; i < VectorSize; i++ {
		bit := dst.Mask & (1 << uint(i))
		if bit == 0 {
			continue
		}

		srcIDs := make([]uint32, srcCount)
		for j := 0; j < srcCount; j++ {
			id, err := c.loadRegister(&ins.Src[j].Reg, ins.Src[j].Swizzle, bit)
			if err != nil {
				return err
			}
			// The source order is (width, offset, ...); SPIR-V wants
			// (..., offset, count), so operands are reversed.
			srcIDs[srcCount-j-1] = id
		}
		// Offset and count are masked to five bits.
		for j := srcCount - 2; j < srcCount; j++ {
			srcIDs[j] = c.b.BinOp(OpBitwiseAnd, uintType, srcIDs[j], maskID)
		}

		resultID := c.b.OpV(op, typeID, srcIDs...)
		if err := c.storeRegister(&dst.Reg, bit, resultID); err != nil {
			return err
		}
	}
	return nil
}

// emitF16ToF32 unpacks half floats componentwise; the source API
// operates per scalar.
func (c *Compiler) emitF16ToF32(ins *dxbc.Instruction) error {
	dst := &ins.Dst[0]
	vec2Type := c.b.TypeID(ComponentFloat, 2)
	scalarType := c.b.TypeID(ComponentFloat, 1)

	for i := 0; i < VectorSize; i++ {
		bit := dst.Mask & (1 << uint(i))
		if bit == 0 {
			continue
		}
		srcID, err := c.loadSrc(&ins.Src[0], bit)
		if err != nil {
			return err
		}
		resultID := c.b.ExtInst(vec2Type, GLSLstd450UnpackHalf2x16, srcID)
		resultID = c.b.CompositeExtract(scalarType, resultID, 0)
		if err := c.storeRegister(&dst.Reg, bit, resultID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) emitF32ToF16(ins *dxbc.Instruction) error {
	dst := &ins.Dst[0]
	vec2Type := c.b.TypeID(ComponentFloat, 2)
	scalarType := c.b.TypeID(ComponentUint, 1)
	zeroID := c.b.Constant(c.b.TypeID(ComponentFloat, 1), 0)

	for i := 0; i < VectorSize; i++ {
		bit := dst.Mask & (1 << uint(i))
		if bit == 0 {
			continue
		}
		srcID, err := c.loadSrc(&ins.Src[0], bit)
		if err != nil {
			return err
		}
		vecID := c.b.CompositeConstruct(vec2Type, srcID, zeroID)
		resultID := c.b.ExtInst(scalarType, GLSLstd450PackHalf2x16, vecID)
		if err := c.storeRegister(&dst.Reg, bit, resultID); err != nil {
			return err
		}
	}
	return nil
}

func dataTypeFromComponent(ct ComponentType) dxbc.DataType {
	switch ct {
	case ComponentInt:
		return dxbc.TypeInt
	case ComponentUint:
		return dxbc.TypeUint
	default:
		return dxbc.TypeFloat
	}
}

// prepareSampledImage loads the image and sampler and combines them into
// a sampled-image value.
func (c *Compiler) prepareSampledImage(resourceReg, samplerReg *dxbc.Register) (uint32, resourceInfo, error) {
	res, err := c.resource(resourceReg)
	if err != nil {
		return 0, res, err
	}
	imageID := c.b.Load(res.typeID, res.id)

	samplerInfo, ok := c.symbol(dxbc.RegisterSampler, samplerReg.Index[0].Offset)
	if !ok {
		return 0, res, NewError(ErrMalformedBytecode, "use of undeclared sampler s%d", samplerReg.Index[0].Offset)
	}
	samplerID := c.b.Load(c.b.TypeSampler(), samplerInfo.id)

	sampledImageType := c.b.TypeSampledImage(res.typeID)
	sampledImageID := c.b.SampledImageOp(sampledImageType, imageID, samplerID)
	return sampledImageID, res, nil
}

func (c *Compiler) emitSample(ins *dxbc.Instruction) error {
	if ins.HasTexelOffset() {
		return NewError(ErrUnsupported, "texel offsets on sample instructions")
	}

	sampledImageID, res, err := c.prepareSampledImage(&ins.Src[1].Reg, &ins.Src[2].Reg)
	if err != nil {
		return err
	}

	coordinateID, err := c.loadSrc(&ins.Src[0], dxbc.WriteMaskAll)
	if err != nil {
		return err
	}

	resultType := c.b.TypeID(res.sampledType, VectorSize)
	valID := c.b.ImageSampleImplicitLod(resultType, sampledImageID, coordinateID)

	dst := ins.Dst[0]
	valID = c.swizzleValue(valID, ins.Src[1].Swizzle, dst.Mask, res.sampledType)
	dst.Reg.DataType = dataTypeFromComponent(res.sampledType)
	return c.storeDst(&dst, valID)
}

// emitLd lowers the ld instruction to an image fetch. The coordinate's
// fourth component carries the mip level for everything but buffers.
func (c *Compiler) emitLd(ins *dxbc.Instruction) error {
	if ins.HasTexelOffset() {
		return NewError(ErrUnsupported, "texel offsets on ld instructions")
	}

	res, err := c.resource(&ins.Src[1].Reg)
	if err != nil {
		return err
	}
	if res.isUAV {
		return NewError(ErrUnsupported, "typed UAV loads")
	}
	imageID := c.b.Load(res.typeID, res.id)

	coordinateID, err := c.loadRegister(&ins.Src[0].Reg, ins.Src[0].Swizzle, res.coordMask)
	if err != nil {
		return err
	}

	resultType := c.b.TypeID(res.sampledType, VectorSize)
	var valID uint32
	if res.kind == dxbc.ResourceBuffer {
		valID = c.b.ImageFetch(resultType, imageID, coordinateID)
	} else {
		lodID, err := c.loadRegister(&ins.Src[0].Reg, ins.Src[0].Swizzle, dxbc.WriteMaskW)
		if err != nil {
			return err
		}
		valID = c.b.ImageFetchLod(resultType, imageID, coordinateID, lodID)
	}

	dst := ins.Dst[0]
	valID = c.swizzleValue(valID, ins.Src[1].Swizzle, dst.Mask, res.sampledType)
	dst.Reg.DataType = dataTypeFromComponent(res.sampledType)
	return c.storeDst(&dst, valID)
}

func (c *Compiler) emitStoreUAVTyped(ins *dxbc.Instruction) error {
	c.b.EnableCapability(CapabilityStorageImageWriteWithoutFormat)

	dst := &ins.Dst[0]
	res, err := c.resource(&dst.Reg)
	if err != nil {
		return err
	}
	if !res.isUAV {
		return NewError(ErrMalformedBytecode, "typed store to a non-UAV register")
	}
	imageID := c.b.Load(res.typeID, res.id)

	coordinateID, err := c.loadSrc(&ins.Src[0], res.coordMask)
	if err != nil {
		return err
	}

	texel := ins.Src[1]
	texel.Reg.DataType = dataTypeFromComponent(res.sampledType)
	texelID, err := c.loadSrc(&texel, dst.Mask)
	if err != nil {
		return err
	}

	c.b.ImageWrite(imageID, coordinateID, texelID)
	return nil
}

// emitUAVCounterOp lowers imm_atomic_alloc and imm_atomic_consume onto
// the counter binding's texel.
func (c *Compiler) emitUAVCounterOp(ins *dxbc.Instruction) error {
	res, err := c.resource(&ins.Dst[1].Reg)
	if err != nil {
		return err
	}
	if res.counterID == 0 {
		return NewError(ErrInternal, "counter instruction on a UAV the scan pass missed")
	}

	uintType := c.b.TypeID(ComponentUint, 1)
	ptrType := c.b.TypePointer(StorageClassImage, uintType)
	zeroID := c.b.ConstantUint(0)
	pointerID := c.b.ImageTexelPointer(ptrType, res.counterID, zeroID, zeroID)

	scopeID := c.b.ConstantUint(ScopeDevice)
	semanticsID := c.b.ConstantUint(MemorySemanticsNone)
	var valID uint32
	if ins.Opcode == dxbc.OpImmAtomicAlloc {
		valID = c.b.Atomic(OpAtomicIIncrement, uintType, pointerID, scopeID, semanticsID)
	} else {
		valID = c.b.Atomic(OpAtomicIDecrement, uintType, pointerID, scopeID, semanticsID)
		oneID := c.b.ConstantUint(1)
		valID = c.b.BinOp(OpISub, uintType, valID, oneID)
	}
	return c.storeDst(&ins.Dst[0], valID)
}
