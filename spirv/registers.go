package spirv

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/gogpu/vkd3d/dxbc"
)

// emitGlobalVariable allocates a global of the given shape and returns
// its id.
func (c *Compiler) emitGlobalVariable(class StorageClass, ct ComponentType, count int) uint32 {
	typeID := c.b.TypeID(ct, count)
	ptrID := c.b.TypePointer(class, typeID)
	return c.b.GlobalVariable(ptrID, class, 0)
}

// emitFunctionVariable allocates a function-scope variable. Only valid
// while the entry block is still open.
func (c *Compiler) emitFunctionVariable(ct ComponentType, count int) uint32 {
	typeID := c.b.TypeID(ct, count)
	ptrID := c.b.TypePointer(StorageClassFunction, typeID)
	return c.b.FunctionVariable(ptrID, StorageClassFunction)
}

// registerAddressing lowers one register index to an id: a constant for
// immediate offsets, or the loaded relative register plus the offset.
func (c *Compiler) registerAddressing(idx *dxbc.RegisterIndex) (uint32, error) {
	if idx.Rel == nil {
		return c.b.ConstantUint(idx.Offset), nil
	}
	addr, err := c.loadSrc(idx.Rel, dxbc.WriteMaskX)
	if err != nil {
		return 0, err
	}
	if idx.Offset != 0 {
		typeID := c.b.TypeID(ComponentUint, 1)
		addr = c.b.BinOp(OpIAdd, typeID, addr, c.b.ConstantUint(idx.Offset))
	}
	return addr, nil
}

// registerInfo resolves a register reference to the variable (or access
// chain) holding its canonical 4-component f32 storage.
func (c *Compiler) registerInfo(reg *dxbc.Register) (regInfo, error) {
	if reg.Kind == dxbc.RegisterTemp {
		if reg.Index[0].Offset >= c.tempCount {
			return regInfo{}, NewError(ErrMalformedBytecode, "temp register r%d out of range", reg.Index[0].Offset)
		}
		return regInfo{id: c.tempID + reg.Index[0].Offset, class: StorageClassFunction}, nil
	}

	index := reg.Index[0].Offset
	if reg.Kind == dxbc.RegisterImmediateConstantBuffer {
		index = 0
	}
	info, ok := c.symbol(reg.Kind, index)
	if !ok {
		return regInfo{}, NewError(ErrMalformedBytecode, "use of undeclared register %s", registerName(reg))
	}

	switch reg.Kind {
	case dxbc.RegisterConstantBuffer:
		vecIndex, err := c.registerAddressing(&reg.Index[1])
		if err != nil {
			return regInfo{}, err
		}
		typeID := c.b.TypeID(ComponentFloat, VectorSize)
		ptrID := c.b.TypePointer(info.class, typeID)
		member := c.b.ConstantUint(info.member)
		info.id = c.b.AccessChain(ptrID, info.id, member, vecIndex)
	case dxbc.RegisterImmediateConstantBuffer:
		vecIndex, err := c.registerAddressing(&reg.Index[0])
		if err != nil {
			return regInfo{}, err
		}
		typeID := c.b.TypeID(ComponentFloat, VectorSize)
		ptrID := c.b.TypePointer(info.class, typeID)
		info.id = c.b.AccessChain(ptrID, info.id, vecIndex)
	}
	return info, nil
}

// swizzleValue narrows and reorders a 4-component value per swizzle and
// write mask.
func (c *Compiler) swizzleValue(valID uint32, swizzle dxbc.Swizzle, mask dxbc.WriteMask, ct ComponentType) uint32 {
	if swizzle == dxbc.NoSwizzle && mask == dxbc.WriteMaskAll {
		return valID
	}

	count := mask.ComponentCount()
	typeID := c.b.TypeID(ct, count)

	if count == 1 {
		component := uint32(swizzle.Component(mask.FirstComponent()))
		return c.b.CompositeExtract(typeID, valID, component)
	}

	components := make([]uint32, 0, count)
	for i := 0; i < VectorSize; i++ {
		if mask&(1<<uint(i)) != 0 {
			components = append(components, uint32(swizzle.Component(i)))
		}
	}
	return c.b.VectorShuffle(typeID, valID, valID, components)
}

// loadConstant materializes an immediate register as a (composite)
// constant.
func (c *Compiler) loadConstant(reg *dxbc.Register, swizzle dxbc.Swizzle, mask dxbc.WriteMask) uint32 {
	count := mask.ComponentCount()
	var values [VectorSize]uint32

	if reg.ImmKind == dxbc.ImmediateScalar {
		values[0] = reg.Immediate[0]
	} else {
		j := 0
		for i := 0; i < VectorSize; i++ {
			if mask&(1<<uint(i)) != 0 {
				values[j] = reg.Immediate[swizzle.Component(i)]
				j++
			}
		}
	}
	return c.b.ConstantVector(componentType(reg.DataType), count, values[:])
}

// loadScalar loads one component of a register through an access chain.
func (c *Compiler) loadScalar(reg *dxbc.Register, swizzle dxbc.Swizzle, mask dxbc.WriteMask) (uint32, error) {
	component := swizzle.Component(mask.FirstComponent())

	info, err := c.registerInfo(reg)
	if err != nil {
		return 0, err
	}

	typeID := c.b.TypeID(ComponentFloat, 1)
	ptrID := c.b.TypePointer(info.class, typeID)
	chain := c.b.InBoundsAccessChain(ptrID, info.id, c.b.ConstantUint(uint32(component)))
	valID := c.b.Load(typeID, chain)

	if reg.DataType != dxbc.TypeFloat {
		valID = c.b.Bitcast(c.b.TypeID(componentType(reg.DataType), 1), valID)
	}
	return valID, nil
}

// loadRegister produces the value of a register reference under a
// swizzle and write mask. The result has popcount(mask) components of
// the register's data type.
func (c *Compiler) loadRegister(reg *dxbc.Register, swizzle dxbc.Swizzle, mask dxbc.WriteMask) (uint32, error) {
	if reg.Kind == dxbc.RegisterImmediate {
		return c.loadConstant(reg, swizzle, mask), nil
	}

	count := mask.ComponentCount()
	if count == 1 {
		return c.loadScalar(reg, swizzle, mask)
	}

	info, err := c.registerInfo(reg)
	if err != nil {
		return 0, err
	}
	typeID := c.b.TypeID(ComponentFloat, VectorSize)
	valID := c.b.Load(typeID, info.id)
	valID = c.swizzleValue(valID, swizzle, mask, ComponentFloat)

	if reg.DataType != dxbc.TypeFloat {
		valID = c.b.Bitcast(c.b.TypeID(componentType(reg.DataType), count), valID)
	}
	return valID, nil
}

// emitNeg negates a value using the operation matching its data type.
func (c *Compiler) emitNeg(reg *dxbc.Register, mask dxbc.WriteMask, valID uint32) uint32 {
	count := mask.ComponentCount()
	typeID := c.b.TypeID(componentType(reg.DataType), count)
	switch reg.DataType {
	case dxbc.TypeFloat:
		return c.b.UnOp(OpFNegate, typeID, valID)
	case dxbc.TypeInt, dxbc.TypeUint:
		return c.b.UnOp(OpSNegate, typeID, valID)
	}
	return valID
}

// emitAbs takes the absolute value of a float operand.
func (c *Compiler) emitAbs(reg *dxbc.Register, mask dxbc.WriteMask, valID uint32) uint32 {
	if reg.DataType == dxbc.TypeFloat {
		typeID := c.b.TypeID(ComponentFloat, mask.ComponentCount())
		return c.b.ExtInst(typeID, GLSLstd450FAbs, valID)
	}
	log.Warnf("abs modifier on non-float operand")
	return valID
}

func (c *Compiler) applySrcModifier(reg *dxbc.Register, mask dxbc.WriteMask, mod dxbc.SrcModifier, valID uint32) uint32 {
	switch mod {
	case dxbc.SrcModifierNeg:
		return c.emitNeg(reg, mask, valID)
	case dxbc.SrcModifierAbs:
		return c.emitAbs(reg, mask, valID)
	case dxbc.SrcModifierAbsNeg:
		return c.emitNeg(reg, mask, c.emitAbs(reg, mask, valID))
	}
	return valID
}

// loadSrc loads a source operand and applies its modifier.
func (c *Compiler) loadSrc(src *dxbc.SrcParam, mask dxbc.WriteMask) (uint32, error) {
	valID, err := c.loadRegister(&src.Reg, src.Swizzle, mask)
	if err != nil {
		return 0, err
	}
	return c.applySrcModifier(&src.Reg, mask, src.Modifier, valID), nil
}

// storeScalar stores one float component through an access chain.
func (c *Compiler) storeScalar(reg *dxbc.Register, mask dxbc.WriteMask, valID uint32) error {
	info, err := c.registerInfo(reg)
	if err != nil {
		return err
	}
	typeID := c.b.TypeID(ComponentFloat, 1)
	ptrID := c.b.TypePointer(info.class, typeID)
	index := c.b.ConstantUint(uint32(mask.FirstComponent()))
	chain := c.b.InBoundsAccessChain(ptrID, info.id, index)
	c.b.Store(chain, valID)
	return nil
}

// storeRegister writes popcount(mask) components into a register,
// interleaving partial writes into the existing 4-vector.
func (c *Compiler) storeRegister(reg *dxbc.Register, mask dxbc.WriteMask, valID uint32) error {
	count := mask.ComponentCount()
	if count == 0 {
		return NewError(ErrMalformedBytecode, "store with empty write mask")
	}

	if reg.DataType != dxbc.TypeFloat {
		valID = c.b.Bitcast(c.b.TypeID(ComponentFloat, count), valID)
	}
	if count == 1 {
		return c.storeScalar(reg, mask, valID)
	}

	info, err := c.registerInfo(reg)
	if err != nil {
		return err
	}

	if count != VectorSize {
		typeID := c.b.TypeID(ComponentFloat, VectorSize)
		current := c.b.Load(typeID, info.id)

		var components [VectorSize]uint32
		idx := uint32(0)
		for i := 0; i < VectorSize; i++ {
			if mask&(1<<uint(i)) != 0 {
				components[i] = VectorSize + idx
				idx++
			} else {
				components[i] = uint32(i)
			}
		}
		valID = c.b.VectorShuffle(typeID, current, valID, components[:])
	}

	c.b.Store(info.id, valID)
	return nil
}

// emitSat clamps a float result to [0, 1]. NClamp maps NaN to the low
// bound, matching the source API's saturate.
func (c *Compiler) emitSat(reg *dxbc.Register, mask dxbc.WriteMask, valID uint32) uint32 {
	count := mask.ComponentCount()
	if reg.DataType != dxbc.TypeFloat {
		log.Warnf("saturate modifier on non-float result")
		return valID
	}
	zero := make([]uint32, count)
	one := make([]uint32, count)
	for i := range one {
		one[i] = math.Float32bits(1.0)
	}
	zeroID := c.b.ConstantVector(ComponentFloat, count, zero)
	oneID := c.b.ConstantVector(ComponentFloat, count, one)
	typeID := c.b.TypeID(ComponentFloat, count)
	return c.b.ExtInst(typeID, GLSLstd450NClamp, valID, zeroID, oneID)
}

// storeDst applies destination modifiers and stores a result.
func (c *Compiler) storeDst(dst *dxbc.DstParam, valID uint32) error {
	if dst.Modifier&dxbc.DstModifierSaturate != 0 {
		valID = c.emitSat(&dst.Reg, dst.Mask, valID)
	}
	return c.storeRegister(&dst.Reg, dst.Mask, valID)
}

// intToBool lowers a 32-bit condition value to a boolean: v != 0, or
// v == 0 when the zero-test flag is set.
func (c *Compiler) intToBool(flags uint32, count int, valID uint32) uint32 {
	op := OpINotEqual
	if flags&dxbc.TestZero != 0 {
		op = OpIEqual
	}
	boolType := c.b.TypeID(ComponentBool, count)
	zero := make([]uint32, count)
	zeroID := c.b.ConstantVector(ComponentUint, count, zero)
	return c.b.BinOp(op, boolType, valID, zeroID)
}
