package spirv

// declKey identifies a deduplicated declaration by its opcode and up to
// seven operand words. Operand ids are themselves canonical, so
// structural equality on the key is enough.
type declKey struct {
	op     OpCode
	count  uint8
	params [7]uint32
}

// maxDeclParams is the operand budget of a cache key. Declarations with
// more operands are emitted uncached.
const maxDeclParams = 7

func makeDeclKey(op OpCode, params []uint32) (declKey, bool) {
	if len(params) > maxDeclParams {
		return declKey{}, false
	}
	key := declKey{op: op, count: uint8(len(params))}
	copy(key.params[:], params)
	return key, true
}

// getDecl returns the id of the declaration identified by (op, params),
// building and caching it on first request. For every key exactly one id
// is ever allocated.
func (b *Builder) getDecl(op OpCode, params ...uint32) uint32 {
	key, ok := makeDeclKey(op, params)
	if !ok {
		return b.buildDecl(op, params)
	}
	if id, hit := b.decls[key]; hit {
		return id
	}
	id := b.buildDecl(op, params)
	b.decls[key] = id
	return id
}

// buildDecl emits a declaration into the globals stream. OpConstant and
// OpConstantComposite carry a result type before the result id; type
// declarations lead with the result id.
func (b *Builder) buildDecl(op OpCode, params []uint32) uint32 {
	switch op {
	case OpConstant, OpConstantComposite, OpConstantNull, OpUndef:
		return b.globalOpTR(op, params[0], params[1:]...)
	default:
		return b.globalOpR(op, params...)
	}
}

// TypeVoid returns the void type id.
func (b *Builder) TypeVoid() uint32 {
	return b.getDecl(OpTypeVoid)
}

// TypeBool returns the bool type id.
func (b *Builder) TypeBool() uint32 {
	return b.getDecl(OpTypeBool)
}

// TypeFloat returns a float type id of the given bit width.
func (b *Builder) TypeFloat(width uint32) uint32 {
	return b.getDecl(OpTypeFloat, width)
}

// TypeInt returns an integer type id of the given bit width.
func (b *Builder) TypeInt(width uint32, signed bool) uint32 {
	signedness := uint32(0)
	if signed {
		signedness = 1
	}
	return b.getDecl(OpTypeInt, width, signedness)
}

// TypeVector returns a vector type id.
func (b *Builder) TypeVector(componentTypeID, count uint32) uint32 {
	return b.getDecl(OpTypeVector, componentTypeID, count)
}

// TypeArray returns an array type id. The length operand is a constant
// id, not a literal.
func (b *Builder) TypeArray(elementTypeID, lengthID uint32) uint32 {
	return b.getDecl(OpTypeArray, elementTypeID, lengthID)
}

// TypeStruct returns a struct type id.
func (b *Builder) TypeStruct(memberTypeIDs ...uint32) uint32 {
	return b.getDecl(OpTypeStruct, memberTypeIDs...)
}

// TypePointer returns a pointer type id.
func (b *Builder) TypePointer(class StorageClass, pointeeTypeID uint32) uint32 {
	return b.getDecl(OpTypePointer, uint32(class), pointeeTypeID)
}

// TypeFunction returns a function type id.
func (b *Builder) TypeFunction(returnTypeID uint32, paramTypeIDs ...uint32) uint32 {
	return b.getDecl(OpTypeFunction, append([]uint32{returnTypeID}, paramTypeIDs...)...)
}

// TypeSampler returns the sampler type id.
func (b *Builder) TypeSampler() uint32 {
	return b.getDecl(OpTypeSampler)
}

// TypeImage returns an image type id. sampled is 1 for sampled images
// and 2 for storage images.
func (b *Builder) TypeImage(sampledTypeID uint32, dim Dim, depth, arrayed, ms, sampled uint32, format ImageFormat) uint32 {
	return b.getDecl(OpTypeImage, sampledTypeID, uint32(dim), depth, arrayed, ms, sampled, uint32(format))
}

// TypeSampledImage returns a sampled-image type id.
func (b *Builder) TypeSampledImage(imageTypeID uint32) uint32 {
	return b.getDecl(OpTypeSampledImage, imageTypeID)
}

// Constant returns a scalar constant id for one 32-bit value.
func (b *Builder) Constant(typeID, value uint32) uint32 {
	return b.getDecl(OpConstant, typeID, value)
}

// ConstantComposite returns a composite constant id.
func (b *Builder) ConstantComposite(typeID uint32, constituents ...uint32) uint32 {
	return b.getDecl(OpConstantComposite, append([]uint32{typeID}, constituents...)...)
}

// scalarTypeID returns the type id for one scalar component.
func (b *Builder) scalarTypeID(ct ComponentType) uint32 {
	switch ct {
	case ComponentBool:
		return b.TypeBool()
	case ComponentInt:
		return b.TypeInt(32, true)
	case ComponentUint:
		return b.TypeInt(32, false)
	case ComponentVoid:
		return b.TypeVoid()
	default:
		return b.TypeFloat(32)
	}
}

// TypeID returns the type id for a scalar or vector of the component
// type.
func (b *Builder) TypeID(ct ComponentType, componentCount int) uint32 {
	scalar := b.scalarTypeID(ct)
	if componentCount <= 1 {
		return scalar
	}
	return b.TypeVector(scalar, uint32(componentCount))
}

// ConstantVector returns a constant of the given component type whose
// bit pattern is values[:count], deduplicated through the declaration
// cache.
func (b *Builder) ConstantVector(ct ComponentType, count int, values []uint32) uint32 {
	typeID := b.TypeID(ct, count)
	if count == 1 {
		return b.Constant(typeID, values[0])
	}
	scalarID := b.scalarTypeID(ct)
	ids := make([]uint32, count)
	for i := 0; i < count; i++ {
		ids[i] = b.Constant(scalarID, values[i])
	}
	return b.ConstantComposite(typeID, ids...)
}

// ConstantUint returns a u32 scalar constant.
func (b *Builder) ConstantUint(value uint32) uint32 {
	return b.Constant(b.TypeInt(32, false), value)
}
