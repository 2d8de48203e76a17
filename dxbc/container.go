package dxbc

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"
)

// Container layout constants.
const (
	magicDXBC = 0x43425844 // "DXBC"

	chunkSHDR = 0x52444853 // "SHDR"
	chunkSHEX = 0x58454853 // "SHEX"
	chunkISGN = 0x4e475349 // "ISGN"
	chunkOSGN = 0x4e47534f // "OSGN"
)

// Parse decodes a DXBC blob into a Shader.
func Parse(blob []byte) (*Shader, error) {
	if len(blob) == 0 {
		return nil, NewError(ErrInvalidArgument, "empty shader blob")
	}
	if len(blob) < 32 || len(blob)%4 != 0 {
		return nil, NewError(ErrMalformedBytecode, "blob too small for container header")
	}

	le := binary.LittleEndian
	if le.Uint32(blob) != magicDXBC {
		return nil, NewError(ErrMalformedBytecode, "bad container magic %#x", le.Uint32(blob))
	}
	// Skip the 16-byte checksum and the reserved word.
	totalSize := le.Uint32(blob[24:])
	if uint64(totalSize) > uint64(len(blob)) {
		return nil, NewError(ErrMalformedBytecode, "container size %d exceeds blob size %d", totalSize, len(blob))
	}
	chunkCount := le.Uint32(blob[28:])
	if 32+uint64(chunkCount)*4 > uint64(len(blob)) {
		return nil, NewError(ErrMalformedBytecode, "chunk table truncated (%d chunks)", chunkCount)
	}

	shader := &Shader{}
	haveCode := false

	for i := uint32(0); i < chunkCount; i++ {
		offset := le.Uint32(blob[32+4*i:])
		if uint64(offset)+8 > uint64(len(blob)) {
			return nil, NewError(ErrMalformedBytecode, "chunk %d offset %#x out of range", i, offset)
		}
		tag := le.Uint32(blob[offset:])
		size := le.Uint32(blob[offset+4:])
		if uint64(offset)+8+uint64(size) > uint64(len(blob)) {
			return nil, NewError(ErrMalformedBytecode, "chunk %d truncated", i)
		}
		data := blob[offset+8 : offset+8+size]

		switch tag {
		case chunkISGN:
			sig, err := parseSignature(data)
			if err != nil {
				return nil, err
			}
			shader.InputSignature = *sig
		case chunkOSGN:
			sig, err := parseSignature(data)
			if err != nil {
				return nil, err
			}
			shader.OutputSignature = *sig
		case chunkSHDR, chunkSHEX:
			if err := parseCode(shader, data); err != nil {
				return nil, err
			}
			haveCode = true
		default:
			log.Debugf("skipping chunk %q", tagString(tag))
		}
	}

	if !haveCode {
		return nil, NewError(ErrMalformedBytecode, "no instruction stream chunk")
	}
	return shader, nil
}

func tagString(tag uint32) string {
	return string([]byte{byte(tag), byte(tag >> 8), byte(tag >> 16), byte(tag >> 24)})
}

// parseSignature decodes an ISGN/OSGN chunk.
func parseSignature(data []byte) (*Signature, error) {
	le := binary.LittleEndian
	if len(data) < 8 {
		return nil, NewError(ErrMalformedBytecode, "signature chunk truncated")
	}
	count := le.Uint32(data)
	if 8+uint64(count)*24 > uint64(len(data)) {
		return nil, NewError(ErrMalformedBytecode, "signature element table truncated (%d elements)", count)
	}

	sig := &Signature{Elements: make([]SignatureElement, count)}
	for i := uint32(0); i < count; i++ {
		e := data[8+24*i:]
		nameOffset := le.Uint32(e)
		name, ok := readString(data, nameOffset)
		if !ok {
			return nil, NewError(ErrMalformedBytecode, "signature element %d name out of range", i)
		}
		sig.Elements[i] = SignatureElement{
			SemanticName:  name,
			SemanticIndex: le.Uint32(e[4:]),
			SysVal:        SysVal(le.Uint32(e[8:])),
			ComponentType: componentDataType(le.Uint32(e[12:])),
			Register:      le.Uint32(e[16:]),
			Mask:          WriteMask(e[20]) & WriteMaskAll,
			UsedMask:      WriteMask(e[21]) & WriteMaskAll,
		}
	}
	return sig, nil
}

func readString(data []byte, offset uint32) (string, bool) {
	if uint64(offset) >= uint64(len(data)) {
		return "", false
	}
	end := offset
	for end < uint32(len(data)) && data[end] != 0 {
		end++
	}
	if end == uint32(len(data)) {
		return "", false
	}
	return string(data[offset:end]), true
}

func componentDataType(ct uint32) DataType {
	switch ct {
	case 1:
		return TypeUint
	case 2:
		return TypeInt
	default:
		return TypeFloat
	}
}

// Opcode-token fields.
const (
	opcodeMask        = 0x7ff
	opcodeLengthShift = 24
	opcodeLengthMask  = 0x7f
	opcodeExtendedBit = 1 << 31

	extOpcodeTypeMask       = 0x3f
	extOpcodeSampleControls = 1
)

// Operand-token fields.
const (
	operandSelectionShift = 2
	operandSelectionMask  = 0x3
	operandTypeShift      = 12
	operandTypeMask       = 0xff
	operandIndexDimShift  = 20
	operandIndexDimMask   = 0x3
	operandExtendedBit    = 1 << 31

	selectionMask    = 0
	selectionSwizzle = 1
	selectionSelect1 = 2

	indexRepImm32         = 0
	indexRepImm64         = 1
	indexRepRelative      = 2
	indexRepImm32Relative = 3
)

type tokenReader struct {
	words []uint32
	pos   int
}

func (r *tokenReader) remaining() int { return len(r.words) - r.pos }

func (r *tokenReader) word() (uint32, error) {
	if r.pos >= len(r.words) {
		return 0, NewError(ErrMalformedBytecode, "instruction stream truncated at token %d", r.pos)
	}
	w := r.words[r.pos]
	r.pos++
	return w, nil
}

// parseCode decodes a SHDR/SHEX chunk into shader.Instructions.
func parseCode(shader *Shader, data []byte) error {
	if len(data) < 8 || len(data)%4 != 0 {
		return NewError(ErrMalformedBytecode, "code chunk truncated")
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[4*i:])
	}

	version := words[0]
	shader.Version = Version{
		Minor: uint8(version & 0xf),
		Major: uint8((version >> 4) & 0xf),
	}
	switch version >> 16 {
	case 0:
		shader.Version.Stage = StagePixel
	case 1:
		shader.Version.Stage = StageVertex
	case 2:
		shader.Version.Stage = StageGeometry
	case 3:
		shader.Version.Stage = StageHull
	case 4:
		shader.Version.Stage = StageDomain
	case 5:
		shader.Version.Stage = StageCompute
	default:
		return NewError(ErrUnsupported, "unknown program type %#x", version>>16)
	}

	length := words[1]
	if uint64(length) > uint64(len(words)) {
		return NewError(ErrMalformedBytecode, "code length %d exceeds chunk size %d", length, len(words))
	}

	r := &tokenReader{words: words[2:length]}
	for r.remaining() > 0 {
		ins, err := decodeInstruction(r)
		if err != nil {
			return err
		}
		if ins != nil {
			shader.Instructions = append(shader.Instructions, *ins)
		}
	}
	return nil
}

// decodeInstruction decodes one instruction. It returns nil for tokens
// that carry no instruction (skipped custom data, nop).
func decodeInstruction(r *tokenReader) (*Instruction, error) {
	start := r.pos
	token, err := r.word()
	if err != nil {
		return nil, err
	}
	op := Opcode(token & opcodeMask)

	if op == OpCustomData {
		return decodeCustomData(r, token)
	}

	length := int(token>>opcodeLengthShift) & opcodeLengthMask
	if length == 0 {
		return nil, NewError(ErrMalformedBytecode, "zero-length instruction at token %d", start)
	}
	if start+length > len(r.words) {
		return nil, NewError(ErrMalformedBytecode, "instruction %v truncated", op)
	}
	end := start + length

	ins := &Instruction{Opcode: op}

	// Extended opcode tokens precede the operands.
	ext := token&opcodeExtendedBit != 0
	for ext {
		extToken, err := r.word()
		if err != nil {
			return nil, err
		}
		if extToken&extOpcodeTypeMask == extOpcodeSampleControls {
			ins.TexelOffset[0] = signed4(extToken >> 9)
			ins.TexelOffset[1] = signed4(extToken >> 13)
			ins.TexelOffset[2] = signed4(extToken >> 17)
		} else {
			log.Debugf("ignoring extended opcode token %#x", extToken)
		}
		ext = extToken&opcodeExtendedBit != 0
	}

	if err := decodeOperands(r, ins, token, end); err != nil {
		return nil, err
	}
	if r.pos > end {
		return nil, NewError(ErrMalformedBytecode, "instruction %v overruns its length", op)
	}
	// Trailing padding inside the declared length is tolerated.
	r.pos = end

	if ins.Opcode == OpNop {
		return nil, nil
	}
	applyDataTypes(ins)
	return ins, nil
}

func signed4(v uint32) int8 {
	s := int8(v & 0xf)
	if s >= 8 {
		s -= 16
	}
	return s
}

func decodeCustomData(r *tokenReader, token uint32) (*Instruction, error) {
	class := token >> 11
	lengthWord, err := r.word()
	if err != nil {
		return nil, err
	}
	if lengthWord < 2 || r.pos-2+int(lengthWord) > len(r.words) {
		return nil, NewError(ErrMalformedBytecode, "custom data block truncated")
	}
	payload := r.words[r.pos : r.pos-2+int(lengthWord)]
	r.pos += int(lengthWord) - 2

	// Class 3 is an immediate constant buffer; everything else is debug
	// data we do not need.
	if class != 3 {
		log.Debugf("skipping custom data class %d (%d words)", class, len(payload))
		return nil, nil
	}
	if len(payload)%4 != 0 {
		return nil, NewError(ErrMalformedBytecode, "immediate constant buffer size %d is not a multiple of 4", len(payload))
	}
	icb := make([][4]uint32, len(payload)/4)
	for i := range icb {
		copy(icb[i][:], payload[4*i:4*i+4])
	}
	return &Instruction{Opcode: OpCustomData, Dcl: &Declaration{ICB: icb}}, nil
}

// decodeOperands decodes the operand words of a non-customdata
// instruction, dispatching on the opcode for declarations.
func decodeOperands(r *tokenReader, ins *Instruction, token uint32, end int) error {
	switch ins.Opcode {
	case OpDclGlobalFlags:
		ins.Flags = (token >> 11) & 0xfffff
		return nil

	case OpDclTemps:
		count, err := r.word()
		if err != nil {
			return err
		}
		ins.Dcl = &Declaration{Count: count}
		return nil

	case OpDclIndexableTemp:
		// Register index, size, component count. Decoded so the backend
		// can report it as unsupported with context.
		idx, err := r.word()
		if err != nil {
			return err
		}
		size, err := r.word()
		if err != nil {
			return err
		}
		if _, err := r.word(); err != nil {
			return err
		}
		ins.Dcl = &Declaration{Count: size}
		ins.Dst = []DstParam{{Reg: Register{Kind: RegisterTemp, Index: [2]RegisterIndex{{Offset: idx}}}}}
		return nil

	case OpDclThreadGroup:
		var tg [3]uint32
		for i := range tg {
			w, err := r.word()
			if err != nil {
				return err
			}
			tg[i] = w
		}
		ins.Dcl = &Declaration{ThreadGroup: tg}
		return nil

	case OpDclConstantBuffer:
		src, err := readSrc(r)
		if err != nil {
			return err
		}
		ins.Flags = (token >> 11) & 0x1
		ins.Src = []SrcParam{*src}
		ins.Dcl = &Declaration{Count: src.Reg.Index[1].Offset}
		return nil

	case OpDclSampler:
		dst, err := readDst(r)
		if err != nil {
			return err
		}
		ins.Flags = (token >> 11) & 0xf
		ins.Dst = []DstParam{*dst}
		return nil

	case OpDclResource, OpDclUAVTyped:
		dst, err := readDst(r)
		if err != nil {
			return err
		}
		returnType, err := r.word()
		if err != nil {
			return err
		}
		ins.Dst = []DstParam{*dst}
		ins.Dcl = &Declaration{
			ResourceKind:     resourceKindFromToken((token >> 11) & 0x1f),
			ResourceDataType: resourceDataType(returnType & 0xf),
		}
		return nil

	case OpDclInput, OpDclOutput, OpDclInputPS:
		dst, err := readDst(r)
		if err != nil {
			return err
		}
		if ins.Opcode == OpDclInputPS {
			ins.Flags = (token >> 11) & 0xf
		}
		ins.Dst = []DstParam{*dst}
		return nil

	case OpDclInputSgv, OpDclInputSiv, OpDclInputPSSgv, OpDclInputPSSiv, OpDclOutputSgv, OpDclOutputSiv:
		dst, err := readDst(r)
		if err != nil {
			return err
		}
		sysval, err := r.word()
		if err != nil {
			return err
		}
		if ins.Opcode == OpDclInputPSSiv || ins.Opcode == OpDclInputPSSgv {
			ins.Flags = (token >> 11) & 0xf
		}
		ins.Dst = []DstParam{*dst}
		ins.Dcl = &Declaration{SysVal: SysVal(sysval)}
		return nil
	}

	// Conditional test bit: 0 tests for zero, 1 for non-zero.
	saturate := false
	switch ins.Opcode {
	case OpIf, OpBreakC, OpContinueC, OpRetC, OpDiscard:
		if token&(1<<18) != 0 {
			ins.Flags = TestNonZero
		} else {
			ins.Flags = TestZero
		}
	default:
		saturate = token&(1<<13) != 0
	}

	dstCount, srcCount, ok := operandCounts(ins.Opcode)
	if !ok {
		// Unknown opcodes are tolerated here; the backend decides whether
		// they are critical. Skip to the declared end.
		log.Debugf("skipping operands of unrecognized opcode %d", ins.Opcode)
		r.pos = end
		return nil
	}
	for i := 0; i < dstCount; i++ {
		dst, err := readDst(r)
		if err != nil {
			return err
		}
		ins.Dst = append(ins.Dst, *dst)
	}
	for i := 0; i < srcCount; i++ {
		src, err := readSrc(r)
		if err != nil {
			return err
		}
		ins.Src = append(ins.Src, *src)
	}
	if saturate && len(ins.Dst) > 0 {
		ins.Dst[0].Modifier |= DstModifierSaturate
	}
	return nil
}

// operandCounts returns the destination and source operand counts for a
// body opcode.
func operandCounts(op Opcode) (dst, src int, ok bool) {
	switch op {
	case OpBreak, OpElse, OpEndIf, OpEndLoop, OpLoop, OpRet, OpNop, OpSync,
		OpContinue:
		return 0, 0, true
	case OpBreakC, OpContinueC, OpRetC, OpDiscard, OpIf:
		return 0, 1, true
	case OpMov, OpNot, OpINeg, OpIToF, OpUToF, OpFToI, OpFToU, OpFrc,
		OpExp, OpLog, OpRsq, OpSqrt, OpRoundNE, OpRoundNI, OpRoundPI,
		OpRoundZ, OpRcp, OpBfRev, OpCountBits, OpFirstBitHi, OpFirstBitLo,
		OpFirstBitSHi, OpF16ToF32, OpF32ToF16:
		return 1, 1, true
	case OpAdd, OpAnd, OpDiv, OpDp2, OpDp3, OpDp4, OpEq, OpGe, OpIAdd,
		OpIEq, OpIGe, OpILt, OpIMax, OpIMin, OpINe, OpIShl, OpIShr, OpLt,
		OpMax, OpMin, OpMul, OpNe, OpOr, OpUGe, OpULt, OpUMax, OpUMin,
		OpUShr, OpXor:
		return 1, 2, true
	case OpMad, OpIMad, OpUMad, OpMovC:
		return 1, 3, true
	case OpBfi:
		return 1, 4, true
	case OpIBfe, OpUBfe:
		return 1, 3, true
	case OpIMul, OpUMul, OpUDiv:
		return 2, 2, true
	case OpSwapC:
		return 2, 3, true
	case OpSample:
		return 1, 3, true
	case OpLd, OpLdMS:
		return 1, 2, true
	case OpStoreUAVTyped:
		return 1, 2, true
	case OpImmAtomicAlloc, OpImmAtomicConsume:
		return 2, 0, true
	}
	return 0, 0, false
}

func resourceKindFromToken(dim uint32) ResourceKind {
	switch dim {
	case 1:
		return ResourceBuffer
	case 2:
		return ResourceTexture1D
	case 3:
		return ResourceTexture2D
	case 4:
		return ResourceTexture2DMS
	case 5:
		return ResourceTexture3D
	case 6:
		return ResourceTextureCube
	case 7:
		return ResourceTexture1DArray
	case 8:
		return ResourceTexture2DArray
	case 9:
		return ResourceTexture2DMSArray
	case 10:
		return ResourceTextureCubeArray
	default:
		return ResourceUnknown
	}
}

func resourceDataType(ret uint32) DataType {
	switch ret {
	case 3:
		return TypeInt
	case 4:
		return TypeUint
	default:
		// unorm, snorm and float all sample as float.
		return TypeFloat
	}
}

func readDst(r *tokenReader) (*DstParam, error) {
	reg, _, mask, _, err := readOperand(r)
	if err != nil {
		return nil, err
	}
	return &DstParam{Reg: reg, Mask: mask}, nil
}

func readSrc(r *tokenReader) (*SrcParam, error) {
	reg, mod, _, swizzle, err := readOperand(r)
	if err != nil {
		return nil, err
	}
	return &SrcParam{Reg: reg, Swizzle: swizzle, Modifier: mod}, nil
}

func readOperand(r *tokenReader) (Register, SrcModifier, WriteMask, Swizzle, error) {
	var reg Register
	var mod SrcModifier

	token, err := r.word()
	if err != nil {
		return reg, mod, 0, 0, err
	}
	mask := WriteMaskAll
	swizzle := NoSwizzle

	numComponents := token & 0x3
	switch numComponents {
	case 0:
		mask = 0
	case 1:
		mask = WriteMaskX
		swizzle = ScalarSwizzle(0)
	case 2:
		switch (token >> operandSelectionShift) & operandSelectionMask {
		case selectionMask:
			mask = WriteMask(token>>4) & WriteMaskAll
			swizzle = swizzleFromMask(mask)
		case selectionSwizzle:
			swizzle = Swizzle(token>>4) & 0xff
			mask = WriteMaskAll
		case selectionSelect1:
			c := int(token>>4) & 0x3
			swizzle = ScalarSwizzle(c)
			mask = WriteMask(1 << c)
		default:
			return reg, mod, 0, 0, NewError(ErrMalformedBytecode, "bad operand selection mode")
		}
	default:
		return reg, mod, 0, 0, NewError(ErrUnsupported, "n-component operands not supported")
	}

	kind, ok := registerKindFromToken((token >> operandTypeShift) & operandTypeMask)
	if !ok {
		return reg, mod, 0, 0, NewError(ErrUnsupported, "operand type %#x", (token>>operandTypeShift)&operandTypeMask)
	}
	reg.Kind = kind

	// Extended operand token: source modifiers.
	if token&operandExtendedBit != 0 {
		extToken, err := r.word()
		if err != nil {
			return reg, mod, 0, 0, err
		}
		if extToken&0x3f == 1 {
			switch (extToken >> 6) & 0xff {
			case 1:
				mod = SrcModifierNeg
			case 2:
				mod = SrcModifierAbs
			case 3:
				mod = SrcModifierAbsNeg
			}
		}
	}

	if kind == RegisterImmediate {
		// Immediates carry no meaningful selection bits.
		if numComponents == 1 {
			reg.ImmKind = ImmediateScalar
			mask = WriteMaskX
			swizzle = ScalarSwizzle(0)
			w, err := r.word()
			if err != nil {
				return reg, mod, 0, 0, err
			}
			reg.Immediate[0] = w
		} else {
			reg.ImmKind = ImmediateVec4
			mask = WriteMaskAll
			swizzle = NoSwizzle
			for i := 0; i < 4; i++ {
				w, err := r.word()
				if err != nil {
					return reg, mod, 0, 0, err
				}
				reg.Immediate[i] = w
			}
		}
		return reg, mod, mask, swizzle, nil
	}

	dims := int(token>>operandIndexDimShift) & operandIndexDimMask
	if dims > 2 {
		return reg, mod, 0, 0, NewError(ErrUnsupported, "3-dimensional register index")
	}
	for d := 0; d < dims; d++ {
		rep := (token >> (22 + 3*uint(d))) & 0x7
		switch rep {
		case indexRepImm32:
			w, err := r.word()
			if err != nil {
				return reg, mod, 0, 0, err
			}
			reg.Index[d].Offset = w
		case indexRepRelative, indexRepImm32Relative:
			if rep == indexRepImm32Relative {
				w, err := r.word()
				if err != nil {
					return reg, mod, 0, 0, err
				}
				reg.Index[d].Offset = w
			}
			rel, err := readSrc(r)
			if err != nil {
				return reg, mod, 0, 0, err
			}
			reg.Index[d].Rel = rel
		case indexRepImm64:
			return reg, mod, 0, 0, NewError(ErrUnsupported, "64-bit register index")
		default:
			return reg, mod, 0, 0, NewError(ErrMalformedBytecode, "bad index representation %d", rep)
		}
	}

	return reg, mod, mask, swizzle, nil
}

func swizzleFromMask(mask WriteMask) Swizzle {
	sel := [4]int{}
	n := 0
	for i := 0; i < 4; i++ {
		if mask&(1<<uint(i)) != 0 {
			sel[n] = i
			n++
		}
	}
	// Replicate the last selected component into the unused lanes.
	for i := n; i < 4; i++ {
		if n > 0 {
			sel[i] = sel[n-1]
		}
	}
	return MakeSwizzle(sel[0], sel[1], sel[2], sel[3])
}

func registerKindFromToken(t uint32) (RegisterKind, bool) {
	switch t {
	case 0:
		return RegisterTemp, true
	case 1:
		return RegisterInput, true
	case 2:
		return RegisterOutput, true
	case 4:
		return RegisterImmediate, true
	case 6:
		return RegisterSampler, true
	case 7:
		return RegisterResource, true
	case 8:
		return RegisterConstantBuffer, true
	case 9:
		return RegisterImmediateConstantBuffer, true
	case 13:
		return RegisterNull, true
	case 30:
		return RegisterUAV, true
	case 32:
		return RegisterThreadID, true
	case 33:
		return RegisterThreadGroupID, true
	case 34:
		return RegisterLocalThreadID, true
	case 36:
		return RegisterLocalThreadIndex, true
	}
	return 0, false
}

// applyDataTypes assigns the per-operand data types the emitters dispatch
// on. The bytecode does not encode them; they follow from the opcode.
func applyDataTypes(ins *Instruction) {
	dstType := TypeFloat
	srcTypes := []DataType{TypeFloat}

	switch ins.Opcode {
	case OpIAdd, OpIMad, OpIMax, OpIMin, OpIMul, OpINeg, OpIShl, OpIShr, OpIBfe:
		dstType, srcTypes = TypeInt, []DataType{TypeInt}
	case OpAnd, OpOr, OpXor, OpNot, OpUDiv, OpUMax, OpUMin, OpUMul, OpUMad,
		OpUShr, OpCountBits, OpFirstBitHi, OpFirstBitLo, OpFirstBitSHi,
		OpUBfe, OpBfi, OpBfRev, OpImmAtomicAlloc, OpImmAtomicConsume:
		dstType, srcTypes = TypeUint, []DataType{TypeUint}
	case OpFToI:
		dstType, srcTypes = TypeInt, []DataType{TypeFloat}
	case OpFToU:
		dstType, srcTypes = TypeUint, []DataType{TypeFloat}
	case OpIToF:
		dstType, srcTypes = TypeFloat, []DataType{TypeInt}
	case OpUToF:
		dstType, srcTypes = TypeFloat, []DataType{TypeUint}
	case OpEq, OpGe, OpLt, OpNe:
		dstType, srcTypes = TypeUint, []DataType{TypeFloat}
	case OpIEq, OpIGe, OpILt, OpINe:
		dstType, srcTypes = TypeUint, []DataType{TypeInt}
	case OpUGe, OpULt:
		dstType, srcTypes = TypeUint, []DataType{TypeUint}
	case OpMovC, OpSwapC:
		dstType, srcTypes = TypeFloat, []DataType{TypeUint, TypeFloat, TypeFloat}
	case OpIf, OpBreakC, OpContinueC, OpRetC, OpDiscard:
		srcTypes = []DataType{TypeUint}
	case OpF16ToF32:
		dstType, srcTypes = TypeFloat, []DataType{TypeUint}
	case OpF32ToF16:
		dstType, srcTypes = TypeUint, []DataType{TypeFloat}
	case OpLd, OpLdMS:
		dstType, srcTypes = TypeFloat, []DataType{TypeInt}
	case OpStoreUAVTyped:
		srcTypes = []DataType{TypeUint, TypeFloat}
	}

	for i := range ins.Dst {
		ins.Dst[i].Reg.DataType = dstType
	}
	for i := range ins.Src {
		t := srcTypes[len(srcTypes)-1]
		if i < len(srcTypes) {
			t = srcTypes[i]
		}
		ins.Src[i].Reg.DataType = t
	}

	// Thread-id inputs are always unsigned regardless of the consuming
	// instruction.
	for i := range ins.Src {
		switch ins.Src[i].Reg.Kind {
		case RegisterThreadID, RegisterLocalThreadID, RegisterLocalThreadIndex, RegisterThreadGroupID:
			ins.Src[i].Reg.DataType = TypeUint
		}
	}
}
