package dxbc

import "github.com/bits-and-blooms/bitset"

// MaxRegisterSpace is the number of shader register slots tracked per
// register file by the scanner.
const MaxRegisterSpace = 64

// ScanReport is the result of the pre-emission pass over an instruction
// stream. It collects the facts the SPIR-V backend must know before the
// corresponding declarations are processed.
type ScanReport struct {
	// UAVCounterMask has a bit set for every UAV register whose
	// append/consume counter is used anywhere in the body.
	UAVCounterMask *bitset.BitSet

	// UAVReadMask has a bit set for every UAV register that is read.
	UAVReadMask *bitset.BitSet

	// ResourceKinds has a bit set for every ResourceKind declared by the
	// shader.
	ResourceKinds *bitset.BitSet

	// UsesImageFetch reports whether the body contains an ld-family
	// instruction.
	UsesImageFetch bool
}

// UsesUAVCounter reports whether the UAV at the given register has a
// counter use.
func (r *ScanReport) UsesUAVCounter(register uint32) bool {
	return r.UAVCounterMask.Test(uint(register))
}

// Scan walks the instruction stream once without emitting anything.
// It fails only on streams a decoder should never have produced.
func Scan(instructions []Instruction) (*ScanReport, error) {
	report := &ScanReport{
		UAVCounterMask: bitset.New(MaxRegisterSpace),
		UAVReadMask:    bitset.New(MaxRegisterSpace),
		ResourceKinds:  bitset.New(uint(ResourceTextureCubeArray) + 1),
	}

	for i := range instructions {
		ins := &instructions[i]
		switch ins.Opcode {
		case OpDclResource, OpDclUAVTyped:
			if ins.Dcl == nil || len(ins.Dst) == 0 {
				return nil, NewError(ErrMalformedBytecode, "truncated resource declaration")
			}
			report.ResourceKinds.Set(uint(ins.Dcl.ResourceKind))

		case OpImmAtomicAlloc, OpImmAtomicConsume:
			if len(ins.Dst) < 2 {
				return nil, NewError(ErrMalformedBytecode, "truncated atomic counter instruction")
			}
			uav := &ins.Dst[1].Reg
			if uav.Kind != RegisterUAV {
				return nil, NewError(ErrMalformedBytecode, "atomic counter on non-UAV register %v", uav.Kind)
			}
			report.UAVCounterMask.Set(uint(uav.Index[0].Offset))

		case OpLd, OpLdMS:
			report.UsesImageFetch = true
			if len(ins.Src) >= 2 && ins.Src[1].Reg.Kind == RegisterUAV {
				report.UAVReadMask.Set(uint(ins.Src[1].Reg.Index[0].Offset))
			}
		}
	}
	return report, nil
}
