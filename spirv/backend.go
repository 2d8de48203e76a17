package spirv

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/gogpu/vkd3d/dxbc"
	"github.com/gogpu/vkd3d/rootsig"
)

// Options configures recompilation.
type Options struct {
	// StripDebug drops OpName/OpMemberName debug information from the
	// produced module.
	StripDebug bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{}
}

// Result is the output of one recompilation.
type Result struct {
	// Code is the assembled SPIR-V module.
	Code []byte

	// UAVCounters lists the (register, set, binding) of every UAV
	// counter the shader uses, for descriptor-set updates.
	UAVCounters []rootsig.CounterBinding
}

// maxOutputRegisters bounds the output register file.
const maxOutputRegisters = 32

// regKey addresses the symbol table. Register and resource symbols use
// disjoint key spaces (maps).
type regKey struct {
	kind  dxbc.RegisterKind
	index uint32
}

// regInfo is the emitter state behind a register symbol.
type regInfo struct {
	id    uint32
	class StorageClass
	// member is the struct member index for constant-buffer registers.
	member uint32
}

// resourceInfo is the emitter state behind a resource or UAV symbol.
type resourceInfo struct {
	id          uint32
	typeID      uint32
	kind        dxbc.ResourceKind
	sampledType ComponentType
	coordMask   dxbc.WriteMask
	isUAV       bool
	// counterID is the counter variable id, or 0 when the UAV has no
	// counter use.
	counterID uint32
}

// pushCB tracks a constant-buffer register backed by push constants.
type pushCB struct {
	rc       rootsig.RootConstant
	register uint32
	size     uint32
	declared bool
}

type outputInfo struct {
	id            uint32
	componentType ComponentType
}

// deferredInput is a non-canonical input whose copy into private
// staging is emitted by the main prolog.
type deferredInput struct {
	reg            dxbc.Register
	writeMask      dxbc.WriteMask
	inputID        uint32
	componentType  ComponentType
	inputCount     int
	componentCount int
}

// Compiler holds the state of one recompilation. It is single use: all
// ids it allocates are valid only within the module it produces.
type Compiler struct {
	opts   Options
	b      *Builder
	layout *rootsig.BindingLayout
	scan   *dxbc.ScanReport
	shader *dxbc.Shader
	stage  dxbc.Stage

	symbols   map[regKey]regInfo
	resources map[regKey]resourceInfo

	tempID    uint32
	tempCount uint32

	cf       []cfFrame
	branchID uint32
	loopID   uint32

	pushCBs           []pushCB
	afterDeclarations bool
	mainTerminated    bool

	stridedArrays  map[uint32]bool
	blockStructs   map[uint32]bool
	deferredInputs []deferredInput

	outputInfo    []outputInfo
	privateOutput [maxOutputRegisters]uint32
	outputSetupID uint32

	uavCounters []rootsig.CounterBinding

	mainID uint32
}

// Compile recompiles one shader against a binding layout. The layout may
// be nil, in which case registers map directly onto set 0. The scan
// report may be nil; the pre-pass then runs internally.
func Compile(shader *dxbc.Shader, layout *rootsig.BindingLayout, scan *dxbc.ScanReport, opts Options) (*Result, error) {
	if shader == nil {
		return nil, NewError(ErrInvalidArgument, "nil shader")
	}
	if len(shader.Instructions) == 0 {
		return nil, NewError(ErrInvalidArgument, "empty instruction stream")
	}
	if scan == nil {
		var err error
		scan, err = dxbc.Scan(shader.Instructions)
		if err != nil {
			return nil, NewError(ErrMalformedBytecode, "%v", err)
		}
	}

	c := &Compiler{
		opts:      opts,
		b:         NewBuilder(),
		layout:    layout,
		scan:      scan,
		shader:    shader,
		stage:     shader.Version.Stage,
		symbols:   make(map[regKey]regInfo),
		resources: make(map[regKey]resourceInfo),
	}

	model, err := executionModel(c.stage)
	if err != nil {
		return nil, err
	}
	c.b.SetExecutionModel(model)
	c.outputInfo = make([]outputInfo, len(shader.OutputSignature.Elements))

	if layout != nil {
		for _, rc := range layout.RootConstants() {
			c.pushCBs = append(c.pushCBs, pushCB{rc: rc, register: rc.Register})
		}
	}

	c.beginMainFunction()

	for i := range shader.Instructions {
		ins := &shader.Instructions[i]
		if !ins.Opcode.IsDeclaration() && !c.afterDeclarations {
			c.afterDeclarations = true
			if err := c.emitMainProlog(); err != nil {
				return nil, err
			}
		}
		if err := c.emitInstruction(ins); err != nil {
			return nil, err
		}
	}

	if len(c.cf) != 0 {
		return nil, NewError(ErrMalformedBytecode, "unterminated control flow construct")
	}
	if !c.mainTerminated {
		c.emitReturn()
	}
	c.b.EndFunction()

	if c.outputSetupID != 0 {
		c.emitOutputSetupFunction()
	}

	if opts.StripDebug {
		c.b.StripDebug()
	}

	return &Result{
		Code:        c.b.Assemble(Version1_0, "main", c.mainID),
		UAVCounters: c.uavCounters,
	}, nil
}

func executionModel(stage dxbc.Stage) (ExecutionModel, error) {
	switch stage {
	case dxbc.StageVertex:
		return ExecutionModelVertex, nil
	case dxbc.StageHull:
		return ExecutionModelTessellationControl, nil
	case dxbc.StageDomain:
		return ExecutionModelTessellationEvaluation, nil
	case dxbc.StageGeometry:
		return ExecutionModelGeometry, nil
	case dxbc.StagePixel:
		return ExecutionModelFragment, nil
	case dxbc.StageCompute:
		return ExecutionModelGLCompute, nil
	default:
		return 0, NewError(ErrInvalidArgument, "unknown shader stage %d", stage)
	}
}

func (c *Compiler) beginMainFunction() {
	void := c.b.TypeVoid()
	fnType := c.b.TypeFunction(void)
	c.mainID = c.b.BeginFunction(void, fnType)
	c.b.Name(c.mainID, "main")
	c.b.Label()
}

// emitMainProlog runs once, after the last declaration and before the
// first body instruction.
func (c *Compiler) emitMainProlog() error {
	if err := c.emitPushConstantBuffers(); err != nil {
		return err
	}
	return c.emitInputSetup()
}

// emitInstruction dispatches one instruction to its handler.
func (c *Compiler) emitInstruction(ins *dxbc.Instruction) error {
	switch ins.Opcode {
	case dxbc.OpDclGlobalFlags:
		c.emitDclGlobalFlags(ins)
		return nil
	case dxbc.OpDclTemps:
		return c.emitDclTemps(ins)
	case dxbc.OpDclConstantBuffer:
		return c.emitDclConstantBuffer(ins)
	case dxbc.OpCustomData:
		return c.emitDclImmediateConstantBuffer(ins)
	case dxbc.OpDclSampler:
		return c.emitDclSampler(ins)
	case dxbc.OpDclResource, dxbc.OpDclUAVTyped:
		return c.emitDclResource(ins)
	case dxbc.OpDclInput, dxbc.OpDclInputSgv, dxbc.OpDclInputSiv,
		dxbc.OpDclInputPS, dxbc.OpDclInputPSSgv, dxbc.OpDclInputPSSiv:
		return c.emitDclInputAny(ins)
	case dxbc.OpDclOutput, dxbc.OpDclOutputSgv, dxbc.OpDclOutputSiv:
		return c.emitDclOutputAny(ins)
	case dxbc.OpDclThreadGroup:
		c.b.SetLocalSize(ins.Dcl.ThreadGroup[0], ins.Dcl.ThreadGroup[1], ins.Dcl.ThreadGroup[2])
		return nil
	case dxbc.OpDclIndexableTemp:
		return NewError(ErrUnsupported, "indexable temporary arrays")

	case dxbc.OpMov:
		return c.emitMov(ins)
	case dxbc.OpMovC:
		return c.emitMovC(ins)
	case dxbc.OpSwapC:
		return c.emitSwapC(ins)

	case dxbc.OpAdd, dxbc.OpAnd, dxbc.OpBfRev, dxbc.OpCountBits, dxbc.OpDiv,
		dxbc.OpFToI, dxbc.OpFToU, dxbc.OpIAdd, dxbc.OpINeg, dxbc.OpIShl,
		dxbc.OpIShr, dxbc.OpIToF, dxbc.OpMul, dxbc.OpNot, dxbc.OpOr,
		dxbc.OpUShr, dxbc.OpUToF, dxbc.OpXor:
		return c.emitALU(ins)

	case dxbc.OpExp, dxbc.OpFirstBitHi, dxbc.OpFirstBitLo, dxbc.OpFirstBitSHi,
		dxbc.OpFrc, dxbc.OpIMax, dxbc.OpIMin, dxbc.OpLog, dxbc.OpMad,
		dxbc.OpMax, dxbc.OpMin, dxbc.OpRoundNE, dxbc.OpRoundNI,
		dxbc.OpRoundPI, dxbc.OpRoundZ, dxbc.OpRsq, dxbc.OpSqrt,
		dxbc.OpUMax, dxbc.OpUMin:
		return c.emitExtGLSL(ins)

	case dxbc.OpDp2, dxbc.OpDp3, dxbc.OpDp4:
		return c.emitDot(ins)
	case dxbc.OpRcp:
		return c.emitRcp(ins)
	case dxbc.OpIMul:
		return c.emitIMul(ins)
	case dxbc.OpIMad:
		return c.emitIMad(ins)
	case dxbc.OpUDiv:
		return c.emitUDiv(ins)

	case dxbc.OpEq, dxbc.OpGe, dxbc.OpIEq, dxbc.OpIGe, dxbc.OpILt,
		dxbc.OpINe, dxbc.OpLt, dxbc.OpNe, dxbc.OpUGe, dxbc.OpULt:
		return c.emitComparison(ins)

	case dxbc.OpBfi, dxbc.OpIBfe, dxbc.OpUBfe:
		return c.emitBitfield(ins)
	case dxbc.OpF16ToF32:
		return c.emitF16ToF32(ins)
	case dxbc.OpF32ToF16:
		return c.emitF32ToF16(ins)

	case dxbc.OpBreak, dxbc.OpBreakC, dxbc.OpElse, dxbc.OpEndIf,
		dxbc.OpEndLoop, dxbc.OpIf, dxbc.OpLoop, dxbc.OpRet:
		return c.emitControlFlow(ins)

	case dxbc.OpSample:
		return c.emitSample(ins)
	case dxbc.OpLd:
		return c.emitLd(ins)
	case dxbc.OpStoreUAVTyped:
		return c.emitStoreUAVTyped(ins)
	case dxbc.OpImmAtomicAlloc, dxbc.OpImmAtomicConsume:
		return c.emitUAVCounterOp(ins)

	default:
		return NewError(ErrUnsupported, "instruction %d has no SPIR-V mapping", ins.Opcode)
	}
}

func (c *Compiler) emitDclGlobalFlags(ins *dxbc.Instruction) {
	known := dxbc.GlobalFlagRefactoringAllowed | dxbc.GlobalFlagRawAndStructuredBuffers
	if ins.Flags&^known != 0 {
		log.Warnf("unrecognized global flags %#x", ins.Flags)
	}
}

// componentType maps a register data type to the SPIR-V component type.
func componentType(dt dxbc.DataType) ComponentType {
	switch dt {
	case dxbc.TypeInt:
		return ComponentInt
	case dxbc.TypeUint:
		return ComponentUint
	default:
		return ComponentFloat
	}
}

// descriptorBinding resolves the (set, binding) for a shader register.
// Without a layout, registers map directly onto set 0 so standalone
// shaders stay compilable.
func (c *Compiler) descriptorBinding(kind rootsig.DescriptorKind, register uint32, wantBuffer bool) (uint32, uint32, error) {
	if c.layout == nil || len(c.layout.Entries()) == 0 {
		return 0, register, nil
	}
	e, ok := c.layout.Binding(kind, register, wantBuffer)
	if !ok {
		return 0, 0, NewError(ErrLayoutMismatch, "no binding for %v register %d", kind, register)
	}
	return e.Set, e.Binding, nil
}

// decorateDescriptor attaches DescriptorSet/Binding decorations for a
// register.
func (c *Compiler) decorateDescriptor(varID uint32, kind rootsig.DescriptorKind, register uint32, wantBuffer bool) error {
	set, binding, err := c.descriptorBinding(kind, register, wantBuffer)
	if err != nil {
		return err
	}
	c.b.Decorate(varID, DecorationDescriptorSet, set)
	c.b.Decorate(varID, DecorationBinding, binding)
	return nil
}

func (c *Compiler) putSymbol(kind dxbc.RegisterKind, index uint32, info regInfo) {
	c.symbols[regKey{kind: kind, index: index}] = info
}

func (c *Compiler) symbol(kind dxbc.RegisterKind, index uint32) (regInfo, bool) {
	info, ok := c.symbols[regKey{kind: kind, index: index}]
	return info, ok
}

func (c *Compiler) putResource(reg *dxbc.Register, info resourceInfo) {
	c.resources[regKey{kind: reg.Kind, index: reg.Index[0].Offset}] = info
}

func (c *Compiler) resource(reg *dxbc.Register) (resourceInfo, error) {
	info, ok := c.resources[regKey{kind: reg.Kind, index: reg.Index[0].Offset}]
	if !ok {
		return resourceInfo{}, NewError(ErrMalformedBytecode, "use of undeclared %v%d", reg.Kind, reg.Index[0].Offset)
	}
	return info, nil
}

// registerName formats the debug name of a register.
func registerName(reg *dxbc.Register) string {
	switch reg.Kind {
	case dxbc.RegisterThreadID, dxbc.RegisterLocalThreadID,
		dxbc.RegisterLocalThreadIndex, dxbc.RegisterThreadGroupID:
		return reg.Kind.String()
	case dxbc.RegisterImmediateConstantBuffer:
		return "icb"
	default:
		return fmt.Sprintf("%s%d", reg.Kind, reg.Index[0].Offset)
	}
}
