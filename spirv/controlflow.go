package spirv

import (
	"fmt"

	"github.com/gogpu/vkd3d/dxbc"
)

// cfBlock tracks which block of a construct is currently open. blockNone
// marks the unreachable state after a terminator; the next structural
// instruction must open a fresh block.
type cfBlock uint8

const (
	blockIf cfBlock = iota
	blockElse
	blockLoop
	blockNone
)

// cfFrame is one level of the control-flow stack: a branch frame with a
// merge and else target, or a loop frame with header, continue and merge
// targets.
type cfFrame struct {
	block cfBlock

	mergeID    uint32
	elseID     uint32
	headerID   uint32
	continueID uint32
}

func (c *Compiler) topFrame() *cfFrame {
	if len(c.cf) == 0 {
		return nil
	}
	return &c.cf[len(c.cf)-1]
}

func (c *Compiler) pushFrame() *cfFrame {
	c.cf = append(c.cf, cfFrame{})
	return &c.cf[len(c.cf)-1]
}

func (c *Compiler) popFrame() {
	c.cf = c.cf[:len(c.cf)-1]
}

// innermostLoop returns the closest enclosing loop frame.
func (c *Compiler) innermostLoop() *cfFrame {
	for i := len(c.cf) - 1; i >= 0; i-- {
		if c.cf[i].block == blockLoop {
			return &c.cf[i]
		}
	}
	return nil
}

func (c *Compiler) emitControlFlow(ins *dxbc.Instruction) error {
	frame := c.topFrame()

	switch ins.Opcode {
	case dxbc.OpIf:
		src := &ins.Src[0]
		valID, err := c.loadRegister(&src.Reg, src.Swizzle, dxbc.WriteMaskX)
		if err != nil {
			return err
		}
		conditionID := c.intToBool(ins.Flags, 1, valID)

		trueLabel := c.b.AllocID()
		falseLabel := c.b.AllocID()
		mergeLabel := c.b.AllocID()
		c.b.SelectionMergeOp(mergeLabel)
		c.b.BranchConditional(conditionID, trueLabel, falseLabel)
		c.b.LabelID(trueLabel)

		frame = c.pushFrame()
		frame.block = blockIf
		frame.mergeID = mergeLabel
		frame.elseID = falseLabel

		c.b.Name(mergeLabel, fmt.Sprintf("branch%d_merge", c.branchID))
		c.b.Name(trueLabel, fmt.Sprintf("branch%d_true", c.branchID))
		c.b.Name(falseLabel, fmt.Sprintf("branch%d_false", c.branchID))
		c.branchID++

	case dxbc.OpElse:
		if frame == nil || frame.headerID != 0 || frame.block == blockLoop {
			return NewError(ErrMalformedBytecode, "else outside an if construct")
		}
		if frame.block == blockIf {
			c.b.Branch(frame.mergeID)
		}
		if frame.block != blockElse {
			c.b.LabelID(frame.elseID)
		}
		frame.block = blockElse

	case dxbc.OpEndIf:
		if frame == nil || frame.headerID != 0 || frame.block == blockLoop {
			return NewError(ErrMalformedBytecode, "endif outside an if construct")
		}
		switch frame.block {
		case blockIf:
			// No else was seen; the false side still needs an empty
			// block branching to the merge target.
			c.b.Branch(frame.mergeID)
			c.b.LabelID(frame.elseID)
			c.b.Branch(frame.mergeID)
		case blockElse:
			c.b.Branch(frame.mergeID)
		}
		c.b.LabelID(frame.mergeID)
		c.popFrame()

	case dxbc.OpLoop:
		headerLabel := c.b.AllocID()
		bodyLabel := c.b.AllocID()
		continueLabel := c.b.AllocID()
		mergeLabel := c.b.AllocID()

		c.b.Branch(headerLabel)
		c.b.LabelID(headerLabel)
		c.b.LoopMergeOp(mergeLabel, continueLabel)
		c.b.Branch(bodyLabel)
		c.b.LabelID(bodyLabel)

		frame = c.pushFrame()
		frame.block = blockLoop
		frame.mergeID = mergeLabel
		frame.headerID = headerLabel
		frame.continueID = continueLabel

		c.b.Name(headerLabel, fmt.Sprintf("loop%d_header", c.loopID))
		c.b.Name(bodyLabel, fmt.Sprintf("loop%d_body", c.loopID))
		c.b.Name(continueLabel, fmt.Sprintf("loop%d_continue", c.loopID))
		c.b.Name(mergeLabel, fmt.Sprintf("loop%d_merge", c.loopID))
		c.loopID++

	case dxbc.OpEndLoop:
		if frame == nil || frame.headerID == 0 ||
			(frame.block != blockLoop && frame.block != blockNone) {
			return NewError(ErrMalformedBytecode, "endloop outside a loop construct")
		}
		if frame.block == blockLoop {
			c.b.Branch(frame.continueID)
		}
		c.b.LabelID(frame.continueID)
		c.b.Branch(frame.headerID)
		c.b.LabelID(frame.mergeID)
		c.popFrame()

	case dxbc.OpBreak:
		loop := c.innermostLoop()
		if loop == nil {
			return NewError(ErrUnsupported, "break outside a loop construct")
		}
		c.b.Branch(loop.mergeID)

		if frame.block == blockIf {
			c.b.LabelID(frame.elseID)
			frame.block = blockElse
		} else {
			frame.block = blockNone
		}

	case dxbc.OpBreakC:
		if frame == nil || frame.block != blockLoop {
			return NewError(ErrMalformedBytecode, "conditional break outside a loop body")
		}
		src := &ins.Src[0]
		valID, err := c.loadSrc(src, dxbc.WriteMaskX)
		if err != nil {
			return err
		}
		conditionID := c.intToBool(ins.Flags, 1, valID)

		mergeLabel := c.b.AllocID()
		c.b.SelectionMergeOp(mergeLabel)
		c.b.BranchConditional(conditionID, frame.mergeID, mergeLabel)
		c.b.LabelID(mergeLabel)

	case dxbc.OpRet:
		c.emitReturn()
		switch {
		case frame != nil && frame.block == blockIf:
			// Keep a live block open so the structural endif still has
			// something to terminate.
			c.b.LabelID(frame.elseID)
			frame.block = blockElse
		case frame != nil:
			frame.block = blockNone
		default:
			c.mainTerminated = true
		}

	default:
		return NewError(ErrInternal, "instruction %d is not a control flow construct", ins.Opcode)
	}
	return nil
}
