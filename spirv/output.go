package spirv

import "github.com/gogpu/vkd3d/dxbc"

// emitReturn calls the output-packing function, when one exists, and
// returns from main.
func (c *Compiler) emitReturn() {
	if c.outputSetupID != 0 {
		void := c.b.TypeVoid()
		var arguments []uint32
		for _, varID := range c.privateOutput {
			if varID != 0 {
				arguments = append(arguments, varID)
			}
		}
		c.b.FunctionCall(void, c.outputSetupID, arguments...)
	}
	c.b.Return()
}

// emitOutputSetupFunction synthesizes the function every return calls:
// it loads each staged private output, narrows it to the signature
// element's mask, bit-casts non-float elements and stores into the real
// Output variables.
func (c *Compiler) emitOutputSetupFunction() {
	void := c.b.TypeVoid()
	vec4 := c.b.TypeID(ComponentFloat, VectorSize)
	ptrID := c.b.TypePointer(StorageClassPrivate, vec4)

	var paramTypes []uint32
	for _, varID := range c.privateOutput {
		if varID != 0 {
			paramTypes = append(paramTypes, ptrID)
		}
	}
	fnType := c.b.TypeFunction(void, paramTypes...)

	c.b.BeginFunctionWithID(void, c.outputSetupID, fnType)
	c.b.Name(c.outputSetupID, "setup_output")

	var paramID [maxOutputRegisters]uint32
	for i, varID := range c.privateOutput {
		if varID != 0 {
			paramID[i] = c.b.FunctionParameter(ptrID)
		}
	}

	c.b.Label()

	for i := range paramID {
		if paramID[i] != 0 {
			paramID[i] = c.b.Load(vec4, paramID[i])
		}
	}

	signature := &c.shader.OutputSignature
	for i := range signature.Elements {
		element := &signature.Elements[i]
		register := element.Register
		mask := element.Mask

		if register >= maxOutputRegisters || paramID[register] == 0 {
			continue
		}
		info := c.outputInfo[i]
		if info.id == 0 {
			continue
		}

		valID := c.swizzleValue(paramID[register], dxbc.NoSwizzle, mask, ComponentFloat)
		if info.componentType != ComponentFloat {
			typeID := c.b.TypeID(info.componentType, mask.ComponentCount())
			valID = c.b.Bitcast(typeID, valID)
		}
		c.b.Store(info.id, valID)
	}

	c.b.Return()
	c.b.EndFunction()
}
