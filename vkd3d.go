// Package vkd3d recompiles Direct3D 12 shaders for Vulkan.
//
// The core of the package is a DXBC → SPIR-V shader recompiler: it
// consumes a compiled shader blob together with the binding layout
// derived from a root signature and produces a SPIR-V 1.0 module whose
// descriptor decorations match that layout.
//
// The package provides a one-call surface as well as lower-level access
// to the individual stages:
//
//	layout, err := rootsig.New(&desc, rootsig.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := vkd3d.CompileShader(blob, vkd3d.CompileOptions{Layout: layout})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// result.Code is the SPIR-V module; result.UAVCounters feeds
//	// descriptor-set updates.
//
// For finer control, parse and scan separately:
//
//	shader, _ := dxbc.Parse(blob)
//	scan, _ := dxbc.Scan(shader.Instructions)
//	result, err := spirv.Compile(shader, layout, scan, spirv.DefaultOptions())
package vkd3d

import (
	"github.com/gogpu/vkd3d/dxbc"
	"github.com/gogpu/vkd3d/rootsig"
	"github.com/gogpu/vkd3d/spirv"
)

// CompileOptions configures shader recompilation.
type CompileOptions struct {
	// Layout supplies the descriptor bindings. A nil layout maps
	// registers directly onto descriptor set 0.
	Layout *rootsig.BindingLayout

	// StripDebug drops debug names from the produced module.
	StripDebug bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() CompileOptions {
	return CompileOptions{}
}

// CompileShader parses a DXBC blob, runs the pre-emission scan, and
// recompiles the shader into a SPIR-V module.
func CompileShader(blob []byte, options CompileOptions) (*spirv.Result, error) {
	shader, err := dxbc.Parse(blob)
	if err != nil {
		return nil, err
	}
	scan, err := dxbc.Scan(shader.Instructions)
	if err != nil {
		return nil, err
	}
	return spirv.Compile(shader, options.Layout, scan, spirv.Options{
		StripDebug: options.StripDebug,
	})
}
