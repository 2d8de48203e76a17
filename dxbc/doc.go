// Package dxbc models compiled Direct3D shader bytecode.
//
// A DXBC blob is a chunked container; the chunks this package understands
// are the instruction stream (SHDR/SHEX) and the input/output signatures
// (ISGN/OSGN). Parse decodes a blob into a Shader value holding typed
// instructions; Scan performs the pre-pass over the instruction stream
// that the SPIR-V backend needs before emission starts.
package dxbc
