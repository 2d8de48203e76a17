// Package rootsig translates root-signature descriptions into the
// Vulkan-facing binding layout the shader recompiler and the descriptor
// machinery share.
//
// A root signature is an ordered list of root parameters (descriptor
// tables, root descriptors, 32-bit constants) plus static samplers. The
// translation assigns every shader-visible register a (descriptor set,
// binding) pair, packs 32-bit constants into push-constant ranges, and
// fixes the descriptor-pool requirements.
package rootsig
