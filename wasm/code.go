package wasm

import (
	"math"

	"github.com/wippyai/wasm-host/wasm/internal/binary"
)

// CodeBuilder assembles a function body's instruction stream.
// Methods return the builder so sequences read in program order:
//
//	code := wasm.NewCode().LocalGet(0).I32Const(4).Op(OpI32RemS).End().Bytes()
type CodeBuilder struct {
	w *binary.Writer
}

// NewCode returns an empty CodeBuilder.
func NewCode() *CodeBuilder {
	return &CodeBuilder{w: binary.NewWriter()}
}

// Op emits an instruction without immediates.
func (c *CodeBuilder) Op(op byte) *CodeBuilder {
	c.w.Byte(op)
	return c
}

// I32Const emits i32.const.
func (c *CodeBuilder) I32Const(v int32) *CodeBuilder {
	c.w.Byte(OpI32Const)
	c.w.WriteS32(v)
	return c
}

// I64Const emits i64.const.
func (c *CodeBuilder) I64Const(v int64) *CodeBuilder {
	c.w.Byte(OpI64Const)
	c.w.WriteS64(v)
	return c
}

// F32Const emits f32.const.
func (c *CodeBuilder) F32Const(v float32) *CodeBuilder {
	c.w.Byte(OpF32Const)
	bits := math.Float32bits(v)
	c.w.WriteU32LE(bits)
	return c
}

// F64Const emits f64.const.
func (c *CodeBuilder) F64Const(v float64) *CodeBuilder {
	c.w.Byte(OpF64Const)
	bits := math.Float64bits(v)
	c.w.WriteU32LE(uint32(bits))
	c.w.WriteU32LE(uint32(bits >> 32))
	return c
}

// LocalGet emits local.get.
func (c *CodeBuilder) LocalGet(idx uint32) *CodeBuilder {
	c.w.Byte(OpLocalGet)
	c.w.WriteU32(idx)
	return c
}

// LocalSet emits local.set.
func (c *CodeBuilder) LocalSet(idx uint32) *CodeBuilder {
	c.w.Byte(OpLocalSet)
	c.w.WriteU32(idx)
	return c
}

// Call emits call.
func (c *CodeBuilder) Call(funcIdx uint32) *CodeBuilder {
	c.w.Byte(OpCall)
	c.w.WriteU32(funcIdx)
	return c
}

// If opens an if block yielding blockType (BlockVoid or a value type).
func (c *CodeBuilder) If(blockType byte) *CodeBuilder {
	c.w.Byte(OpIf)
	c.w.Byte(blockType)
	return c
}

// Else emits else.
func (c *CodeBuilder) Else() *CodeBuilder {
	c.w.Byte(OpElse)
	return c
}

// End emits end, closing a block or the function body.
func (c *CodeBuilder) End() *CodeBuilder {
	c.w.Byte(OpEnd)
	return c
}

// Bytes returns the assembled instruction stream.
func (c *CodeBuilder) Bytes() []byte {
	return c.w.Bytes()
}
