package renderer

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

type VertexFormat uint8

const (
	VertexFormatFloat32 VertexFormat = iota + 1
	VertexFormatVec2
	VertexFormatVec3
	VertexFormatVec4
)

type VertexAttribute struct {
	Location uint32
	Format   VertexFormat
	Offset   uint32
}

// VertexLayout describes one interleaved vertex buffer binding.
type VertexLayout struct {
	Binding    uint32
	Stride     uint32
	Attributes []VertexAttribute
}

type Vertex struct {
	Position mgl32.Vec3
}

func (Vertex) Layout() VertexLayout {
	var v Vertex
	return VertexLayout{
		Binding: 0,
		Stride:  uint32(unsafe.Sizeof(v)),
		Attributes: []VertexAttribute{
			{Location: 0, Format: VertexFormatVec3, Offset: uint32(unsafe.Offsetof(v.Position))},
		},
	}
}
