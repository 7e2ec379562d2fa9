// Package gfx is the graphics-context boundary of the model runtime.
//
// The runtime decides when GPU objects are created and what they contain;
// implementations of Context (the go-gl backend, the headless recorder) do
// the allocation, upload and compilation.
package gfx

import (
	"errors"
	"image"
)

// ErrDestroyed is returned when a resource is destroyed twice.
var ErrDestroyed = errors.New("gfx: resource already destroyed")

// IndexType is the component type of an index buffer (GL enum values).
type IndexType int

const (
	IndexUnsignedByte  IndexType = 5121
	IndexUnsignedShort IndexType = 5123
	IndexUnsignedInt   IndexType = 5125
)

// SizeInBytes returns the byte size of one index.
func (t IndexType) SizeInBytes() int {
	switch t {
	case IndexUnsignedByte:
		return 1
	case IndexUnsignedShort:
		return 2
	default:
		return 4
	}
}

// PrimitiveType is the draw topology (glTF mesh.primitive.mode values).
type PrimitiveType int

const (
	Points PrimitiveType = iota
	Lines
	LineLoop
	LineStrip
	Triangles
	TriangleStrip
	TriangleFan
)

// Resource is a GPU object with an identity stable for its lifetime.
type Resource interface {
	ID() uint64
	Destroy() error
}

// Buffer is a vertex or index buffer.
type Buffer interface {
	Resource
	SizeInBytes() int
}

// Program is a linked shader program.
type Program interface {
	Resource
	// AttributeLocations returns the active vertex attributes and their locations.
	AttributeLocations() map[string]int
	VertexSource() string
	FragmentSource() string
}

// Texture is a 2D texture.
type Texture interface {
	Resource
	Width() int
	Height() int
	SizeInBytes() int
}

// VertexArray binds attributes and an optional index buffer.
type VertexArray interface {
	Resource
}

// PickID is a unique color handed to the picking pass.
type PickID interface {
	Color() [4]float32
	Owner() any
	SetOwner(owner any)
	Destroy() error
}

// ProgramDesc describes a program to compile and link.
type ProgramDesc struct {
	Label              string
	VertexSource       string
	FragmentSource     string
	AttributeLocations map[string]int
}

// TextureDesc describes a texture upload.
type TextureDesc struct {
	Label   string
	Image   *image.RGBA
	Sampler Sampler
}

// Attribute is one vertex attribute binding.
type Attribute struct {
	Index                  int
	Buffer                 Buffer
	ComponentsPerAttribute int
	ComponentType          int // GL enum, e.g. 5126 for FLOAT
	Normalize              bool
	Offset                 int
	Stride                 int
}

// VertexArrayDesc describes a vertex array.
type VertexArrayDesc struct {
	Label       string
	Attributes  []Attribute
	IndexBuffer Buffer
	IndexType   IndexType
}

// Capabilities reports what the context supports.
type Capabilities struct {
	StencilBuffer       bool
	OctahedralCubeMaps  bool
	MaxTextureSize      int
	DrawingBufferWidth  int
	DrawingBufferHeight int
}

// Context creates GPU objects. All calls happen on the render thread.
type Context interface {
	CreateVertexBuffer(data []byte) (Buffer, error)
	CreateIndexBuffer(data []byte, t IndexType) (Buffer, error)
	CreateProgram(desc ProgramDesc) (Program, error)
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateVertexArray(desc VertexArrayDesc) (VertexArray, error)
	CreatePickID(owner any) PickID
	// DefaultTexture is bound wherever a texture has not loaded yet.
	DefaultTexture() Texture
	Capabilities() Capabilities
}
