// Package asset turns a glTF 2.0 document into the runtime tables the model
// loader walks: buffer views split by use, shaders, programs, techniques,
// materials, meshes, nodes, skins, animations, images and samplers.
//
// Assets that carry KHR_techniques_webgl keep their own techniques. Assets
// without it get built-in techniques generated from their core materials, so
// every primitive resolves a program either way.
package asset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/midgard-gltf/internal/fetch"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

var (
	// ErrUnsupportedExtension is returned for required extensions the runtime cannot honour.
	ErrUnsupportedExtension = errors.New("asset: unsupported required extension")
	// ErrUnsupportedVersion is returned for assets whose major version is not 2.
	ErrUnsupportedVersion = errors.New("asset: unsupported version")
	// ErrInvalidAccessor is returned when accessor data cannot be read as requested.
	ErrInvalidAccessor = errors.New("asset: invalid accessor")
	// ErrInvalidIndex is returned when a table entry references one that does not exist.
	ErrInvalidIndex = errors.New("asset: invalid index")
)

// GL enums used by technique declarations.
const (
	GLByte          = 5120
	GLUnsignedByte  = 5121
	GLShort         = 5122
	GLUnsignedShort = 5123
	GLInt           = 5124
	GLUnsignedInt   = 5125
	GLFloat         = 5126
	GLFloatVec2     = 35664
	GLFloatVec3     = 35665
	GLFloatVec4     = 35666
	GLBool          = 35670
	GLFloatMat2     = 35674
	GLFloatMat3     = 35675
	GLFloatMat4     = 35676
	GLSampler2D     = 35678

	GLFragmentShader = 35632
	GLVertexShader   = 35633
)

// Alpha modes.
const (
	AlphaOpaque = "OPAQUE"
	AlphaMask   = "MASK"
	AlphaBlend  = "BLEND"
)

// Asset holds the parsed tables of one glTF document.
type Asset struct {
	Version        string
	Generator      string
	ExtensionsUsed map[string]bool

	Buffers       []Buffer
	BufferViews   []BufferView
	Accessors     []Accessor
	Shaders       []Shader
	Programs      []Program
	Techniques    []Technique
	Materials     []Material
	Meshes        []Mesh
	Nodes         []Node
	Skins         []Skin
	Animations    []Animation
	Images        []Image
	Textures      []Texture
	Samplers      []gfx.Sampler
	Roots         []int
	Articulations []Articulation

	// SynthesizedTechniques is set when techniques were generated from core materials.
	SynthesizedTechniques bool
	// NormalAttributeName is the technique attribute bound to NORMAL, if any.
	NormalAttributeName string

	doc *gltf.Document
}

// Buffer is a binary blob, either embedded (GLB chunk, data URI) or external.
type Buffer struct {
	URI        string
	ByteLength int
	// Embedded is set when the bytes came with the document.
	Embedded bool
}

// BufferView is a slice of a buffer.
type BufferView struct {
	Buffer     int
	ByteOffset int
	ByteLength int
	ByteStride int
	// Vertex and Index record how primitives use the view.
	Vertex bool
	Index  bool
	// IndexType is the component type of index accessors reading the view.
	IndexType gfx.IndexType
}

// Accessor describes typed elements inside a buffer view.
type Accessor struct {
	Name          string
	BufferView    *int
	ByteOffset    int
	ComponentType int
	Type          string
	Components    int
	Count         int
	Normalized    bool
	Min, Max      []float64
	Quantization  *Quantization
}

// ComponentSize returns the byte size of one component.
func (a Accessor) ComponentSize() int {
	switch a.ComponentType {
	case GLByte, GLUnsignedByte:
		return 1
	case GLShort, GLUnsignedShort:
		return 2
	default:
		return 4
	}
}

// Quantization is the WEB3D_quantized_attributes decode data of an accessor.
type Quantization struct {
	DecodeMatrix []float32
	DecodedMin   []float32
	DecodedMax   []float32
}

// Shader is one GLSL stage.
type Shader struct {
	Name       string
	Type       int
	URI        string
	BufferView *int
	// Source is set once the text is known.
	Source string
}

// Program pairs a vertex and a fragment shader.
type Program struct {
	Name           string
	VertexShader   int
	FragmentShader int
}

// Technique binds a program to attribute and uniform semantics.
type Technique struct {
	Name       string
	Program    int
	Attributes map[string]string // attribute name -> semantic
	Uniforms   map[string]Uniform
}

// AttributeForSemantic returns the attribute name bound to semantic.
func (t Technique) AttributeForSemantic(semantic string) (string, bool) {
	for name, s := range t.Attributes {
		if s == semantic {
			return name, true
		}
	}
	return "", false
}

// Uniform is a technique uniform declaration.
type Uniform struct {
	Type     int
	Count    int
	Semantic string
	Node     *int
	Value    Value
}

// Value is a material or uniform default value.
type Value struct {
	Floats  []float32
	Texture *TextureRef
}

// IsSet reports whether the value carries data.
func (v Value) IsSet() bool { return v.Floats != nil || v.Texture != nil }

// TextureRef references a texture from a material value.
type TextureRef struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord"`
}

// Material holds shading parameters.
type Material struct {
	Name string
	// Technique is -1 when techniques are resolved per primitive.
	Technique   int
	Values      map[string]Value
	AlphaMode   string
	AlphaCutoff float32
	DoubleSided bool
	Unlit       bool
}

// Mesh is a named list of primitives.
type Mesh struct {
	Name       string
	Primitives []Primitive
	Weights    []float32
}

// Primitive is one draw of a mesh.
type Primitive struct {
	Mode       gfx.PrimitiveType
	Attributes map[string]int
	Indices    *int
	Material   int
	Technique  int
}

// Node is a scene graph node. Matrix is nil when the transform is TRS.
type Node struct {
	Name             string
	Children         []int
	Mesh             *int
	Skin             *int
	Matrix           *math.Mat4
	Translation      math.Vec3
	Rotation         math.Quat
	Scale            math.Vec3
	Weights          []float32
	IsAttachPoint    bool
	ArticulationName string
}

// LocalMatrix returns the node's local transform.
func (n Node) LocalMatrix() math.Mat4 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	return math.FromTRS(n.Translation, n.Rotation, n.Scale)
}

// Skin binds joints to inverse bind matrices.
type Skin struct {
	Name                string
	Joints              []int
	InverseBindMatrices *int
	Skeleton            *int
	BindShapeMatrix     *math.Mat4
}

// Animation is a set of channels driven by samplers.
type Animation struct {
	Name     string
	Channels []Channel
	Samplers []AnimationSampler
}

// Channel targets a node property.
type Channel struct {
	Sampler int
	Node    int
	Path    string
}

// AnimationSampler maps input times to output values.
type AnimationSampler struct {
	Input         int
	Output        int
	Interpolation string
}

// Image is an image source.
type Image struct {
	Name       string
	URI        string
	MimeType   string
	BufferView *int
}

// Texture pairs an image with a sampler. Sampler is -1 for the default.
type Texture struct {
	Source  int
	Sampler int
}

// Articulation is a named set of stages applied to attach points.
type Articulation struct {
	Name   string
	Stages []ArticulationStage
}

// ArticulationStage is one degree of freedom of an articulation.
type ArticulationStage struct {
	Name    string
	Type    string
	Minimum float32
	Initial float32
	Maximum float32
}

// Parse decodes a glTF JSON or GLB document and builds its tables. Embedded
// buffers (GLB chunk, data URIs) are loaded; external resources are not
// read, the caller fetches them and hands buffer bytes to SetBufferData.
func Parse(data []byte) (*Asset, error) {
	doc, bin, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	a := &Asset{
		Version:        doc.Asset.Version,
		Generator:      doc.Asset.Generator,
		ExtensionsUsed: make(map[string]bool, len(doc.ExtensionsUsed)),
		doc:            doc,
	}
	for _, e := range doc.ExtensionsUsed {
		a.ExtensionsUsed[e] = true
	}
	if bin != nil && len(doc.Buffers) > 0 && doc.Buffers[0].URI == "" {
		doc.Buffers[0].Data = bin
	}
	for i, b := range doc.Buffers {
		if !fetch.IsDataURI(b.URI) {
			continue
		}
		data, _, err := fetch.DecodeDataURI(b.URI)
		if err != nil {
			return nil, fmt.Errorf("asset: buffer %d: %w", i, err)
		}
		b.Data = data
	}

	if err := a.buildTables(); err != nil {
		return nil, err
	}
	return a, nil
}

func validate(doc *gltf.Document) error {
	major, _, _ := strings.Cut(doc.Asset.Version, ".")
	if major != "2" {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, doc.Asset.Version)
	}
	for _, e := range doc.ExtensionsRequired {
		if !supportedRequired[e] {
			return fmt.Errorf("%w: %s", ErrUnsupportedExtension, e)
		}
	}
	return nil
}

// UsesTechniques reports whether techniques came from KHR_techniques_webgl.
func (a *Asset) UsesTechniques() bool {
	return !a.SynthesizedTechniques
}

// SetBufferData stores fetched bytes for buffer i.
func (a *Asset) SetBufferData(i int, data []byte) {
	if i >= 0 && i < len(a.doc.Buffers) {
		a.doc.Buffers[i].Data = data
	}
}

// BufferData returns the bytes of buffer i, or nil when not loaded.
func (a *Asset) BufferData(i int) []byte {
	if i < 0 || i >= len(a.doc.Buffers) {
		return nil
	}
	return a.doc.Buffers[i].Data
}

// BufferViewData returns the bytes covered by buffer view i.
func (a *Asset) BufferViewData(i int) ([]byte, error) {
	if i < 0 || i >= len(a.BufferViews) {
		return nil, fmt.Errorf("asset: buffer view %d out of range", i)
	}
	bv := a.BufferViews[i]
	data := a.BufferData(bv.Buffer)
	end := bv.ByteOffset + bv.ByteLength
	if data == nil || end > len(data) {
		return nil, fmt.Errorf("asset: buffer view %d needs %d bytes of buffer %d, have %d", i, end, bv.Buffer, len(data))
	}
	return data[bv.ByteOffset:end], nil
}

// ReleaseData drops every buffer's bytes.
func (a *Asset) ReleaseData() {
	for _, b := range a.doc.Buffers {
		b.Data = nil
	}
}

// TechniqueFor returns the technique used by a primitive.
func (a *Asset) TechniqueFor(p Primitive) *Technique {
	if p.Technique < 0 || p.Technique >= len(a.Techniques) {
		return nil
	}
	return &a.Techniques[p.Technique]
}

// MeshByName returns the index of the first mesh with the name.
func (a *Asset) MeshByName(name string) (int, bool) {
	for i, m := range a.Meshes {
		if m.Name == name {
			return i, true
		}
	}
	return -1, false
}

// MaterialByName returns the index of the first material with the name.
func (a *Asset) MaterialByName(name string) (int, bool) {
	for i, m := range a.Materials {
		if m.Name == name {
			return i, true
		}
	}
	return -1, false
}

// NodeByName returns the index of the first node with the name.
func (a *Asset) NodeByName(name string) (int, bool) {
	for i, n := range a.Nodes {
		if n.Name == name {
			return i, true
		}
	}
	return -1, false
}

// AnimationByName returns the index of the first animation with the name.
func (a *Asset) AnimationByName(name string) (int, bool) {
	for i, an := range a.Animations {
		if an.Name == name {
			return i, true
		}
	}
	return -1, false
}
