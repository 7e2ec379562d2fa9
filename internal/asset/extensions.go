package asset

import (
	"encoding/json"

	"github.com/qmuntal/gltf"
)

// Extension names understood by the parser.
const (
	ExtTechniquesWebGL     = "KHR_techniques_webgl"
	ExtQuantizedAttributes = "WEB3D_quantized_attributes"
	ExtMaterialsUnlit      = "KHR_materials_unlit"
	ExtTextureTransform    = "KHR_texture_transform"
	ExtArticulations       = "AGI_articulations"
)

// supportedRequired lists the extensions an asset may require.
var supportedRequired = map[string]bool{
	ExtTechniquesWebGL:     true,
	ExtQuantizedAttributes: true,
	ExtMaterialsUnlit:      true,
	ExtTextureTransform:    true,
	ExtArticulations:       true,
}

func init() {
	gltf.RegisterExtension(ExtTechniquesWebGL, func(data []byte) (any, error) {
		ext := new(techniquesExt)
		return ext, json.Unmarshal(data, ext)
	})
	gltf.RegisterExtension(ExtQuantizedAttributes, func(data []byte) (any, error) {
		ext := new(quantizedExt)
		return ext, json.Unmarshal(data, ext)
	})
	gltf.RegisterExtension(ExtArticulations, func(data []byte) (any, error) {
		ext := new(articulationsExt)
		return ext, json.Unmarshal(data, ext)
	})
}

// techniquesExt decodes KHR_techniques_webgl at document level (programs,
// shaders, techniques) and at material level (technique, values).
type techniquesExt struct {
	Programs   []techniqueProgram         `json:"programs"`
	Shaders    []techniqueShader          `json:"shaders"`
	Techniques []techniqueDecl            `json:"techniques"`
	Technique  *int                       `json:"technique"`
	Values     map[string]json.RawMessage `json:"values"`
}

type techniqueProgram struct {
	Name           string `json:"name"`
	VertexShader   int    `json:"vertexShader"`
	FragmentShader int    `json:"fragmentShader"`
}

type techniqueShader struct {
	Name       string `json:"name"`
	Type       int    `json:"type"`
	URI        string `json:"uri"`
	BufferView *int   `json:"bufferView"`
}

type techniqueDecl struct {
	Name       string                       `json:"name"`
	Program    int                          `json:"program"`
	Attributes map[string]techniqueAttrDecl `json:"attributes"`
	Uniforms   map[string]techniqueUniDecl  `json:"uniforms"`
}

type techniqueAttrDecl struct {
	Semantic string `json:"semantic"`
}

type techniqueUniDecl struct {
	Type     int             `json:"type"`
	Count    int             `json:"count"`
	Node     *int            `json:"node"`
	Semantic string          `json:"semantic"`
	Value    json.RawMessage `json:"value"`
}

type quantizedExt struct {
	DecodeMatrix []float64 `json:"decodeMatrix"`
	DecodedMin   []float64 `json:"decodedMin"`
	DecodedMax   []float64 `json:"decodedMax"`
}

// articulationsExt decodes AGI_articulations at document level
// (articulations) and at node level (attach point flags).
type articulationsExt struct {
	Articulations    []articulationDecl `json:"articulations"`
	IsAttachPoint    bool               `json:"isAttachPoint"`
	ArticulationName string             `json:"articulationName"`
}

type articulationDecl struct {
	Name           string             `json:"name"`
	Stages         []articulationStep `json:"stages"`
	PointingVector []float64          `json:"pointingVector"`
}

type articulationStep struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	MinimumValue float64 `json:"minimumValue"`
	InitialValue float64 `json:"initialValue"`
	MaximumValue float64 `json:"maximumValue"`
}

// extension returns ext[key] as T when it was decoded by a registered
// decoder.
func extension[T any](ext gltf.Extensions, key string) (T, bool) {
	var zero T
	if ext == nil {
		return zero, false
	}
	v, ok := ext[key].(T)
	return v, ok
}

// parseValue decodes a technique or material value: a number, a number
// array, a boolean or a texture reference object.
func parseValue(raw json.RawMessage) (Value, error) {
	if len(raw) == 0 {
		return Value{}, nil
	}
	switch raw[0] {
	case '{':
		var ref TextureRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			return Value{}, err
		}
		return Value{Texture: &ref}, nil
	case '[':
		var fs []float32
		if err := json.Unmarshal(raw, &fs); err != nil {
			return Value{}, err
		}
		return Value{Floats: fs}, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, err
		}
		if b {
			return Value{Floats: []float32{1}}, nil
		}
		return Value{Floats: []float32{0}}, nil
	default:
		var f float32
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, err
		}
		return Value{Floats: []float32{f}}, nil
	}
}
