// Package assettest builds small glTF documents for tests.
package assettest

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
)

// VertexShader is the technique vertex shader of Triangle assets.
const VertexShader = `precision highp float;
uniform mat4 u_modelViewMatrix;
uniform mat4 u_projectionMatrix;
uniform mat3 u_normalMatrix;
attribute vec3 a_position;
attribute vec3 a_normal;
varying vec3 v_normal;
void main(void) {
    v_normal = u_normalMatrix * a_normal;
    gl_Position = u_projectionMatrix * u_modelViewMatrix * vec4(a_position, 1.0);
}
`

// FragmentShader is the technique fragment shader of Triangle assets.
const FragmentShader = `precision highp float;
uniform vec4 u_diffuse;
varying vec3 v_normal;
void main(void) {
    gl_FragColor = u_diffuse;
}
`

// Options tweaks the generated triangle.
type Options struct {
	// CoreMaterial omits KHR_techniques_webgl and uses a core material.
	CoreMaterial bool
	// BufferURI makes the geometry buffer external under this URI.
	BufferURI string
	// ShaderURIs makes the shaders external ("tri.vert", "tri.frag").
	ShaderURIs bool
	// ImageURI adds a base color texture fetched from this URI.
	ImageURI string
	// Required lists extensionsRequired.
	Required []string
	// Version overrides asset.version.
	Version string
	// Translation places the node.
	Translation [3]float64
	// Meshes is the number of nodes, each with its own copy of the primitive.
	Meshes int
}

// Geometry returns the triangle's buffer: positions, normals, texcoords and
// three unsigned short indices padded to four bytes.
func Geometry() []byte {
	var buf bytes.Buffer
	put := func(v ...float32) {
		for _, f := range v {
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(f))
		}
	}
	put(0, 0, 0, 1, 0, 0, 0, 1, 0) // positions
	put(0, 0, 1, 0, 0, 1, 0, 0, 1) // normals
	put(0, 0, 1, 0, 0, 1)          // texcoords
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 2, 0})
	return buf.Bytes()
}

// Triangle returns a single-primitive asset. Its position bounds are
// (0,0,0)-(1,1,0).
func Triangle(opts Options) []byte {
	geom := Geometry()
	bufURI := opts.BufferURI
	if bufURI == "" {
		bufURI = DataURI("application/octet-stream", geom)
	}
	version := opts.Version
	if version == "" {
		version = "2.0"
	}
	meshes := opts.Meshes
	if meshes < 1 {
		meshes = 1
	}

	doc := map[string]any{
		"asset":   map[string]any{"version": version, "generator": "assettest"},
		"buffers": []any{map[string]any{"uri": bufURI, "byteLength": len(geom)}},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 96, "target": 34962},
			map[string]any{"buffer": 0, "byteOffset": 96, "byteLength": 6, "target": 34963},
		},
		"accessors": []any{
			map[string]any{"bufferView": 0, "byteOffset": 0, "componentType": 5126, "count": 3, "type": "VEC3",
				"min": []float64{0, 0, 0}, "max": []float64{1, 1, 0}},
			map[string]any{"bufferView": 0, "byteOffset": 36, "componentType": 5126, "count": 3, "type": "VEC3"},
			map[string]any{"bufferView": 0, "byteOffset": 72, "componentType": 5126, "count": 3, "type": "VEC2"},
			map[string]any{"bufferView": 1, "byteOffset": 0, "componentType": 5123, "count": 3, "type": "SCALAR"},
		},
	}

	attributes := map[string]any{"POSITION": 0, "NORMAL": 1}
	if opts.ImageURI != "" {
		attributes["TEXCOORD_0"] = 2
	}
	var meshList, nodeList []any
	var roots []int
	for i := 0; i < meshes; i++ {
		meshList = append(meshList, map[string]any{
			"name":       "triangle",
			"primitives": []any{map[string]any{"attributes": attributes, "indices": 3, "material": 0}},
		})
		node := map[string]any{"name": "root", "mesh": i}
		if opts.Translation != [3]float64{} {
			node["translation"] = opts.Translation[:]
		}
		nodeList = append(nodeList, node)
		roots = append(roots, i)
	}
	doc["meshes"] = meshList
	doc["nodes"] = nodeList
	doc["scenes"] = []any{map[string]any{"nodes": roots}}
	doc["scene"] = 0

	if opts.ImageURI != "" {
		doc["images"] = []any{map[string]any{"uri": opts.ImageURI}}
		doc["samplers"] = []any{map[string]any{"magFilter": 9728, "minFilter": 9728, "wrapS": 33071, "wrapT": 33071}}
		doc["textures"] = []any{map[string]any{"source": 0, "sampler": 0}}
	}

	if opts.CoreMaterial {
		pbr := map[string]any{"baseColorFactor": []float64{0.8, 0.8, 0.8, 1}}
		if opts.ImageURI != "" {
			pbr["baseColorTexture"] = map[string]any{"index": 0}
		}
		doc["materials"] = []any{map[string]any{"name": "surface", "pbrMetallicRoughness": pbr}}
	} else {
		vsURI, fsURI := "tri.vert", "tri.frag"
		if !opts.ShaderURIs {
			vsURI = DataURI("text/plain", []byte(VertexShader))
			fsURI = DataURI("text/plain", []byte(FragmentShader))
		}
		values := map[string]any{"u_diffuse": []float64{0.8, 0.8, 0.8, 1}}
		uniforms := map[string]any{
			"u_modelViewMatrix":  map[string]any{"type": 35676, "semantic": "MODELVIEW"},
			"u_projectionMatrix": map[string]any{"type": 35676, "semantic": "PROJECTION"},
			"u_normalMatrix":     map[string]any{"type": 35675, "semantic": "MODELVIEWINVERSETRANSPOSE"},
			"u_diffuse":          map[string]any{"type": 35666},
		}
		if opts.ImageURI != "" {
			values["u_texture"] = map[string]any{"index": 0}
			uniforms["u_texture"] = map[string]any{"type": 35678}
		}
		doc["extensionsUsed"] = []string{"KHR_techniques_webgl"}
		doc["extensions"] = map[string]any{
			"KHR_techniques_webgl": map[string]any{
				"programs": []any{map[string]any{"name": "tri", "vertexShader": 0, "fragmentShader": 1}},
				"shaders": []any{
					map[string]any{"type": 35633, "uri": vsURI},
					map[string]any{"type": 35632, "uri": fsURI},
				},
				"techniques": []any{map[string]any{
					"program": 0,
					"attributes": map[string]any{
						"a_position": map[string]any{"semantic": "POSITION"},
						"a_normal":   map[string]any{"semantic": "NORMAL"},
					},
					"uniforms": uniforms,
				}},
			},
		}
		doc["materials"] = []any{map[string]any{
			"name": "surface",
			"extensions": map[string]any{
				"KHR_techniques_webgl": map[string]any{"technique": 0, "values": values},
			},
		}}
	}
	if len(opts.Required) > 0 {
		doc["extensionsRequired"] = opts.Required
	}
	return mustJSON(doc)
}

// SkinnedTwoBone returns an asset with a two-joint chain: joint0 at the
// origin, joint1 translated by (0,1,0) and rotated 90 degrees about Z, and a
// skinned mesh node. Inverse bind matrices undo the rest pose translations.
func SkinnedTwoBone() []byte {
	var buf bytes.Buffer
	put := func(v ...float32) {
		for _, f := range v {
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(f))
		}
	}
	put(0, 0, 0, 0, 1, 0, 1, 1, 0) // positions
	// inverse bind matrices, column major
	put(1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1)
	put(1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, -1, 0, 1)
	// joints (ubyte x4 per vertex) and weights
	_ = binary.Write(&buf, binary.LittleEndian, []uint8{0, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0})
	put(1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0)
	data := buf.Bytes()

	s := float64(math.Sqrt2 / 2)
	doc := map[string]any{
		"asset":   map[string]any{"version": "2.0"},
		"buffers": []any{map[string]any{"uri": DataURI("application/octet-stream", data), "byteLength": len(data)}},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36, "target": 34962},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": 128},
			map[string]any{"buffer": 0, "byteOffset": 164, "byteLength": 12, "target": 34962},
			map[string]any{"buffer": 0, "byteOffset": 176, "byteLength": 48, "target": 34962},
		},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3",
				"min": []float64{0, 0, 0}, "max": []float64{1, 1, 0}},
			map[string]any{"bufferView": 1, "componentType": 5126, "count": 2, "type": "MAT4"},
			map[string]any{"bufferView": 2, "componentType": 5121, "count": 3, "type": "VEC4"},
			map[string]any{"bufferView": 3, "componentType": 5126, "count": 3, "type": "VEC4"},
		},
		"meshes": []any{map[string]any{
			"name": "arm",
			"primitives": []any{map[string]any{
				"attributes": map[string]any{"POSITION": 0, "JOINTS_0": 2, "WEIGHTS_0": 3},
			}},
		}},
		"skins": []any{map[string]any{"joints": []int{1, 2}, "inverseBindMatrices": 1}},
		"nodes": []any{
			map[string]any{"name": "mesh", "mesh": 0, "skin": 0, "translation": []float64{5, 0, 0}},
			map[string]any{"name": "joint0", "children": []int{2}},
			map[string]any{"name": "joint1", "translation": []float64{0, 1, 0}, "rotation": []float64{0, 0, s, s}},
		},
		"scenes": []any{map[string]any{"nodes": []int{0, 1}}},
	}
	return mustJSON(doc)
}

// Animated returns a triangle whose node translation is animated linearly
// from (0,0,0) at t=0 to (2,0,0) at t=1.
func Animated(interpolation string) []byte {
	var buf bytes.Buffer
	put := func(v ...float32) {
		for _, f := range v {
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(f))
		}
	}
	put(0, 0, 0, 1, 0, 0, 0, 1, 0) // positions
	put(0, 1)                      // times
	put(0, 0, 0, 2, 0, 0)          // translations
	data := buf.Bytes()

	doc := map[string]any{
		"asset":   map[string]any{"version": "2.0"},
		"buffers": []any{map[string]any{"uri": DataURI("application/octet-stream", data), "byteLength": len(data)}},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36, "target": 34962},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": 8},
			map[string]any{"buffer": 0, "byteOffset": 44, "byteLength": 24},
		},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3",
				"min": []float64{0, 0, 0}, "max": []float64{1, 1, 0}},
			map[string]any{"bufferView": 1, "componentType": 5126, "count": 2, "type": "SCALAR",
				"min": []float64{0}, "max": []float64{1}},
			map[string]any{"bufferView": 2, "componentType": 5126, "count": 2, "type": "VEC3"},
		},
		"meshes": []any{map[string]any{
			"name":       "triangle",
			"primitives": []any{map[string]any{"attributes": map[string]any{"POSITION": 0}}},
		}},
		"nodes":  []any{map[string]any{"name": "mover", "mesh": 0}},
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"animations": []any{map[string]any{
			"name":     "slide",
			"samplers": []any{map[string]any{"input": 1, "output": 2, "interpolation": interpolation}},
			"channels": []any{map[string]any{"sampler": 0, "target": map[string]any{"node": 0, "path": "translation"}}},
		}},
	}
	return mustJSON(doc)
}

// GLB wraps a JSON document and a binary chunk into a GLB container.
func GLB(jsonDoc, bin []byte) []byte {
	pad := func(b []byte, with byte) []byte {
		for len(b)%4 != 0 {
			b = append(b, with)
		}
		return b
	}
	jsonDoc = pad(append([]byte(nil), jsonDoc...), ' ')
	bin = pad(append([]byte(nil), bin...), 0)

	var buf bytes.Buffer
	total := 12 + 8 + len(jsonDoc)
	if len(bin) > 0 {
		total += 8 + len(bin)
	}
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{0x46546C67, 2, uint32(total)})
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(jsonDoc)), 0x4E4F534A})
	buf.Write(jsonDoc)
	if len(bin) > 0 {
		_ = binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(bin)), 0x004E4942})
		buf.Write(bin)
	}
	return buf.Bytes()
}

// DataURI encodes payload as a base64 data URI.
func DataURI(mime string, payload []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Edit decodes data, lets fn change the document and encodes it again.
func Edit(data []byte, fn func(doc map[string]any)) []byte {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		panic(err)
	}
	fn(doc)
	return mustJSON(doc)
}

// Path walks nested objects and arrays of a decoded document, e.g.
// Path(doc, "meshes", 0, "primitives", 0).
func Path(doc map[string]any, keys ...any) map[string]any {
	var cur any = doc
	for _, k := range keys {
		switch k := k.(type) {
		case string:
			cur = cur.(map[string]any)[k]
		case int:
			cur = cur.([]any)[k]
		}
	}
	return cur.(map[string]any)
}
