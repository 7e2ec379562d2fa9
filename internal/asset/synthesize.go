package asset

import (
	"fmt"
	"strings"
)

// builtinKey identifies one generated technique.
type builtinKey struct {
	joints    int
	normals   bool
	textured  bool
	alphaMode string
	unlit     bool
}

// synthesizeTechniques generates one technique per distinct builtinKey so
// that assets without KHR_techniques_webgl render with a simple lit shader.
func (a *Asset) synthesizeTechniques() {
	a.SynthesizedTechniques = true

	jointsByMesh := make(map[int]int)
	for _, n := range a.Nodes {
		if n.Mesh == nil || n.Skin == nil || *n.Skin >= len(a.Skins) {
			continue
		}
		if _, seen := jointsByMesh[*n.Mesh]; !seen {
			jointsByMesh[*n.Mesh] = len(a.Skins[*n.Skin].Joints)
		}
	}

	techniques := make(map[builtinKey]int)
	for mi := range a.Meshes {
		for pi := range a.Meshes[mi].Primitives {
			p := &a.Meshes[mi].Primitives[pi]
			mat := a.Materials[p.Material]
			_, hasNormal := p.Attributes["NORMAL"]
			_, hasUV := p.Attributes["TEXCOORD_0"]
			_, hasTexture := mat.Values["u_baseColorTexture"]
			key := builtinKey{
				joints:    jointsByMesh[mi],
				normals:   hasNormal && !mat.Unlit,
				textured:  hasUV && hasTexture,
				alphaMode: mat.AlphaMode,
				unlit:     mat.Unlit,
			}
			if _, ok := p.Attributes["JOINTS_0"]; !ok {
				key.joints = 0
			}
			idx, ok := techniques[key]
			if !ok {
				idx = a.addBuiltinTechnique(key)
				techniques[key] = idx
			}
			p.Technique = idx
		}
	}
}

func (a *Asset) addBuiltinTechnique(k builtinKey) int {
	vs, fs := builtinSources(k)
	name := fmt.Sprintf("builtin_j%d_n%t_t%t_%s", k.joints, k.normals, k.textured, strings.ToLower(k.alphaMode))

	a.Shaders = append(a.Shaders,
		Shader{Name: name + "_vs", Type: GLVertexShader, Source: vs},
		Shader{Name: name + "_fs", Type: GLFragmentShader, Source: fs},
	)
	a.Programs = append(a.Programs, Program{
		Name:           name,
		VertexShader:   len(a.Shaders) - 2,
		FragmentShader: len(a.Shaders) - 1,
	})

	t := Technique{
		Name:       name,
		Program:    len(a.Programs) - 1,
		Attributes: map[string]string{"a_position": "POSITION"},
		Uniforms: map[string]Uniform{
			"u_modelViewMatrix":  {Type: GLFloatMat4, Semantic: "MODELVIEW"},
			"u_projectionMatrix": {Type: GLFloatMat4, Semantic: "PROJECTION"},
			"u_baseColorFactor":  {Type: GLFloatVec4, Value: Value{Floats: []float32{1, 1, 1, 1}}},
		},
	}
	if k.normals {
		t.Attributes["a_normal"] = "NORMAL"
		t.Uniforms["u_normalMatrix"] = Uniform{Type: GLFloatMat3, Semantic: "MODELVIEWINVERSETRANSPOSE"}
	}
	if k.textured {
		t.Attributes["a_texcoord_0"] = "TEXCOORD_0"
		t.Uniforms["u_baseColorTexture"] = Uniform{Type: GLSampler2D}
	}
	if k.joints > 0 {
		t.Attributes["a_joint"] = "JOINTS_0"
		t.Attributes["a_weight"] = "WEIGHTS_0"
		t.Uniforms["u_jointMatrix"] = Uniform{Type: GLFloatMat4, Count: k.joints, Semantic: "JOINTMATRIX"}
	}
	if k.alphaMode == AlphaMask {
		t.Uniforms["u_alphaCutoff"] = Uniform{Type: GLFloat, Value: Value{Floats: []float32{0.5}}}
	}
	a.Techniques = append(a.Techniques, t)
	return len(a.Techniques) - 1
}

func builtinSources(k builtinKey) (vs, fs string) {
	var v strings.Builder
	v.WriteString("precision highp float;\n")
	v.WriteString("uniform mat4 u_modelViewMatrix;\nuniform mat4 u_projectionMatrix;\n")
	v.WriteString("attribute vec3 a_position;\n")
	if k.normals {
		v.WriteString("uniform mat3 u_normalMatrix;\nattribute vec3 a_normal;\nvarying vec3 v_normal;\n")
	}
	if k.textured {
		v.WriteString("attribute vec2 a_texcoord_0;\nvarying vec2 v_texcoord_0;\n")
	}
	if k.joints > 0 {
		fmt.Fprintf(&v, "uniform mat4 u_jointMatrix[%d];\nattribute vec4 a_joint;\nattribute vec4 a_weight;\n", k.joints)
	}
	v.WriteString("void main(void) {\n")
	skin := ""
	if k.joints > 0 {
		v.WriteString("    mat4 skinMatrix =\n" +
			"        a_weight.x * u_jointMatrix[int(a_joint.x)] +\n" +
			"        a_weight.y * u_jointMatrix[int(a_joint.y)] +\n" +
			"        a_weight.z * u_jointMatrix[int(a_joint.z)] +\n" +
			"        a_weight.w * u_jointMatrix[int(a_joint.w)];\n")
		skin = "skinMatrix * "
	}
	fmt.Fprintf(&v, "    vec4 pos = u_modelViewMatrix * %svec4(a_position, 1.0);\n", skin)
	if k.normals {
		if k.joints > 0 {
			v.WriteString("    v_normal = u_normalMatrix * mat3(skinMatrix) * a_normal;\n")
		} else {
			v.WriteString("    v_normal = u_normalMatrix * a_normal;\n")
		}
	}
	if k.textured {
		v.WriteString("    v_texcoord_0 = a_texcoord_0;\n")
	}
	v.WriteString("    gl_Position = u_projectionMatrix * pos;\n}\n")

	var f strings.Builder
	f.WriteString("precision highp float;\nuniform vec4 u_baseColorFactor;\n")
	if k.normals {
		f.WriteString("varying vec3 v_normal;\n")
	}
	if k.textured {
		f.WriteString("uniform sampler2D u_baseColorTexture;\nvarying vec2 v_texcoord_0;\n")
	}
	if k.alphaMode == AlphaMask {
		f.WriteString("uniform float u_alphaCutoff;\n")
	}
	f.WriteString("void main(void) {\n    vec4 color = u_baseColorFactor;\n")
	if k.textured {
		f.WriteString("    color *= texture2D(u_baseColorTexture, v_texcoord_0);\n")
	}
	if k.normals {
		f.WriteString("    float diffuse = max(dot(normalize(v_normal), vec3(0.0, 0.0, 1.0)), 0.0);\n")
		f.WriteString("    color.rgb *= 0.3 + 0.7 * diffuse;\n")
	}
	switch k.alphaMode {
	case AlphaMask:
		f.WriteString("    if (color.a < u_alphaCutoff) {\n        discard;\n    }\n    color.a = 1.0;\n")
	case AlphaOpaque:
		f.WriteString("    color.a = 1.0;\n")
	}
	f.WriteString("    gl_FragColor = color;\n}\n")
	return v.String(), f.String()
}
