package glbackend

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/gfx"
)

// Program is a linked GL program.
type Program struct {
	id       uint64
	handle   uint32
	vertex   string
	fragment string
	active   map[string]int
	uniforms map[string]int32
}

func (p *Program) ID() uint64                         { return p.id }
func (p *Program) AttributeLocations() map[string]int { return p.active }
func (p *Program) VertexSource() string               { return p.vertex }
func (p *Program) FragmentSource() string             { return p.fragment }

// Destroy implements gfx.Resource.
func (p *Program) Destroy() error {
	if p.handle == 0 {
		return gfx.ErrDestroyed
	}
	gl.DeleteProgram(p.handle)
	p.handle = 0
	return nil
}

// uniform returns the location of name, -1 when inactive.
func (p *Program) uniform(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.handle, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

// CreateProgram implements gfx.Context. Sources are written against GLSL ES
// 1.00 and upgraded to GLSL 4.10 before compiling.
func (c *Context) CreateProgram(desc gfx.ProgramDesc) (gfx.Program, error) {
	vs, err := compileShader(upgradeSource(desc.VertexSource, gl.VERTEX_SHADER), gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", desc.Label, err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(upgradeSource(desc.FragmentSource, gl.FRAGMENT_SHADER), gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", desc.Label, err)
	}
	defer gl.DeleteShader(fs)

	handle := gl.CreateProgram()
	gl.AttachShader(handle, vs)
	gl.AttachShader(handle, fs)
	for name, loc := range desc.AttributeLocations {
		gl.BindAttribLocation(handle, uint32(loc), gl.Str(name+"\x00"))
	}
	gl.LinkProgram(handle)

	var status int32
	gl.GetProgramiv(handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(handle, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(handle, logLen, nil, gl.Str(log))
		gl.DeleteProgram(handle)
		return nil, fmt.Errorf("%s: link: %s", desc.Label, strings.TrimRight(log, "\x00"))
	}

	p := &Program{
		id:       c.id(),
		handle:   handle,
		vertex:   desc.VertexSource,
		fragment: desc.FragmentSource,
		active:   activeAttributes(handle),
		uniforms: make(map[string]int32),
	}
	c.log.Debug("program linked",
		zap.String("label", desc.Label),
		zap.Uint32("handle", handle),
		zap.Int("attributes", len(p.active)))
	return p, nil
}

func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func activeAttributes(handle uint32) map[string]int {
	var count, maxLen int32
	gl.GetProgramiv(handle, gl.ACTIVE_ATTRIBUTES, &count)
	gl.GetProgramiv(handle, gl.ACTIVE_ATTRIBUTE_MAX_LENGTH, &maxLen)
	out := make(map[string]int, count)
	buf := make([]byte, maxLen+1)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveAttrib(handle, uint32(i), maxLen+1, &length, &size, &xtype, &buf[0])
		name := string(buf[:length])
		out[name] = int(gl.GetAttribLocation(handle, gl.Str(name+"\x00")))
	}
	return out
}

const (
	vertexPrelude = `#version 410 core
#define attribute in
#define varying out
#define texture2D texture
`
	fragmentPrelude = `#version 410 core
#define varying in
#define texture2D texture
out vec4 glbackend_FragColor;
#define gl_FragColor glbackend_FragColor
`
)

// upgradeSource maps GLSL ES 1.00 keywords onto GLSL 4.10 with macros and
// drops any #version line the source carries.
func upgradeSource(src string, shaderType uint32) string {
	var b strings.Builder
	if shaderType == gl.VERTEX_SHADER {
		b.WriteString(vertexPrelude)
	} else {
		b.WriteString(fragmentPrelude)
	}
	for _, line := range strings.SplitAfter(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#version") {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}
