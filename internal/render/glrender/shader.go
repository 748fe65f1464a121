package glrender

import (
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/pkg/errors"
)

const terrainVertexSrc = `#version 410 core
layout(location = 0) in vec4 aPos;
layout(location = 1) in vec4 aNormal;

uniform mat4 uViewProj;
uniform vec3 uScale;
uniform vec3 uTranslate;
uniform vec3 uTexTranslate;

out vec3 vNormal;
out vec3 vTex;
out float vHeight;

void main() {
	vec3 world = uTranslate + uScale * aPos.xyz;
	vNormal = aNormal.xyz;
	vTex = world - uTexTranslate;
	vHeight = world.y;
	gl_Position = uViewProj * vec4(world, 1.0);
}` + "\x00"

const terrainFragmentSrc = `#version 410 core
in vec3 vNormal;
in vec3 vTex;
in float vHeight;

uniform vec3 uLightDir;
uniform vec3 uScale;

out vec4 fragColor;

void main() {
	vec3 n = normalize(vNormal);
	float diffuse = max(dot(n, uLightDir), 0.0);
	vec3 grass = vec3(0.30, 0.55, 0.22);
	vec3 rock = vec3(0.45, 0.42, 0.40);
	vec3 base = mix(rock, grass, smoothstep(0.6, 0.9, n.y));
	base *= mix(0.85, 1.1, clamp(vHeight / 64.0, 0.0, 1.0));
	// One checker cell per voxel of the batch's level.
	vec3 cell = floor(vTex / max(uScale / 255.0, vec3(1.0)));
	float checker = mod(cell.x + cell.y + cell.z, 2.0);
	base *= mix(0.95, 1.0, checker);
	fragColor = vec4(base * (0.35 + 0.65 * diffuse), 1.0);
}` + "\x00"

// program is a linked shader program with its uniform locations resolved once.
type program struct {
	id       uint32
	uniforms map[string]int32
}

func newProgram(vertexSrc, fragmentSrc string, uniforms ...string) (*program, error) {
	id, err := compileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, err
	}
	p := &program{id: id, uniforms: make(map[string]int32, len(uniforms))}
	for _, name := range uniforms {
		p.uniforms[name] = gl.GetUniformLocation(id, gl.Str(name+"\x00"))
	}
	return p, nil
}

func (p *program) use() { gl.UseProgram(p.id) }

func (p *program) setVec3(name string, x, y, z float32) {
	gl.Uniform3f(p.uniforms[name], x, y, z)
}

func (p *program) setMatrix4(name string, value *float32) {
	gl.UniformMatrix4fv(p.uniforms[name], 1, false, value)
}

func (p *program) delete() { gl.DeleteProgram(p.id) }

func compileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertexShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, errors.Wrap(err, "vertex shader")
	}
	fragmentShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, errors.Wrap(err, "fragment shader")
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vertexShader)
	gl.AttachShader(prog, fragmentShader)
	gl.LinkProgram(prog)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(log))
		gl.DeleteProgram(prog)

		return 0, errors.Errorf("failed to link program: %v", log)
	}
	return prog, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, errors.Errorf("failed to compile shader: %v", log)
	}
	return shader, nil
}
