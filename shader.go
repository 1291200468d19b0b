package vkframe

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ShaderKind is a programmable pipeline stage.
type ShaderKind int

const (
	VertexShader ShaderKind = iota
	GeometryShader
	TessControlShader
	TessEvalShader
	FragmentShader
	ComputeShader
)

var shaderKinds = [...]struct {
	name   string
	suffix string
	stage  vk.ShaderStageFlagBits
}{
	VertexShader:      {"vertex", ".vert.spv", vk.ShaderStageVertexBit},
	GeometryShader:    {"geometry", ".geom.spv", vk.ShaderStageGeometryBit},
	TessControlShader: {"tess-control", ".tesc.spv", vk.ShaderStageTessellationControlBit},
	TessEvalShader:    {"tess-eval", ".tese.spv", vk.ShaderStageTessellationEvaluationBit},
	FragmentShader:    {"fragment", ".frag.spv", vk.ShaderStageFragmentBit},
	ComputeShader:     {"compute", ".comp.spv", vk.ShaderStageComputeBit},
}

func (k ShaderKind) valid() bool { return k >= 0 && int(k) < len(shaderKinds) }

func (k ShaderKind) String() string {
	if !k.valid() {
		return "unknown"
	}
	return shaderKinds[k].name
}

// Suffix is the file name suffix used for compiled SPIR-V of this kind.
func (k ShaderKind) Suffix() string {
	must(k.valid(), "unknown shader kind %d", int(k))
	return shaderKinds[k].suffix
}

// Stage is the pipeline stage bit.
func (k ShaderKind) Stage() vk.ShaderStageFlagBits {
	must(k.valid(), "unknown shader kind %d", int(k))
	return shaderKinds[k].stage
}

const spirvMagic = 0x07230203

// spirvWords reinterprets a SPIR-V binary as the words Vulkan expects.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Errorf("SPIR-V size %d is not a positive multiple of 4", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, errors.Errorf("bad SPIR-V magic number %#08x", words[0])
	}
	return words, nil
}

// Shaders is a set of shader modules, one per stage, for building a
// pipeline.
type Shaders struct {
	ctx     *DeviceContext
	kinds   []ShaderKind
	modules []vk.ShaderModule
}

// NewShaders loads one compiled SPIR-V file per stage. files[i] is loaded as
// stage kinds[i].
func NewShaders(ctx *DeviceContext, files []string, kinds []ShaderKind) (_ *Shaders, err error) {
	if len(files) != len(kinds) {
		return nil, errors.Wrapf(ErrShaderCount, "%d files, %d stages", len(files), len(kinds))
	}
	sh := &Shaders{ctx: ctx}
	defer func() {
		if err != nil {
			sh.Destroy()
		}
	}()
	for i, file := range files {
		code, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s shader %s", kinds[i], file)
		}
		words, err := spirvWords(code)
		if err != nil {
			return nil, errors.Wrapf(err, "load shader %s", file)
		}
		module, err := ctx.drv.CreateShaderModule(ctx.device, words)
		if err != nil {
			return nil, errors.Wrapf(err, "create shader module from %s", file)
		}
		sh.kinds = append(sh.kinds, kinds[i])
		sh.modules = append(sh.modules, module)
		Logger().Debug("shader loaded", "file", file, "stage", kinds[i].String())
	}
	return sh, nil
}

// NewShadersFromStem loads stem+kind.Suffix() for each kind, so the stem
// "shaders/tri" with vertex and fragment stages reads shaders/tri.vert.spv and
// shaders/tri.frag.spv.
func NewShadersFromStem(ctx *DeviceContext, stem string, kinds []ShaderKind) (*Shaders, error) {
	return NewShaders(ctx, ShaderFiles(stem, kinds), kinds)
}

// NumStages is the number of loaded stages.
func (sh *Shaders) NumStages() int { return len(sh.modules) }

// Stages describes the modules for a pipeline. Every stage uses the entry
// point "main".
func (sh *Shaders) Stages() []vk.PipelineShaderStageCreateInfo {
	stages := make([]vk.PipelineShaderStageCreateInfo, len(sh.modules))
	for i, module := range sh.modules {
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  sh.kinds[i].Stage(),
			Module: module,
			PName:  safeString("main"),
		}
	}
	return stages
}

// Destroy releases the shader modules. A pipeline built from them stays
// valid.
func (sh *Shaders) Destroy() {
	for _, module := range sh.modules {
		sh.ctx.drv.DestroyShaderModule(sh.ctx.device, module)
	}
	sh.modules = nil
	sh.kinds = nil
}
