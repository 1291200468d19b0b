package vkframe

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// PipelineBuilder collects the fixed-function state for a graphics pipeline.
// Viewport and scissor are always dynamic, so a pipeline survives swap chain
// rebuilds; set them each frame with SwapChain.SetViewportCmd.
type PipelineBuilder struct {
	stages        []vk.PipelineShaderStageCreateInfo
	bindings      []vk.VertexInputBindingDescription
	attributes    []vk.VertexInputAttributeDescription
	inputAssembly vk.PipelineInputAssemblyStateCreateInfo
	rasterizer    vk.PipelineRasterizationStateCreateInfo
	multisampling vk.PipelineMultisampleStateCreateInfo
	depthStencil  vk.PipelineDepthStencilStateCreateInfo
	blendAttach   vk.PipelineColorBlendAttachmentState
	setLayouts    []vk.DescriptorSetLayout
	pushConstants []vk.PushConstantRange
	subpass       uint32
}

// NewPipelineBuilder starts from filled triangle lists with no culling, no
// blending and depth testing enabled.
func NewPipelineBuilder(shaders *Shaders) *PipelineBuilder {
	pb := &PipelineBuilder{stages: shaders.Stages()}

	pb.inputAssembly = vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	pb.rasterizer = vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}
	pb.multisampling = vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		SampleShadingEnable:  vk.False,
		MinSampleShading:     1.0,
	}
	pb.depthStencil = vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.True,
		DepthCompareOp:   vk.CompareOpLess,
	}
	pb.blendAttach = vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	return pb
}

// VertexInput sets the vertex buffer bindings and attributes. With none set
// the vertex shader generates its own positions.
func (pb *PipelineBuilder) VertexInput(bindings []vk.VertexInputBindingDescription, attrs []vk.VertexInputAttributeDescription) *PipelineBuilder {
	pb.bindings, pb.attributes = bindings, attrs
	return pb
}

func (pb *PipelineBuilder) Topology(t vk.PrimitiveTopology) *PipelineBuilder {
	pb.inputAssembly.Topology = t
	return pb
}

// PolygonMode sets fill, line or point rasterization. Anything other than
// fill needs the FillModeNonSolid device feature.
func (pb *PipelineBuilder) PolygonMode(mode vk.PolygonMode) *PipelineBuilder {
	pb.rasterizer.PolygonMode = mode
	return pb
}

func (pb *PipelineBuilder) Cull(mode vk.CullModeFlagBits, front vk.FrontFace) *PipelineBuilder {
	pb.rasterizer.CullMode = vk.CullModeFlags(mode)
	pb.rasterizer.FrontFace = front
	return pb
}

func (pb *PipelineBuilder) DepthTest(test, write bool) *PipelineBuilder {
	pb.depthStencil.DepthTestEnable = vkBool(test)
	pb.depthStencil.DepthWriteEnable = vkBool(write)
	return pb
}

// AlphaBlend turns on standard src-alpha / one-minus-src-alpha blending.
func (pb *PipelineBuilder) AlphaBlend(on bool) *PipelineBuilder {
	pb.blendAttach.BlendEnable = vkBool(on)
	if on {
		pb.blendAttach.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		pb.blendAttach.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		pb.blendAttach.ColorBlendOp = vk.BlendOpAdd
		pb.blendAttach.SrcAlphaBlendFactor = vk.BlendFactorOne
		pb.blendAttach.DstAlphaBlendFactor = vk.BlendFactorZero
		pb.blendAttach.AlphaBlendOp = vk.BlendOpAdd
	}
	return pb
}

// Layout sets the descriptor set layouts and push constant ranges of the
// pipeline layout.
func (pb *PipelineBuilder) Layout(sets []vk.DescriptorSetLayout, push []vk.PushConstantRange) *PipelineBuilder {
	pb.setLayouts, pb.pushConstants = sets, push
	return pb
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// Pipeline is a graphics pipeline and the layout it owns.
type Pipeline struct {
	ctx      *DeviceContext
	layout   vk.PipelineLayout
	pipeline vk.Pipeline
}

// Build creates the pipeline layout and the pipeline for subpass 0 of
// renderPass.
func (pb *PipelineBuilder) Build(ctx *DeviceContext, renderPass *RenderPass) (*Pipeline, error) {
	must(len(pb.stages) > 0, "pipeline without shader stages")
	drv, device := ctx.drv, ctx.device

	layout, err := drv.CreatePipelineLayout(device, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(pb.setLayouts)),
		PSetLayouts:            pb.setLayouts,
		PushConstantRangeCount: uint32(len(pb.pushConstants)),
		PPushConstantRanges:    pb.pushConstants,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(pb.bindings)),
		PVertexBindingDescriptions:      pb.bindings,
		VertexAttributeDescriptionCount: uint32(len(pb.attributes)),
		PVertexAttributeDescriptions:    pb.attributes,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	dynamics := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamics)),
		PDynamicStates:    dynamics,
	}
	blendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{pb.blendAttach},
	}

	pipeline, err := drv.CreateGraphicsPipeline(device, vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(pb.stages)),
		PStages:             pb.stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &pb.inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &pb.rasterizer,
		PMultisampleState:   &pb.multisampling,
		PDepthStencilState:  &pb.depthStencil,
		PColorBlendState:    &blendState,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          renderPass.Handle(),
		Subpass:             pb.subpass,
		BasePipelineIndex:   -1,
	})
	if err != nil {
		drv.DestroyPipelineLayout(device, layout)
		return nil, errors.Wrap(err, "create graphics pipeline")
	}
	return &Pipeline{ctx: ctx, layout: layout, pipeline: pipeline}, nil
}

func (p *Pipeline) Handle() vk.Pipeline { return p.pipeline }

func (p *Pipeline) Layout() vk.PipelineLayout { return p.layout }

// Bind binds the pipeline for drawing.
func (p *Pipeline) Bind(cmd vk.CommandBuffer) {
	p.ctx.drv.CmdBindGraphicsPipeline(cmd, p.pipeline)
}

// Destroy releases the pipeline and then its layout.
func (p *Pipeline) Destroy() {
	if p.pipeline != vk.NullPipeline {
		p.ctx.drv.DestroyPipeline(p.ctx.device, p.pipeline)
		p.pipeline = vk.NullPipeline
	}
	if p.layout != vk.NullPipelineLayout {
		p.ctx.drv.DestroyPipelineLayout(p.ctx.device, p.layout)
		p.layout = vk.NullPipelineLayout
	}
}

// BindVertexBuffer binds vb at binding 0.
func BindVertexBuffer(ctx *DeviceContext, cmd vk.CommandBuffer, vb *VertexBuffer) {
	ctx.drv.CmdBindVertexBuffer(cmd, vb.Handle())
}

// DrawIndexed binds ib as 32-bit indices and draws all of them.
func DrawIndexed(ctx *DeviceContext, cmd vk.CommandBuffer, ib *IndexBuffer) {
	ctx.drv.CmdBindIndexBuffer(cmd, ib.Handle(), vk.IndexTypeUint32)
	ctx.drv.CmdDrawIndexed(cmd, ib.NumIndices(), 1)
}

// Draw draws vertexCount vertices with no index buffer.
func Draw(ctx *DeviceContext, cmd vk.CommandBuffer, vertexCount uint32) {
	ctx.drv.CmdDraw(cmd, vertexCount, 1)
}
