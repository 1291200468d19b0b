package vkframe

import "github.com/go-gl/mathgl/mgl32"

// VulkanClipCorrection maps OpenGL clip space onto Vulkan's: Y points down
// and depth runs over [0, 1] instead of [-1, 1].
var VulkanClipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// VulkanProjection is a perspective projection for Vulkan clip space. fovy is
// in radians.
func VulkanProjection(fovy, aspect, near, far float32) mgl32.Mat4 {
	return VulkanProjectionMat(mgl32.Perspective(fovy, aspect, near, far))
}

// VulkanProjectionMat converts a GL style projection matrix, such as the ones
// mgl32 produces, to Vulkan clip space.
func VulkanProjectionMat(proj mgl32.Mat4) mgl32.Mat4 {
	return VulkanClipCorrection.Mul4(proj)
}
