package vkframe

import (
	vk "github.com/vulkan-go/vulkan"
)

// QueueFamilies holds the graphics and present family indices. They may be
// the same family.
type QueueFamilies struct {
	Graphics uint32
	Present  uint32
}

// Separate is true when presentation uses a different family than graphics.
func (q QueueFamilies) Separate() bool {
	return q.Graphics != q.Present
}

// Indices returns the distinct family indices, graphics first.
func (q QueueFamilies) Indices() []uint32 {
	if q.Separate() {
		return []uint32{q.Graphics, q.Present}
	}
	return []uint32{q.Graphics}
}

// Queues holds the device queue handles, one per role.
type Queues struct {
	Graphics vk.Queue
	Present  vk.Queue
}

// findQueueFamilies picks the first graphics-capable family and a family
// that can present to surface. The graphics family is reused for presentation
// when it supports it.
func findQueueFamilies(drv Driver, gpu vk.PhysicalDevice, surface vk.Surface) (QueueFamilies, bool) {
	props := drv.QueueFamilyProperties(gpu)

	var fams QueueFamilies
	graphicsFound := false
	for i, p := range props {
		if p.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			fams.Graphics = uint32(i)
			graphicsFound = true
			break
		}
	}
	if !graphicsFound {
		return fams, false
	}

	if drv.SurfaceSupport(gpu, fams.Graphics, surface) {
		fams.Present = fams.Graphics
		return fams, true
	}
	for i := range props {
		if drv.SurfaceSupport(gpu, uint32(i), surface) {
			fams.Present = uint32(i)
			return fams, true
		}
	}
	return fams, false
}

// queueCreateInfos requests one queue per distinct family.
func queueCreateInfos(fams QueueFamilies) []vk.DeviceQueueCreateInfo {
	indices := fams.Indices()
	infos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, family := range indices {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}

func getQueues(drv Driver, device vk.Device, fams QueueFamilies) Queues {
	q := Queues{Graphics: drv.DeviceQueue(device, fams.Graphics)}
	if fams.Separate() {
		q.Present = drv.DeviceQueue(device, fams.Present)
	} else {
		q.Present = q.Graphics
	}
	return q
}
