package vkframe

import (
	"strings"

	vk "github.com/vulkan-go/vulkan"
)

const (
	portabilitySubsetExtension      = "VK_KHR_portability_subset"
	portabilityEnumerationExtension = "VK_KHR_portability_enumeration"
	physicalDeviceProps2Extension   = "VK_KHR_get_physical_device_properties2"
	debugReportExtension            = "VK_EXT_debug_report"
	validationLayer                 = "VK_LAYER_KHRONOS_validation"
)

// ExtensionSet compares required and wanted names against what a platform or
// device actually provides.
type ExtensionSet struct {
	Required []string
	Wanted   []string
	Actual   []string
}

// NewExtensionSet builds a set against the given available names.
func NewExtensionSet(required, wanted, actual []string) *ExtensionSet {
	return &ExtensionSet{Required: required, Wanted: wanted, Actual: actual}
}

// Has reports whether name is available.
func (e *ExtensionSet) Has(name string) bool {
	for _, act := range e.Actual {
		if act == name {
			return true
		}
	}
	return false
}

// HasRequired returns false and the missing names when a required entry is
// not available.
func (e *ExtensionSet) HasRequired() (bool, []string) {
	missing := e.missing(e.Required)
	return len(missing) == 0, missing
}

// HasWanted is HasRequired for the optional entries.
func (e *ExtensionSet) HasWanted() (bool, []string) {
	missing := e.missing(e.Wanted)
	return len(missing) == 0, missing
}

// Enabled returns the required names followed by the wanted names that are
// available, without duplicates.
func (e *ExtensionSet) Enabled() []string {
	enabled := make([]string, 0, len(e.Required)+len(e.Wanted))
	seen := make(map[string]bool)
	for _, req := range e.Required {
		if !seen[req] {
			enabled = append(enabled, req)
			seen[req] = true
		}
	}
	for _, want := range e.Wanted {
		if !seen[want] && e.Has(want) {
			enabled = append(enabled, want)
			seen[want] = true
		}
	}
	return enabled
}

func (e *ExtensionSet) missing(names []string) []string {
	var missing []string
	for _, name := range names {
		if !e.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// InstanceExtensions gets a list of instance extensions available on the platform.
func InstanceExtensions() (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	orPanic(NewError(ret))
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	orPanic(NewError(ret))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

// ValidationLayers gets a list of validation layers available on the platform.
func ValidationLayers() (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	orPanic(NewError(ret))
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	orPanic(NewError(ret))
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, err
}

func orPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// safeString appends the NUL terminator the C side expects.
func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}
