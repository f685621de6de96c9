package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer"
)

var vertexFormats = map[renderer.VertexFormat]vk.Format{
	renderer.VertexFormatFloat32: vk.FormatR32Sfloat,
	renderer.VertexFormatVec2:    vk.FormatR32g32Sfloat,
	renderer.VertexFormatVec3:    vk.FormatR32g32b32Sfloat,
	renderer.VertexFormatVec4:    vk.FormatR32g32b32a32Sfloat,
}

// VertexInputState converts a vertex layout into the binding and attribute
// descriptions consumed by a graphics pipeline.
func VertexInputState(layout renderer.VertexLayout) (vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription) {
	binding := vk.VertexInputBindingDescription{
		Binding:   layout.Binding,
		Stride:    layout.Stride,
		InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
	}
	attributes := make([]vk.VertexInputAttributeDescription, 0, len(layout.Attributes))
	for _, attr := range layout.Attributes {
		format, ok := vertexFormats[attr.Format]
		if !ok {
			format = vk.FormatUndefined
		}
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Binding:  layout.Binding,
			Location: attr.Location,
			Format:   format,
			Offset:   attr.Offset,
		})
	}
	return binding, attributes
}
