package model

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// getScale returns the scale to draw at: Scale, grown so the model covers
// at least MinimumPixelSize pixels, capped by MaximumScale.
func (m *Model) getScale(fs *FrameState) float32 {
	scale := m.Scale
	if m.MinimumPixelSize != 0 && m.initialRadius > 0 {
		caps := fs.Context.Capabilities()
		maxPixelSize := float32(max(caps.DrawingBufferWidth, caps.DrawingBufferHeight))
		sphere, _ := m.BoundingSphere()
		if mpp := metersPerPixel(fs.Camera, sphere, caps.DrawingBufferHeight); mpp > 0 {
			diameter := min(2*sphere.Radius/mpp, maxPixelSize)
			if diameter < m.MinimumPixelSize {
				scale = m.MinimumPixelSize * mpp / (2 * m.initialRadius)
			}
		}
	}
	if m.MaximumScale > 0 {
		scale = min(scale, m.MaximumScale)
	}
	return scale
}

// metersPerPixel is the height one pixel covers at the distance of the
// sphere's nearest point.
func metersPerPixel(cam Camera, s math.Sphere, height int) float32 {
	if height <= 0 || cam.FovY <= 0 {
		return 0
	}
	d := max(cam.Position().Distance(s.Center)-s.Radius, 0)
	return 2 * d * math32.Tan(cam.FovY/2) / float32(height)
}
