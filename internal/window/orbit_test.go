package window

import (
	"testing"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

func TestOrbitFitSphere(t *testing.T) {
	c := NewOrbitCamera()
	s := math.Sphere{Center: math.Vec3{X: 1, Y: 2, Z: 3}, Radius: 5}
	c.FitSphere(s)

	if c.Center != s.Center {
		t.Errorf("center = %+v, want %+v", c.Center, s.Center)
	}
	if d := c.Position().Distance(s.Center); d < s.Radius*2 {
		t.Errorf("eye %v from the center, inside twice the radius", d)
	}
}

func TestOrbitClamps(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 1e6)
	if c.Pitch != c.MaxPitch {
		t.Errorf("pitch = %v, want %v", c.Pitch, c.MaxPitch)
	}
	c.HandleZoom(1e6)
	if c.Distance != c.MinDistance {
		t.Errorf("distance = %v, want %v", c.Distance, c.MinDistance)
	}
}
