package headless

import (
	"errors"
	"testing"

	"github.com/Faultbox/midgard-gltf/internal/gfx"
)

func TestCreateAndDestroyCounts(t *testing.T) {
	c := NewDefault()

	vb, err := c.CreateVertexBuffer(make([]byte, 12))
	if err != nil {
		t.Fatalf("CreateVertexBuffer: %v", err)
	}
	ib, err := c.CreateIndexBuffer(make([]byte, 6), gfx.IndexUnsignedShort)
	if err != nil {
		t.Fatalf("CreateIndexBuffer: %v", err)
	}
	if vb.ID() == ib.ID() {
		t.Error("resources must have distinct identities")
	}
	if c.Created(KindBuffer) != 2 || c.Live() != 2 {
		t.Errorf("created=%d live=%d, want 2/2", c.Created(KindBuffer), c.Live())
	}

	if err := vb.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := vb.Destroy(); !errors.Is(err, gfx.ErrDestroyed) {
		t.Errorf("double destroy: want ErrDestroyed, got %v", err)
	}
	if c.Destroyed(KindBuffer) != 1 || c.IsLive(vb.ID()) {
		t.Error("destroyed buffer still reported live")
	}
}

func TestIndexBufferSizeMismatch(t *testing.T) {
	c := NewDefault()
	if _, err := c.CreateIndexBuffer(make([]byte, 5), gfx.IndexUnsignedShort); err == nil {
		t.Error("expected error for odd-sized ushort index buffer")
	}
}

func TestProgramActiveAttributes(t *testing.T) {
	c := NewDefault()
	vs := "attribute vec3 a_position;\nattribute vec3 a_normal;\nuniform mat4 u_mvp;\nvoid main() {}\n"

	p, err := c.CreateProgram(gfx.ProgramDesc{
		VertexSource:       vs,
		AttributeLocations: map[string]int{"a_position": 0, "a_normal": 1, "a_texcoord_0": 2},
	})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	locs := p.AttributeLocations()
	if len(locs) != 2 || locs["a_normal"] != 1 {
		t.Errorf("active attributes: got %v", locs)
	}
}

func TestProgramFailureInjection(t *testing.T) {
	c := NewDefault()
	boom := errors.New("link error")
	c.FailProgram = func(gfx.ProgramDesc) error { return boom }

	if _, err := c.CreateProgram(gfx.ProgramDesc{}); !errors.Is(err, boom) {
		t.Errorf("want injected error, got %v", err)
	}
	if c.Created(KindProgram) != 0 {
		t.Error("failed program must not be counted")
	}
}

func TestTextureAndPickIDs(t *testing.T) {
	c := NewDefault()
	tex, err := c.CreateTexture(gfx.TextureDesc{Image: Solid(4, 2), Sampler: gfx.DefaultSampler()})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	if tex.Width() != 4 || tex.Height() != 2 || tex.SizeInBytes() != 32 {
		t.Errorf("texture dims: %dx%d (%d bytes)", tex.Width(), tex.Height(), tex.SizeInBytes())
	}
	if err := c.DefaultTexture().Destroy(); err != nil {
		t.Errorf("default texture destroy should be a no-op, got %v", err)
	}

	a := c.CreatePickID("a")
	b := c.CreatePickID("b")
	if a.Color() == b.Color() {
		t.Error("pick colors must be unique")
	}
	b.SetOwner("c")
	if b.Owner() != "c" {
		t.Errorf("owner: got %v", b.Owner())
	}
}

func TestRenderStateCacheInterns(t *testing.T) {
	cache := gfx.NewRenderStateCache()
	a := cache.Get(gfx.Opaque(true))
	b := cache.Get(gfx.Opaque(true))
	c := cache.Get(gfx.Opaque(false))
	if a != b {
		t.Error("identical states should share a pointer")
	}
	if a == c || cache.Len() != 2 {
		t.Errorf("distinct states: len=%d", cache.Len())
	}
}
