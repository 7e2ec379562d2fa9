package rescache

import (
	"errors"
	"testing"

	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/gfx/headless"
)

func fill(t *testing.T, ctx *headless.Context, b *Bundle) {
	t.Helper()
	buf, err := ctx.CreateVertexBuffer(make([]byte, 12))
	if err != nil {
		t.Fatal(err)
	}
	b.Buffers[0] = buf
	prog, err := ctx.CreateProgram(gfx.ProgramDesc{VertexSource: "void main(){}", FragmentSource: "void main(){}"})
	if err != nil {
		t.Fatal(err)
	}
	b.Programs.Programs[0] = prog
	tex, err := ctx.CreateTexture(gfx.TextureDesc{Image: headless.Solid(2, 2), Sampler: gfx.DefaultSampler()})
	if err != nil {
		t.Fatal(err)
	}
	b.Textures[0] = tex
}

func TestAcquireOutcomes(t *testing.T) {
	c := New()
	first, out := c.Acquire("tank")
	if out != Create || first.Refs() != 1 {
		t.Fatalf("first acquire = %v refs %d", out, first.Refs())
	}

	waiting, out := c.Acquire("tank")
	if out != Wait || waiting != first || first.Refs() != 1 {
		t.Fatalf("acquire of unready bundle = %v refs %d", out, first.Refs())
	}

	first.Ready = true
	second, out := c.Acquire("tank")
	if out != Attach || second != first || first.Refs() != 2 {
		t.Fatalf("acquire of ready bundle = %v refs %d", out, first.Refs())
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestReleaseDestroysOnce(t *testing.T) {
	ctx := headless.NewDefault()
	c := New()
	b, _ := c.Acquire("tank")
	fill(t, ctx, b)
	b.Ready = true
	c.Acquire("tank")

	destroyed, err := c.Release(b)
	if err != nil || destroyed {
		t.Fatalf("first release destroyed=%v err=%v", destroyed, err)
	}
	if ctx.Live() != 3 {
		t.Errorf("live objects = %d, want 3", ctx.Live())
	}

	destroyed, err = c.Release(b)
	if err != nil || !destroyed {
		t.Fatalf("last release destroyed=%v err=%v", destroyed, err)
	}
	if ctx.Live() != 0 {
		t.Errorf("live objects = %d, want 0", ctx.Live())
	}
	if c.Len() != 0 {
		t.Error("entry should be removed")
	}

	if destroyed, err := c.Release(b); destroyed || err != nil {
		t.Error("releasing a destroyed bundle is a no-op")
	}
	if _, out := c.Acquire("tank"); out != Create {
		t.Error("key should be free again")
	}
}

func TestReleaseUnreadyFreesKey(t *testing.T) {
	c := New()
	b, _ := c.Acquire("broken")
	if destroyed, err := c.Release(b); !destroyed || err != nil {
		t.Fatalf("destroyed=%v err=%v", destroyed, err)
	}
	if _, out := c.Acquire("broken"); out != Create {
		t.Error("a failed load should not leave waiters behind")
	}
}

func TestPrivateBundle(t *testing.T) {
	ctx := headless.NewDefault()
	c := New()
	b := Private()
	fill(t, ctx, b)
	if b.Key() != "" || b.Refs() != 1 {
		t.Fatalf("private bundle key=%q refs=%d", b.Key(), b.Refs())
	}
	if b.GeometryByteLength() != 12 || b.TexturesByteLength() != 16 {
		t.Errorf("byte lengths = %d, %d", b.GeometryByteLength(), b.TexturesByteLength())
	}
	if destroyed, err := c.Release(b); !destroyed || err != nil {
		t.Fatalf("destroyed=%v err=%v", destroyed, err)
	}
	if ctx.Live() != 0 {
		t.Errorf("live objects = %d", ctx.Live())
	}
	if c.Len() != 0 {
		t.Error("private bundles are never cached")
	}
}

func TestDestroyAggregatesErrors(t *testing.T) {
	ctx := headless.NewDefault()
	b := Private()
	fill(t, ctx, b)
	// Destroy two objects behind the bundle's back.
	b.Buffers[0].Destroy()
	b.Textures[0].Destroy()

	_, err := New().Release(b)
	if err == nil {
		t.Fatal("expected errors")
	}
	if !errors.Is(err, gfx.ErrDestroyed) {
		t.Errorf("err = %v", err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("aggregated %d errors, want 2", n)
	}
	if ctx.Live() != 0 {
		t.Error("remaining objects must still be destroyed")
	}
}

func TestProgramSetFork(t *testing.T) {
	ctx := headless.NewDefault()
	shared := NewProgramSet()
	p, _ := ctx.CreateProgram(gfx.ProgramDesc{VertexSource: "a", FragmentSource: "b"})
	shared.Programs[0] = p

	private := shared.Fork()
	if len(private.Programs) != 0 {
		t.Fatal("fork should start empty")
	}
	q, _ := ctx.CreateProgram(gfx.ProgramDesc{VertexSource: "c", FragmentSource: "d"})
	private.Programs[0] = q

	if err := shared.DestroyIfNotShared(shared); err != nil {
		t.Fatal(err)
	}
	if !ctx.IsLive(p.ID()) {
		t.Error("shared set must survive")
	}
	if err := private.DestroyIfNotShared(shared); err != nil {
		t.Fatal(err)
	}
	if ctx.IsLive(q.ID()) || !ctx.IsLive(p.ID()) {
		t.Error("only the private program should be destroyed")
	}
}
