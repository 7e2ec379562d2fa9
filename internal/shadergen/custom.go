package shadergen

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// CustomEntryPoint is what the original main of a stage is renamed to when a
// custom shader is spliced in. Custom shaders must call it.
const CustomEntryPoint = "gltf_custom_main"

// DefaultShader runs the original stage unchanged.
const DefaultShader = `
void main(){
  gltf_custom_main();
}`

// revisions is shared by every custom shader so that replacing a registered
// shader with another one also changes the observed revision.
var revisions atomic.Uint64

// CustomShader is a user supplied vertex/fragment pair applied to every model
// whose asset key matches Key. It may be mutated from any goroutine; models
// pick up the change on their next update.
type CustomShader struct {
	mu       sync.RWMutex
	key      string
	vertex   string
	fragment string
	enabled  bool
	revision uint64
}

// CustomShaderOptions configures NewCustomShader. Empty sources fall back to
// DefaultShader and an empty key to a random one.
type CustomShaderOptions struct {
	Key            string
	VertexShader   string
	FragmentShader string
}

// NewCustomShader creates an enabled custom shader.
func NewCustomShader(opts CustomShaderOptions) *CustomShader {
	s := &CustomShader{
		key:      opts.Key,
		vertex:   opts.VertexShader,
		fragment: opts.FragmentShader,
		enabled:  true,
		revision: revisions.Add(1),
	}
	if s.key == "" {
		s.key = uuid.NewString()
	}
	if s.vertex == "" {
		s.vertex = DefaultShader
	}
	if s.fragment == "" {
		s.fragment = DefaultShader
	}
	return s
}

// Key returns the asset key the shader applies to.
func (s *CustomShader) Key() string { return s.key }

// VertexShader returns the vertex source, or DefaultShader when disabled.
func (s *CustomShader) VertexShader() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.enabled {
		return DefaultShader
	}
	return s.vertex
}

// FragmentShader returns the fragment source, or DefaultShader when disabled.
func (s *CustomShader) FragmentShader() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.enabled {
		return DefaultShader
	}
	return s.fragment
}

// SetVertexShader replaces the vertex source.
func (s *CustomShader) SetVertexShader(src string) {
	s.mutate(func() { s.vertex = src })
}

// SetFragmentShader replaces the fragment source.
func (s *CustomShader) SetFragmentShader(src string) {
	s.mutate(func() { s.fragment = src })
}

// Clear resets both stages to DefaultShader.
func (s *CustomShader) Clear() {
	s.mutate(func() {
		s.vertex = DefaultShader
		s.fragment = DefaultShader
	})
}

// Enabled reports whether the sources are applied.
func (s *CustomShader) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SetEnabled toggles the shader.
func (s *CustomShader) SetEnabled(enabled bool) {
	s.mutate(func() { s.enabled = enabled })
}

// Revision changes on every mutation. Models compare it with the revision
// their programs were built from.
func (s *CustomShader) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot is a consistent view of a custom shader.
type Snapshot struct {
	VertexShader   string
	FragmentShader string
	Revision       uint64
}

// Snapshot returns the effective sources and their revision.
func (s *CustomShader) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{VertexShader: DefaultShader, FragmentShader: DefaultShader, Revision: s.revision}
	if s.enabled {
		snap.VertexShader = s.vertex
		snap.FragmentShader = s.fragment
	}
	return snap
}

func (s *CustomShader) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.revision = revisions.Add(1)
	s.mu.Unlock()
}

// Registry maps asset keys to custom shaders.
type Registry struct {
	mu      sync.RWMutex
	shaders map[string]*CustomShader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{shaders: make(map[string]*CustomShader)}
}

// Register installs s under its key, replacing any previous shader.
func (r *Registry) Register(s *CustomShader) *CustomShader {
	r.mu.Lock()
	r.shaders[s.Key()] = s
	r.mu.Unlock()
	return s
}

// Lookup returns the shader registered for key.
func (r *Registry) Lookup(key string) (*CustomShader, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shaders[key]
	return s, ok
}

// Remove unregisters the shader for key.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	delete(r.shaders, key)
	r.mu.Unlock()
}

// Len returns the number of registered shaders.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shaders)
}
