// Package loadres tracks the work a model still has to do while loading:
// fetched bytes, pending fetch counters, per-kind creation queues and the
// gates of the one-shot creation stages.
package loadres

import (
	"image"

	"github.com/Faultbox/midgard-gltf/internal/jobs"
)

// IndexBuffer is a buffer view waiting to become an index buffer.
type IndexBuffer struct {
	BufferView    int
	ComponentType int
}

// Texture is a decoded image waiting to be uploaded.
type Texture struct {
	ID    int
	Image *image.RGBA
}

// Resources is the load-time state of one model. It is discarded once the
// model finishes loading.
type Resources struct {
	Buffers map[int][]byte
	Shaders map[int]string

	VertexBuffersToCreate *Queue[int]
	IndexBuffersToCreate  *Queue[IndexBuffer]
	ProgramsToCreate      *Queue[int]
	TexturesToCreate      *Queue[Texture]

	PendingBufferLoads  int
	PendingShaderLoads  int
	PendingTextureLoads int

	// Parsed is set once the asset tables have been walked.
	Parsed bool

	CreateSamplers          bool
	CreateSkins             bool
	CreateRuntimeAnimations bool
	CreateVertexArrays      bool
	CreateRenderStates      bool
	CreateUniformMaps       bool
	CreateRuntimeNodes      bool
}

// New returns resources with every one-shot stage still to run.
func New() *Resources {
	return &Resources{
		Buffers:                 make(map[int][]byte),
		Shaders:                 make(map[int]string),
		VertexBuffersToCreate:   NewQueue[int](8),
		IndexBuffersToCreate:    NewQueue[IndexBuffer](8),
		ProgramsToCreate:        NewQueue[int](8),
		TexturesToCreate:        NewQueue[Texture](8),
		CreateSamplers:          true,
		CreateSkins:             true,
		CreateRuntimeAnimations: true,
		CreateVertexArrays:      true,
		CreateRenderStates:      true,
		CreateUniformMaps:       true,
		CreateRuntimeNodes:      true,
	}
}

// FinishedPendingBufferLoads reports whether every buffer fetch has landed.
func (r *Resources) FinishedPendingBufferLoads() bool {
	return r.PendingBufferLoads == 0
}

// FinishedBuffersCreation reports whether all GPU buffers exist.
func (r *Resources) FinishedBuffersCreation() bool {
	return r.PendingBufferLoads == 0 &&
		r.VertexBuffersToCreate.IsEmpty() &&
		r.IndexBuffersToCreate.IsEmpty()
}

// FinishedProgramCreation reports whether all programs are linked.
func (r *Resources) FinishedProgramCreation() bool {
	return r.PendingShaderLoads == 0 && r.ProgramsToCreate.IsEmpty()
}

// FinishedTextureCreation reports whether every texture is uploaded or given up on.
func (r *Resources) FinishedTextureCreation() bool {
	return r.PendingTextureLoads == 0 && r.TexturesToCreate.IsEmpty()
}

// FinishedEverythingButTextureCreation reports whether the model could draw
// with placeholder textures.
func (r *Resources) FinishedEverythingButTextureCreation() bool {
	return r.Parsed &&
		r.FinishedBuffersCreation() &&
		r.FinishedProgramCreation() &&
		!r.CreateSamplers &&
		!r.CreateSkins &&
		!r.CreateRuntimeAnimations &&
		!r.CreateVertexArrays &&
		!r.CreateRenderStates &&
		!r.CreateUniformMaps &&
		!r.CreateRuntimeNodes
}

// Finished reports whether nothing is left to load.
func (r *Resources) Finished() bool {
	return r.FinishedEverythingButTextureCreation() && r.FinishedTextureCreation()
}

// ReleaseBuffers drops the fetched buffer bytes.
func (r *Resources) ReleaseBuffers() {
	r.Buffers = nil
}

// Drain pops items off q in FIFO order and hands each to create through
// exec. It stops when the queue is empty, when exec refuses the job (the
// item stays at the head for the next frame) or when create fails. It
// returns how many items were consumed.
func Drain[T any](q *Queue[T], exec jobs.Executor, t jobs.JobType, create func(T) error) (int, error) {
	n := 0
	for {
		item, ok := q.Peek()
		if !ok {
			return n, nil
		}
		ran, err := exec.Execute(jobs.JobFunc(func() error { return create(item) }), t)
		if !ran {
			return n, nil
		}
		q.Dequeue()
		n++
		if err != nil {
			return n, err
		}
	}
}
