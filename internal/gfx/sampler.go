package gfx

// Texture wrap and filter modes (GL enum values, as stored in glTF samplers).
const (
	WrapRepeat         = 10497
	WrapClampToEdge    = 33071
	WrapMirroredRepeat = 33648

	FilterNearest              = 9728
	FilterLinear               = 9729
	FilterNearestMipmapNearest = 9984
	FilterLinearMipmapNearest  = 9985
	FilterNearestMipmapLinear  = 9986
	FilterLinearMipmapLinear   = 9987
)

// Sampler holds texture sampling parameters.
type Sampler struct {
	WrapS     int
	WrapT     int
	MinFilter int
	MagFilter int
}

// DefaultSampler is used when a texture references no sampler.
func DefaultSampler() Sampler {
	return Sampler{
		WrapS:     WrapRepeat,
		WrapT:     WrapRepeat,
		MinFilter: FilterLinear,
		MagFilter: FilterLinear,
	}
}

// UsesMipmaps reports whether the minification filter samples mip levels.
func (s Sampler) UsesMipmaps() bool {
	switch s.MinFilter {
	case FilterNearestMipmapNearest, FilterLinearMipmapNearest, FilterNearestMipmapLinear, FilterLinearMipmapLinear:
		return true
	}
	return false
}
