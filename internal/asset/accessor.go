package asset

import (
	"fmt"

	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// PositionBounds returns the min and max corners of a POSITION accessor.
// Declared bounds are used when present; otherwise the data is read.
// Quantized accessors report their decoded bounds.
func (a *Asset) PositionBounds(accessor int) (lo, hi math.Vec3, err error) {
	if accessor < 0 || accessor >= len(a.Accessors) {
		return lo, hi, fmt.Errorf("%w: index %d", ErrInvalidAccessor, accessor)
	}
	acr := a.Accessors[accessor]
	if q := acr.Quantization; q != nil && len(q.DecodedMin) >= 3 && len(q.DecodedMax) >= 3 {
		lo = math.Vec3{X: q.DecodedMin[0], Y: q.DecodedMin[1], Z: q.DecodedMin[2]}
		hi = math.Vec3{X: q.DecodedMax[0], Y: q.DecodedMax[1], Z: q.DecodedMax[2]}
		return lo, hi, nil
	}
	if len(acr.Min) >= 3 && len(acr.Max) >= 3 {
		return math.Vec3FromSlice(acr.Min), math.Vec3FromSlice(acr.Max), nil
	}

	positions, err := modeler.ReadPosition(a.doc, a.doc.Accessors[accessor], nil)
	if err != nil {
		return lo, hi, fmt.Errorf("%w: read positions: %v", ErrInvalidAccessor, err)
	}
	if len(positions) == 0 {
		return lo, hi, nil
	}
	lo = math.Vec3{X: positions[0][0], Y: positions[0][1], Z: positions[0][2]}
	hi = lo
	for _, p := range positions[1:] {
		lo.X, hi.X = minf(lo.X, p[0]), maxf(hi.X, p[0])
		lo.Y, hi.Y = minf(lo.Y, p[1]), maxf(hi.Y, p[1])
		lo.Z, hi.Z = minf(lo.Z, p[2]), maxf(hi.Z, p[2])
	}
	return lo, hi, nil
}

func minf(a, b float32) float32 {
	if b < a {
		return b
	}
	return a
}

func maxf(a, b float32) float32 {
	if b > a {
		return b
	}
	return a
}

// InverseBindMatrices reads the inverse bind matrices of a skin. Joints
// without a matrix get identity.
func (a *Asset) InverseBindMatrices(skin int) ([]math.Mat4, error) {
	if skin < 0 || skin >= len(a.Skins) {
		return nil, fmt.Errorf("asset: skin %d out of range", skin)
	}
	s := a.Skins[skin]
	out := make([]math.Mat4, len(s.Joints))
	for i := range out {
		out[i] = math.Identity()
	}
	if s.InverseBindMatrices == nil {
		return out, nil
	}
	idx := *s.InverseBindMatrices
	if idx < 0 || idx >= len(a.doc.Accessors) {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidAccessor, idx)
	}
	data, err := modeler.ReadAccessor(a.doc, a.doc.Accessors[idx], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: inverse bind matrices: %v", ErrInvalidAccessor, err)
	}
	mats, ok := data.([][4][4]float32)
	if !ok {
		return nil, fmt.Errorf("%w: inverse bind matrices are %T, want MAT4 float", ErrInvalidAccessor, data)
	}
	for i := 0; i < len(mats) && i < len(out); i++ {
		var m math.Mat4
		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				m[c*4+r] = mats[i][c][r]
			}
		}
		out[i] = m
	}
	return out, nil
}

// ReadFloats reads an accessor as a flat float32 slice, decoding normalized
// integer components. It returns the values and the component count.
func (a *Asset) ReadFloats(accessor int) ([]float32, int, error) {
	if accessor < 0 || accessor >= len(a.doc.Accessors) {
		return nil, 0, fmt.Errorf("%w: index %d", ErrInvalidAccessor, accessor)
	}
	data, err := modeler.ReadAccessor(a.doc, a.doc.Accessors[accessor], nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidAccessor, err)
	}
	switch v := data.(type) {
	case []float32:
		return v, 1, nil
	case [][2]float32:
		return flatten(slices2(v)), 2, nil
	case [][3]float32:
		return flatten(slices3(v)), 3, nil
	case [][4]float32:
		return flatten(slices4(v)), 4, nil
	case []uint8:
		return normalize(v, 255), 1, nil
	case []uint16:
		return normalize(v, 65535), 1, nil
	case []int8:
		return normalizeSigned(v, 127), 1, nil
	case []int16:
		return normalizeSigned(v, 32767), 1, nil
	case [][4]int8:
		return normalizeSigned(flatten(slices4(v)), 127), 4, nil
	case [][4]int16:
		return normalizeSigned(flatten(slices4(v)), 32767), 4, nil
	case [][4]uint8:
		return normalize(flatten(slices4(v)), 255), 4, nil
	case [][4]uint16:
		return normalize(flatten(slices4(v)), 65535), 4, nil
	default:
		return nil, 0, fmt.Errorf("%w: unsupported element type %T", ErrInvalidAccessor, data)
	}
}

// AnimationSamplerData reads the keyframe times and output values of an
// animation sampler.
func (a *Asset) AnimationSamplerData(anim, sampler int) (times, values []float32, components int, err error) {
	if anim < 0 || anim >= len(a.Animations) || sampler < 0 || sampler >= len(a.Animations[anim].Samplers) {
		return nil, nil, 0, fmt.Errorf("asset: animation %d sampler %d out of range", anim, sampler)
	}
	s := a.Animations[anim].Samplers[sampler]
	times, n, err := a.ReadFloats(s.Input)
	if err != nil {
		return nil, nil, 0, err
	}
	if n != 1 {
		return nil, nil, 0, fmt.Errorf("%w: animation input must be scalar", ErrInvalidAccessor)
	}
	values, components, err = a.ReadFloats(s.Output)
	if err != nil {
		return nil, nil, 0, err
	}
	return times, values, components, nil
}

func flatten[T any, A ~[]T](v []A) []T {
	out := make([]T, 0, len(v)*4)
	for _, e := range v {
		out = append(out, e...)
	}
	return out
}

func slices2[T any](v [][2]T) [][]T {
	out := make([][]T, len(v))
	for i := range v {
		out[i] = v[i][:]
	}
	return out
}

func slices3[T any](v [][3]T) [][]T {
	out := make([][]T, len(v))
	for i := range v {
		out[i] = v[i][:]
	}
	return out
}

func slices4[T any](v [][4]T) [][]T {
	out := make([][]T, len(v))
	for i := range v {
		out[i] = v[i][:]
	}
	return out
}

func normalize[T ~uint8 | ~uint16](v []T, scale float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x) / scale
	}
	return out
}

func normalizeSigned[T ~int8 | ~int16](v []T, scale float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		f := float32(x) / scale
		if f < -1 {
			f = -1
		}
		out[i] = f
	}
	return out
}
