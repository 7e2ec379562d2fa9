package math

// Axis names the up (or forward) axis of an asset.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	default:
		return "Z"
	}
}

// ParseAxis accepts "x", "y" or "z" in either case; anything else is Z.
func ParseAxis(s string) Axis {
	switch s {
	case "x", "X":
		return AxisX
	case "y", "Y":
		return AxisY
	default:
		return AxisZ
	}
}

// Axis conversion matrices for assets authored with a non-Z up axis.
var (
	YUpToZUp = Mat4{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, -1, 0, 0,
		0, 0, 0, 1,
	}
	XUpToZUp = Mat4{
		0, 0, 1, 0,
		0, 1, 0, 0,
		-1, 0, 0, 0,
		0, 0, 0, 1,
	}
	ZUpToXUp = Mat4{
		0, 0, -1, 0,
		0, 1, 0, 0,
		1, 0, 0, 0,
		0, 0, 0, 1,
	}
)
