package window

import "github.com/veandco/go-sdl2/sdl"

// EventType classifies an input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventResize
	EventKeyDown
	EventDrag
	EventWheel
	EventClick
)

// Event is a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Keycode
	Width  int
	Height int
	// DX and DY are the drag delta in pixels or the wheel delta.
	DX, DY float32
	X, Y   int
}

// Input turns SDL events into viewer events.
type Input struct {
	events   []Event
	dragging bool
	downX    int32
	downY    int32
}

// NewInput returns an input handler.
func NewInput() *Input {
	return &Input{events: make([]Event, 0, 16)}
}

// Poll drains the SDL queue. It reports whether the viewer should quit.
func (i *Input) Poll() bool {
	i.events = i.events[:0]
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{Type: EventResize, Width: int(e.Data1), Height: int(e.Data2)})
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
				i.events = append(i.events, Event{Type: EventKeyDown, Key: e.Keysym.Sym})
				if e.Keysym.Sym == sdl.K_ESCAPE {
					quit = true
				}
			}

		case *sdl.MouseMotionEvent:
			if i.dragging {
				i.events = append(i.events, Event{Type: EventDrag, DX: float32(e.XRel), DY: float32(e.YRel)})
			}

		case *sdl.MouseButtonEvent:
			if e.Button != sdl.BUTTON_LEFT {
				continue
			}
			if e.Type == sdl.MOUSEBUTTONDOWN {
				i.dragging = true
				i.downX, i.downY = e.X, e.Y
			} else {
				i.dragging = false
				if e.X == i.downX && e.Y == i.downY {
					i.events = append(i.events, Event{Type: EventClick, X: int(e.X), Y: int(e.Y)})
				}
			}

		case *sdl.MouseWheelEvent:
			i.events = append(i.events, Event{Type: EventWheel, DY: float32(e.Y)})
		}
	}
	return quit
}

// Events returns the events of the last Poll.
func (i *Input) Events() []Event {
	return i.events
}
