package animation

import (
	"errors"
	"fmt"
	stdmath "math"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// ErrNotFound is returned by Add when no animation matches.
var ErrNotFound = errors.New("animation: not found")

// Target receives evaluated channel values. scenegraph.Graph implements it.
type Target interface {
	SetTranslation(node int, t math.Vec3)
	SetRotation(node int, r math.Quat)
	SetScale(node int, s math.Vec3)
	SetWeights(node int, w []float32)
}

// Channel binds a sampler to a node property.
type Channel struct {
	Sampler int
	Node    int
	Path    Path
}

// Animation is a set of channels over a shared time range.
type Animation struct {
	Name     string
	Channels []Channel
	Samplers []*Sampler
	Start    float32
	Stop     float32
}

// New builds an animation and derives its time range from the samplers
// its channels use.
func New(name string, channels []Channel, samplers []*Sampler) (*Animation, error) {
	a := &Animation{Name: name, Channels: channels, Samplers: samplers, Start: stdmath.MaxFloat32, Stop: -stdmath.MaxFloat32}
	for _, c := range channels {
		if c.Sampler < 0 || c.Sampler >= len(samplers) {
			return nil, fmt.Errorf("animation %q: channel sampler %d out of range", name, c.Sampler)
		}
		s := samplers[c.Sampler]
		a.Start = min(a.Start, s.Times[0])
		a.Stop = max(a.Stop, s.Times[len(s.Times)-1])
	}
	if len(channels) == 0 {
		a.Start, a.Stop = 0, 0
	}
	return a, nil
}

// Duration returns the keyframe span in seconds.
func (a *Animation) Duration() float32 { return a.Stop - a.Start }

// Animate writes every channel's value at local time t.
func (a *Animation) Animate(t float32, target Target) {
	var buf [16]float32
	for _, c := range a.Channels {
		s := a.Samplers[c.Sampler]
		out := buf[:]
		if s.components > len(buf) {
			out = make([]float32, s.components)
		}
		out = out[:s.components]
		s.Evaluate(t, c.Path == Rotation, out)
		switch c.Path {
		case Translation:
			target.SetTranslation(c.Node, math.Vec3{X: out[0], Y: out[1], Z: out[2]})
		case Rotation:
			target.SetRotation(c.Node, math.QuatFromArray([4]float32(out[:4])))
		case Scale:
			target.SetScale(c.Node, math.Vec3{X: out[0], Y: out[1], Z: out[2]})
		case Weights:
			target.SetWeights(c.Node, out)
		}
	}
}

// Loop controls what happens past the end of an animation.
type Loop int

const (
	LoopNone Loop = iota
	LoopRepeat
	LoopMirroredRepeat
)

// State of a scheduled animation.
type State int

const (
	Stopped State = iota
	Animating
)

// AddOptions schedules an animation by Name, or by Index when Name is empty.
type AddOptions struct {
	Name  string
	Index int
	// StartTime is the scene time to start at; nil starts on the next update.
	StartTime *float64
	Delay     float64
	// StopTime is the scene time to stop at; nil plays to the end.
	StopTime     *float64
	Multiplier   float64
	Reverse      bool
	Loop         Loop
	RemoveOnStop bool
	// OnStart and OnStop are called from Update.
	OnStart func(*Playing)
	OnStop  func(*Playing)
}

// Playing is a scheduled animation.
type Playing struct {
	Animation *Animation
	opts      AddOptions
	start     float64
	started   bool
	state     State
}

// State returns whether the animation is currently playing.
func (p *Playing) State() State { return p.state }

// Collection holds the animations of a model and the ones scheduled to play.
type Collection struct {
	animations []*Animation
	active     []*Playing
	target     Target
}

// NewCollection returns a collection over the model's animations.
func NewCollection(animations []*Animation, target Target) *Collection {
	return &Collection{animations: animations, target: target}
}

// Animations returns the available animations.
func (c *Collection) Animations() []*Animation { return c.animations }

// Len returns the number of scheduled animations.
func (c *Collection) Len() int { return len(c.active) }

// Add schedules one animation.
func (c *Collection) Add(opts AddOptions) (*Playing, error) {
	var anim *Animation
	if opts.Name != "" {
		for _, a := range c.animations {
			if a.Name == opts.Name {
				anim = a
				break
			}
		}
	} else if opts.Index >= 0 && opts.Index < len(c.animations) {
		anim = c.animations[opts.Index]
	}
	if anim == nil {
		return nil, fmt.Errorf("%w: name %q index %d", ErrNotFound, opts.Name, opts.Index)
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 1
	}
	p := &Playing{Animation: anim, opts: opts}
	if opts.StartTime != nil {
		p.start = *opts.StartTime + opts.Delay
		p.started = true
	}
	c.active = append(c.active, p)
	return p, nil
}

// AddAll schedules every animation with the same options.
func (c *Collection) AddAll(opts AddOptions) []*Playing {
	out := make([]*Playing, 0, len(c.animations))
	for i := range c.animations {
		o := opts
		o.Name = ""
		o.Index = i
		p, err := c.Add(o)
		if err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Remove unschedules p.
func (c *Collection) Remove(p *Playing) bool {
	for i, a := range c.active {
		if a == p {
			c.active = append(c.active[:i], c.active[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAll unschedules everything.
func (c *Collection) RemoveAll() {
	c.active = nil
}

// Update advances every scheduled animation to scene time now and reports
// whether any node was written.
func (c *Collection) Update(now float64) bool {
	animated := false
	var finished []*Playing
	for _, p := range c.active {
		if !p.started {
			p.start = now + p.opts.Delay
			p.started = true
		}
		anim := p.Animation
		duration := float64(anim.Duration())
		delta := 0.0
		if duration != 0 {
			delta = (now - p.start) * p.opts.Multiplier / duration
		}
		pastStart := delta >= 0
		repeat := p.opts.Loop != LoopNone
		play := (pastStart || (repeat && p.opts.StartTime == nil)) &&
			(delta <= 1 || repeat) &&
			(p.opts.StopTime == nil || now <= *p.opts.StopTime)

		if !play {
			if pastStart && p.state == Animating {
				p.state = Stopped
				if p.opts.OnStop != nil {
					p.opts.OnStop(p)
				}
				if p.opts.RemoveOnStop {
					finished = append(finished, p)
				}
			}
			continue
		}

		if p.state == Stopped {
			p.state = Animating
			if p.opts.OnStart != nil {
				p.opts.OnStart(p)
			}
		}
		switch p.opts.Loop {
		case LoopRepeat:
			delta -= stdmath.Floor(delta)
		case LoopMirroredRepeat:
			floor := stdmath.Floor(delta)
			fract := delta - floor
			if int64(floor)%2 != 0 {
				delta = 1 - fract
			} else {
				delta = fract
			}
		}
		if p.opts.Reverse {
			delta = 1 - delta
		}
		local := float32(delta*duration) + anim.Start
		local = min(max(local, anim.Start), anim.Stop)
		anim.Animate(local, c.target)
		animated = true
	}
	for _, p := range finished {
		c.Remove(p)
	}
	return animated
}
