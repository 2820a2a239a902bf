package graph

import (
	"sync"
)

// Node produces one mono sample per frame. Sample is called once per frame,
// in increasing frame order, by the single consumer the node is wired into.
type Node interface {
	Sample(frame int64, t float64) float64
}

// Sink is a node that accepts inputs. Multiple inputs are summed.
type Sink interface {
	Node
	Connect(src Node)
}

// Chain wires nodes in series, each feeding the next, and returns the last.
func Chain(src Node, sinks ...Sink) Node {
	cur := src
	for _, s := range sinks {
		s.Connect(cur)
		cur = s
	}
	return cur
}

// Voice is one one-shot sound: a set of output nodes summed to the
// destination until End.
type Voice struct {
	outputs []Node
	end     float64
}

func NewVoice(end float64) *Voice {
	return &Voice{end: end}
}

// Connect routes a node to the destination.
func (v *Voice) Connect(n Node) { v.outputs = append(v.outputs, n) }

// End is the context time after which the voice is released.
func (v *Voice) End() float64 { return v.end }

// ExtendEnd moves the release time later. Earlier times are ignored.
func (v *Voice) ExtendEnd(t float64) {
	if t > v.end {
		v.end = t
	}
}

func (v *Voice) sample(frame int64, t float64) float64 {
	var s float64
	for _, n := range v.outputs {
		s += n.Sample(frame, t)
	}
	return s
}

// Context owns a sample clock and the voices attached to its destination.
// Process and Play may be called from different goroutines.
type Context struct {
	mu         sync.Mutex
	sampleRate int
	frame      int64
	voices     []*Voice
}

func NewContext(sampleRate int) *Context {
	return &Context{sampleRate: sampleRate}
}

func (c *Context) SampleRate() int { return c.sampleRate }

// CurrentTime is the time of the next frame to be rendered, in seconds.
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.frame) / float64(c.sampleRate)
}

// Play attaches a voice. Voices whose sources start before the current time
// begin sounding immediately.
func (c *Context) Play(v *Voice) {
	if v == nil {
		return
	}
	c.mu.Lock()
	c.voices = append(c.voices, v)
	c.mu.Unlock()
}

// ActiveVoices returns the number of voices not yet released.
func (c *Context) ActiveVoices() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.voices)
}

// Process renders interleaved stereo frames into dst, advancing the clock.
// Voices are mono and feed both channels.
func (c *Context) Process(dst []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := len(dst) / 2
	sr := float64(c.sampleRate)
	for i := 0; i < frames; i++ {
		f := c.frame + int64(i)
		t := float64(f) / sr
		var s float64
		for _, v := range c.voices {
			if t < v.end {
				s += v.sample(f, t)
			}
		}
		dst[2*i] = float32(s)
		dst[2*i+1] = float32(s)
	}
	c.frame += int64(frames)
	c.release(float64(c.frame) / sr)
}

func (c *Context) release(now float64) {
	kept := c.voices[:0]
	for _, v := range c.voices {
		if v.end > now {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(c.voices); i++ {
		c.voices[i] = nil
	}
	c.voices = kept
}
