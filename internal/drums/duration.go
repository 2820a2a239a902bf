package drums

import (
	"math"

	"github.com/cbegin/drumkit-go/internal/kit"
)

// Duration is the buffer length in seconds needed to render one hit of drum
// to silence, including a tail guard. Unknown drums report 0.
func Duration(drum kit.DrumType, p kit.AllDrumParams) float64 {
	switch drum {
	case kit.Kick:
		return p.Kick.AmpDecay + 0.2
	case kit.Snare:
		return math.Max(p.Snare.ToneDecay, p.Snare.NoiseDecay) + 0.2
	case kit.Hihat:
		return p.Hihat.Decay + p.Hihat.Openness/100*0.3 + 0.2
	case kit.Openhat:
		return p.Hihat.Decay + 0.3 + 0.2
	case kit.Clap:
		return p.Clap.Decay + p.Clap.Reverb/100*0.5 + 0.3
	case kit.Tom:
		return p.Tom.Decay + 0.2
	case kit.Rim:
		return p.Rim.Decay*1.5 + 0.2
	}
	return 0
}

// Frames converts a duration to a whole frame count, rounding so that
// 0.7s at 44.1kHz is 30870 frames rather than 30869.
func Frames(sampleRate int, seconds float64) int {
	return int(math.Round(float64(sampleRate) * seconds))
}
