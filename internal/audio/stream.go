package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Cue streams a mono buffer as stereo with fixed channel gains.
type Cue struct {
	samples     []float32
	left, right float64
	pos         int
}

func NewCue(samples []float32, left, right float32) *Cue {
	return &Cue{samples: samples, left: float64(left), right: float64(right)}
}

func (c *Cue) Stream(samples [][2]float64) (n int, ok bool) {
	if c.pos >= len(c.samples) {
		return 0, false
	}
	for i := range samples {
		if c.pos >= len(c.samples) {
			return i, true
		}
		s := float64(c.samples[c.pos])
		samples[i][0] = s * c.left
		samples[i][1] = s * c.right
		c.pos++
	}
	return len(samples), true
}

func (c *Cue) Err() error {
	return nil
}

// Speaker plays cues through beep's speaker, for frontends that do not own
// an oto context of their own.
type Speaker struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	cue         []float32
	volume      float32
	initialized bool
}

func NewSpeaker(volume float32) *Speaker {
	return &Speaker{
		mixer:  &beep.Mixer{},
		cue:    Synth(SampleRate, explosionSeconds, 1),
		volume: volume,
	}
}

// Initialize sets up the audio device
func (s *Speaker) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	sr := beep.SampleRate(SampleRate)
	if err := speaker.Init(sr, sr.N(time.Millisecond*100)); err != nil {
		return err
	}
	speaker.Play(s.mixer)
	s.initialized = true
	return nil
}

// Play mixes in the explosion cue with the given channel gains.
func (s *Speaker) Play(left, right float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized || (left == 0 && right == 0) {
		return
	}
	speaker.Lock()
	s.mixer.Add(NewCue(s.cue, left*s.volume, right*s.volume))
	speaker.Unlock()
}

func (s *Speaker) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return
	}
	speaker.Lock()
	s.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	s.initialized = false
}
