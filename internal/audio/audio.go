// Package audio plays a short positional cue for each grenade explosion.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/ebitengine/oto/v3"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	SampleRate   = 44100
	channelCount = 2

	explosionSeconds = 0.6
	maxDistance      = 60.0
)

// Listener is the ear position and orientation.
type Listener struct {
	Position rl.Vector3
	Forward  rl.Vector3
	Right    rl.Vector3
}

// NewListener derives the right vector from forward and up.
func NewListener(pos, forward, up rl.Vector3) Listener {
	l := Listener{Position: pos}

	// Normalize forward, default to -Z if zero
	if fwdLen := rl.Vector3Length(forward); fwdLen > 0.001 {
		l.Forward = rl.Vector3Scale(forward, 1.0/fwdLen)
	} else {
		l.Forward = rl.Vector3{X: 0, Y: 0, Z: -1}
	}

	right := rl.Vector3CrossProduct(l.Forward, up)
	if rightLen := rl.Vector3Length(right); rightLen > 0.001 {
		l.Right = rl.Vector3Scale(right, 1.0/rightLen)
	} else {
		l.Right = rl.Vector3{X: 1, Y: 0, Z: 0}
	}
	return l
}

// Gains returns the left and right channel gains for a source at pos:
// linear falloff to zero at maxDistance and constant-power panning.
func (l Listener) Gains(pos rl.Vector3) (left, right float32) {
	toSource := rl.Vector3Subtract(pos, l.Position)
	dist := rl.Vector3Length(toSource)
	if dist >= maxDistance {
		return 0, 0
	}
	atten := 1 - dist/maxDistance

	pan := float32(0) // -1 = left, 1 = right
	if dist > 0.001 {
		pan = rl.Vector3DotProduct(rl.Vector3Scale(toSource, 1/dist), l.Right)
	}
	angle := float64(pan+1) * math.Pi / 4
	return atten * float32(math.Cos(angle)), atten * float32(math.Sin(angle))
}

// Synth renders a mono explosion: a decaying noise burst over a falling
// low thump. Output is deterministic for a given seed.
func Synth(sampleRate int, seconds float32, seed uint64) []float32 {
	n := int(float32(sampleRate) * seconds)
	out := make([]float32, n)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	phase := 0.0
	for i := range out {
		t := float64(i) / float64(sampleRate)
		env := math.Exp(-t * 7)

		freq := 90 * math.Exp(-t*3)
		phase += 2 * math.Pi * freq / float64(sampleRate)
		thump := math.Sin(phase)
		noise := rng.Float64()*2 - 1

		out[i] = float32(env * (0.6*noise + 0.4*thump))
	}
	return out
}

// Interleave pans a mono buffer into float32 little-endian stereo frames.
func Interleave(mono []float32, left, right float32) []byte {
	buf := make([]byte, len(mono)*channelCount*4)
	for i, s := range mono {
		binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(s*left))
		binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(s*right))
	}
	return buf
}

// Engine owns the oto context and the cues still playing.
type Engine struct {
	mu       sync.Mutex
	ctx      *oto.Context
	listener Listener
	volume   float32
	cue      []float32
	playing  []*oto.Player
}

var (
	otoContext     *oto.Context
	otoContextOnce sync.Once
	otoContextErr  error
)

func initOtoContext() error {
	otoContextOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: channelCount,
			Format:       oto.FormatFloat32LE,
		}
		var ready chan struct{}
		otoContext, ready, otoContextErr = oto.NewContext(op)
		if otoContextErr != nil {
			return
		}
		<-ready
		log.Println("Audio: oto context initialized")
	})
	return otoContextErr
}

// New opens the audio device. The process can only hold one oto context,
// so every Engine shares it.
func New(volume float32) (*Engine, error) {
	if err := initOtoContext(); err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	return &Engine{
		ctx:      otoContext,
		listener: NewListener(rl.Vector3{}, rl.Vector3{Z: -1}, rl.Vector3{Y: 1}),
		volume:   volume,
		cue:      Synth(SampleRate, explosionSeconds, 1),
	}, nil
}

func (e *Engine) SetListener(pos, forward, up rl.Vector3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = NewListener(pos, forward, up)
}

// Explosion plays the explosion cue at a world position.
func (e *Engine) Explosion(at rl.Vector3) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prune()

	left, right := e.listener.Gains(at)
	if left == 0 && right == 0 {
		return
	}

	p := e.ctx.NewPlayer(bytes.NewReader(Interleave(e.cue, left, right)))
	p.SetVolume(float64(e.volume))
	p.Play()
	e.playing = append(e.playing, p)
}

// prune closes finished players.
func (e *Engine) prune() {
	live := e.playing[:0]
	for _, p := range e.playing {
		if p.IsPlaying() {
			live = append(live, p)
			continue
		}
		if err := p.Close(); err != nil {
			log.Printf("Audio: close player: %v", err)
		}
	}
	clear(e.playing[len(live):])
	e.playing = live
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.playing {
		p.Close()
	}
	e.playing = nil
}
