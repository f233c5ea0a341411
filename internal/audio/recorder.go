package audio

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"

	"voxchat/internal/voice"
)

const (
	SampleRate = 16000

	frameSize        = 320 // 20ms
	silenceThreshRMS = 0.015
	trailingSilence  = 600 * time.Millisecond
	maxUtterance     = 10 * time.Second
	// waitForSpeech bounds how long the mic stays open before anyone talks.
	waitForSpeech = 8 * time.Second
)

// Mic records one utterance from the default input device and ends it after
// a stretch of trailing silence.
type Mic struct{}

func NewMic() *Mic { return &Mic{} }

func (m *Mic) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("init portaudio: %w", err)
	}
	return nil
}

func (m *Mic) Close() {
	portaudio.Terminate()
}

// Record implements voice.Recorder.
func (m *Mic) Record(ctx context.Context) ([]float32, error) {
	if _, err := portaudio.DefaultInputDevice(); err != nil {
		return nil, fmt.Errorf("no input device: %v: %w", err, voice.ErrUnsupported)
	}

	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %v: %w", err, voice.ErrPermissionDenied)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %v: %w", err, voice.ErrPermissionDenied)
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)

	frameDur := time.Second * frameSize / SampleRate
	maxFrames := int(maxUtterance / frameDur)
	idleFrames := int(waitForSpeech / frameDur)
	silenceLimit := int(trailingSilence / frameDur)

	for i := 0; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input stream: %w", err)
		}

		if frameRMS(buf) > silenceThreshRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}

		if !speaking {
			if i >= idleFrames {
				return nil, voice.ErrNoSpeech
			}
			continue
		}

		silenceFrames++
		out = append(out, buf...)
		if silenceFrames >= silenceLimit {
			break
		}
	}

	if !speaking {
		return nil, voice.ErrNoSpeech
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
