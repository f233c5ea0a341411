package audio

import (
	"context"
	"fmt"

	"voxchat/pkg/audioconv"
)

// File replays an audio file as the captured utterance, for machines
// without a microphone.
type File struct {
	Path string
}

// Record implements voice.Recorder.
func (f File) Record(ctx context.Context) ([]float32, error) {
	pcm, err := audioconv.ConvertFileToPCM16k(ctx, f.Path, audioconv.Options{
		MaxSamples: int(maxUtterance.Seconds()) * SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return pcm, nil
}
