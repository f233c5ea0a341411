package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// blankAudio is what whisper emits for input without speech.
const blankAudio = "[BLANK_AUDIO]"

type Options struct {
	Language string // "auto" or a two-letter code
	Threads  int    // <=0 => NumCPU()
}

// Transcriber wraps a loaded whisper.cpp model. Each call gets a fresh
// decoding context, so one Transcriber may serve captures one after another.
type Transcriber struct {
	model whisper.Model
	opt   Options
}

func NewTranscriber(modelPath string, opt Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	if opt.Language == "" {
		opt.Language = "auto"
	}
	if opt.Threads <= 0 {
		opt.Threads = runtime.NumCPU()
	}

	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Transcriber{model: m, opt: opt}, nil
}

func (t *Transcriber) Close() error {
	return t.model.Close()
}

// Transcribe decodes mono 16 kHz samples and returns the trimmed text, or ""
// when whisper heard nothing. A cancelled ctx stops decoding before the
// encoder runs and between segments.
func (t *Transcriber) Transcribe(ctx context.Context, pcm16k []float32) (string, error) {
	if len(pcm16k) == 0 {
		return "", errors.New("no audio samples provided")
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("new context: %w", err)
	}
	if err := wctx.SetLanguage(t.opt.Language); err != nil {
		return "", fmt.Errorf("set language %q: %w", t.opt.Language, err)
	}
	wctx.SetThreads(uint(t.opt.Threads))

	proceed := func() bool { return ctx.Err() == nil }
	if err := wctx.Process(pcm16k, proceed, nil, nil); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("process: %w", err)
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		parts = append(parts, s.Text)
	}

	return joinSegments(parts), nil
}

func joinSegments(parts []string) string {
	var kept []string
	for _, p := range parts {
		p = strings.TrimSpace(strings.ReplaceAll(p, blankAudio, ""))
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
