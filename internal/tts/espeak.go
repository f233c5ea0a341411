package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
vox_espeak_init(void)
{
	return espeak_Initialize(AUDIO_OUTPUT_PLAYBACK, 500, NULL, 0);
}

static int
vox_espeak_voice(const char *lang)
{
	espeak_VOICE specs;
	memset(&specs, 0, sizeof(specs));
	specs.languages = lang;
	return espeak_SetVoiceByProperties(&specs);
}

static int
vox_espeak_rate(int rate)
{
	return espeak_SetParameter(espeakRATE, rate, 0);
}

static int
vox_espeak_say(const char *text)
{
	if (!text)
	{ return -1; }

	return espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0,
	                    espeakCHARS_AUTO, NULL, NULL);
}
*/
import "C"

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"unsafe"
)

// Espeak speaks through espeak-ng's own audio output. The library is
// process-global, so only one Espeak should exist.
type Espeak struct {
	lang string
	rate int

	once    sync.Once
	initErr error
}

// NewEspeak selects a voice by language ("en", "ru", ...). rate is words per
// minute; 0 keeps the espeak default.
func NewEspeak(lang string, rate int) *Espeak {
	if lang == "" {
		lang = "en"
	}
	return &Espeak{lang: lang, rate: rate}
}

// Init loads espeak-ng and selects the voice. It runs once; later calls
// return the first result.
func (e *Espeak) Init() error {
	e.once.Do(func() {
		if rc := C.vox_espeak_init(); rc < 0 {
			e.initErr = fmt.Errorf("espeak_Initialize failed: %d", int(rc))
			return
		}

		clang := C.CString(e.lang)
		defer C.free(unsafe.Pointer(clang))
		if rc := C.vox_espeak_voice(clang); rc != 0 {
			log.Warn("espeak voice not found, using default", "lang", e.lang, "rc", int(rc))
		}

		if e.rate > 0 {
			C.vox_espeak_rate(C.int(e.rate))
		}
	})
	return e.initErr
}

// Synthesize implements voice.Synthesizer. It returns when playback ends or
// right after ctx is cancelled and playback has been stopped.
func (e *Espeak) Synthesize(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := e.Init(); err != nil {
		return err
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	if rc := C.vox_espeak_say(ctext); rc != 0 {
		return fmt.Errorf("espeak_Synth failed: %d", int(rc))
	}

	done := make(chan struct{})
	go func() {
		C.espeak_Synchronize()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		C.espeak_Cancel()
		<-done
		return ctx.Err()
	}
}
