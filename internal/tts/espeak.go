// Package tts speaks through libespeak-ng.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
vox_init(void)
{
	return espeak_Initialize(AUDIO_OUTPUT_PLAYBACK, 500, NULL, 0);
}

static int
vox_set_voice(const char *lang)
{
	espeak_VOICE spec;
	memset(&spec, 0, sizeof(spec));
	spec.languages = lang;
	return espeak_SetVoiceByProperties(&spec);
}

static int
vox_say(const char *text)
{
	return espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0,
		espeakCHARS_AUTO, NULL, NULL);
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"mitravox/internal/lang"
)

// Espeak plays one utterance at a time on the default output device.
type Espeak struct {
	mu sync.Mutex
}

// NewEspeak initializes the process-wide espeak engine. Call Close once
// when done.
func NewEspeak() (*Espeak, error) {
	if rc := C.vox_init(); rc < 0 {
		return nil, errors.New("espeak_Initialize failed")
	}
	return &Espeak{}, nil
}

// Speak returns when playback ends, or cancels playback when ctx is done.
func (e *Espeak) Speak(ctx context.Context, c lang.Code, text string) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cvoice := C.CString(voiceFor(c))
	defer C.free(unsafe.Pointer(cvoice))
	if rc := C.vox_set_voice(cvoice); int(rc) != 0 {
		return fmt.Errorf("espeak set voice %s: %d", c, int(rc))
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	if rc := C.vox_say(ctext); int(rc) != 0 {
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

// Stop cuts the current utterance and drops queued text.
func (e *Espeak) Stop() {
	C.espeak_Cancel()
}

func (e *Espeak) Close() error {
	if rc := C.espeak_Terminate(); int(rc) != 0 {
		return fmt.Errorf("espeak_Terminate failed: %d", int(rc))
	}
	return nil
}

var voices = map[lang.Code]string{
	lang.English: "en",
	lang.Hindi:   "hi",
	lang.Telugu:  "te",
}

func voiceFor(c lang.Code) string {
	if v, ok := voices[c]; ok {
		return v
	}
	return voices[lang.English]
}
