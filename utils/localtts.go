package utils

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// LocalSynthesizer drives the operating system's speech command. It is the
// last link of the speech fallback chain: fire-and-forget with a completion
// notification, and a stop handle so a newer utterance can preempt it.
type LocalSynthesizer struct{}

func NewLocalSynthesizer() *LocalSynthesizer {
	return &LocalSynthesizer{}
}

// Speak starts speaking text in the voice matching localeTag. onDone fires
// once when playback finishes or is killed. The returned stop function kills
// playback; the error is non-nil only when the command could not start.
func (s *LocalSynthesizer) Speak(text, localeTag string, onDone func()) (func(), error) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("say", text)
	case "linux":
		// espeak-ng takes the bare language subtag ("fr"), not a full tag.
		voice := localeTag
		if idx := strings.IndexByte(voice, '-'); idx > 0 {
			voice = voice[:idx]
		}
		cmd = exec.Command("espeak-ng", "-v", voice, text)
	default:
		return nil, fmt.Errorf("no local speech command for %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start local synthesis: %w", err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			zap.L().Debug("Local synthesis ended", zap.Error(err))
		}
		if onDone != nil {
			onDone()
		}
	}()

	stop := func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
	return stop, nil
}
