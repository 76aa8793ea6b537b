package utils

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// AudioPlayer plays synthesized audio through an OS media player. Audio is
// staged in a temp file that is removed when playback ends.
type AudioPlayer struct{}

func NewAudioPlayer() *AudioPlayer {
	return &AudioPlayer{}
}

// Play starts playing audio and returns a stop handle that kills playback.
// onDone fires once when playback finishes or is killed.
func (p *AudioPlayer) Play(audio []byte, onDone func()) (func(), error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("no audio to play")
	}

	tmp, err := os.CreateTemp("", "visionbuddy-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to stage audio: %w", err)
	}
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to stage audio: %w", err)
	}
	tmp.Close()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("afplay", tmp.Name())
	case "linux":
		cmd = exec.Command("ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", tmp.Name())
	default:
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("no audio player for %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to start audio playback: %w", err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			zap.L().Debug("Audio playback ended", zap.Error(err))
		}
		os.Remove(tmp.Name())
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
