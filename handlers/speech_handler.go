package handlers

import (
	"context"
	"strings"
	"sync"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"github.com/RainyAlgorithms/visionbuddy/utils"
	"go.uber.org/zap"
)

type remoteSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceModel string) []byte
}

type localSynthesizer interface {
	Speak(text, localeTag string, onDone func()) (func(), error)
}

type audioPlayer interface {
	Play(audio []byte, onDone func()) (func(), error)
}

// SpeechHandler sequences spoken output through the fallback chain: remote
// synthesis first, the local OS synthesizer second. A new utterance always
// preempts the current one rather than queuing behind it, because guidance
// must describe where the user is standing now.
//
// Every playback attempt is stamped with a generation number. A completion
// callback only touches playback state if its generation is still current,
// so a stale callback from a preempted utterance cannot mark a newer one as
// finished.
type SpeechHandler struct {
	logger *zap.Logger
	remote remoteSynthesizer
	player audioPlayer
	local  localSynthesizer

	// onStateChange is notified whenever IsPlaying flips. Optional.
	onStateChange func(models.AudioPlaybackState)

	mu          sync.Mutex
	generation  uint64
	isPlaying   bool
	stopCurrent func()
}

func NewSpeechHandler(logger *zap.Logger, remote remoteSynthesizer, player audioPlayer, local localSynthesizer, onStateChange func(models.AudioPlaybackState)) *SpeechHandler {
	if onStateChange == nil {
		onStateChange = func(models.AudioPlaybackState) {}
	}
	return &SpeechHandler{
		logger:        logger,
		remote:        remote,
		player:        player,
		local:         local,
		onStateChange: onStateChange,
	}
}

// Speak voices text in lang. It cancels whatever is currently playing, then
// walks the fallback chain; if every capability fails the call is a logged
// no-op, never an error surfaced to the user.
func (h *SpeechHandler) Speak(ctx context.Context, text string, lang models.Language) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	h.mu.Lock()
	h.generation++
	gen := h.generation
	if h.stopCurrent != nil {
		h.stopCurrent()
		h.stopCurrent = nil
	}
	h.isPlaying = true
	h.mu.Unlock()
	h.onStateChange(models.AudioPlaybackState{IsPlaying: true, Generation: gen})

	if audio := h.remote.Synthesize(ctx, text, utils.VoiceForLanguage(lang)); audio != nil {
		stop, err := h.player.Play(audio, func() { h.playbackEnded(gen) })
		if err == nil {
			h.adopt(gen, stop)
			return
		}
		h.logger.Warn("Audio playback failed, falling back to local synthesis", zap.Error(err))
	}

	stop, err := h.local.Speak(text, lang.LocaleTag(), func() { h.playbackEnded(gen) })
	if err != nil {
		// Nothing further to fall back to.
		h.logger.Error("Speech output unavailable", zap.Error(err), zap.String("text", text))
		h.playbackEnded(gen)
		return
	}
	h.adopt(gen, stop)
}

// Cancel stops playback unconditionally and invalidates any in-flight
// completion callbacks.
func (h *SpeechHandler) Cancel() {
	h.mu.Lock()
	h.generation++
	gen := h.generation
	if h.stopCurrent != nil {
		h.stopCurrent()
		h.stopCurrent = nil
	}
	wasPlaying := h.isPlaying
	h.isPlaying = false
	h.mu.Unlock()

	if wasPlaying {
		h.onStateChange(models.AudioPlaybackState{IsPlaying: false, Generation: gen})
	}
}

// State returns a snapshot of playback state.
func (h *SpeechHandler) State() models.AudioPlaybackState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return models.AudioPlaybackState{IsPlaying: h.isPlaying, Generation: h.generation}
}

// adopt registers the stop handle for a started playback, unless a newer
// utterance preempted it while synthesis was in flight.
func (h *SpeechHandler) adopt(gen uint64, stop func()) {
	h.mu.Lock()
	if gen != h.generation {
		h.mu.Unlock()
		stop()
		return
	}
	h.stopCurrent = stop
	h.mu.Unlock()
}

// playbackEnded is the completion callback. Stale generations are discarded.
func (h *SpeechHandler) playbackEnded(gen uint64) {
	h.mu.Lock()
	if gen != h.generation {
		h.mu.Unlock()
		h.logger.Debug("Ignoring completion of preempted playback", zap.Uint64("generation", gen))
		return
	}
	h.isPlaying = false
	h.stopCurrent = nil
	h.mu.Unlock()

	h.onStateChange(models.AudioPlaybackState{IsPlaying: false, Generation: gen})
}
