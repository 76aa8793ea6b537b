package handlers

import (
	"context"
	"sync"
	"testing"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"go.uber.org/zap"
)

type fakeRemoteSynth struct {
	mu    sync.Mutex
	audio []byte
	calls []string
}

func (f *fakeRemoteSynth) Synthesize(ctx context.Context, text, voiceModel string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if voiceModel == "" {
		return nil
	}
	return f.audio
}

type fakePlayback struct {
	onDone  func()
	stopped bool
}

type fakePlayer struct {
	mu        sync.Mutex
	playbacks []*fakePlayback
	startErr  error
}

func (f *fakePlayer) Play(audio []byte, onDone func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	pb := &fakePlayback{onDone: onDone}
	f.playbacks = append(f.playbacks, pb)
	return func() { pb.stopped = true }, nil
}

func (f *fakePlayer) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, pb := range f.playbacks {
		if !pb.stopped {
			n++
		}
	}
	return n
}

type localCall struct {
	text   string
	locale string
}

type fakeLocalSynth struct {
	mu       sync.Mutex
	calls    []localCall
	startErr error
	lastDone func()
}

func (f *fakeLocalSynth) Speak(text, localeTag string, onDone func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.calls = append(f.calls, localCall{text: text, locale: localeTag})
	f.lastDone = onDone
	return func() {}, nil
}

func newTestSpeechHandler(remote *fakeRemoteSynth, player *fakePlayer, local *fakeLocalSynth) *SpeechHandler {
	return NewSpeechHandler(zap.NewNop(), remote, player, local, nil)
}

func TestSpeakPreemptsPriorPlayback(t *testing.T) {
	remote := &fakeRemoteSynth{audio: []byte{0x01}}
	player := &fakePlayer{}
	local := &fakeLocalSynth{}
	h := newTestSpeechHandler(remote, player, local)

	h.Speak(context.Background(), "first guidance", models.LanguageEnglish)
	h.Speak(context.Background(), "second guidance", models.LanguageEnglish)

	if got := len(player.playbacks); got != 2 {
		t.Fatalf("expected 2 playback attempts, got %d", got)
	}
	if !player.playbacks[0].stopped {
		t.Fatalf("expected first playback to be stopped by the second utterance")
	}
	if got := player.active(); got != 1 {
		t.Fatalf("expected exactly one active playback, got %d", got)
	}

	// The first utterance's completion callback is stale: it must not clear
	// IsPlaying while the second utterance is still active.
	player.playbacks[0].onDone()
	if state := h.State(); !state.IsPlaying {
		t.Fatalf("stale completion callback cleared IsPlaying for the active utterance")
	}

	player.playbacks[1].onDone()
	if state := h.State(); state.IsPlaying {
		t.Fatalf("expected IsPlaying to clear when the active playback completed")
	}
}

func TestSpeakFallsBackToLocalWhenRemoteReturnsNil(t *testing.T) {
	// French has no remote voice, so the remote capability reports "try
	// next" by returning nil audio.
	remote := &fakeRemoteSynth{audio: []byte{0x01}}
	player := &fakePlayer{}
	local := &fakeLocalSynth{}
	h := newTestSpeechHandler(remote, player, local)

	h.Speak(context.Background(), "tournez à gauche", models.LanguageFrench)

	if got := len(player.playbacks); got != 0 {
		t.Fatalf("expected no remote playback, got %d", got)
	}
	if got := len(local.calls); got != 1 {
		t.Fatalf("expected one local synthesis call, got %d", got)
	}
	if got := local.calls[0].locale; got != "fr-FR" {
		t.Fatalf("expected local synthesis with locale fr-FR, got %q", got)
	}
	if state := h.State(); !state.IsPlaying {
		t.Fatalf("expected IsPlaying while local synthesis runs")
	}

	local.lastDone()
	if state := h.State(); state.IsPlaying {
		t.Fatalf("expected IsPlaying to clear after local synthesis completed")
	}
}

func TestSpeakFallsBackToLocalWhenPlaybackFailsToStart(t *testing.T) {
	remote := &fakeRemoteSynth{audio: []byte{0x01}}
	player := &fakePlayer{startErr: context.DeadlineExceeded}
	local := &fakeLocalSynth{}
	h := newTestSpeechHandler(remote, player, local)

	h.Speak(context.Background(), "turn left", models.LanguageEnglish)

	if got := len(local.calls); got != 1 {
		t.Fatalf("expected local fallback after playback start failure, got %d calls", got)
	}
}

func TestSpeakIsNoOpWhenEveryCapabilityFails(t *testing.T) {
	remote := &fakeRemoteSynth{} // nil audio
	player := &fakePlayer{}
	local := &fakeLocalSynth{startErr: context.DeadlineExceeded}
	h := newTestSpeechHandler(remote, player, local)

	h.Speak(context.Background(), "hello", models.LanguageFrench)

	if state := h.State(); state.IsPlaying {
		t.Fatalf("expected IsPlaying to be false when nothing could play")
	}
}

func TestSpeakIgnoresEmptyText(t *testing.T) {
	remote := &fakeRemoteSynth{audio: []byte{0x01}}
	player := &fakePlayer{}
	local := &fakeLocalSynth{}
	h := newTestSpeechHandler(remote, player, local)

	h.Speak(context.Background(), "   ", models.LanguageEnglish)

	if len(remote.calls) != 0 || len(local.calls) != 0 {
		t.Fatalf("expected no synthesis for blank text")
	}
}

func TestCancelStopsPlaybackAndInvalidatesCompletions(t *testing.T) {
	remote := &fakeRemoteSynth{audio: []byte{0x01}}
	player := &fakePlayer{}
	local := &fakeLocalSynth{}
	h := newTestSpeechHandler(remote, player, local)

	h.Speak(context.Background(), "guidance", models.LanguageEnglish)
	h.Cancel()

	if !player.playbacks[0].stopped {
		t.Fatalf("expected Cancel to stop the active playback")
	}
	if state := h.State(); state.IsPlaying {
		t.Fatalf("expected IsPlaying false after Cancel")
	}

	h.Speak(context.Background(), "newer guidance", models.LanguageEnglish)
	player.playbacks[0].onDone() // stale
	if state := h.State(); !state.IsPlaying {
		t.Fatalf("stale completion after Cancel cleared the newer utterance")
	}
}
