package handlers

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/RainyAlgorithms/visionbuddy/locale"
	"github.com/RainyAlgorithms/visionbuddy/models"
	"go.uber.org/zap"
)

// TurnState is one step of the turn-taking state machine. StateIdle is the
// only state that accepts a new trigger; triggers arriving mid-turn are
// dropped, not queued, so frame captures and registry writes never overlap.
type TurnState int32

const (
	StateIdle TurnState = iota
	StateCapturing
	StateListening
	StateClassifying
	StateAnalyzing
	StateNavigating
	StatePinning
	StateLanguageSwitching
	StateSpeaking
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateListening:
		return "listening"
	case StateClassifying:
		return "classifying"
	case StateAnalyzing:
		return "analyzing"
	case StateNavigating:
		return "navigating"
	case StatePinning:
		return "pinning"
	case StateLanguageSwitching:
		return "language_switching"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

type sceneAnalyzer interface {
	AnalyzeScene(ctx context.Context, image []byte, req models.SceneRequest) (models.SceneAnalysis, error)
}

type frameSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

// clientFrameSource prefers the most recent frame pushed by the client
// device and falls back to the host camera when none has arrived. Voice and
// scan turns share it, so a camera-less server still sees what the client
// streams.
type clientFrameSource struct {
	latest func() []byte
	camera frameSource
}

func (f *clientFrameSource) Capture(ctx context.Context) ([]byte, error) {
	if frame := f.latest(); frame != nil {
		return frame, nil
	}
	return f.camera.Capture(ctx)
}

type nodeSaver interface {
	Save(ctx context.Context, node models.SpatialNode) (string, error)
}

type speaker interface {
	Speak(ctx context.Context, text string, lang models.Language)
}

type rewardLedger interface {
	Increment(ctx context.Context, userID string) (int64, error)
}

type sttControl interface {
	Rearm(lang models.Language)
}

// TurnHandler is the interaction orchestrator: one instance per session,
// serializing turns through the Idle gate and guaranteeing every turn path
// returns to Idle no matter which step failed.
type TurnHandler struct {
	sessionID string
	logger    *zap.Logger
	state     *SessionState

	vision  sceneAnalyzer
	frames  frameSource
	saver   nodeSaver
	nav     *NavigationHandler
	speech  speaker
	rewards rewardLedger
	stt     sttControl

	// notify pushes a message to the client UI. Never nil.
	notify func(msgType string, data interface{})

	turnState atomic.Int32
}

func NewTurnHandler(
	sessionID string,
	logger *zap.Logger,
	state *SessionState,
	vision sceneAnalyzer,
	frames frameSource,
	saver nodeSaver,
	nav *NavigationHandler,
	speech speaker,
	rewards rewardLedger,
	stt sttControl,
	notify func(msgType string, data interface{}),
) *TurnHandler {
	if notify == nil {
		notify = func(string, interface{}) {}
	}
	return &TurnHandler{
		sessionID: sessionID,
		logger:    logger,
		state:     state,
		vision:    vision,
		frames:    frames,
		saver:     saver,
		nav:       nav,
		speech:    speech,
		rewards:   rewards,
		stt:       stt,
		notify:    notify,
	}
}

// TurnState reports the current state of the machine.
func (h *TurnHandler) TurnState() TurnState {
	return TurnState(h.turnState.Load())
}

// begin claims the Idle gate. It is the only concurrency control across
// turns: a false return means a turn is already running and the trigger is
// dropped.
func (h *TurnHandler) begin(to TurnState) bool {
	if !h.turnState.CompareAndSwap(int32(StateIdle), int32(to)) {
		h.logger.Debug("Trigger rejected, turn in progress",
			zap.String("current", h.TurnState().String()),
			zap.String("requested", to.String()))
		h.notify("status", map[string]interface{}{"busy": true})
		return false
	}
	return true
}

func (h *TurnHandler) advance(to TurnState) {
	h.turnState.Store(int32(to))
}

// finish returns the machine to Idle. Deferred at the top of every turn so
// a failure at any step cannot wedge the session.
func (h *TurnHandler) finish() {
	h.turnState.Store(int32(StateIdle))
}

// HandleScan runs one scan-triggered turn: capture, analyze, speak. frame
// may be a client-pushed image; when nil, the host camera is used. Returns
// whether the turn completed successfully (which is what accrues reward
// credit - engagement, not analysis content).
func (h *TurnHandler) HandleScan(ctx context.Context, frame []byte) bool {
	if !h.begin(StateCapturing) {
		return false
	}
	defer h.finish()

	lang := h.state.Language()

	// Immediate audible acknowledgment; the narration preempts it.
	h.speech.Speak(ctx, locale.Message(lang, locale.KeyScanPrompt, ""), lang)

	if frame == nil {
		captured, err := h.frames.Capture(ctx)
		if err != nil {
			h.logger.Error("Frame capture failed", zap.Error(err))
			h.advance(StateSpeaking)
			h.speech.Speak(ctx, locale.Message(lang, locale.KeyGenericError, ""), lang)
			return false
		}
		frame = captured
	}

	h.advance(StateAnalyzing)
	analysis, err := h.vision.AnalyzeScene(ctx, frame, h.sceneRequest("", lang))
	h.notify("scene_analysis", analysis)

	h.advance(StateSpeaking)
	h.speech.Speak(ctx, scanNarration(analysis), lang)

	if err != nil {
		h.logger.Warn("Scan turn degraded, no reward accrued", zap.Error(err))
		return false
	}

	h.state.SetLastScene(analysis.Description)
	h.accrueReward(ctx)
	return true
}

// HandleVoiceTranscript runs one voice-triggered turn for a completed
// utterance.
func (h *TurnHandler) HandleVoiceTranscript(ctx context.Context, utterance string) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return
	}

	// The voice path arrives from Listening; a directly injected prompt
	// (e.g. typed text) arrives from Idle.
	if !h.turnState.CompareAndSwap(int32(StateListening), int32(StateClassifying)) {
		if !h.begin(StateClassifying) {
			return
		}
	}
	defer h.finish()

	intent := ClassifyIntent(utterance, models.KnownLanguages())
	h.logger.Info("Classified utterance",
		zap.String("utterance", utterance),
		zap.String("intent", string(intent.Kind)))
	h.notify("intent", map[string]interface{}{"kind": string(intent.Kind)})

	switch intent.Kind {
	case models.IntentLanguageSwitch:
		h.advance(StateLanguageSwitching)
		h.switchLanguage(ctx, intent.Language)
	case models.IntentPinLocation:
		h.advance(StatePinning)
		h.pinCurrentLocation(ctx)
	case models.IntentTranslateTo:
		// One-off language override: the persistent language is untouched.
		h.advance(StateAnalyzing)
		h.analyzeAndSpeak(ctx, "", intent.Language)
	case models.IntentNavigateTo:
		h.advance(StateNavigating)
		h.startNavigation(ctx, intent.Target)
	case models.IntentFreeformQuestion:
		h.advance(StateAnalyzing)
		h.analyzeAndSpeak(ctx, intent.Text, h.state.Language())
	}
}

// StartListening claims the Idle gate for voice capture. False means a turn
// is already running and the activation is dropped.
func (h *TurnHandler) StartListening() bool {
	return h.turnState.CompareAndSwap(int32(StateIdle), int32(StateListening))
}

// StopListening releases the gate when the user cancels voice capture
// before an utterance completed. A no-op unless currently listening.
func (h *TurnHandler) StopListening() {
	h.turnState.CompareAndSwap(int32(StateListening), int32(StateIdle))
}

// OnPinRequested is the UI button equivalent of a spoken pin intent.
func (h *TurnHandler) OnPinRequested(ctx context.Context) {
	if !h.begin(StatePinning) {
		return
	}
	defer h.finish()
	h.pinCurrentLocation(ctx)
}

// OnLanguageSelected is the UI picker equivalent of a spoken language
// switch.
func (h *TurnHandler) OnLanguageSelected(ctx context.Context, lang models.Language) {
	if !h.begin(StateLanguageSwitching) {
		return
	}
	defer h.finish()
	h.switchLanguage(ctx, lang)
}

// OnNavigationCancelled clears the navigation target unconditionally. It is
// not a turn: an explicit cancel must work even while a turn is running,
// and nothing else writes navigation state concurrently.
func (h *TurnHandler) OnNavigationCancelled(ctx context.Context) {
	h.state.ClearNavigation()
	lang := h.state.Language()
	h.notify("navigation", nil)
	h.speech.Speak(ctx, locale.Message(lang, locale.KeyNavigationReset, ""), lang)
}

func (h *TurnHandler) switchLanguage(ctx context.Context, lang models.Language) {
	h.state.SetLanguage(lang)
	if h.stt != nil {
		// Recognition locale must follow the active language.
		h.stt.Rearm(lang)
	}
	h.notify("language", map[string]interface{}{"language": string(lang), "locale": lang.LocaleTag()})

	confirmation := locale.Message(lang, locale.KeyLanguageSet, locale.DisplayName(lang))
	h.advance(StateSpeaking)
	h.speech.Speak(ctx, confirmation, lang)
}

func (h *TurnHandler) pinCurrentLocation(ctx context.Context) {
	lang := h.state.Language()

	description := h.state.LastScene()
	if description == "" {
		// Nothing to persist: no scene has been narrated yet. Deliberately
		// not a registry write.
		h.logger.Info("Pin requested with no scene description, skipping")
		h.notify("status", map[string]interface{}{"pin": "nothing_to_save"})
		h.advance(StateSpeaking)
		h.speech.Speak(ctx, locale.Message(lang, locale.KeyPinNothing, ""), lang)
		return
	}

	node := models.SpatialNode{
		BuildingID:  h.state.BuildingID(),
		Coordinates: h.state.Position(),
		Description: description,
	}

	id, err := h.saver.Save(ctx, node)
	if err != nil {
		// A failed save is lost user intent: surface it both on screen and
		// out loud, unlike degraded reads which stay quiet.
		h.logger.Error("Failed to save pinned location", zap.Error(err))
		h.notify("status", map[string]interface{}{"pin": "failed", "error": err.Error()})
		h.advance(StateSpeaking)
		h.speech.Speak(ctx, locale.Message(lang, locale.KeyPinFailed, ""), lang)
		return
	}

	h.logger.Info("Pinned location", zap.String("node_id", id))
	h.notify("status", map[string]interface{}{"pin": "saved", "node_id": id})
	h.advance(StateSpeaking)
	h.speech.Speak(ctx, locale.Message(lang, locale.KeyPinSaved, shortDescription(description)), lang)
}

func (h *TurnHandler) startNavigation(ctx context.Context, target string) {
	lang := h.state.Language()

	navState := h.nav.ResolveTarget(ctx, target, h.state.BuildingID())
	h.state.SetNavigation(navState)
	h.notify("navigation", map[string]interface{}{
		"target":         navState.TargetDescription,
		"registry_match": navState.SourceRegistryMatch,
	})

	h.advance(StateSpeaking)
	if navState.SourceRegistryMatch {
		h.speech.Speak(ctx, locale.Message(lang, locale.KeyNavigatingTo, navState.TargetDescription), lang)
		return
	}
	// Sign hunting: the announcement is this turn's whole output; every
	// scene analysis from here on carries the target so the vision
	// capability can look for it.
	h.speech.Speak(ctx, locale.Message(lang, locale.KeySignHunting, navState.TargetDescription), lang)
}

// analyzeAndSpeak runs the voice-path capture/analyze/speak tail shared by
// freeform questions and translation requests.
func (h *TurnHandler) analyzeAndSpeak(ctx context.Context, question string, lang models.Language) {
	frame, err := h.frames.Capture(ctx)
	if err != nil {
		h.logger.Error("Frame capture failed", zap.Error(err))
		h.advance(StateSpeaking)
		h.speech.Speak(ctx, locale.Message(lang, locale.KeyGenericError, ""), lang)
		return
	}

	analysis, err := h.vision.AnalyzeScene(ctx, frame, h.sceneRequest(question, lang))
	h.notify("scene_analysis", analysis)
	if err == nil {
		h.state.SetLastScene(analysis.Description)
	}

	h.advance(StateSpeaking)
	h.speech.Speak(ctx, voiceNarration(analysis), lang)
}

// sceneRequest applies the request construction policy: the question only
// when the turn had one, the navigation target whenever one is active even
// if the turn is unrelated, and the effective language for this turn.
func (h *TurnHandler) sceneRequest(question string, lang models.Language) models.SceneRequest {
	req := models.SceneRequest{
		Question: question,
		Language: lang,
	}
	if nav := h.state.Navigation(); nav != nil {
		req.NavigationTarget = nav.TargetDescription
	}
	return req
}

func (h *TurnHandler) accrueReward(ctx context.Context) {
	balance, err := h.rewards.Increment(ctx, h.sessionID)
	if err != nil {
		h.logger.Warn("Failed to accrue reward credit", zap.Error(err))
		return
	}
	h.notify("reward", map[string]interface{}{"balance": balance})
}

// scanNarration orders the spoken output for a scan turn: hazard is
// safety-critical and always comes first, then directional guidance, then
// the full description.
func scanNarration(a models.SceneAnalysis) string {
	parts := make([]string, 0, 3)
	if a.Hazard != "" {
		parts = append(parts, a.Hazard)
	}
	if a.Navigation != "" {
		parts = append(parts, a.Navigation)
	}
	if a.Description != "" {
		parts = append(parts, a.Description)
	}
	return strings.Join(parts, " ")
}

// voiceNarration keeps voice-turn answers tight: hazard first, then either
// the directional guidance or the description, not both.
func voiceNarration(a models.SceneAnalysis) string {
	parts := make([]string, 0, 2)
	if a.Hazard != "" {
		parts = append(parts, a.Hazard)
	}
	if a.Navigation != "" {
		parts = append(parts, a.Navigation)
	} else if a.Description != "" {
		parts = append(parts, a.Description)
	}
	return strings.Join(parts, " ")
}

func shortDescription(description string) string {
	const max = 80
	runes := []rune(description)
	if len(runes) <= max {
		return description
	}
	if idx := strings.IndexAny(description, ".;"); idx > 0 && idx < max {
		return description[:idx]
	}
	return string(runes[:max])
}
