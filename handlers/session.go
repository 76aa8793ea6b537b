package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"github.com/RainyAlgorithms/visionbuddy/utils"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AssistSession is one connected user: a websocket carrying audio, frames
// and UI triggers in, and transcripts, analyses and status back out. Each
// session owns its turn handler, speech chain and transcription stream.
type AssistSession struct {
	ID            string
	Context       context.Context
	CancelContext context.CancelFunc
	Connection    *websocket.Conn
	RedisClient   *redis.Client
	Logger        *zap.Logger

	State       *SessionState
	Turns       *TurnHandler
	Speech      *SpeechHandler
	Transcriber *utils.TranscriberClient
	Registry    *utils.RegistryClient
	Rewards     *utils.RewardLedger

	TranscriptionCh chan string

	IsActive  bool
	StartTime time.Time

	voiceActive       atomic.Bool
	currentTranscript string

	frameMu     sync.Mutex
	latestFrame []byte

	writeMu  sync.Mutex
	stopOnce sync.Once
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow connections from any origin
	},
}

// WebSocketMessage is the envelope for every message in either direction.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewAssistSession(id string, conn *websocket.Conn, redisClient *redis.Client) *AssistSession {
	ctx, cancel := context.WithCancel(context.Background())
	logger := zap.L().With(zap.String("session_id", id))

	session := &AssistSession{
		ID:            id,
		Context:       ctx,
		CancelContext: cancel,
		Connection:    conn,
		RedisClient:   redisClient,
		Logger:        logger,

		State: NewSessionState(""),

		TranscriptionCh: make(chan string, 100),

		IsActive:  true,
		StartTime: time.Now(),
	}

	return session
}

// HandleAssistSession upgrades the request and runs one assistance session
// until the client disconnects or sends stop.
func HandleAssistSession(w http.ResponseWriter, r *http.Request, redisClient *redis.Client) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("Failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	session := NewAssistSession(sessionID, conn, redisClient)
	session.Logger.Info("New assist session started")

	registry := utils.NewRegistryClient(redisClient)
	session.Registry = registry
	session.Rewards = utils.NewRewardLedger(redisClient)
	if !registry.Available() {
		// Non-fatal: scanning and speech still work, navigation and pins
		// degrade.
		session.sendMessage("status", map[string]interface{}{"registry": "unavailable"})
	}

	session.Speech = NewSpeechHandler(
		session.Logger,
		utils.NewSynthesisClient(),
		utils.NewAudioPlayer(),
		utils.NewLocalSynthesizer(),
		func(state models.AudioPlaybackState) {
			session.sendMessage("speech_state", map[string]interface{}{
				"is_playing": state.IsPlaying,
				"generation": state.Generation,
			})
		},
	)

	session.Transcriber = utils.InitTranscriberClient(session.State.Language(), 0.3, session.TranscriptionCh)
	session.Transcriber.Connect()

	session.Turns = NewTurnHandler(
		session.ID,
		session.Logger,
		session.State,
		utils.NewVisionClient(),
		&clientFrameSource{latest: session.lastPushedFrame, camera: utils.NewFrameCapture()},
		registry,
		NewNavigationHandler(session.Logger, registry),
		session.Speech,
		session.Rewards,
		session.Transcriber,
		session.sendMessage,
	)

	go session.handleTranscripts()
	go session.heartbeat()

	session.listen()

	session.Logger.Info("Assist session ended")
	session.Stop()
}

func (s *AssistSession) listen() {
	for {
		var msg WebSocketMessage
		err := s.Connection.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.Logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "config":
			s.handleConfig(msg.Data)
		case "audio_data":
			s.handleAudioData(msg.Data)
		case "video_frame":
			s.handleVideoFrame(msg.Data)
		case "scan":
			frame := s.takeFrame(msg.Data)
			go s.Turns.HandleScan(s.Context, frame)
		case "voice_toggle":
			s.handleVoiceToggle()
		case "pin":
			go s.Turns.OnPinRequested(s.Context)
		case "language":
			s.handleLanguageSelected(msg.Data)
		case "cancel_navigation":
			go s.Turns.OnNavigationCancelled(s.Context)
		case "verified_nodes":
			s.handleVerifiedNodes()
		case "reward_balance":
			s.handleRewardBalance()
		case "ping":
			s.sendMessage("pong", nil)
		case "stop":
			s.Logger.Info("Received stop command from client")
			s.sendMessage("stop_confirmation", map[string]interface{}{
				"session_id": s.ID,
				"message":    "Session stopped successfully",
			})
			s.Stop()
			return
		default:
			s.Logger.Warn("Unknown message type", zap.String("type", msg.Type))
		}
	}
}

func (s *AssistSession) handleConfig(data interface{}) {
	configData, ok := data.(map[string]interface{})
	if !ok {
		s.Logger.Error("Invalid config data format")
		return
	}

	if buildingID, ok := configData["building_id"].(string); ok && buildingID != "" {
		s.State.SetBuildingID(buildingID)
		s.Logger.Info("Configured building", zap.String("building_id", buildingID))
	}

	if langName, ok := configData["language"].(string); ok {
		if lang, ok := models.ParseLanguage(langName); ok {
			s.State.SetLanguage(lang)
			s.Transcriber.Rearm(lang)
			s.Logger.Info("Configured language", zap.String("language", string(lang)))
		}
	}

	if pos, ok := configData["position"].(map[string]interface{}); ok {
		x, _ := pos["x"].(float64)
		y, _ := pos["y"].(float64)
		s.State.SetPosition(models.Coordinates{X: x, Y: y})
	}

	s.sendMessage("config_updated", map[string]interface{}{
		"building_id": s.State.BuildingID(),
		"language":    string(s.State.Language()),
	})
}

func (s *AssistSession) handleAudioData(data interface{}) {
	if !s.voiceActive.Load() {
		return
	}

	encoded, ok := data.(string)
	if !ok {
		s.Logger.Warn("Unknown audio data format")
		return
	}
	audioBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.Logger.Error("Failed to decode audio data", zap.Error(err))
		return
	}

	if err := s.Transcriber.Send(audioBytes); err != nil {
		s.Logger.Error("Failed to stream audio for transcription", zap.Error(err))
	}
}

func (s *AssistSession) handleVideoFrame(data interface{}) {
	encoded, ok := data.(string)
	if !ok {
		s.Logger.Warn("Unknown video frame format")
		return
	}
	frame, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.Logger.Error("Failed to decode video frame", zap.Error(err))
		return
	}

	s.frameMu.Lock()
	s.latestFrame = frame
	s.frameMu.Unlock()
}

// takeFrame resolves the frame for a scan: one attached to the scan message
// wins; nil lets the turn handler's frame source resolve the rest of the
// chain (latest pushed frame, then host camera).
func (s *AssistSession) takeFrame(data interface{}) []byte {
	if payload, ok := data.(map[string]interface{}); ok {
		if encoded, ok := payload["frame"].(string); ok {
			if frame, err := base64.StdEncoding.DecodeString(encoded); err == nil {
				return frame
			}
		}
	}
	return nil
}

func (s *AssistSession) lastPushedFrame() []byte {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.latestFrame
}

func (s *AssistSession) handleVoiceToggle() {
	if s.voiceActive.Load() {
		s.voiceActive.Store(false)
		s.Turns.StopListening()
		s.Logger.Info("Voice capture stopped")
		s.sendMessage("status", map[string]interface{}{"listening": false})
		return
	}

	if !s.Turns.StartListening() {
		s.Logger.Debug("Voice activation rejected, turn in progress")
		return
	}
	s.voiceActive.Store(true)
	s.Logger.Info("Voice capture started")
	s.sendMessage("status", map[string]interface{}{"listening": true})
}

func (s *AssistSession) handleLanguageSelected(data interface{}) {
	payload, ok := data.(map[string]interface{})
	if !ok {
		s.Logger.Error("Invalid language data format")
		return
	}
	langName, _ := payload["language"].(string)
	lang, ok := models.ParseLanguage(langName)
	if !ok {
		s.Logger.Warn("Unknown language selected", zap.String("language", langName))
		return
	}
	go s.Turns.OnLanguageSelected(s.Context, lang)
}

// handleVerifiedNodes sends the building's golden path nodes so the client
// can offer audited destinations without a spoken round trip.
func (s *AssistSession) handleVerifiedNodes() {
	nodes, err := s.Registry.FetchVerified(s.Context, s.State.BuildingID())
	if err != nil {
		s.Logger.Warn("Failed to fetch verified nodes", zap.Error(err))
		s.sendMessage("status", map[string]interface{}{"verified_nodes": "unavailable"})
		return
	}
	s.sendMessage("verified_nodes", map[string]interface{}{"nodes": nodes})
}

func (s *AssistSession) handleRewardBalance() {
	balance, err := s.Rewards.Balance(s.Context, s.ID)
	if err != nil {
		s.Logger.Warn("Failed to read reward balance", zap.Error(err))
		return
	}
	s.sendMessage("reward", map[string]interface{}{"balance": balance})
}

// handleTranscripts accumulates final transcript segments and closes the
// utterance on the end-of-speech marker, handing the whole utterance to the
// turn handler.
func (s *AssistSession) handleTranscripts() {
	for s.IsActive {
		transcript := <-s.TranscriptionCh
		if transcript == models.SESSION_END {
			s.Logger.Info("Transcript loop received SESSION_END")
			return
		}

		if transcript == models.END_OF_SPEECH {
			utterance := strings.TrimSpace(s.currentTranscript)
			s.currentTranscript = ""
			if utterance == "" {
				continue
			}

			s.Logger.Info("End of speech detected, processing utterance", zap.String("utterance", utterance))
			s.sendMessage("transcript_final", map[string]string{"transcript": utterance})

			s.Turns.HandleVoiceTranscript(s.Context, utterance)

			// Keep listening if the user hasn't toggled the mic off.
			if s.voiceActive.Load() {
				s.Turns.StartListening()
			}
			continue
		}

		if strings.TrimSpace(transcript) != "" {
			s.currentTranscript += transcript + " "
			s.sendMessage("transcript_interim", map[string]string{
				"transcript": strings.TrimSpace(s.currentTranscript),
			})
		}
	}
}

func (s *AssistSession) heartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for s.IsActive {
		select {
		case <-ticker.C:
			s.sendMessage("heartbeat", map[string]interface{}{
				"session_id": s.ID,
				"uptime":     time.Since(s.StartTime).String(),
				"turn_state": s.Turns.TurnState().String(),
			})
		case <-s.Context.Done():
			return
		}
	}
}

func (s *AssistSession) sendMessage(msgType string, data interface{}) {
	msg := WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.Connection.WriteJSON(msg); err != nil {
		s.Logger.Error("Failed to send websocket message", zap.Error(err), zap.String("type", msgType))
	}
}

// Stop tears the session down idempotently: speech is cancelled, the
// transcription stream closed, and the session context cancelled.
func (s *AssistSession) Stop() {
	s.stopOnce.Do(func() {
		s.Logger.Info("Stopping session")
		s.IsActive = false
		s.voiceActive.Store(false)

		if s.Speech != nil {
			s.Speech.Cancel()
		}
		if s.Transcriber != nil {
			s.Transcriber.Close()
		}

		select {
		case s.TranscriptionCh <- models.SESSION_END:
		default:
		}

		s.CancelContext()

		if s.Connection != nil {
			s.Connection.Close()
		}
	})
}
