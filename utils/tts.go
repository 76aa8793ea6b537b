package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"go.uber.org/zap"
)

// SynthesisClient is the remote voice synthesis capability (Deepgram Aura).
// It reports failure by returning nil audio, never an error: the speech
// orchestrator treats nil as "try the next capability in the chain".
type SynthesisClient struct {
	apiKey string
	client *http.Client
}

func NewSynthesisClient() *SynthesisClient {
	apiKey := os.Getenv("DEEPGRAM_API_KEY")
	if apiKey == "" {
		zap.L().Warn("DEEPGRAM_API_KEY environment variable not set, speech will use the local synthesizer")
	}
	return &SynthesisClient{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Aura ships English voices only; other languages skip straight to the
// local synthesizer.
var voiceModels = map[models.Language]string{
	models.LanguageEnglish: "aura-asteria-en",
}

// VoiceForLanguage returns the remote voice model for lang, or "" when the
// remote capability has no voice for it.
func VoiceForLanguage(lang models.Language) string {
	return voiceModels[lang]
}

// Synthesize renders text with the given voice model and returns the audio
// bytes, or nil when credentials are absent, the voice is empty, or the
// remote call fails for any reason.
func (c *SynthesisClient) Synthesize(ctx context.Context, text, voiceModel string) []byte {
	if c.apiKey == "" || voiceModel == "" || text == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		zap.L().Warn("Failed to marshal synthesis request", zap.Error(err))
		return nil
	}

	endpoint := url.URL{
		Scheme:   "https",
		Host:     "api.deepgram.com",
		Path:     "/v1/speak",
		RawQuery: url.Values{"model": {voiceModel}}.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint.String(), bytes.NewReader(body))
	if err != nil {
		zap.L().Warn("Failed to create synthesis request", zap.Error(err))
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		zap.L().Warn("Remote synthesis call failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		zap.L().Warn("Remote synthesis returned error status",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", errBody))
		return nil
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		zap.L().Warn("Failed to read synthesized audio", zap.Error(err))
		return nil
	}
	if len(audio) == 0 {
		return nil
	}

	zap.L().Debug("Synthesized speech remotely", zap.Int("bytes", len(audio)), zap.String("voice", voiceModel))
	return audio
}
