package utils

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/RainyAlgorithms/visionbuddy/models"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
)

type transcriberCallback struct {
	TranscriptionChannel chan string
	confidenceThreshold  float64
	lang                 string
}

// TranscriberClient streams microphone audio to Deepgram and emits final
// transcripts on its channel, followed by END_OF_SPEECH when the user stops
// talking. A language change requires re-arming: Deepgram fixes the language
// at connection time.
type TranscriberClient struct {
	dgClient *listen.WSCallback
	callback *transcriberCallback

	confidenceThreshold float64
	transcriptionCh     chan string
}

func InitTranscriberClient(lang models.Language, confidenceThreshold float64, transcriptionCh chan string) *TranscriberClient {
	client := &TranscriberClient{
		confidenceThreshold: confidenceThreshold,
		transcriptionCh:     transcriptionCh,
	}
	client.arm(lang)
	return client
}

func (t *TranscriberClient) arm(lang models.Language) {
	apiKey := os.Getenv("DEEPGRAM_API_KEY")
	if apiKey == "" {
		log.Error("DEEPGRAM_API_KEY environment variable not set")
	}

	code := lang.ShortCode()
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Language:       code,
		Encoding:       "linear16",
		SampleRate:     16000,
		Channels:       1,
		Endpointing:    "300",
		InterimResults: true,
		Model:          "nova-3",
	}

	if code != "en" {
		log.Warn("Using multilingual model for non-English language:", code)
		transcriptOptions.Language = "multi"
	}

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}

	callback := &transcriberCallback{
		TranscriptionChannel: t.transcriptionCh,
		confidenceThreshold:  t.confidenceThreshold,
		lang:                 code,
	}

	dgClient, err := listen.NewWebSocketUsingCallback(context.Background(), apiKey, clientOptions, transcriptOptions, callback)
	if err != nil {
		log.Error("ERROR creating LiveTranscription connection:", err)
	}

	t.dgClient = dgClient
	t.callback = callback
}

func (t *TranscriberClient) Connect() {
	if t.dgClient == nil {
		return
	}
	if !t.dgClient.Connect() {
		log.Error("ERROR: Failed to connect to Deepgram WebSocket")
	}
}

// Rearm tears down the current connection and reconnects with the locale of
// the new language. Called after every language switch.
func (t *TranscriberClient) Rearm(lang models.Language) {
	log.Info("Re-arming transcription for language:", lang)
	t.Close()
	t.arm(lang)
	t.Connect()
}

func (t *TranscriberClient) Send(data []byte) error {
	if t.dgClient == nil {
		return nil
	}
	reader := bufio.NewReader(bytes.NewReader(data))
	err := t.dgClient.Stream(reader)
	if err != nil && err != io.EOF {
		log.Error("Error streaming to Deepgram:", err)
		return err
	}
	return nil
}

func (t *TranscriberClient) Close() {
	if t.dgClient != nil {
		t.dgClient.Stop()
	}
}

func (c *transcriberCallback) Open(or *msginterfaces.OpenResponse) error {
	log.Info("Deepgram socket connection opened for language:", c.lang)
	return nil
}

func (c *transcriberCallback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		log.Warn("No transcription alternatives provided")
		return nil
	}

	alternative := mr.Channel.Alternatives[0]
	transcript := strings.TrimSpace(alternative.Transcript)

	if transcript == "" {
		return nil
	}

	if alternative.Confidence < c.confidenceThreshold {
		log.Debug("Discarding low confidence transcript:", transcript)
		return nil
	}

	if mr.IsFinal {
		log.Debug("Final transcript segment received:", transcript)
		c.TranscriptionChannel <- transcript
	} else {
		log.Debug("Interim transcript:", transcript)
	}

	if mr.SpeechFinal {
		log.Debug("Speech final")
		c.TranscriptionChannel <- models.END_OF_SPEECH
	}

	return nil
}

func (c *transcriberCallback) Metadata(md *msginterfaces.MetadataResponse) error {
	log.Debug("Received metadata:", md)
	return nil
}

func (c *transcriberCallback) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	log.Debug("Speech started")
	return nil
}

func (c *transcriberCallback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	log.Debug("Utterance ended")
	c.TranscriptionChannel <- models.END_OF_SPEECH
	return nil
}

func (c *transcriberCallback) Close(cr *msginterfaces.CloseResponse) error {
	log.Info("WebSocket connection closed")
	return nil
}

func (c *transcriberCallback) Error(er *msginterfaces.ErrorResponse) error {
	log.Error("WebSocket error:", er)
	return nil
}

func (c *transcriberCallback) UnhandledEvent(byData []byte) error {
	log.Warn("Unhandled event:", string(byData))
	return nil
}
