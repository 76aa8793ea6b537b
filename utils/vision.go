package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"go.uber.org/zap"
)

// safeDefaultAnalysis is what every failed vision call degrades to. It is
// deliberately alarming: the user must know the camera can't be trusted
// right now.
func safeDefaultAnalysis() models.SceneAnalysis {
	return models.SceneAnalysis{
		Description: "unable to see clearly",
		Hazard:      "system error",
	}
}

type VisionClient struct {
	APIKey string
	Client *http.Client
}

type gptMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type gptResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type imageContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

func NewVisionClient() *VisionClient {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		zap.L().Warn("OPENAI_API_KEY environment variable not set, vision analysis will degrade to safe defaults")
	}

	return &VisionClient{
		APIKey: apiKey,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// AnalyzeScene narrates one camera frame for the user. The returned
// analysis is always speakable: any transport or parse failure degrades to
// the safe default analysis, with the error reported alongside it so the
// caller can tell a degraded narration from a real one.
func (c *VisionClient) AnalyzeScene(ctx context.Context, imageData []byte, req models.SceneRequest) (models.SceneAnalysis, error) {
	if c.APIKey == "" {
		return safeDefaultAnalysis(), fmt.Errorf("vision capability unavailable: OPENAI_API_KEY is not set")
	}
	if len(imageData) == 0 {
		return safeDefaultAnalysis(), fmt.Errorf("no frame to analyze")
	}

	base64Image := base64.StdEncoding.EncodeToString(imageData)
	imageURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64Image)

	content := []imageContent{
		{
			Type: "text",
			Text: buildScenePrompt(req),
		},
		{
			Type: "image_url",
			ImageURL: &struct {
				URL string `json:"url"`
			}{
				URL: imageURL,
			},
		},
	}

	messages := []gptMessage{
		{
			Role:    "user",
			Content: content,
		},
	}

	requestBody := map[string]interface{}{
		"model":      "gpt-4o",
		"messages":   messages,
		"max_tokens": 1000,
	}

	analysis, err := c.sendRequest(ctx, requestBody)
	if err != nil {
		zap.L().Error("Scene analysis failed, using safe default", zap.Error(err))
		return safeDefaultAnalysis(), err
	}
	return analysis, nil
}

func buildScenePrompt(req models.SceneRequest) string {
	var b strings.Builder

	b.WriteString(`You are the eyes of a visually impaired person walking through a building. Analyze this camera frame and respond with a JSON object containing:
- "description": a concise spatial narration of the surroundings (walkable space, obstacles, doors, people, signage), positions given as clock directions and steps
- "hazard": a short warning if anything in the frame could hurt the person in the next few steps (stairs down, wet floor, glass door, moving cart), otherwise null
- "navigation": a short directional instruction if the frame shows the way toward the navigation target or relevant signage, otherwise null

Return the JSON object only, no other text.`)

	if req.NavigationTarget != "" {
		fmt.Fprintf(&b, "\n\nThe person is trying to reach: %q. Read any visible signs or architectural cues that point toward it.", req.NavigationTarget)
	}
	if req.Question != "" {
		fmt.Fprintf(&b, "\n\nThe person just asked: %q. Fold the answer into the description.", req.Question)
	}

	lang := req.Language
	if lang == "" {
		lang = models.LanguageEnglish
	}
	fmt.Fprintf(&b, "\n\nWrite every field in %s.", lang)

	return b.String()
}

func (c *VisionClient) sendRequest(ctx context.Context, requestBody map[string]interface{}) (models.SceneAnalysis, error) {
	requestBodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return models.SceneAnalysis{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return models.SceneAnalysis{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return models.SceneAnalysis{}, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SceneAnalysis{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return models.SceneAnalysis{}, fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var response gptResponse
	if err := json.Unmarshal(bodyBytes, &response); err != nil {
		return models.SceneAnalysis{}, fmt.Errorf("failed to unmarshal response JSON: %w", err)
	}

	if len(response.Choices) == 0 {
		return models.SceneAnalysis{}, fmt.Errorf("no choices in OpenAI API response")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	zap.L().Debug("Vision response content", zap.String("content", content))

	// The model occasionally wraps the object in a markdown fence.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var analysis struct {
		Description string  `json:"description"`
		Hazard      *string `json:"hazard"`
		Navigation  *string `json:"navigation"`
	}
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return models.SceneAnalysis{}, fmt.Errorf("failed to parse scene analysis JSON: %w", err)
	}
	if analysis.Description == "" {
		return models.SceneAnalysis{}, fmt.Errorf("scene analysis missing description")
	}

	result := models.SceneAnalysis{Description: analysis.Description}
	if analysis.Hazard != nil {
		result.Hazard = strings.TrimSpace(*analysis.Hazard)
	}
	if analysis.Navigation != nil {
		result.Navigation = strings.TrimSpace(*analysis.Navigation)
	}
	return result, nil
}

// VectorizePrompt embeds promptText with the OpenAI embeddings endpoint.
// Used by the spatial registry's semantic search.
func VectorizePrompt(model string, ctx context.Context, promptText string) ([]float32, error) {
	openAIAPIKey := os.Getenv("OPENAI_API_KEY")
	if openAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	requestBody := map[string]interface{}{
		"input": promptText,
		"model": model,
	}
	requestBodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/embeddings", bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+openAIAPIKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var responseData struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &responseData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response JSON: %w", err)
	}

	if len(responseData.Data) == 0 {
		return nil, fmt.Errorf("no data in OpenAI API response")
	}

	return responseData.Data[0].Embedding, nil
}
