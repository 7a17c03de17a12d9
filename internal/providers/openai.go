package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Models used for each pipeline stage. Overridable via config.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultSTTModel    = "whisper-1"
	DefaultChatModel   = "gpt-4o"
	DefaultSearchModel = "gpt-4o-mini-search-preview"
	DefaultTTSModel    = "gpt-4o-mini-tts"
)

// ChatMessage is one message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Annotation is a URL citation attached to a search-model reply.
type Annotation struct {
	URL        string
	StartIndex int
	EndIndex   int
}

// EmotionResult is the classifier output consumed by the orchestrator.
// Intensity is derived from the percent mapping of the top label.
type EmotionResult struct {
	Percent   map[string]float64 `json:"percent"`
	TopLabel  string             `json:"top_emotion"`
	Intensity float64            `json:"-"`
}

// Config selects the provider endpoint and models.
type Config struct {
	BaseURL     string
	STTModel    string
	ChatModel   string
	SearchModel string
	TTSModel    string
	RateLimit   float64 // outbound requests per second, 0 disables
}

// Client is a thin OpenAI-compatible HTTP client. The API key is
// caller-supplied per request and passed through, never stored.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a provider client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.STTModel == "" {
		cfg.STTModel = DefaultSTTModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.SearchModel == "" {
		cfg.SearchModel = DefaultSearchModel
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = DefaultTTSModel
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit*2)+1)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Whisper and TTS can take a while for long audio
		},
		limiter: limiter,
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Transcribe sends audio to the Whisper endpoint and returns the
// transcript text.
func (c *Client) Transcribe(ctx context.Context, apiKey, filename string, audioData []byte) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model", c.cfg.STTModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return "", fmt.Errorf("failed to write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	log.Printf("🎵 [PROVIDER] Transcribing %s (%d bytes, model: %s)", filename, len(audioData), c.cfg.STTModel)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError("transcription", resp.StatusCode, respBody)
	}
	return strings.TrimSpace(string(respBody)), nil
}

// emotion classifier system prompt; the vocabulary is substituted in.
const emotionPromptFmt = `Classify the emotional state of the following utterance across this emotion vocabulary: %s. ` +
	`Respond as JSON of the form {"percent": {"<label>": <0-100>, ...}, "top_emotion": "<label>"}.`

// ClassifyEmotion asks the chat model for a percent-by-label emotion
// breakdown. A malformed response degrades to a neutral default rather
// than erroring; only transport failures are returned.
func (c *Client) ClassifyEmotion(ctx context.Context, apiKey, utterance string, vocabulary []string) (*EmotionResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"model": c.cfg.ChatModel,
		"messages": []ChatMessage{
			{Role: "system", Content: fmt.Sprintf(emotionPromptFmt, strings.Join(vocabulary, ", "))},
			{Role: "user", Content: utterance},
		},
		"temperature":     0.0,
		"max_tokens":      200,
		"response_format": map[string]string{"type": "json_object"},
	}

	respBody, err := c.postJSON(ctx, apiKey, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}

	content, err := firstChoiceContent(respBody)
	if err != nil {
		return nil, err
	}

	result := &EmotionResult{Percent: map[string]float64{}}
	if err := json.Unmarshal([]byte(content), result); err != nil || result.TopLabel == "" {
		// Degrade to a neutral signal; the policy engine treats it as no hit.
		log.Printf("⚠️  [PROVIDER] Emotion JSON did not parse, using neutral default")
		return &EmotionResult{Percent: map[string]float64{}, TopLabel: neutralLabel(vocabulary)}, nil
	}
	result.Intensity = result.Percent[result.TopLabel] / 100.0
	if result.Intensity > 1 {
		result.Intensity = 1
	}
	return result, nil
}

func neutralLabel(vocabulary []string) string {
	if len(vocabulary) > 0 {
		return vocabulary[0]
	}
	return "neutral"
}

// GenerateReply runs a chat completion. useSearch selects the
// web-search-enabled model, whose replies may carry URL citations.
func (c *Client) GenerateReply(ctx context.Context, apiKey string, messages []ChatMessage, useSearch bool) (string, []Annotation, error) {
	if err := c.wait(ctx); err != nil {
		return "", nil, err
	}

	model := c.cfg.ChatModel
	payload := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}
	if useSearch {
		model = c.cfg.SearchModel
		payload["model"] = model
	} else {
		payload["temperature"] = 0.7
		payload["max_tokens"] = 512
	}

	respBody, err := c.postJSON(ctx, apiKey, "/chat/completions", payload)
	if err != nil {
		return "", nil, err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content     string `json:"content"`
				Annotations []struct {
					Type        string `json:"type"`
					URLCitation struct {
						URL        string `json:"url"`
						StartIndex int    `json:"start_index"`
						EndIndex   int    `json:"end_index"`
					} `json:"url_citation"`
				} `json:"annotations"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil, fmt.Errorf("completion response had no choices")
	}

	msg := parsed.Choices[0].Message
	annotations := make([]Annotation, 0, len(msg.Annotations))
	for _, a := range msg.Annotations {
		if a.Type == "url_citation" {
			annotations = append(annotations, Annotation{
				URL:        a.URLCitation.URL,
				StartIndex: a.URLCitation.StartIndex,
				EndIndex:   a.URLCitation.EndIndex,
			})
		}
	}
	return msg.Content, annotations, nil
}

// StreamReply runs a streaming chat completion, invoking onToken for
// each content delta, and returns the assembled reply text.
func (c *Client) StreamReply(ctx context.Context, apiKey string, messages []ChatMessage, onToken func(string)) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"model":       c.cfg.ChatModel,
		"messages":    messages,
		"temperature": 0.7,
		"max_tokens":  512,
		"stream":      true,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", apiError("stream completion", resp.StatusCode, respBody)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			token := chunk.Choices[0].Delta.Content
			full.WriteString(token)
			if onToken != nil {
				onToken(token)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream read failed: %w", err)
	}
	return full.String(), nil
}

// Speak synthesizes speech for the reply text and returns raw audio bytes.
func (c *Client) Speak(ctx context.Context, apiKey, voice, text string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"model": c.cfg.TTSModel,
		"voice": voice,
		"input": text,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/speech", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("speech", resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (c *Client) postJSON(ctx context.Context, apiKey, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(path, resp.StatusCode, respBody)
	}
	return respBody, nil
}

func firstChoiceContent(respBody []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func apiError(op string, status int, body []byte) error {
	var errorResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
		return fmt.Errorf("%s API error (%d): %s", op, status, errorResp.Error.Message)
	}
	return fmt.Errorf("%s API error (%d)", op, status)
}
