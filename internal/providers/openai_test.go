package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(baseURL string) *Client {
	return NewClient(Config{BaseURL: baseURL})
}

func TestTranscribe(t *testing.T) {
	var gotAuth, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("Failed to parse multipart form: %v", err)
		}
		gotModel = r.FormValue("model")
		if r.FormValue("response_format") != "text" {
			t.Errorf("Expected response_format text, got %s", r.FormValue("response_format"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Expected a file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "audio.wav" {
			t.Errorf("Expected filename audio.wav, got %s", header.Filename)
		}
		fmt.Fprint(w, "hello there\n")
	}))
	defer server.Close()

	client := testClient(server.URL)
	text, err := client.Transcribe(context.Background(), "sk-test", "audio.wav", []byte("fake-audio"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello there" {
		t.Errorf("Expected trimmed transcript, got %q", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Expected pass-through credential, got %q", gotAuth)
	}
	if gotModel != DefaultSTTModel {
		t.Errorf("Expected model %s, got %s", DefaultSTTModel, gotModel)
	}
}

func TestTranscribe_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "Invalid API key"}}`)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Transcribe(context.Background(), "bad", "a.webm", []byte("x"))
	if err == nil {
		t.Fatal("Expected an error for 401 response")
	}
	if !strings.Contains(err.Error(), "Invalid API key") {
		t.Errorf("Expected provider message surfaced, got %v", err)
	}
}

func completionResponse(content string) string {
	payload := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func TestClassifyEmotion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ResponseFormat map[string]string `json:"response_format"`
			Messages       []ChatMessage     `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.ResponseFormat["type"] != "json_object" {
			t.Errorf("Expected JSON mode, got %v", req.ResponseFormat)
		}
		if !strings.Contains(req.Messages[0].Content, "joy, anger, sadness") {
			t.Errorf("Expected vocabulary in system prompt, got %q", req.Messages[0].Content)
		}
		fmt.Fprint(w, completionResponse(`{"percent": {"sadness": 62, "joy": 10}, "top_emotion": "sadness"}`))
	}))
	defer server.Close()

	result, err := testClient(server.URL).ClassifyEmotion(context.Background(), "sk", "I feel down",
		[]string{"joy", "anger", "sadness"})
	if err != nil {
		t.Fatalf("ClassifyEmotion failed: %v", err)
	}
	if result.TopLabel != "sadness" {
		t.Errorf("Expected top label sadness, got %s", result.TopLabel)
	}
	if result.Intensity != 0.62 {
		t.Errorf("Expected intensity 0.62, got %v", result.Intensity)
	}
}

func TestClassifyEmotion_MalformedDegradesToNeutral(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionResponse("I cannot classify that, sorry!"))
	}))
	defer server.Close()

	result, err := testClient(server.URL).ClassifyEmotion(context.Background(), "sk", "hi",
		[]string{"joy", "anger"})
	if err != nil {
		t.Fatalf("Expected malformed JSON to degrade, got error: %v", err)
	}
	if result.TopLabel != "joy" {
		t.Errorf("Expected neutral default 'joy', got %s", result.TopLabel)
	}
	if result.Intensity != 0 {
		t.Errorf("Expected zero intensity, got %v", result.Intensity)
	}
}

func TestGenerateReply_SearchModelAndAnnotations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Model != DefaultSearchModel {
			t.Errorf("Expected search model, got %s", req.Model)
		}
		fmt.Fprint(w, `{"choices": [{"message": {
			"content": "Try this calming playlist.",
			"annotations": [{"type": "url_citation", "url_citation": {"url": "https://example.com/playlist", "start_index": 4, "end_index": 8}}]
		}}]}`)
	}))
	defer server.Close()

	reply, annotations, err := testClient(server.URL).GenerateReply(context.Background(), "sk",
		[]ChatMessage{{Role: "user", Content: "hi"}}, true)
	if err != nil {
		t.Fatalf("GenerateReply failed: %v", err)
	}
	if reply != "Try this calming playlist." {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if len(annotations) != 1 || annotations[0].URL != "https://example.com/playlist" {
		t.Errorf("Expected one citation, got %+v", annotations)
	}
}

func TestGenerateReply_DefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model       string   `json:"model"`
			Temperature *float64 `json:"temperature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Model != DefaultChatModel {
			t.Errorf("Expected chat model, got %s", req.Model)
		}
		if req.Temperature == nil {
			t.Error("Expected temperature set for the non-search path")
		}
		fmt.Fprint(w, completionResponse("hello!"))
	}))
	defer server.Close()

	reply, annotations, err := testClient(server.URL).GenerateReply(context.Background(), "sk",
		[]ChatMessage{{Role: "user", Content: "hi"}}, false)
	if err != nil {
		t.Fatalf("GenerateReply failed: %v", err)
	}
	if reply != "hello!" {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if len(annotations) != 0 {
		t.Errorf("Expected no annotations, got %+v", annotations)
	}
}

func TestStreamReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{"Hel", "lo ", "there"}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"choices\": [{\"delta\": {\"content\": %q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	var tokens []string
	reply, err := testClient(server.URL).StreamReply(context.Background(), "sk",
		[]ChatMessage{{Role: "user", Content: "hi"}}, func(tok string) {
			tokens = append(tokens, tok)
		})
	if err != nil {
		t.Fatalf("StreamReply failed: %v", err)
	}
	if reply != "Hello there" {
		t.Errorf("Expected assembled reply 'Hello there', got %q", reply)
	}
	if len(tokens) != 3 {
		t.Errorf("Expected 3 token callbacks, got %d", len(tokens))
	}
}

func TestSpeak(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
			Voice string `json:"voice"`
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Voice != "alloy" {
			t.Errorf("Expected voice alloy, got %s", req.Voice)
		}
		if req.Model != DefaultTTSModel {
			t.Errorf("Expected model %s, got %s", DefaultTTSModel, req.Model)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	audio, err := testClient(server.URL).Speak(context.Background(), "sk", "alloy", "hello")
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("Expected raw audio bytes back, got %q", audio)
	}
}
