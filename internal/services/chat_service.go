package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"solace/internal/audio"
	"solace/internal/cards"
	"solace/internal/config"
	"solace/internal/logging"
	"solace/internal/models"
	"solace/internal/policy"
	"solace/internal/providers"
	"solace/internal/session"
	"solace/internal/text"
)

// ChatRequest is one inbound voice chat turn.
type ChatRequest struct {
	SID       string
	PersonaID string
	APIKey    string // caller-supplied provider credential, passed through
	Filename  string
	Audio     []byte
}

// ChatService sequences the voice pipeline: STT, emotion classification,
// reply generation, TTS, proactive policy check and response assembly.
// All blocking provider calls happen here, never under a session lock.
type ChatService struct {
	store      *session.Store
	engine     *policy.Engine
	builder    *cards.Builder
	provider   *providers.Client
	transcoder *audio.Transcoder
	personas   *PersonaService
	turnlog    *TurnLogService
	metrics    *Metrics
	cfg        *config.Config
}

// NewChatService creates the chat orchestrator.
func NewChatService(
	store *session.Store,
	engine *policy.Engine,
	builder *cards.Builder,
	provider *providers.Client,
	transcoder *audio.Transcoder,
	personas *PersonaService,
	turnlog *TurnLogService,
	metrics *Metrics,
	cfg *config.Config,
) *ChatService {
	return &ChatService{
		store:      store,
		engine:     engine,
		builder:    builder,
		provider:   provider,
		transcoder: transcoder,
		personas:   personas,
		turnlog:    turnlog,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// turnContext carries the per-turn state between pipeline stages.
type turnContext struct {
	req      *ChatRequest
	persona  models.Persona
	userText string
	emotion  *providers.EmotionResult
	silence  time.Duration
	negative bool
	started  time.Time
}

// Process runs one complete chat turn and returns the assembled response.
func (s *ChatService) Process(ctx context.Context, req *ChatRequest) (*models.ChatResponse, error) {
	tc, err := s.prepareTurn(ctx, req)
	if err != nil {
		return nil, err
	}

	messages := s.buildMessages(tc)

	genStart := time.Now()
	reply, annotations, err := s.provider.GenerateReply(ctx, req.APIKey, messages, tc.negative)
	s.metrics.ProviderLatency.WithLabelValues("generate").Observe(time.Since(genStart).Seconds())
	if err != nil {
		s.metrics.RecordChatError("generate")
		return nil, fmt.Errorf("reply generation failed: %w", err)
	}

	var link string
	for _, a := range annotations {
		if a.URL != "" {
			link = a.URL
			break
		}
	}
	return s.finishTurn(ctx, tc, reply, link)
}

// ProcessStream runs the same pipeline but streams reply tokens through
// onToken before the final response is assembled.
func (s *ChatService) ProcessStream(ctx context.Context, req *ChatRequest, onToken func(string)) (*models.ChatResponse, error) {
	tc, err := s.prepareTurn(ctx, req)
	if err != nil {
		return nil, err
	}

	messages := s.buildMessages(tc)

	genStart := time.Now()
	reply, err := s.provider.StreamReply(ctx, req.APIKey, messages, onToken)
	s.metrics.ProviderLatency.WithLabelValues("generate").Observe(time.Since(genStart).Seconds())
	if err != nil {
		s.metrics.RecordChatError("generate")
		return nil, fmt.Errorf("reply generation failed: %w", err)
	}
	return s.finishTurn(ctx, tc, reply, "")
}

// prepareTurn transcodes, transcribes and classifies the utterance, then
// records it in the session. Failures here leave the session's policy
// state untouched.
func (s *ChatService) prepareTurn(ctx context.Context, req *ChatRequest) (*turnContext, error) {
	tc := &turnContext{
		req:     req,
		persona: s.personas.Get(req.PersonaID),
		started: time.Now(),
	}
	s.metrics.ChatRequests.Inc()

	audioData, filename := s.transcodeForSTT(ctx, req)

	sttStart := time.Now()
	userText, err := s.provider.Transcribe(ctx, req.APIKey, filename, audioData)
	s.metrics.ProviderLatency.WithLabelValues("stt").Observe(time.Since(sttStart).Seconds())
	if err != nil {
		s.metrics.RecordChatError("stt")
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	tc.userText = userText

	classifyStart := time.Now()
	emotion, err := s.provider.ClassifyEmotion(ctx, req.APIKey, userText, s.cfg.EmotionVocabulary)
	s.metrics.ProviderLatency.WithLabelValues("classify").Observe(time.Since(classifyStart).Seconds())
	if err != nil {
		// The reply can still proceed without an emotion signal.
		log.Printf("⚠️  [CHAT] Emotion classification failed, continuing neutral: %v", err)
		s.metrics.RecordChatError("classify")
		emotion = &providers.EmotionResult{Percent: map[string]float64{}, TopLabel: ""}
	}
	tc.emotion = emotion
	tc.negative = s.isNegative(emotion.TopLabel)

	nowMs := time.Now().UnixMilli()
	tc.silence = s.store.SilenceSince(req.SID, nowMs)
	if emotion.TopLabel != "" {
		s.store.PushEmotion(req.SID, emotion.TopLabel, emotion.Intensity, emotion.Intensity, nowMs)
	}
	s.store.UpsertTurn(req.SID, models.RoleUser, userText, map[string]interface{}{"ts": nowMs})

	log.Printf("💬 [CHAT] Session %s: %q (emotion: %s, intensity: %.2f)",
		req.SID, logging.RedactPII(tc.userText), emotion.TopLabel, emotion.Intensity)
	return tc, nil
}

// transcodeForSTT converts the upload to the PCM format the STT path
// expects. When ffmpeg is unavailable or conversion fails, the original
// container is sent as-is; Whisper accepts most browser recordings.
func (s *ChatService) transcodeForSTT(ctx context.Context, req *ChatRequest) ([]byte, string) {
	format := strings.TrimPrefix(filepath.Ext(req.Filename), ".")
	if format == "" {
		format = "webm"
	}
	if !s.transcoder.Available() || !audio.IsSupportedFormat(format) {
		return req.Audio, req.Filename
	}

	pcm, err := s.transcoder.ToPCM16(ctx, req.Audio, format)
	if err != nil {
		log.Printf("⚠️  [CHAT] Transcode failed, sending original container: %v", err)
		return req.Audio, req.Filename
	}
	return audio.WrapPCMInWAV(pcm, audio.TargetSampleRate, audio.TargetChannels), "audio.wav"
}

// buildMessages assembles the completion request: persona system prompt,
// recent history, then the emotion-decorated user prompt.
func (s *ChatService) buildMessages(tc *turnContext) []providers.ChatMessage {
	messages := []providers.ChatMessage{
		{Role: "system", Content: tc.persona.SystemPrompt},
	}

	turns := s.store.History(tc.req.SID)
	for _, t := range turns {
		// The freshly recorded user turn is decorated below instead.
		if t.Role == models.RoleUser && t.Text == tc.userText {
			continue
		}
		messages = append(messages, providers.ChatMessage{Role: t.Role, Content: t.Text})
	}

	messages = append(messages, providers.ChatMessage{
		Role:    "user",
		Content: s.decorateUserPrompt(tc),
	})
	return messages
}

func (s *ChatService) decorateUserPrompt(tc *turnContext) string {
	label := tc.emotion.TopLabel
	switch {
	case tc.negative:
		return fmt.Sprintf("%s\n(The user is feeling %q. %s Use web search to find one comforting piece of music or video and include its URL.)\n"+
			"Answer in 2-3 short sentences: one line of empathy, a fitting suggestion, and a brief note on why it helps.",
			tc.userText, label, tc.persona.SuggestTone)
	case label != "":
		return fmt.Sprintf("%s\n(The user is feeling %q. %s Ask what is going on and respond with warmth, 2-3 sentences.)",
			tc.userText, label, tc.persona.EmpathizeTone)
	default:
		return fmt.Sprintf("%s\nAnswer in 2-3 short sentences: one line of empathy, a fitting suggestion, and a brief note on why it helps.",
			tc.userText)
	}
}

// finishTurn post-processes the reply, synthesizes speech, records the
// assistant turn, evaluates the proactive policy and assembles the
// response payload.
func (s *ChatService) finishTurn(ctx context.Context, tc *turnContext, reply, citationLink string) (*models.ChatResponse, error) {
	req := tc.req

	raw := strings.TrimSpace(text.RemoveEmojis(reply))
	if raw == "" {
		raw = "I couldn't put a reply together just yet. Could you say that again?"
	}

	link := citationLink
	if link == "" {
		link = text.ExtractFirstMarkdownURL(raw)
	}

	aiHTML := text.MarkdownToHTML(raw)
	if tc.negative && link != "" {
		aiHTML = text.AppendLink(aiHTML, link, "Listen to the recommendation")
	}

	// TTS never blocks the turn: on failure the client just gets text.
	var audioB64 string
	ttsText := text.StripForTTS(raw)
	if ttsText != "" {
		ttsStart := time.Now()
		speech, err := s.provider.Speak(ctx, req.APIKey, tc.persona.Voice, ttsText)
		s.metrics.ProviderLatency.WithLabelValues("tts").Observe(time.Since(ttsStart).Seconds())
		if err != nil {
			log.Printf("⚠️  [CHAT] Speech synthesis failed: %v", err)
			s.metrics.RecordChatError("tts")
		} else {
			audioB64 = base64.StdEncoding.EncodeToString(speech)
		}
	}

	// Proactive policy: evaluate, then attach a card when a trigger fired.
	topicHint := text.TopicHint(tc.userText)
	decision := s.engine.ShouldSuggest(req.SID, tc.emotion.TopLabel, tc.silence, topicHint)
	s.metrics.RecordDecision(string(decision.Action))

	var card *models.SuggestionCard
	if decision.OK() {
		types := s.engine.ChooseSuggestionTypes(req.SID)
		topic := topicHint
		if topic == "" {
			topic = "-"
		}
		reason := fmt.Sprintf("emotion=%s, silence=%ds, topic=%s",
			tc.emotion.TopLabel, int(tc.silence.Seconds()), topic)
		card = s.builder.Build(types, tc.emotion.TopLabel, reason)
		log.Printf("💡 [POLICY] Session %s: %s (%s)", req.SID, decision.Action, decision.Reason)
	}

	s.store.UpsertTurn(req.SID, models.RoleAssistant, raw, map[string]interface{}{
		"ts":               time.Now().UnixMilli(),
		"proactive_action": string(decision.Action),
	})

	entry := &TurnLog{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		SessionID:      req.SID,
		Persona:        tc.persona.ID,
		UserText:       tc.userText,
		EmotionPercent: tc.emotion.Percent,
		TopEmotion:     tc.emotion.TopLabel,
		AIText:         aiHTML,
		ProactiveCard:  card,
	}
	go s.turnlog.Upload(context.WithoutCancel(ctx), entry)

	s.metrics.ChatRequestLatency.Observe(time.Since(tc.started).Seconds())

	return &models.ChatResponse{
		UserText:       tc.userText,
		AIText:         text.RemoveEmptyParentheses(aiHTML),
		Audio:          audioB64,
		EmotionPercent: tc.emotion.Percent,
		TopEmotion:     tc.emotion.TopLabel,
		Link:           link,
		ProactiveCard:  card,
	}, nil
}

func (s *ChatService) isNegative(label string) bool {
	for _, neg := range s.cfg.NegativeEmotions {
		if label == neg {
			return true
		}
	}
	return false
}
