package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"voicetrim-server-go/internal/domain/eventbus"
	"voicetrim-server-go/internal/domain/governor"
	"voicetrim-server-go/internal/domain/llm"
	"voicetrim-server-go/internal/domain/session"
	sessionstore "voicetrim-server-go/internal/domain/session/store"
	"voicetrim-server-go/internal/domain/tts"
	platformerrors "voicetrim-server-go/internal/platform/errors"
	"voicetrim-server-go/internal/platform/logging"
	"voicetrim-server-go/internal/platform/storage"
)

// ConversationConfig wires the collaborators of the conversation service.
type ConversationConfig struct {
	LLM           llm.Provider
	Governor      *governor.Governor
	TTS           tts.Provider
	Sessions      sessionstore.Store
	Exchanges     *storage.ExchangeRepository // optional
	Logger        *logging.Logger
	SystemPrompt  string
	HistoryWindow int
}

// ConversationService runs the generate -> govern -> synthesize pipeline for
// transcribed utterances. It holds no per-request state and may serve
// independent sessions concurrently.
type ConversationService struct {
	llm           llm.Provider
	governor      *governor.Governor
	tts           tts.Provider
	sessions      sessionstore.Store
	exchanges     *storage.ExchangeRepository
	logger        *logging.Logger
	systemPrompt  string
	historyWindow int
}

// ExchangeResult is the outcome of one full pipeline round.
type ExchangeResult struct {
	SessionID      string
	Utterance      string
	Reply          string
	Verdict        governor.Disposition
	Duration       float64
	DurationBefore float64
	Attempts       int
	Updated        bool
	Audio          []byte
	AudioPath      string
}

// NewConversationService builds the pipeline service.
func NewConversationService(cfg *ConversationConfig) (*ConversationService, error) {
	if cfg.LLM == nil {
		return nil, platformerrors.New(platformerrors.KindBootstrap, "conversation.new", "llm provider is required")
	}
	if cfg.Governor == nil {
		return nil, platformerrors.New(platformerrors.KindBootstrap, "conversation.new", "governor is required")
	}
	if cfg.TTS == nil {
		return nil, platformerrors.New(platformerrors.KindBootstrap, "conversation.new", "tts provider is required")
	}
	if cfg.Sessions == nil {
		return nil, platformerrors.New(platformerrors.KindBootstrap, "conversation.new", "session store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger
	}
	historyWindow := cfg.HistoryWindow
	if historyWindow <= 0 {
		historyWindow = 10
	}

	return &ConversationService{
		llm:           cfg.LLM,
		governor:      cfg.Governor,
		tts:           cfg.TTS,
		sessions:      cfg.Sessions,
		exchanges:     cfg.Exchanges,
		logger:        logger,
		systemPrompt:  cfg.SystemPrompt,
		historyWindow: historyWindow,
	}, nil
}

// Governor exposes the service's governor, e.g. for the prepare_text endpoint.
func (s *ConversationService) Governor() *governor.Governor {
	return s.governor
}

// PrepareText runs only the length governor over an already generated text.
func (s *ConversationService) PrepareText(ctx context.Context, text string) (governor.Verdict, error) {
	return s.governor.Evaluate(ctx, text)
}

// HandleUtterance runs the full pipeline for one transcribed utterance:
// generate a reply from the chat history, govern its spoken length, then
// synthesize speech for the governed text.
func (s *ConversationService) HandleUtterance(ctx context.Context, sessionID, text string) (*ExchangeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, platformerrors.New(platformerrors.KindSession, "conversation.handle", "utterance must not be empty")
	}
	if sessionID == "" {
		sessionID = session.NewID()
	}

	eventbus.Publish(eventbus.EventChatStarted, eventbus.ChatEventData{
		SessionID: sessionID,
		Message:   text,
	})

	reply, err := s.generate(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}

	verdict, err := s.governor.Evaluate(ctx, reply)
	if err != nil {
		eventbus.Publish(eventbus.EventSystemError, eventbus.SystemEventData{
			Level:   "error",
			Message: fmt.Sprintf("governor failed for session %s: %v", sessionID, err),
		})
		return nil, err
	}

	eventbus.Publish(eventbus.EventGovernorVerdict, eventbus.GovernorEventData{
		SessionID:      sessionID,
		Verdict:        string(verdict.Disposition),
		Duration:       verdict.Candidate.EstimatedDuration,
		DurationBefore: verdict.Original.EstimatedDuration,
		Attempts:       verdict.Candidate.Attempt,
	})

	finalText := verdict.Candidate.Text
	synth, err := s.tts.Synthesize(ctx, finalText)
	if err != nil {
		eventbus.Publish(eventbus.EventTTSError, eventbus.SystemEventData{
			Level:   "error",
			Message: fmt.Sprintf("synthesis failed for session %s: %v", sessionID, err),
		})
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "conversation.synthesize",
			"speech synthesis failed", err)
	}

	eventbus.Publish(eventbus.EventTTSCompleted, eventbus.TTSEventData{
		SessionID: sessionID,
		Text:      finalText,
		FilePath:  synth.FilePath,
	})

	s.remember(ctx, sessionID, text, finalText)

	result := &ExchangeResult{
		SessionID:      sessionID,
		Utterance:      text,
		Reply:          finalText,
		Verdict:        verdict.Disposition,
		Duration:       verdict.Candidate.EstimatedDuration,
		DurationBefore: verdict.Original.EstimatedDuration,
		Attempts:       verdict.Candidate.Attempt,
		Updated:        verdict.Updated(),
		Audio:          synth.Audio,
		AudioPath:      synth.FilePath,
	}

	s.record(ctx, result)

	eventbus.Publish(eventbus.EventChatCompleted, eventbus.ChatEventData{
		SessionID: sessionID,
		Message:   finalText,
	})

	return result, nil
}

func (s *ConversationService) generate(ctx context.Context, sessionID, text string) (string, error) {
	messages := make([]llm.Message, 0, s.historyWindow+2)
	if s.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: s.systemPrompt})
	}

	history, err := s.sessions.History(ctx, sessionID, s.historyWindow)
	if err != nil {
		// degraded but answerable: continue without history
		s.logger.WarnTag("Session", "history unavailable for %s: %v", sessionID, err)
	}
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: text})

	start := time.Now()
	reply, err := s.llm.Chat(ctx, messages)
	if err != nil {
		eventbus.Publish(eventbus.EventLLMError, eventbus.SystemEventData{
			Level:   "error",
			Message: fmt.Sprintf("generation failed for session %s: %v", sessionID, err),
		})
		return "", platformerrors.Wrap(platformerrors.KindProvider, "conversation.generate",
			"reply generation failed", fmt.Errorf("%w: %v", governor.ErrGenerationUnavailable, err))
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", platformerrors.New(platformerrors.KindProvider, "conversation.generate", "empty reply from provider")
	}

	eventbus.Publish(eventbus.EventLLMResponse, eventbus.LLMEventData{
		SessionID: sessionID,
		Content:   reply,
		SpentTime: time.Since(start).String(),
	})
	return reply, nil
}

func (s *ConversationService) remember(ctx context.Context, sessionID, utterance, reply string) {
	if err := s.sessions.Append(ctx, sessionID, session.Message{Role: "user", Content: utterance}); err != nil {
		s.logger.WarnTag("Session", "append user message failed: %v", err)
		return
	}
	if err := s.sessions.Append(ctx, sessionID, session.Message{Role: "assistant", Content: reply}); err != nil {
		s.logger.WarnTag("Session", "append assistant message failed: %v", err)
	}
}

func (s *ConversationService) record(ctx context.Context, result *ExchangeResult) {
	if s.exchanges == nil {
		return
	}

	detail, err := json.Marshal(map[string]interface{}{
		"audio_path": result.AudioPath,
		"updated":    result.Updated,
	})
	if err != nil {
		detail = nil
	}

	exchange := &storage.Exchange{
		SessionID:      result.SessionID,
		Utterance:      result.Utterance,
		Reply:          result.Reply,
		Verdict:        string(result.Verdict),
		Duration:       result.Duration,
		DurationBefore: result.DurationBefore,
		Attempts:       result.Attempts,
		Detail:         datatypes.JSON(detail),
	}
	if err := s.exchanges.Save(ctx, exchange); err != nil {
		s.logger.WarnTag("Storage", "record exchange failed: %v", err)
	}
}
