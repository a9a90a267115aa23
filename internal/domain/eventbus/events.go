package eventbus

const (
	// LLM events
	EventLLMResponse = "llm:response"
	EventLLMError    = "llm:error"

	// Governor events
	EventGovernorVerdict = "governor:verdict"

	// TTS events
	EventTTSCompleted = "tts:completed"
	EventTTSError     = "tts:error"

	// Conversation events
	EventChatStarted   = "chat:started"
	EventChatCompleted = "chat:completed"

	// System events
	EventSystemError = "system:error"
)

type LLMEventData struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	SpentTime string `json:"spent_time,omitempty"`
}

type GovernorEventData struct {
	SessionID      string  `json:"session_id"`
	Verdict        string  `json:"verdict"`
	Duration       float64 `json:"duration"`
	DurationBefore float64 `json:"duration_before,omitempty"`
	Attempts       int     `json:"attempts"`
}

type TTSEventData struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	FilePath  string `json:"file_path,omitempty"`
}

type ChatEventData struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type SystemEventData struct {
	Level   string      `json:"level"` // error, warn, info
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
