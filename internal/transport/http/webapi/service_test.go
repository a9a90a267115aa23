package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"voicetrim-server-go/internal/app/services"
	"voicetrim-server-go/internal/domain/auth"
	"voicetrim-server-go/internal/domain/governor"
	"voicetrim-server-go/internal/domain/llm"
	sessionstore "voicetrim-server-go/internal/domain/session/store"
	"voicetrim-server-go/internal/domain/tts"
	"voicetrim-server-go/internal/platform/config"
)

type stubLLM struct {
	reply string
}

func (s *stubLLM) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return s.reply, nil
}
func (s *stubLLM) Initialize() error { return nil }
func (s *stubLLM) Cleanup() error    { return nil }

type stubRewriter struct {
	shortened string
}

func (s *stubRewriter) Shorten(ctx context.Context, text string, maxDuration float64, targetWords int) (string, error) {
	return s.shortened, nil
}

type stubTTS struct{}

func (s *stubTTS) Synthesize(ctx context.Context, text string) (*tts.Result, error) {
	return &tts.Result{Audio: []byte("mp3"), FilePath: "tmp/test.mp3", Duration: 1}, nil
}
func (s *stubTTS) SetVoice(voice string) error { return nil }
func (s *stubTTS) Initialize() error           { return nil }
func (s *stubTTS) Cleanup() error              { return nil }

func newTestRouter(t *testing.T, reply, shortened string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions, err := sessionstore.New(sessionstore.Config{Driver: "memory", TTL: time.Minute})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	t.Cleanup(func() { sessions.Close(context.Background()) })

	gov, err := governor.New(governor.Policy{MaxDuration: 8, MaxAttempts: 2},
		governor.NewWordRateEstimator(), &stubRewriter{shortened: shortened}, nil)
	if err != nil {
		t.Fatalf("governor: %v", err)
	}

	conversation, err := services.NewConversationService(&services.ConversationConfig{
		LLM:      &stubLLM{reply: reply},
		Governor: gov,
		TTS:      &stubTTS{},
		Sessions: sessions,
	})
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}

	cfg := config.DefaultConfig()
	svc, err := NewService(cfg, conversation, nil, nil)
	if err != nil {
		t.Fatalf("webapi: %v", err)
	}

	engine := gin.New()
	api := engine.Group("/api")
	if err := svc.Register(context.Background(), api); err != nil {
		t.Fatalf("register: %v", err)
	}
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func TestPrepareTextShortInput(t *testing.T) {
	engine := newTestRouter(t, "unused", "unused")

	recorder := postJSON(t, engine, "/api/prepare_text", map[string]string{"text": "short enough text"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["updated"] != false {
		t.Fatalf("updated = %v, want false", resp["updated"])
	}
	if resp["duration"].(float64) != 1.0 {
		t.Fatalf("duration = %v, want 1.0", resp["duration"])
	}
	if _, ok := resp["text"]; ok {
		t.Fatal("unmodified input must not echo text back")
	}
	if _, ok := resp["duration_before"]; ok {
		t.Fatal("unmodified input must not carry duration_before")
	}
}

func TestPrepareTextLongInput(t *testing.T) {
	long := strings.Repeat("word ", 40)
	engine := newTestRouter(t, "unused", "a short rewrite fits")

	recorder := postJSON(t, engine, "/api/prepare_text", map[string]string{"text": long})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["updated"] != true {
		t.Fatalf("updated = %v, want true", resp["updated"])
	}
	if resp["text"] != "a short rewrite fits" {
		t.Fatalf("text = %v, want the rewrite", resp["text"])
	}
	if resp["duration_before"].(float64) <= resp["duration"].(float64) {
		t.Fatalf("duration_before should exceed duration: %v vs %v", resp["duration_before"], resp["duration"])
	}
	if resp["verdict"] != string(governor.ShortenedAccepted) {
		t.Fatalf("verdict = %v, want %s", resp["verdict"], governor.ShortenedAccepted)
	}
}

func TestPrepareTextMissingText(t *testing.T) {
	engine := newTestRouter(t, "unused", "unused")

	recorder := postJSON(t, engine, "/api/prepare_text", map[string]string{})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", recorder.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["message"] != `The "text" field is required.` {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestChatEndpoint(t *testing.T) {
	engine := newTestRouter(t, "Hello, right on time.", "unused")

	recorder := postJSON(t, engine, "/api/chat", map[string]string{"text": "hi there"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["reply"] != "Hello, right on time." {
		t.Fatalf("reply = %v", resp["reply"])
	}
	if resp["session_id"] == "" {
		t.Fatal("expected an assigned session id")
	}
	if resp["verdict"] != string(governor.Accepted) {
		t.Fatalf("verdict = %v, want %s", resp["verdict"], governor.Accepted)
	}
}

func TestChatMissingText(t *testing.T) {
	engine := newTestRouter(t, "unused", "unused")

	recorder := postJSON(t, engine, "/api/chat", map[string]string{"session_id": "abc"})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", recorder.Code)
	}
}

func TestExchangesWithoutStorage(t *testing.T) {
	engine := newTestRouter(t, "unused", "unused")

	req := httptest.NewRequest(http.MethodGet, "/api/exchanges", nil)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", recorder.Code)
	}
}

func TestSystemEndpoint(t *testing.T) {
	engine := newTestRouter(t, "unused", "unused")

	req := httptest.NewRequest(http.MethodGet, "/api/system", nil)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}

	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success envelope")
	}
	if resp.Data["max_duration"].(float64) != 8 {
		t.Fatalf("max_duration = %v, want 8", resp.Data["max_duration"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	token := auth.NewToken("test-secret")

	engine := gin.New()
	secured := engine.Group("/api")
	secured.Use(AuthMiddleware(token, nil))
	secured.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"client_id": c.GetString("client_id")})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", recorder.Code)
	}

	signed, err := token.Generate("client-42")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	recorder = httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}
	if !strings.Contains(recorder.Body.String(), "client-42") {
		t.Fatalf("client id not propagated: %s", recorder.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	recorder = httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", recorder.Code)
	}
}
