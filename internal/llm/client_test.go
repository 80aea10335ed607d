package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatServer(t *testing.T, reply string, capture *ChatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "chatcmpl-1",
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Chat(t *testing.T) {
	var got ChatRequest
	srv := chatServer(t, "hello there", &got)

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	out, err := c.Chat(context.Background(), "be brief", "hi")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if out != "hello there" {
		t.Errorf("reply = %q", out)
	}

	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "be brief" {
		t.Errorf("system message = %+v", got.Messages[0])
	}
	if got.Model == "" {
		t.Error("default model not applied")
	}
}

func TestClient_AuthHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
	if _, err := c.Chat(context.Background(), "", "hi"); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	_, err := c.Chat(context.Background(), "", "hi")
	if err == nil {
		t.Fatal("expected error on 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should include status code: %v", err)
	}
}

func TestAdvisor_InjectsSummary(t *testing.T) {
	var got ChatRequest
	srv := chatServer(t, "spend less on coffee", &got)

	adv := NewAdvisor(NewClient(Config{APIKey: "key", BaseURL: srv.URL}))
	out, err := adv.Advise(context.Background(), "Net worth: $300.00", nil, "how am I doing?")
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if out != "spend less on coffee" {
		t.Errorf("reply = %q", out)
	}

	if len(got.Messages) == 0 || got.Messages[0].Role != "system" {
		t.Fatal("system message missing")
	}
	if !strings.Contains(got.Messages[0].Content, "Net worth: $300.00") {
		t.Error("snapshot summary not in system context")
	}
}

func TestAdvisor_RequiresConfiguration(t *testing.T) {
	adv := NewAdvisor(NewClient(Config{}))
	if _, err := adv.Advise(context.Background(), "", nil, "hi"); err == nil {
		t.Error("expected error without API key")
	}

	adv = NewAdvisor(NewClient(Config{APIKey: "key"}))
	if _, err := adv.Advise(context.Background(), "", nil, "   "); err == nil {
		t.Error("expected error on empty question")
	}
}
