package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/genai"
)

func TestOpenAIClient_GenerateSendsHeadersAndParsesUsage(t *testing.T) {
	var gotReferer, gotTitle, gotPath string
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"Do **squats**."},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	c := NewOpenAI("key", srv.URL+"/v1", "test-model", "https://example.org", "HealthMentor")
	resp, err := c.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gotPath != "/v1/chat/completions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotReferer != "https://example.org" || gotTitle != "HealthMentor" {
		t.Fatalf("openrouter headers missing: %q %q", gotReferer, gotTitle)
	}
	if gotBody.Model != "test-model" || len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if resp.Content != "Do **squats**." || resp.TotalTokens != 15 || resp.PromptTokens != 10 || resp.Model != "test-model" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","model":"m","choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAI("key", srv.URL+"/v1", "m", "", "")
	if _, err := c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", err)
	}
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, Content: "r"},
		{Role: RoleSystem, Content: "b"},
	})
	if system != "a\n\nb" {
		t.Fatalf("system = %q", system)
	}
	if len(contents) != 2 || contents[0].Role != "user" || contents[1].Role != "model" || contents[1].Parts[0].Text != "r" {
		t.Fatalf("unexpected contents: %+v", contents)
	}
}

func TestGeminiTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: "Eat "},
			{Text: "protein."},
		}},
	}}}
	if got := geminiText(resp); got != "Eat protein." {
		t.Fatalf("geminiText = %q", got)
	}
	if geminiText(nil) != "" || geminiText(&genai.GenerateContentResponse{}) != "" {
		t.Fatalf("empty responses should give empty text")
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	f := &Factory{}
	if _, err := f.CreateClient(context.Background(), "nope", "m"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	if _, err := f.CreateClient(context.Background(), ProviderGemini, ""); err == nil {
		t.Fatalf("expected error for missing gemini key")
	}
	c, err := f.CreateClient(context.Background(), "OpenAI", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("openai client: %v", err)
	}
	if _, ok := c.(*OpenAIClient); !ok {
		t.Fatalf("want *OpenAIClient, got %T", c)
	}
}
