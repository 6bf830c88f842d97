package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIClient_Chat(t *testing.T) {
	t.Run("json object mode against compatible endpoint", func(t *testing.T) {
		var body map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer moon-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			json.NewDecoder(r.Body).Decode(&body)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1700000000,
				"model":   "moonshot-v1-8k",
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": `{"客户名称":"客户"}`,
					},
				}},
				"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 6, "total_tokens": 18},
			})
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "moon-key", BaseURL: server.URL})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "json only"},
				{Role: "user", Content: "match fields"},
			},
			ResponseFormat: &ResponseFormat{Type: "json_schema"},
			MaxTokens:      256,
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}

		if body["model"] != openAIDefaultModel {
			t.Errorf("model = %v", body["model"])
		}
		rf, _ := body["response_format"].(map[string]any)
		if rf["type"] != "json_object" {
			t.Errorf("response_format = %v", body["response_format"])
		}
		if msgs, _ := body["messages"].([]any); len(msgs) != 2 {
			t.Errorf("messages = %v", body["messages"])
		}
		if !result.Success || result.TotalTokens != 18 || result.ModelUsed != "moonshot-v1-8k" {
			t.Errorf("result = %+v", result)
		}
		if string(result.ParsedJSON) != `{"客户名称":"客户"}` {
			t.Errorf("ParsedJSON = %s", result.ParsedJSON)
		}
	})

	t.Run("api error is mapped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x"}},
		})
		if err == nil || !strings.Contains(err.Error(), "400") {
			t.Fatalf("error = %v", err)
		}
		if result.Success || result.ErrorType != "http_error" {
			t.Errorf("result = %+v", result)
		}
	})
}

func TestOpenAIClient_Config(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: MoonshotBaseURL})
	if client.Name() != OpenAIName {
		t.Errorf("Name() = %s", client.Name())
	}
	if client.defaultModel != openAIDefaultModel || client.rps != 3 {
		t.Errorf("defaultModel = %s, rps = %v", client.defaultModel, client.rps)
	}
}
