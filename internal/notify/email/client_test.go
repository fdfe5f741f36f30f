package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"veo-auth-service/internal/notify"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("api-key", "", "login@veo.example")
	if client.BaseURL != "https://api.sendgrid.com/v3/mail/send" {
		t.Errorf("BaseURL = %q, want default", client.BaseURL)
	}
	if client.From != "login@veo.example" {
		t.Errorf("From = %q", client.From)
	}
	if client.HTTPClient == nil || client.HTTPClient.Timeout != defaultTimeout {
		t.Error("HTTPClient should be set with default timeout")
	}
}

func TestSend_Success(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer api-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		// SendGrid returns 202 Accepted.
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient("api-key", server.URL, "login@veo.example")
	err := client.Send(context.Background(), notify.Message{
		To:      "user@example.com",
		Subject: "Your login link",
		Body:    "https://veo.example/auth/verify?token=abc",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["subject"] != "Your login link" {
		t.Errorf("subject = %v", got["subject"])
	}
	from := got["from"].(map[string]interface{})
	if from["email"] != "login@veo.example" {
		t.Errorf("from = %v", from)
	}
}

func TestSend_NoAPIKey(t *testing.T) {
	client := NewClient("", "http://unused", "login@veo.example")
	if err := client.Send(context.Background(), notify.Message{To: "user@example.com"}); err == nil {
		t.Fatal("Send without API key should return error")
	}
}

func TestSend_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"bad request"}]}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient("api-key", server.URL, "login@veo.example")
	if err := client.Send(context.Background(), notify.Message{To: "user@example.com"}); err == nil {
		t.Fatal("Send should return error on 4xx status")
	}
}
