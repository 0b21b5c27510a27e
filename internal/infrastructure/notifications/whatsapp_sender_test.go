package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanamao/directory/pkg/config"
)

func TestNewWhatsAppCloudSender(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.WhatsAppConfig
		wantErr bool
	}{
		{name: "Valid credentials", cfg: config.WhatsAppConfig{AccessToken: "token", PhoneNumberID: "123"}},
		{name: "Missing access token", cfg: config.WhatsAppConfig{PhoneNumberID: "123"}, wantErr: true},
		{name: "Missing phone number ID", cfg: config.WhatsAppConfig{AccessToken: "token"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewWhatsAppCloudSender(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://graph.facebook.com/v18.0", sender.baseURL)
		})
	}
}

func TestWhatsAppCloudSender_SendText(t *testing.T) {
	var got textMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/123/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer server.Close()

	sender, err := NewWhatsAppCloudSender(config.WhatsAppConfig{AccessToken: "token", PhoneNumberID: "123"})
	require.NoError(t, err)
	sender.WithBaseURL(server.URL)

	err = sender.SendText(context.Background(), "5514998887777", "Olá")
	require.NoError(t, err)
	assert.Equal(t, "5514998887777", got.To)
	assert.Equal(t, "Olá", got.Text.Body)
	assert.Equal(t, "text", got.Type)
}

func TestWhatsAppCloudSender_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid recipient"}}`))
	}))
	defer server.Close()

	sender, err := NewWhatsAppCloudSender(config.WhatsAppConfig{AccessToken: "token", PhoneNumberID: "123"})
	require.NoError(t, err)
	sender.WithBaseURL(server.URL)

	err = sender.SendText(context.Background(), "55", "Olá")
	assert.ErrorContains(t, err, "status 400")
}

func TestLogSender(t *testing.T) {
	var to, body string
	s := LogSender{Log: func(t, b string) { to, body = t, b }}

	require.NoError(t, s.SendText(context.Background(), "5511", "hi"))
	assert.Equal(t, "5511", to)
	assert.Equal(t, "hi", body)
}
