package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tanamao/directory/internal/domain/providers"
	"github.com/tanamao/directory/pkg/config"
)

const defaultGraphURL = "https://graph.facebook.com"

// WhatsAppCloudSender sends messages via WhatsApp Cloud API
type WhatsAppCloudSender struct {
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
	baseURL       string
}

var _ providers.MessageSender = (*WhatsAppCloudSender)(nil)

// NewWhatsAppCloudSender creates a sender from configuration.
func NewWhatsAppCloudSender(cfg config.WhatsAppConfig) (*WhatsAppCloudSender, error) {
	if cfg.AccessToken == "" || cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID must be set")
	}
	version := cfg.APIVersion
	if version == "" {
		version = "v18.0"
	}

	return &WhatsAppCloudSender{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       defaultGraphURL + "/" + version,
	}, nil
}

// WithBaseURL points the sender at another API host.
func (w *WhatsAppCloudSender) WithBaseURL(baseURL string) *WhatsAppCloudSender {
	w.baseURL = baseURL
	return w
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText sends a plain text message.
func (w *WhatsAppCloudSender) SendText(ctx context.Context, to, body string) error {
	message := textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
	}
	message.Text.Body = body

	_, err := w.sendMessage(ctx, message)
	return err
}

func (w *WhatsAppCloudSender) sendMessage(ctx context.Context, message any) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)

	jsonData, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("WhatsApp API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out sendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(out.Messages) == 0 {
		return "", fmt.Errorf("no message ID in response")
	}
	return out.Messages[0].ID, nil
}

// LogSender writes messages to the log instead of sending them. It is used
// when WhatsApp delivery is disabled.
type LogSender struct {
	Log func(to, body string)
}

func (l LogSender) SendText(_ context.Context, to, body string) error {
	if l.Log != nil {
		l.Log(to, body)
	}
	return nil
}
