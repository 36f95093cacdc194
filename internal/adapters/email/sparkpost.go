package email

// Package email delivers transactional mail through the SparkPost
// transmissions API.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/veduta/accounts-api/internal/ports"
)

// Config captures the subset of SparkPost behaviour we need.
type Config struct {
	// BaseURL is the API root including the version path,
	// e.g. https://api.sparkpost.com/api/v1.
	BaseURL string
	APIKey  string
	// Sender is the from/reply-to address, e.g. support@example.com.
	Sender string
	// AppBaseURL, when set, turns the token into an absolute reset link in
	// the mail body, e.g. https://app.example.com.
	AppBaseURL string
	Timeout    time.Duration
	Client     *http.Client
}

// SparkPost delivers password reset tokens over the SparkPost API.
type SparkPost struct {
	baseURL    string
	apiKey     string
	sender     string
	appBaseURL string
	client     *http.Client
}

// NewSparkPost builds a SparkPost mailer. Callers should pass a validated config.
func NewSparkPost(cfg Config) (*SparkPost, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("sparkpost base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sparkpost api key is required")
	}
	if strings.TrimSpace(cfg.Sender) == "" {
		return nil, errors.New("sender address is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &SparkPost{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		sender:     strings.TrimSpace(cfg.Sender),
		appBaseURL: strings.TrimRight(strings.TrimSpace(cfg.AppBaseURL), "/"),
		client:     hc,
	}, nil
}

type transmission struct {
	Recipients []recipient `json:"recipients"`
	Content    content     `json:"content"`
}

type recipient struct {
	Address address `json:"address"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type content struct {
	From    address `json:"from"`
	Subject string  `json:"subject"`
	ReplyTo string  `json:"reply_to"`
	Text    string  `json:"text"`
}

type transmissionResponse struct {
	Results struct {
		ID                 string `json:"id"`
		AcceptedRecipients int    `json:"total_accepted_recipients"`
		RejectedRecipients int    `json:"total_rejected_recipients"`
	} `json:"results"`
}

// SendPasswordReset posts a reset token transmission to SparkPost.
func (s *SparkPost) SendPasswordReset(ctx context.Context, recipientAddr, resetToken string) (ports.DeliveryReceipt, error) {
	text := fmt.Sprintf(
		"Hello %s, we heard you lost your password. You can recover with this token: %s",
		recipientAddr, resetToken,
	)
	if s.appBaseURL != "" {
		text += fmt.Sprintf("\n\nOr follow this link: %s/reset-password?token=%s", s.appBaseURL, resetToken)
	}

	payload := transmission{
		Recipients: []recipient{
			{Address: address{Email: recipientAddr, Name: recipientAddr}},
		},
		Content: content{
			From:    address{Email: s.sender, Name: "Support Email"},
			Subject: "Reset your password",
			ReplyTo: s.sender,
			Text:    text,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ports.DeliveryReceipt{}, fmt.Errorf("encode transmission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transmissions", bytes.NewReader(body))
	if err != nil {
		return ports.DeliveryReceipt{}, fmt.Errorf("create sparkpost request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return ports.DeliveryReceipt{}, fmt.Errorf("sparkpost request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.DeliveryReceipt{}, fmt.Errorf("sparkpost responded %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded transmissionResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&decoded); decodeErr != nil {
		return ports.DeliveryReceipt{}, fmt.Errorf("decode sparkpost response: %w", decodeErr)
	}

	return ports.DeliveryReceipt{
		ID:       decoded.Results.ID,
		Accepted: decoded.Results.AcceptedRecipients,
		Rejected: decoded.Results.RejectedRecipients,
	}, nil
}
