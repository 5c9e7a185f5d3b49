package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	fcmScope    = "https://www.googleapis.com/auth/firebase.messaging"
	fcmEndpoint = "https://fcm.googleapis.com/v1/projects/%s/messages:send"
)

// ErrUnregistered means the device token is no longer valid and should be
// forgotten.
var ErrUnregistered = errors.New("fcm_unregistered_token")

type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Message is one push. A nil Notification sends a silent data message.
type Message struct {
	Data         map[string]string
	Notification *Notification
}

type FCMSender struct {
	projectID   string
	tokenSource oauth2.TokenSource
	client      *http.Client
}

func NewFCMSender(ctx context.Context, projectID, credentialsPath string) (*FCMSender, error) {
	if strings.TrimSpace(credentialsPath) == "" {
		return nil, errors.New("fcm credentials path required")
	}
	raw, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read fcm credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("load fcm credentials: %w", err)
	}
	if projectID == "" {
		projectID = creds.ProjectID
	}
	if projectID == "" {
		return nil, errors.New("fcm project id required")
	}
	return &FCMSender{
		projectID:   projectID,
		tokenSource: creds.TokenSource,
		client:      &http.Client{Transport: http.DefaultTransport},
	}, nil
}

func (s *FCMSender) Send(ctx context.Context, token string, msg Message) error {
	if s == nil {
		return errors.New("fcm sender not configured")
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("fcm token required")
	}

	body, err := json.Marshal(fcmRequest{Message: buildFCMMessage(token, msg)})
	if err != nil {
		return fmt.Errorf("marshal fcm payload: %w", err)
	}
	accessToken, err := s.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("fcm access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf(fcmEndpoint, s.projectID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build fcm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send fcm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return fcmError(resp.StatusCode, raw)
}

func buildFCMMessage(token string, msg Message) fcmMessage {
	m := fcmMessage{
		Token:   token,
		Data:    msg.Data,
		Android: &fcmAndroidConfig{Priority: "HIGH"},
	}
	if msg.Notification != nil {
		m.Notification = msg.Notification
		m.APNS = &fcmAPNSConfig{
			Headers: map[string]string{
				"apns-push-type": "alert",
				"apns-priority":  "10",
			},
		}
	}
	return m
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Data         map[string]string `json:"data,omitempty"`
	Notification *Notification     `json:"notification,omitempty"`
	Android      *fcmAndroidConfig `json:"android,omitempty"`
	APNS         *fcmAPNSConfig    `json:"apns,omitempty"`
}

type fcmAndroidConfig struct {
	Priority string `json:"priority,omitempty"`
}

type fcmAPNSConfig struct {
	Headers map[string]string `json:"headers,omitempty"`
}

type fcmErrorResponse struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

func fcmError(status int, body []byte) error {
	var resp fcmErrorResponse
	if len(body) == 0 || json.Unmarshal(body, &resp) != nil {
		return fmt.Errorf("fcm send failed: status %d: %s", status, string(body))
	}
	for _, d := range resp.Error.Details {
		if d.ErrorCode == "UNREGISTERED" {
			return fmt.Errorf("%w: %s", ErrUnregistered, resp.Error.Message)
		}
	}
	if status == http.StatusNotFound && resp.Error.Status == "NOT_FOUND" {
		return fmt.Errorf("%w: %s", ErrUnregistered, resp.Error.Message)
	}
	return fmt.Errorf("fcm send failed: status %d: %s", status, resp.Error.Message)
}
