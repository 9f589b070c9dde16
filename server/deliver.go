package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// NewDeliverer builds the digest transport: every digest goes onto the
// in-process bus (SSE feeds), and additionally to the webhook when one is
// configured. The webhook result decides success, since the bus cannot
// fail.
func NewDeliverer(bus *EventBus, webhookURL string) DeliverFunc {
	return func(ctx context.Context, userID int64, text string) error {
		bus.Publish(Event{Type: "notification", UserID: userID, Payload: map[string]any{"text": text}})
		if webhookURL == "" {
			return nil
		}
		return postDigest(ctx, webhookURL, userID, text)
	}
}

func postDigest(ctx context.Context, url string, userID int64, text string) error {
	body, err := json.Marshal(map[string]any{"user_id": userID, "text": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
