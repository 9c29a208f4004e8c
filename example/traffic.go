package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

// GenerateDemoTraffic writes to the lab's item store every 2-5 seconds until
// ctx is cancelled, so the /events stream and change callbacks have
// something to show.
func GenerateDemoTraffic(ctx context.Context, baseURL string, logger *slog.Logger) {
	client := &http.Client{Timeout: 5 * time.Second}
	visits := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(2+rand.Intn(4)) * time.Second):
		}

		visits++
		reading := 15 + rand.Float64()*10

		requests := []struct {
			method string
			path   string
			body   string
		}{
			{http.MethodPut, "/items/visits", fmt.Sprintf("%d", visits)},
			{http.MethodPut, "/items/sensor", `{"unit":"C"}`},
			{http.MethodPatch, "/items/sensor", fmt.Sprintf(`{"reading":%.2f}`, reading)},
		}

		for _, r := range requests {
			if err := send(ctx, client, r.method, baseURL+r.path, r.body); err != nil {
				logger.Warn("demo request failed", "method", r.method, "path", r.path, "error", err)
			}
		}
	}
}

func send(ctx context.Context, client *http.Client, method, url, body string) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBufferString(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
