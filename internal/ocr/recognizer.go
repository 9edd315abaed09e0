// Package ocr turns workspace screenshots into templates.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rcliao/layoutkit/internal/config"
)

// Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// HTTPRecognizer posts images to an OCR service that answers with
// {"text": "..."}.
type HTTPRecognizer struct {
	url    string
	client *http.Client
}

type recognizeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// NewHTTPRecognizer creates a recognizer for the service at url.
func NewHTTPRecognizer(url string, timeout time.Duration) *HTTPRecognizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRecognizer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", r.url, bytes.NewReader(image))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ocr error %d: %s", resp.StatusCode, string(b))
	}

	var result recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ocr error: %s", result.Error)
	}
	return result.Text, nil
}

// NewFromConfig creates a recognizer from the ocr config section.
// It returns nil when recognition is disabled.
func NewFromConfig(cfg config.OCRConfig) Recognizer {
	switch cfg.Provider {
	case "http":
		if cfg.URL == "" {
			return nil
		}
		return NewHTTPRecognizer(cfg.URL, cfg.Timeout)
	default:
		return nil // recognition disabled
	}
}
