// Package recognition calls the vision endpoint that transcribes delivery
// note photographs. It returns the raw response text; nothing here parses
// tables.
package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notescan/internal/config"
)

// extractionPrompt is sent verbatim with every image. The strict-JSON
// directives reduce, but do not eliminate, malformed responses; the repair
// stage handles the rest.
const extractionPrompt = `Analyze this delivery note image and extract ALL table data.

IMPORTANT: Return ONLY valid JSON in this exact format:

{
  "headers": ["Column1", "Column2", "Column3"],
  "rows": [
    ["value1", "value2", "value3"],
    ["value1", "value2", "value3"]
  ]
}

Rules:
- Extract ALL columns you can see
- Include ALL rows of data
- Use proper JSON escaping for quotes and special characters
- Do not include any text before or after the JSON
- Ensure all strings are properly quoted
- Do not use trailing commas

Return the JSON only.`

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.RecognitionTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.RecognitionRateLimitRPS),
	}
}

// Recognize sends one image and returns the full response text unmodified.
// Retryable statuses (429, 5xx) are retried with backoff; everything else
// fails the call so the batch can record the image and continue.
func (c *Client) Recognize(ctx context.Context, imagePath string) (string, error) {
	if strings.TrimSpace(c.cfg.RecognitionAPIKey) == "" {
		return "", errors.New("missing RECOGNITION_API_KEY")
	}

	blob, err := os.ReadFile(imagePath)
	if err != nil {
		return "", err
	}

	payload := messagesRequest{
		Model:     c.cfg.RecognitionModel,
		MaxTokens: c.cfg.RecognitionMaxTokens,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "image",
					Source: &imageSource{
						Type:      "base64",
						MediaType: mediaTypeFor(imagePath),
						Data:      base64.StdEncoding.EncodeToString(blob),
					},
				},
				{Type: "text", Text: extractionPrompt},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(c.cfg.RecognitionAPIBaseURL, "/") + "/messages"
	maxAttempts := c.cfg.RecognitionMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.cfg.RecognitionAPIKey)
		req.Header.Set("anthropic-version", c.cfg.RecognitionAPIVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				backoff := time.Duration(500*(1<<(attempt-1))+rand.Intn(250)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("recognition status %d", resp.StatusCode)
				continue
			}
			return "", fmt.Errorf("recognition api error: status=%d body=%s", resp.StatusCode, truncate(string(respBody), 300))
		}

		var parsed messagesResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", fmt.Errorf("decode recognition response: %w", err)
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("recognition api error: %s", parsed.Error.Message)
		}

		var out strings.Builder
		for _, block := range parsed.Content {
			if block.Type == "text" {
				out.WriteString(block.Text)
			}
		}
		if out.Len() == 0 {
			return "", errors.New("recognition response carried no text content")
		}
		return out.String(), nil
	}

	if lastErr == nil {
		lastErr = errors.New("recognition request failed")
	}
	return "", lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504, 529:
		return true
	default:
		return false
	}
}

func mediaTypeFor(imagePath string) string {
	switch strings.ToLower(filepath.Ext(imagePath)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
