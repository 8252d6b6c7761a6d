// Package upstream holds the client for the Gemini generateContent API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/dom/chatrelay/internal/domain"
)

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type GeminiClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewGeminiClient(endpoint, apiKey string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Generate sends a single user query and returns the first candidate's text.
// A 200 response missing the candidate text path yields the fallback string
// rather than an error. No retries: one failed attempt is a failed call.
func (c *GeminiClient) Generate(ctx context.Context, query string) (string, error) {
	payload := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: query}},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	reqURL := fmt.Sprintf("%s?key=%s", c.endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Connection failure, timeout or cancellation: no structured
		// upstream response to mirror. The *url.Error carries the full
		// request URL including the key query parameter, so only its
		// inner error may travel upward.
		detail := err
		var uerr *url.Error
		if errors.As(err, &uerr) {
			detail = uerr.Err
		}
		log.Printf("ERROR [upstream.Gemini] request to %s failed: %v", c.endpoint, detail)
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, detail)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.UpstreamError{StatusCode: resp.StatusCode, Body: respBody}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.FallbackResponse, nil
	}
	return extractText(parsed), nil
}

// extractText walks candidates[0].content.parts[0].text, falling back when
// any link of the path is missing.
func extractText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return domain.FallbackResponse
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return domain.FallbackResponse
	}
	return parts[0].Text
}
