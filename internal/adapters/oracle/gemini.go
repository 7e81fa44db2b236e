package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fleet-route-optimizer/internal/platform/httpx"
	"fleet-route-optimizer/internal/platform/obs"
	"fleet-route-optimizer/internal/ports"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-pro"
)

// Gemini implements TrafficOracle with the generateContent endpoint.
type Gemini struct {
	client  *httpx.Client
	apiKey  string
	baseURL string
	model   string
}

type Option func(*Gemini)

func WithBaseURL(u string) Option { return func(g *Gemini) { g.baseURL = strings.TrimRight(u, "/") } }

func WithModel(m string) Option {
	return func(g *Gemini) {
		if m != "" {
			g.model = m
		}
	}
}

func WithClient(c *httpx.Client) Option { return func(g *Gemini) { g.client = c } }

// NewGemini returns ports.ErrOracleNotConfigured when apiKey is empty so
// callers can run without an oracle.
func NewGemini(apiKey string, timeout time.Duration, opts ...Option) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ports.ErrOracleNotConfigured
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	g := &Gemini{
		client:  httpx.NewClient(timeout),
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt and returns the text of the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (_ string, err error) {
	defer obs.Time(ctx, "gemini.Generate")(&err)

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	resp, err := g.client.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	defer resp.Body.Close()

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: response has no candidates")
	}

	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
