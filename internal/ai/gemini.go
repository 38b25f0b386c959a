package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.0-flash"
	geminiTimeout        = 2 * time.Minute
)

// Gemini calls the Google generative language REST API.
type Gemini struct {
	client *resty.Client
	model  string
	apiKey string
}

// GeminiConfig configures the REST caller. APIKey is required; Model and
// BaseURL fall back to defaults when empty.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewGemini creates a Gemini caller. Returns ErrNotConfigured when no API
// key is present.
func NewGemini(cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(geminiTimeout)

	return &Gemini{client: c, model: cfg.Model, apiKey: cfg.APIKey}, nil
}

// Request/response structs for JSON binding. The REST wire shape follows
// the generativelanguage v1beta generateContent endpoint.

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inline_data,omitempty"`
}

type geminiInline struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Invoke sends the content parts followed by the prompt and returns the
// concatenated candidate text.
func (g *Gemini) Invoke(ctx context.Context, prompt string, parts []Part) (string, error) {
	wire := make([]geminiPart, 0, len(parts)+1)
	for _, p := range parts {
		if len(p.Data) > 0 {
			wire = append(wire, geminiPart{InlineData: &geminiInline{
				MIMEType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		if p.Text != "" {
			wire = append(wire, geminiPart{Text: p.Text})
		}
	}
	wire = append(wire, geminiPart{Text: prompt})

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: wire}},
		GenerationConfig: geminiGenConfig{
			Temperature:      0.2,
			MaxOutputTokens:  1024,
			ResponseMIMEType: "application/json",
		},
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(&reqBody).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return "", &TransportError{Provider: "gemini", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return "", &TransportError{
			Provider: "gemini",
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode(), truncateRaw(resp.String())),
		}
	}

	var gr geminiResponse
	if err := json.Unmarshal(resp.Body(), &gr); err != nil {
		return "", &TransportError{Provider: "gemini", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(gr.Candidates) == 0 {
		return "", &TransportError{Provider: "gemini", Err: fmt.Errorf("no candidates returned")}
	}

	var text string
	for _, p := range gr.Candidates[0].Content.Parts {
		text += p.Text
	}
	if text == "" {
		return "", &TransportError{Provider: "gemini", Err: fmt.Errorf("empty candidate text")}
	}
	return text, nil
}
