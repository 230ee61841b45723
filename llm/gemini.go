package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"
	"github.com/meikuraledutech/phenotree/response"
)

// DefaultGeminiBaseURL is the public Generative Language API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiProvider streams completions from models/{model}:streamGenerateContent.
type GeminiProvider struct {
	cfg    GeminiConfig
	client *client.Client
}

// NewGeminiProvider creates a provider; an empty BaseURL means the public API.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	cc := client.New()
	if cfg.Timeout > 0 {
		cc.SetTimeout(cfg.Timeout)
	}
	return &GeminiProvider{cfg: cfg, client: cc}
}

// IsAvailable reports whether an API key and model are configured.
func (g *GeminiProvider) IsAvailable() bool {
	return g.cfg.APIKey != "" && g.cfg.Model != ""
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64          `json:"temperature"`
	MaxOutputTokens  int              `json:"maxOutputTokens"`
	ResponseMimeType string           `json:"responseMimeType,omitempty"`
	ResponseSchema   *response.Schema `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiChunk struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *geminiError) Error() string {
	return fmt.Sprintf("gemini: %d %s: %s", e.Code, e.Status, e.Message)
}

func (g *GeminiProvider) endpoint() string {
	return fmt.Sprintf("%s/models/%s:streamGenerateContent", strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.Model)
}

// Stream posts the request and emits the text of each streamed chunk.
// The body is a JSON array of partial responses; elements are decoded one at
// a time so onChunk sees them in arrival order.
func (g *GeminiProvider) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      req.Options.Temperature,
			MaxOutputTokens:  req.Options.MaxOutputTokens,
			ResponseMimeType: req.Options.MimeType,
			ResponseSchema:   req.Schema,
		},
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", g.cfg.APIKey).
		SetJSON(body).
		Post(g.endpoint())
	if err != nil {
		return fmt.Errorf("gemini: request: %w", err)
	}
	defer resp.Close()

	raw := resp.Body()
	if status := resp.StatusCode(); status != 200 {
		var wrapped struct {
			Error *geminiError `json:"error"`
		}
		if json.Unmarshal(raw, &wrapped) == nil && wrapped.Error != nil {
			return wrapped.Error
		}
		return fmt.Errorf("gemini: unexpected status %d", status)
	}

	return decodeChunks(raw, onChunk)
}

func decodeChunks(raw []byte, onChunk func(string) error) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("gemini: read stream: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return fmt.Errorf("gemini: stream is not an array")
	}

	for dec.More() {
		var chunk geminiChunk
		if err := dec.Decode(&chunk); err != nil {
			return fmt.Errorf("gemini: decode chunk: %w", err)
		}
		if chunk.Error != nil {
			return chunk.Error
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if err := onChunk(part.Text); err != nil {
				return err
			}
		}
	}
	return nil
}
