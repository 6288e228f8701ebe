package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/weather-lens-service/internal/config"
	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// Client calls the Gemini generateContent REST API. All requests pass through
// a circuit breaker so a failing upstream is not hammered by every selection.
type Client struct {
	apiKey        string
	httpClient    *http.Client
	baseURL       string
	analysisModel string
	imageModel    string
	aspectRatio   string
	imageSize     string
	breaker       *gobreaker.CircuitBreaker[[]byte]
	clock         clockwork.Clock
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewClient creates a Gemini client from configuration.
func NewClient(cfg config.GeminiConfig, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		analysisModel: cfg.AnalysisModel,
		imageModel:    cfg.ImageModel,
		aspectRatio:   cfg.ImageAspectRatio,
		imageSize:     cfg.ImageSize,
		breaker:       newBreaker("gemini", metrics, logger),
		clock:         clockwork.NewRealClock(),
		metrics:       metrics,
		logger:        logger,
	}
}

func newBreaker(name string, metrics *observability.Metrics, logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A caller abandoning its request says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			open := 0.0
			if to == gobreaker.StateOpen {
				open = 1
			}
			metrics.BreakerOpen.WithLabelValues(name).Set(open)
		},
	})
}

// GenerateJSON asks the analysis model for a JSON document constrained by
// schema and returns the raw JSON text.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema domain.Schema) ([]byte, error) {
	req := generateRequest{
		Contents: []content{userText(prompt)},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema.Document(),
		},
	}

	resp, err := c.generate(ctx, c.analysisModel, "analyze", req)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.text())
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return []byte(text), nil
}

// GenerateImage asks the image model to render prompt and returns every part
// of the first candidate, decoded.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]domain.ContentPart, error) {
	req := generateRequest{
		Contents: []content{userText(prompt)},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig: &imageConfig{
				AspectRatio: c.aspectRatio,
				ImageSize:   c.imageSize,
			},
		},
	}

	resp, err := c.generate(ctx, c.imageModel, "image", req)
	if err != nil {
		return nil, err
	}
	return resp.contentParts()
}

func (c *Client) generate(ctx context.Context, model, method string, body generateRequest) (generateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return generateResponse{}, fmt.Errorf("encode request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(model))

	start := c.clock.Now()
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, u, payload, method)
	})
	c.metrics.ModelAPIDuration.WithLabelValues(method).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		return generateResponse{}, err
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return generateResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return generateResponse{}, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	return resp, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string, payload []byte, method string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API error: status %d: %s", resp.StatusCode, truncate(body, 512))
	}
	return body, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

func userText(text string) content {
	return content{Role: "user", Parts: []part{{Text: text}}}
}

// Gemini API request/response types.

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType   string         `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]any `json:"responseSchema,omitempty"`
	ResponseModalities []string       `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig   `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

// text concatenates the non-thought text parts of the first candidate.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

func (r generateResponse) contentParts() ([]domain.ContentPart, error) {
	if len(r.Candidates) == 0 {
		return nil, nil
	}
	parts := r.Candidates[0].Content.Parts
	out := make([]domain.ContentPart, 0, len(parts))
	for _, p := range parts {
		cp := domain.ContentPart{Text: p.Text}
		if p.InlineData != nil {
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w", err)
			}
			cp.Inline = &domain.InlineData{MIMEType: p.InlineData.MIMEType, Data: data}
		}
		out = append(out, cp)
	}
	return out, nil
}
