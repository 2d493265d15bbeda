package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/pkg/ctxutil"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/pkg/httpx"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/utils"
)

// ErrMisconfigured is returned when the client cannot make a valid request at
// all (missing API key, rejected credentials, unknown model).
var ErrMisconfigured = errors.New("generation provider misconfigured")

// ErrUnavailable is returned for transient provider failures: timeouts,
// connection errors, rate limiting, 5xx.
var ErrUnavailable = errors.New("generation provider unavailable")

// Client calls the generation provider. There is exactly one attempt per
// call: lifecycle callers may resubmit safely, so no retry loop lives here.
type Client interface {
	// GenerateJSON requests strict json_schema output and returns the parsed
	// object. A response the model produced but that does not parse as JSON
	// yields an empty object, not an error; the normalizer downstream owns
	// making something valid out of it.
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)

	Model() string
}

type client struct {
	log             *logger.Logger
	baseURL         string
	apiKey          string
	model           string
	temperature     float64
	maxOutputTokens int
	httpClient      *http.Client
}

// NewClient reads its configuration from the environment. A missing API key
// does not fail construction; calls made on an unconfigured client fail with
// ErrMisconfigured so the rest of the service can still boot.
func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	serviceLog := log.With("service", "OpenAIClient")

	apiKey := strings.TrimSpace(utils.GetEnv("OPENAI_API_KEY", "", log))
	if apiKey == "" {
		serviceLog.Warn("OPENAI_API_KEY is not set; plan generation will be unavailable")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log)), "/")
	model := strings.TrimSpace(utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log))
	temperature := utils.GetEnvAsFloat("OPENAI_TEMPERATURE", 0.2, log)
	maxOutputTokens := utils.GetEnvAsInt("OPENAI_MAX_OUTPUT_TOKENS", 2048, log)
	timeoutSec := utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 60, log)

	return &client{
		log:             serviceLog,
		baseURL:         baseURL,
		apiKey:          apiKey,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		httpClient:      &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

func (c *client) Model() string { return c.model }

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and canceled contexts mean the provider may recover;
		// anything else (bad URL, refused connection) is a deployment problem.
		if httpx.IsTransientError(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		return classify(httpErr)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// classify folds provider HTTP failures into the two caller-visible buckets.
func classify(httpErr *openAIHTTPError) error {
	if httpx.IsAuthOrConfigStatus(httpErr.StatusCode) {
		return fmt.Errorf("%w: %v", ErrMisconfigured, httpErr)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, httpErr)
}

type responsesRequest struct {
	Model string `json:"model"`

	Input []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"input"`

	Text struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`

	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("%w: missing OPENAI_API_KEY", ErrMisconfigured)
	}
	if schemaName == "" {
		return nil, fmt.Errorf("%w: schemaName required", ErrMisconfigured)
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: schema required", ErrMisconfigured)
	}

	req := responsesRequest{
		Model: c.model,
		Input: []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		}{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:     c.temperature,
		MaxOutputTokens: c.maxOutputTokens,
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return nil, err
	}
	if resp.Refusal != "" {
		return nil, fmt.Errorf("%w: model refused: %s", ErrUnavailable, resp.Refusal)
	}

	jsonText := strings.TrimSpace(extractOutputText(resp))
	var obj map[string]any
	if err := json.Unmarshal([]byte(jsonText), &obj); err != nil || obj == nil {
		// Unparseable model output degrades to an empty object; the
		// normalizer fills in every field downstream.
		c.log.Warn("Model output was not parseable JSON, substituting empty object",
			"schema", schemaName,
			"output_len", len(jsonText),
		)
		return map[string]any{}, nil
	}
	return obj, nil
}
