// Package openai implements the verification boundary using text-only
// chat/completions with a structured-output constraint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/llm"
)

type Client struct {
	cfg        common.ModelConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg common.ModelConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger,
	}
}

func (c *Client) ModelName() string   { return c.cfg.Model }
func (c *Client) EffortLevel() string { return c.cfg.Effort }

// VerifyBiomarkers implements llm.Verifier: the stage-1 readings go back to
// the model for confirmation or correction. A "passed: false" verdict is a
// valid result, not an error.
func (c *Client) VerifyBiomarkers(ctx context.Context, req llm.VerificationRequest) (llm.VerificationResult, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.verify.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"reasoning_effort", c.cfg.Effort,
		"readings", len(req.Readings),
		"page_range", req.PageRange,
	)

	readingsJSON, err := json.Marshal(map[string]any{"biomarkers": req.Readings})
	if err != nil {
		return llm.VerificationResult{}, fmt.Errorf("marshal readings: %w", err)
	}

	sys := strings.Join([]string{
		"You are a clinical data verifier. You receive biomarker readings extracted from a lab report.",
		"Check each reading for plausibility: implausible magnitudes, unit/value mismatches, malformed names.",
		"Return ONLY JSON matching the provided schema.",
		"Set passed=true when every reading is plausible; otherwise passed=false with one correction string per problem.",
		"When you can fix a reading, include the full corrected list under corrected_data.",
	}, " ")
	user := "Readings:\n" + string(readingsJSON)
	if req.Context != "" {
		user += "\n\nSource context:\n" + req.Context
	}

	body := map[string]any{
		"model":            c.cfg.Model,
		"reasoning_effort": c.cfg.Effort,
		"response_format":  map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": sys},
			{"role": "user", "content": user},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(llm.BuildVerificationJSONSchema())},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, httpErr := c.post(ctx, endpoint, body)
	if httpErr != nil {
		c.log.Error("llm.verify.http_error",
			"req_id", rid, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.VerificationResult{}, httpErr
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.verify.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.VerificationResult{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return llm.VerificationResult{}, fmt.Errorf("no choices in openai response")
	}
	content := []byte(llm.StripFences(cc.Choices[0].Message.Content))

	if err := llm.ValidateJSONAgainstSchema(llm.BuildVerificationJSONSchema(), content); err != nil {
		c.log.Error("llm.verify.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.VerificationResult{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var out llm.VerificationResult
	if err := json.Unmarshal(content, &out); err != nil {
		return llm.VerificationResult{}, fmt.Errorf("unmarshal verdict: %w", err)
	}
	out.Raw = content

	c.log.Info("llm.verify.ok",
		"req_id", rid,
		"passed", out.Passed,
		"corrections", len(out.Corrections),
		"corrected_data", len(out.CorrectedData),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("openai response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
