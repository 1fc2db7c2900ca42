// Package gemini implements the vision extraction boundary against the
// Gemini generateContent API over plain HTTP.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
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
		timeout = 2 * time.Minute
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger,
	}
}

func (c *Client) ModelName() string   { return c.cfg.Model }
func (c *Client) EffortLevel() string { return c.cfg.Effort }

const extractionInstructions = `You are a clinical lab-report parser. Extract every biomarker reading ` +
	`from the attached document. Return ONLY JSON matching the provided schema: an object with a ` +
	`"biomarkers" array of {name, value, unit, confidence} entries. Use the exact biomarker name as ` +
	`printed. "value" must be a number (strip comparators like "<"). Omit readings with no numeric value. ` +
	`Never output null.`

// ExtractBiomarkers implements llm.BiomarkerExtractor. The document (or one
// page chunk of it) travels inline as base64.
func (c *Client) ExtractBiomarkers(ctx context.Context, req llm.ExtractionRequest) (llm.ExtractionResult, error) {
	rid := uuid.New().String()
	start := time.Now()

	mime := req.MimeType
	if mime == "" {
		mime = "application/pdf"
	}
	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"thinking_level", c.cfg.Effort,
		"doc_bytes", len(req.Document),
		"page_range", req.PageRange,
	)

	prompt := extractionInstructions
	if req.Hint != "" {
		prompt += "\nDocument hint: " + req.Hint
	}
	if req.PageRange != "" {
		prompt += "\nThis is pages " + req.PageRange + " of a larger report."
	}
	prompt += "\n\nJSON Schema:\n" + mustJSON(llm.BuildReadingsJSONSchema())

	body := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"inline_data": map[string]any{
					"mime_type": mime,
					"data":      base64.StdEncoding.EncodeToString(req.Document),
				}},
				{"text": prompt},
			},
		}},
		"generationConfig": map[string]any{
			"temperature":        0,
			"response_mime_type": "application/json",
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	raw, httpErr := c.post(ctx, endpoint, body)
	if httpErr != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ExtractionResult{}, httpErr
	}

	var gc struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &gc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ExtractionResult{}, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gc.Candidates) == 0 || len(gc.Candidates[0].Content.Parts) == 0 {
		c.log.Error("llm.extract.no_candidates",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ExtractionResult{}, fmt.Errorf("no candidates in gemini response")
	}

	content := llm.StripFences(gc.Candidates[0].Content.Parts[0].Text)
	readings, cleaned, err := llm.DecodeReadings(c.log, []byte(content))
	if err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "content", content,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ExtractionResult{Raw: []byte(content)}, err
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"readings", len(readings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.ExtractionResult{Readings: readings, Raw: cleaned}, nil
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
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("gemini response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
