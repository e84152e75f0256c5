package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nbirkbak/journalist/internal/dataset"
	"github.com/nbirkbak/journalist/internal/preprocess"
	"github.com/nbirkbak/journalist/internal/schema"
)

// Request/response wire types, minimal fields only.
type gmInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type gmPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *gmInlineData `json:"inline_data,omitempty"`
}

type gmContent struct {
	Parts []gmPart `json:"parts"`
}

type gmGenerationConfig struct {
	ResponseMIMEType string         `json:"response_mime_type,omitempty"`
	ResponseSchema   map[string]any `json:"response_schema,omitempty"`
}

type gmRequest struct {
	Contents         []gmContent         `json:"contents"`
	GenerationConfig *gmGenerationConfig `json:"generationConfig,omitempty"`
}

type gmResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Extract preprocesses the page at documentPath, sends it with the prompt
// and the journal response schema, validates the reply, and returns the
// record with file_name and generation_seconds attached.
func (c *Client) Extract(ctx context.Context, documentPath string) (dataset.Record, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Debug("extract.start", "req_id", rid, "model", c.cfg.Model, "file", documentPath)

	imageBytes, mimeType, err := preprocess.Preprocess(documentPath, c.cfg.Image)
	if err != nil {
		c.logger.Error("extract.preprocess_failed", "req_id", rid, "file", documentPath, "error", err)
		return nil, fmt.Errorf("preprocess %s: %w", documentPath, err)
	}

	responseSchema := schema.BuildJournalJSONSchema()
	body := gmRequest{
		Contents: []gmContent{{
			Parts: []gmPart{
				{InlineData: &gmInlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(imageBytes)}},
				{Text: c.cfg.Prompt},
			},
		}},
		GenerationConfig: &gmGenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") +
		"/v1beta/models/" + url.PathEscape(c.cfg.Model) + ":generateContent"
	genStart := time.Now()
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("extract.http_error",
			"req_id", rid, "file", documentPath, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	genSeconds := time.Since(genStart).Seconds()

	var resp gmResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		c.logger.Error("extract.no_candidates", "req_id", rid, "file", documentPath, "raw_bytes", len(raw))
		return nil, fmt.Errorf("no candidates in gemini response")
	}
	content := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)

	if err := schema.ValidateJSONAgainstSchema(responseSchema, []byte(content)); err != nil {
		c.logger.Error("extract.schema_validation_failed",
			"req_id", rid, "file", documentPath, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var rec dataset.Record
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	rec[dataset.FieldFileName] = documentPath
	rec[dataset.FieldGenerationSeconds] = genSeconds

	c.logger.Info("extract.ok",
		"req_id", rid,
		"file", documentPath,
		"generation_seconds", genSeconds,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("gemini response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
