package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Request is one parsed job, with defaults already applied.
type Request struct {
	Workflow      json.RawMessage
	OutputNodeIDs []string
	MaxWait       time.Duration
	Seed          json.RawMessage
}

// HasWorkflow reports whether the caller supplied a usable workflow payload.
// Absent, null, and empty documents all count as missing.
func (r Request) HasWorkflow() bool {
	trimmed := bytes.TrimSpace(r.Workflow)
	switch string(trimmed) {
	case "", "null", "{}", `""`, "[]":
		return false
	}
	return true
}

type envelope struct {
	Input json.RawMessage `json:"input"`
}

type rawRequest struct {
	Workflow      json.RawMessage   `json:"workflow"`
	OutputNodeIDs []json.RawMessage `json:"output_node_ids"`
	MaxWait       json.RawMessage   `json:"max_wait"`
	Seed          json.RawMessage   `json:"seed"`
}

// ParseEnvelope decodes the hosting framework's job document, which wraps the
// caller's request under an "input" key, and applies the configured defaults
// for anything the caller omitted. The workflow payload itself is never
// inspected or modified.
func ParseEnvelope(data []byte, settings Settings) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Request{}, fmt.Errorf("decode job document: %w", err)
	}

	var raw rawRequest
	if len(bytes.TrimSpace(env.Input)) > 0 {
		if err := json.Unmarshal(env.Input, &raw); err != nil {
			return Request{}, fmt.Errorf("decode job input: %w", err)
		}
	}

	req := Request{
		Workflow:      raw.Workflow,
		OutputNodeIDs: nodeIDStrings(raw.OutputNodeIDs),
		MaxWait:       parseMaxWait(raw.MaxWait, settings.MaxWait),
		Seed:          raw.Seed,
	}
	if len(req.OutputNodeIDs) == 0 {
		req.OutputNodeIDs = append([]string(nil), settings.PreferredNodes...)
	}
	return req, nil
}

// nodeIDStrings normalizes preferred node ids to strings; callers send both
// "9" and 9.
func nodeIDStrings(values []json.RawMessage) []string {
	ids := make([]string, 0, len(values))
	for _, value := range values {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			ids = append(ids, s)
			continue
		}
		text := strings.TrimSpace(string(value))
		if text != "" && text != "null" {
			ids = append(ids, text)
		}
	}
	return ids
}

func parseMaxWait(raw json.RawMessage, fallback time.Duration) time.Duration {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return fallback
	}
	var seconds float64
	if err := json.Unmarshal(trimmed, &seconds); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		if parsed, err := strconv.Atoi(strings.TrimSpace(text)); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return fallback
}
