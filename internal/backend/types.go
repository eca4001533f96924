package backend

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Descriptor identifies one retrievable artifact on the backend.
type Descriptor struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Kind returns the artifact type, defaulting to "output".
func (d Descriptor) Kind() string {
	if strings.TrimSpace(d.Type) == "" {
		return "output"
	}
	return d.Type
}

// Payload carries retrieved artifact bytes and their normalized content type.
type Payload struct {
	Data        []byte
	ContentType string
}

// Execution is one entry of the backend's history document.
type Execution struct {
	Status  StatusBlock `json:"status"`
	Outputs Outputs     `json:"outputs"`
}

// StatusBlock wraps the backend's raw status record. The backend does not
// distinguish pending from running, so the only classification offered here
// is the terminal error state.
type StatusBlock struct {
	raw json.RawMessage
}

func (s *StatusBlock) UnmarshalJSON(data []byte) error {
	s.raw = append(s.raw[:0], data...)
	return nil
}

func (s StatusBlock) MarshalJSON() ([]byte, error) {
	if len(s.raw) == 0 {
		return []byte("null"), nil
	}
	return s.raw, nil
}

// StatusStr returns the backend's status string, or "" when absent or
// malformed.
func (s StatusBlock) StatusStr() string {
	if len(s.raw) == 0 {
		return ""
	}
	var record struct {
		StatusStr string `json:"status_str"`
	}
	if err := json.Unmarshal(s.raw, &record); err != nil {
		return ""
	}
	return record.StatusStr
}

// IsError reports whether the backend flagged the execution as failed. The
// match is case-insensitive.
func (s StatusBlock) IsError() bool {
	return strings.EqualFold(strings.TrimSpace(s.StatusStr()), "error")
}

// Outputs is the backend's node-to-artifacts document. Node order is
// preserved from the wire so resolver fallback stays deterministic.
type Outputs struct {
	raw   json.RawMessage
	order []string
	nodes map[string]json.RawMessage
}

func (o *Outputs) UnmarshalJSON(data []byte) error {
	o.raw = append(o.raw[:0], data...)
	o.order = nil
	o.nodes = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil // tolerated: a malformed outputs document has no candidates
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	o.nodes = make(map[string]json.RawMessage)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil
		}
		if _, seen := o.nodes[key]; !seen {
			o.order = append(o.order, key)
		}
		o.nodes[key] = value
	}
	return nil
}

func (o Outputs) MarshalJSON() ([]byte, error) {
	if len(o.raw) == 0 {
		return []byte("null"), nil
	}
	return o.raw, nil
}

// NodeIDs returns the node identifiers in document order.
func (o Outputs) NodeIDs() []string {
	ids := make([]string, len(o.order))
	copy(ids, o.order)
	return ids
}

// Node returns the raw record for a node id.
func (o Outputs) Node(id string) (json.RawMessage, bool) {
	value, ok := o.nodes[id]
	return value, ok
}

// Empty reports whether the document carries no nodes at all.
func (o Outputs) Empty() bool {
	return len(o.order) == 0
}
