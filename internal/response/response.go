package response

import (
	"encoding/base64"
	"encoding/json"

	"easel/internal/backend"
)

// Document is the single well-formed payload a caller always receives,
// success or error.
type Document interface {
	document()
}

// Success is the stable success contract. Image jobs carry the artifact
// inline as base64; audio jobs reference the backend's static-serving
// endpoint instead.
type Success struct {
	Status      string          `json:"status"`
	PromptID    string          `json:"prompt_id"`
	Seed        json.RawMessage `json:"seed,omitempty"`
	NodeID      string          `json:"node_id"`
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type,omitempty"`
	FileSize    int             `json:"file_size,omitempty"`
	ImageBase64 string          `json:"image_base64,omitempty"`
	AudioURL    string          `json:"audio_url,omitempty"`
}

func (Success) document() {}

// Error is the normalized failure contract. The optional fields attach
// diagnostic context: the backend's raw status block, the artifact
// descriptor, or the outputs document that failed to resolve.
type Error struct {
	Message   string              `json:"error"`
	PromptID  string              `json:"prompt_id,omitempty"`
	Details   json.RawMessage     `json:"details,omitempty"`
	ImageInfo *backend.Descriptor `json:"image_info,omitempty"`
	Outputs   json.RawMessage     `json:"outputs,omitempty"`
}

func (Error) document() {}

// Image shapes the success document for an inline image artifact.
func Image(promptID, nodeID string, seed json.RawMessage, desc backend.Descriptor, payload backend.Payload) Success {
	return Success{
		Status:      "success",
		PromptID:    promptID,
		Seed:        seed,
		NodeID:      nodeID,
		Filename:    desc.Filename,
		ContentType: payload.ContentType,
		FileSize:    len(payload.Data),
		ImageBase64: base64.StdEncoding.EncodeToString(payload.Data),
	}
}

// Audio shapes the success document for an artifact served by reference.
func Audio(promptID, nodeID string, desc backend.Descriptor, viewURL string) Success {
	return Success{
		Status:   "success",
		PromptID: promptID,
		NodeID:   nodeID,
		Filename: desc.Filename,
		AudioURL: viewURL,
	}
}

// Failure shapes an error document with no diagnostic context.
func Failure(message, promptID string) Error {
	return Error{Message: message, PromptID: promptID}
}
