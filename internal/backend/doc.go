// Package backend exposes the generation backend as three stateless HTTP
// capabilities: submit a workflow, read execution history, and fetch artifact
// bytes. The orchestrator only sees the Client interface; the concrete
// HTTPClient speaks the ComfyUI prompt/history/view surface.
package backend
