package response

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"easel/internal/backend"
)

func TestImageSuccessShape(t *testing.T) {
	payload := backend.Payload{Data: []byte("fake image bytes"), ContentType: "image/jpeg"}
	doc := Image("abc", "9", json.RawMessage(`12345`), backend.Descriptor{Filename: "out.png"}, payload)

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded["status"] != "success" || decoded["prompt_id"] != "abc" || decoded["node_id"] != "9" {
		t.Errorf("unexpected document: %s", raw)
	}
	if decoded["filename"] != "out.png" || decoded["content_type"] != "image/jpeg" {
		t.Errorf("artifact fields wrong: %s", raw)
	}
	if decoded["file_size"] != float64(len(payload.Data)) {
		t.Errorf("file_size = %v", decoded["file_size"])
	}
	if decoded["seed"] != float64(12345) {
		t.Errorf("seed not echoed: %v", decoded["seed"])
	}
	wantB64 := base64.StdEncoding.EncodeToString(payload.Data)
	if decoded["image_base64"] != wantB64 {
		t.Error("image_base64 does not round-trip")
	}
	if _, present := decoded["audio_url"]; present {
		t.Error("image document must not carry audio_url")
	}
}

func TestAudioSuccessShape(t *testing.T) {
	doc := Audio("abc", "8", backend.Descriptor{Filename: "song.flac"}, "http://b/view?filename=song.flac&type=output")

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["audio_url"] != "http://b/view?filename=song.flac&type=output" {
		t.Errorf("audio_url = %v", decoded["audio_url"])
	}
	if _, present := decoded["image_base64"]; present {
		t.Error("audio document must not carry inline bytes")
	}
}

func TestErrorShapeOmitsEmptyContext(t *testing.T) {
	raw, err := json.Marshal(Failure("broken", ""))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"error":"broken"}` {
		t.Errorf("error document = %s", raw)
	}

	withContext := Error{
		Message:   "download failed",
		PromptID:  "abc",
		ImageInfo: &backend.Descriptor{Filename: "out.png"},
	}
	raw, err = json.Marshal(withContext)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["prompt_id"] != "abc" {
		t.Errorf("prompt_id missing: %s", raw)
	}
	if _, present := decoded["image_info"]; !present {
		t.Errorf("image_info missing: %s", raw)
	}
}
