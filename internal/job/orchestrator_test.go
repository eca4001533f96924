package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"easel/internal/artifact"
	"easel/internal/backend"
	"easel/internal/imageproc"
	"easel/internal/response"
)

type historyStep struct {
	execution *backend.Execution
	err       error
}

type fakeBackend struct {
	submitID     string
	submitErr    error
	submitCalls  int
	historySteps []historyStep
	historyCalls int
	fetchPayload backend.Payload
	fetchErr     error
	fetchCalls   int
	panicHistory bool
}

func (f *fakeBackend) Submit(ctx context.Context, workflow json.RawMessage) (string, error) {
	f.submitCalls++
	return f.submitID, f.submitErr
}

func (f *fakeBackend) History(ctx context.Context, promptID string) (*backend.Execution, error) {
	if f.panicHistory {
		panic("history exploded")
	}
	step := f.historySteps[len(f.historySteps)-1]
	if f.historyCalls < len(f.historySteps) {
		step = f.historySteps[f.historyCalls]
	}
	f.historyCalls++
	return step.execution, step.err
}

func (f *fakeBackend) FetchArtifact(ctx context.Context, desc backend.Descriptor) (backend.Payload, error) {
	f.fetchCalls++
	return f.fetchPayload, f.fetchErr
}

func (f *fakeBackend) ViewURL(desc backend.Descriptor) string {
	return "http://backend/view?filename=" + desc.Filename + "&type=" + desc.Kind()
}

func (f *fakeBackend) Ping(ctx context.Context) error { return nil }

func decodeExecution(t *testing.T, raw string) *backend.Execution {
	t.Helper()
	var execution backend.Execution
	if err := json.Unmarshal([]byte(raw), &execution); err != nil {
		t.Fatalf("decode execution: %v", err)
	}
	return &execution
}

func notReady() historyStep {
	return historyStep{err: fmt.Errorf("%w: 404", backend.ErrNotReady)}
}

// newTestOrchestrator wires a fake clock so poll sleeps advance simulated
// time instead of blocking the test.
func newTestOrchestrator(fake *fakeBackend, settings Settings) *Orchestrator {
	o := New(fake, imageproc.NewProcessor("JPEG", 82), settings, nil)
	current := time.Unix(1000, 0)
	o.now = func() time.Time { return current }
	o.sleep = func(ctx context.Context, d time.Duration) { current = current.Add(d) }
	return o
}

func imageSettings() Settings {
	return Settings{
		Kind:           artifact.KindImage,
		PreferredNodes: []string{"9"},
		MaxWait:        300 * time.Second,
		PollInterval:   1500 * time.Millisecond,
	}
}

func pngFixture(t *testing.T) []byte {
	t.Helper()
	// Deterministic noise: hard to compress as PNG but small as JPEG, so
	// the processor's transcode path actually fires instead of falling
	// back to the original bytes.
	img := image.NewNRGBA(image.Rect(0, 0, 96, 96))
	seed := uint32(1)
	for y := 0; y < 96; y++ {
		for x := 0; x < 96; x++ {
			seed = seed*1664525 + 1013904223
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(seed >> 24), G: uint8(seed >> 16), B: uint8(seed >> 8), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if buf.Len() < backend.MinArtifactBytes {
		t.Fatalf("fixture too small: %d", buf.Len())
	}
	return buf.Bytes()
}

func TestRunMissingWorkflowSkipsNetwork(t *testing.T) {
	fake := &fakeBackend{}
	o := newTestOrchestrator(fake, imageSettings())

	doc, err := o.Run(context.Background(), Request{MaxWait: time.Second})
	if !errors.Is(err, ErrInput) {
		t.Fatalf("error = %v, want ErrInput", err)
	}
	failure, ok := doc.(response.Error)
	if !ok {
		t.Fatalf("doc = %T", doc)
	}
	if !strings.Contains(failure.Message, "missing workflow") {
		t.Errorf("message = %q", failure.Message)
	}
	if fake.submitCalls != 0 || fake.historyCalls != 0 || fake.fetchCalls != 0 {
		t.Error("network calls issued for invalid input")
	}
}

func TestRunSubmissionFailureStopsBeforePolling(t *testing.T) {
	fake := &fakeBackend{submitErr: errors.New("no prompt_id returned by backend")}
	o := newTestOrchestrator(fake, imageSettings())

	req := Request{Workflow: json.RawMessage(`{"3":{}}`), MaxWait: time.Minute}
	_, err := o.Run(context.Background(), req)
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("error = %v, want ErrSubmission", err)
	}
	if fake.historyCalls != 0 {
		t.Error("polling started after failed submission")
	}
}

func TestRunBackendExecutionError(t *testing.T) {
	execution := decodeExecution(t, `{
		"status": {"status_str": "ERROR", "messages": [["execution_error", {}]]},
		"outputs": {"9": {"images": [{"filename": "out.png"}]}}
	}`)
	fake := &fakeBackend{submitID: "abc", historySteps: []historyStep{{execution: execution}}}
	o := newTestOrchestrator(fake, imageSettings())

	req := Request{Workflow: json.RawMessage(`{"3":{}}`), OutputNodeIDs: []string{"9"}, MaxWait: time.Minute}
	doc, err := o.Run(context.Background(), req)
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("error = %v, want ErrExecution", err)
	}
	failure := doc.(response.Error)
	if failure.PromptID != "abc" {
		t.Errorf("prompt id = %q", failure.PromptID)
	}
	if !bytes.Contains(failure.Details, []byte("execution_error")) {
		t.Errorf("raw status block not attached: %s", failure.Details)
	}
	if fake.fetchCalls != 0 {
		t.Error("artifact fetched despite error status")
	}
}

func TestRunImageScenario(t *testing.T) {
	source := pngFixture(t)
	execution := decodeExecution(t, `{
		"status": {"status_str": "success"},
		"outputs": {"9": {"images": [{"filename": "out.png", "subfolder": "", "type": "output"}]}}
	}`)
	fake := &fakeBackend{
		submitID:     "abc",
		historySteps: []historyStep{notReady(), notReady(), {execution: execution}},
		fetchPayload: backend.Payload{Data: source, ContentType: "image/png"},
	}
	o := newTestOrchestrator(fake, imageSettings())

	req := Request{
		Workflow:      json.RawMessage(`{"3":{}}`),
		OutputNodeIDs: []string{"9"},
		MaxWait:       300 * time.Second,
		Seed:          json.RawMessage(`42`),
	}
	doc, err := o.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	success, ok := doc.(response.Success)
	if !ok {
		t.Fatalf("doc = %T", doc)
	}
	if success.PromptID != "abc" || success.NodeID != "9" || success.Filename != "out.png" {
		t.Errorf("identity fields: %+v", success)
	}
	if success.ContentType != "image/jpeg" {
		t.Errorf("content type = %q, want image/jpeg after transcoding", success.ContentType)
	}
	if success.FileSize*100 > len(source)*110 {
		t.Errorf("final size %d exceeds 110%% of source %d", success.FileSize, len(source))
	}
	if string(success.Seed) != "42" {
		t.Errorf("seed = %s", success.Seed)
	}
	if fake.historyCalls != 3 {
		t.Errorf("history polls = %d, want 3", fake.historyCalls)
	}
	if fake.fetchCalls != 1 {
		t.Errorf("fetch calls = %d, want 1", fake.fetchCalls)
	}
}

func TestRunTimeoutWhenNeverReady(t *testing.T) {
	fake := &fakeBackend{submitID: "abc", historySteps: []historyStep{notReady()}}
	settings := imageSettings()
	o := newTestOrchestrator(fake, settings)

	req := Request{Workflow: json.RawMessage(`{"3":{}}`), MaxWait: 30 * time.Second}
	doc, err := o.Run(context.Background(), req)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	failure := doc.(response.Error)
	if failure.PromptID != "abc" {
		t.Errorf("timeout must carry the prompt id for diagnostics: %+v", failure)
	}
	if !strings.Contains(failure.Message, "timeout after 30s") {
		t.Errorf("message = %q", failure.Message)
	}
	// 30s deadline with 1.5s polls: the loop must have kept retrying.
	if fake.historyCalls < 10 {
		t.Errorf("history polls = %d, expected a full polling run", fake.historyCalls)
	}
}

func TestRunRetrievalFailure(t *testing.T) {
	execution := decodeExecution(t, `{
		"status": {"status_str": "success"},
		"outputs": {"9": {"images": [{"filename": "out.png"}]}}
	}`)
	fake := &fakeBackend{
		submitID:     "abc",
		historySteps: []historyStep{{execution: execution}},
		fetchErr:     errors.New("view returned 500"),
	}
	o := newTestOrchestrator(fake, imageSettings())

	req := Request{Workflow: json.RawMessage(`{"3":{}}`), OutputNodeIDs: []string{"9"}, MaxWait: time.Minute}
	doc, err := o.Run(context.Background(), req)
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("error = %v, want ErrRetrieval", err)
	}
	failure := doc.(response.Error)
	if failure.ImageInfo == nil || failure.ImageInfo.Filename != "out.png" {
		t.Errorf("descriptor context missing: %+v", failure)
	}
}

func TestRunDescriptorWithoutFilenameIsTerminal(t *testing.T) {
	execution := decodeExecution(t, `{
		"status": {"status_str": "success"},
		"outputs": {"9": {"images": [{"subfolder": "s"}]}}
	}`)
	fake := &fakeBackend{submitID: "abc", historySteps: []historyStep{{execution: execution}}}
	o := newTestOrchestrator(fake, imageSettings())

	req := Request{Workflow: json.RawMessage(`{"3":{}}`), OutputNodeIDs: []string{"9"}, MaxWait: time.Minute}
	_, err := o.Run(context.Background(), req)
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("error = %v, want ErrRetrieval", err)
	}
	if fake.fetchCalls != 0 {
		t.Error("fetch attempted without a filename")
	}
}

func TestRunAudioScenario(t *testing.T) {
	execution := decodeExecution(t, `{
		"status": {"status_str": "success"},
		"outputs": {"8": {"audio": [{"filename": "song.flac"}]}}
	}`)
	fake := &fakeBackend{submitID: "abc", historySteps: []historyStep{{execution: execution}}}
	settings := Settings{
		Kind:           artifact.KindAudio,
		PreferredNodes: []string{"8"},
		MaxWait:        600 * time.Second,
		PollInterval:   2 * time.Second,
	}
	o := New(fake, nil, settings, nil)

	req := Request{Workflow: json.RawMessage(`{"3":{}}`), OutputNodeIDs: []string{"8"}, MaxWait: 600 * time.Second}
	doc, err := o.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	success := doc.(response.Success)
	if success.AudioURL != "http://backend/view?filename=song.flac&type=output" {
		t.Errorf("audio url = %q", success.AudioURL)
	}
	if success.ImageBase64 != "" {
		t.Error("audio pipeline must not inline bytes")
	}
	if fake.fetchCalls != 0 {
		t.Error("audio pipeline must not fetch artifact bytes")
	}
}

func TestRunFallbackNodeSelection(t *testing.T) {
	execution := decodeExecution(t, `{
		"status": {"status_str": "success"},
		"outputs": {
			"7": {"text": ["meta"]},
			"12": {"images": [{"filename": "other.png"}]}
		}
	}`)
	source := pngFixture(t)
	fake := &fakeBackend{
		submitID:     "abc",
		historySteps: []historyStep{{execution: execution}},
		fetchPayload: backend.Payload{Data: source, ContentType: "image/png"},
	}
	o := newTestOrchestrator(fake, imageSettings())

	req := Request{Workflow: json.RawMessage(`{"3":{}}`), OutputNodeIDs: []string{"9"}, MaxWait: time.Minute}
	doc, err := o.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if success := doc.(response.Success); success.NodeID != "12" {
		t.Errorf("node id = %q, want fallback 12", success.NodeID)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	fake := &fakeBackend{submitID: "abc", panicHistory: true}
	o := newTestOrchestrator(fake, imageSettings())

	req := Request{Workflow: json.RawMessage(`{"3":{}}`), MaxWait: time.Minute}
	doc, err := o.Run(context.Background(), req)
	if err == nil {
		t.Fatal("expected error after panic")
	}
	failure, ok := doc.(response.Error)
	if !ok {
		t.Fatalf("doc = %T", doc)
	}
	if !strings.Contains(failure.Message, "history exploded") {
		t.Errorf("panic message lost: %q", failure.Message)
	}
}
