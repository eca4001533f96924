package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"easel/internal/artifact"
	"easel/internal/backend"
	"easel/internal/config"
	"easel/internal/imageproc"
	"easel/internal/logging"
	"easel/internal/response"
)

// Settings captures the per-pipeline orchestration defaults, fixed at
// construction so the orchestrator itself carries no mutable state between
// jobs.
type Settings struct {
	Kind           artifact.Kind
	PreferredNodes []string
	MaxWait        time.Duration
	PollInterval   time.Duration
}

// SettingsFromConfig derives orchestration settings from configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	kind := artifact.KindImage
	if cfg.Job.Pipeline == "audio" {
		kind = artifact.KindAudio
	}
	return Settings{
		Kind:           kind,
		PreferredNodes: append([]string(nil), cfg.Job.OutputNodes...),
		MaxWait:        cfg.MaxWait(),
		PollInterval:   cfg.PollInterval(),
	}
}

// Orchestrator drives one job through submission, polling, artifact
// retrieval, and post-processing. It is re-entrant: Run owns all per-job
// state on its stack, so one orchestrator can serve concurrent invocations.
type Orchestrator struct {
	backend  backend.Client
	proc     *imageproc.Processor
	settings Settings
	logger   *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New constructs an orchestrator. The processor may be nil for audio
// pipelines, which never fetch artifact bytes.
func New(client backend.Client, proc *imageproc.Processor, settings Settings, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = 1500 * time.Millisecond
	}
	if settings.MaxWait <= 0 {
		settings.MaxWait = 300 * time.Second
	}
	return &Orchestrator{
		backend:  client,
		proc:     proc,
		settings: settings,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Run executes one job to completion. It always returns a well-formed
// document; the error, when non-nil, carries one of the package sentinels
// and exists for logging and tests, never for the caller's payload.
func (o *Orchestrator) Run(ctx context.Context, req Request) (doc response.Document, err error) {
	promptID := ""
	defer func() {
		// Last line of defense: a panic anywhere in the pipeline still
		// yields exactly one normalized error document.
		if r := recover(); r != nil {
			err = fmt.Errorf("unhandled failure: %v", r)
			doc = response.Failure(err.Error(), promptID)
		}
	}()

	logger := logging.WithContext(ctx, o.logger)

	if !req.HasWorkflow() {
		return response.Failure("missing workflow in job input", ""),
			Wrap(ErrInput, "validate", "missing workflow", nil)
	}

	promptID, submitErr := o.backend.Submit(ctx, req.Workflow)
	if submitErr != nil {
		return response.Failure(fmt.Sprintf("workflow submission failed: %v", submitErr), ""),
			Wrap(ErrSubmission, "submit", "", submitErr)
	}
	logger = logger.With(logging.String(logging.FieldPromptID, promptID))
	logger.Info("workflow submitted",
		logging.Duration("max_wait", req.MaxWait),
		logging.Any("preferred_nodes", req.OutputNodeIDs),
	)

	started := o.now()
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response.Failure(fmt.Sprintf("job canceled: %v", ctxErr), promptID), ctxErr
		}
		if elapsed := o.now().Sub(started); elapsed > req.MaxWait {
			logger.Warn("job deadline exceeded", logging.Duration("elapsed", elapsed))
			return response.Failure(fmt.Sprintf("timeout after %ds waiting for backend", int(req.MaxWait.Seconds())), promptID),
				Wrap(ErrTimeout, "poll", fmt.Sprintf("deadline %s exceeded", req.MaxWait), nil)
		}

		execution, histErr := o.backend.History(ctx, promptID)
		if histErr != nil {
			if errors.Is(histErr, backend.ErrNotReady) {
				o.sleep(ctx, o.settings.PollInterval)
				continue
			}
			return response.Failure(fmt.Sprintf("history poll failed: %v", histErr), promptID),
				Wrap(ErrRetrieval, "poll", "", histErr)
		}

		if execution.Status.IsError() {
			details, _ := execution.Status.MarshalJSON()
			return response.Error{
					Message:  "backend execution error",
					PromptID: promptID,
					Details:  details,
				},
				Wrap(ErrExecution, "poll", "backend reported error status", nil)
		}

		desc, nodeID, ok := artifact.Resolve(execution.Outputs, o.settings.Kind, req.OutputNodeIDs)
		if !ok {
			// History is present but no artifact yet; keep polling until the
			// deadline.
			o.sleep(ctx, o.settings.PollInterval)
			continue
		}
		return o.retrieve(ctx, logger, promptID, nodeID, desc, req)
	}
}

// retrieve is terminal: every outcome here ends the job.
func (o *Orchestrator) retrieve(ctx context.Context, logger *slog.Logger, promptID, nodeID string, desc backend.Descriptor, req Request) (response.Document, error) {
	if desc.Filename == "" {
		return response.Error{
				Message:   "missing filename in artifact output",
				PromptID:  promptID,
				ImageInfo: &desc,
			},
			Wrap(ErrRetrieval, "resolve", "descriptor missing filename", nil)
	}

	if o.settings.Kind == artifact.KindAudio {
		viewURL := o.backend.ViewURL(desc)
		logger.Info("job succeeded",
			logging.String("node_id", nodeID),
			logging.String("filename", desc.Filename),
		)
		return response.Audio(promptID, nodeID, desc, viewURL), nil
	}

	payload, err := o.backend.FetchArtifact(ctx, desc)
	if err != nil {
		return response.Error{
				Message:   fmt.Sprintf("artifact retrieval failed: %v", err),
				PromptID:  promptID,
				ImageInfo: &desc,
			},
			Wrap(ErrRetrieval, "fetch", "", err)
	}

	originalSize := len(payload.Data)
	if o.proc != nil {
		result := o.proc.Process(payload.Data, payload.ContentType)
		if result.Note != "" {
			logger.Warn("post-processing degraded to pass-through", logging.String("note", result.Note))
		}
		payload = backend.Payload{Data: result.Data, ContentType: result.ContentType}
	}

	logger.Info("job succeeded",
		logging.String("node_id", nodeID),
		logging.String("filename", desc.Filename),
		logging.String("content_type", payload.ContentType),
		logging.Int("original_bytes", originalSize),
		logging.Int("final_bytes", len(payload.Data)),
	)
	return response.Image(promptID, nodeID, req.Seed, desc, payload), nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
