package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"easel/internal/job"
	"easel/internal/logging"
	"easel/internal/response"
)

// maxJobBytes bounds the inbound job document; workflows are JSON graphs,
// not bulk data.
const maxJobBytes = 32 << 20

// handleRun accepts one job document, runs it synchronously, and always
// responds 200 with exactly one normalized document, mirroring the
// serverless handler contract.
func (d *Daemon) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		d.writeDocument(w, http.StatusMethodNotAllowed, response.Failure("method not allowed", ""))
		return
	}

	requestID := uuid.NewString()
	ctx := logging.WithRequestID(r.Context(), requestID)
	logger := logging.WithContext(ctx, d.logger)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxJobBytes))
	if err != nil {
		logger.Error("read job document failed", logging.Error(err))
		d.writeDocument(w, http.StatusOK, response.Failure(fmt.Sprintf("read job document: %v", err), ""))
		return
	}

	request, err := job.ParseEnvelope(body, d.settings)
	if err != nil {
		logger.Error("invalid job document", logging.Error(err))
		d.writeDocument(w, http.StatusOK, response.Failure(fmt.Sprintf("invalid job document: %v", err), ""))
		return
	}

	started := time.Now()
	logger.Info("job accepted", logging.Duration("max_wait", request.MaxWait))

	doc, runErr := d.orchestrator.Run(ctx, request)
	if runErr != nil {
		logger.Error("job failed",
			logging.Error(runErr),
			logging.String("kind", classify(runErr)),
			logging.Duration("elapsed", time.Since(started)),
		)
	} else {
		logger.Info("job completed", logging.Duration("elapsed", time.Since(started)))
	}
	d.writeDocument(w, http.StatusOK, doc)
}

func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		d.writeDocument(w, http.StatusMethodNotAllowed, response.Failure("method not allowed", ""))
		return
	}
	status := http.StatusOK
	payload := map[string]string{"status": "ok", "backend": "reachable"}
	if d.client != nil {
		if err := d.client.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			payload["status"] = "degraded"
			payload["backend"] = err.Error()
		}
	}
	d.writeJSON(w, status, payload)
}

func classify(err error) string {
	switch {
	case errors.Is(err, job.ErrInput):
		return "input"
	case errors.Is(err, job.ErrSubmission):
		return "submission"
	case errors.Is(err, job.ErrExecution):
		return "execution"
	case errors.Is(err, job.ErrRetrieval):
		return "retrieval"
	case errors.Is(err, job.ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}

func (d *Daemon) writeDocument(w http.ResponseWriter, status int, doc response.Document) {
	d.writeJSON(w, status, doc)
}

func (d *Daemon) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		d.logger.Error("encode response failed", logging.Error(err))
	}
}
