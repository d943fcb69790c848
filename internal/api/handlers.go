package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/importer"
	"github.com/cleared-dev/recon/internal/logging"
	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/recon"
	"github.com/cleared-dev/recon/internal/store"
)

// ReconcileRequest is the body of POST /reconcile. Bank and Ledger are arrays
// of {id, date, description, amount} decoded the same way as JSON import files,
// so a record without a date or amount is rejected before matching.
type ReconcileRequest struct {
	Bank   json.RawMessage `json:"bank"`
	Ledger json.RawMessage `json:"ledger"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Validate checks the request envelope; record contents are checked on decode.
func (r *ReconcileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Bank, validation.NotNil),
		validation.Field(&r.Ledger, validation.NotNil),
	)
}

// ReconcileResponse is returned by POST /reconcile.
type ReconcileResponse struct {
	RunID   string        `json:"run_id"`
	State   recon.State   `json:"state"`
	Summary model.Summary `json:"summary"`
	Result  *model.Result `json:"result"`
	Saved   bool          `json:"saved"`
}

// Health reports liveness.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": s.runs != nil})
}

// Reconcile runs the engine over the posted records.
func (s *Server) Reconcile(c *gin.Context) {
	log := logging.FromContext(c.Request.Context())

	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := s.cfg
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "decoding config: " + err.Error()})
			return
		}
	}

	runID := id.NewRunID()
	engine, err := recon.New(cfg, recon.WithLogger(log.With().Str("run_id", runID).Logger()))
	if err != nil {
		writeError(c, err)
		return
	}

	bank, err := decodeRecords(req.Bank, model.SourceBank)
	if err != nil {
		writeError(c, err)
		return
	}
	ledger, err := decodeRecords(req.Ledger, model.SourceLedger)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := engine.ReconcileSharded(c.Request.Context(), bank, ledger, runtime.GOMAXPROCS(0))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := ReconcileResponse{
		RunID:   runID,
		State:   recon.StateCompleted,
		Summary: res.Summary(),
		Result:  res,
	}
	if s.runs != nil {
		run := &store.Run{ID: runID, CreatedAt: time.Now().UTC(), State: recon.StateCompleted, Config: cfg, Result: res}
		if err := s.runs.SaveRun(c.Request.Context(), run); err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("saving run")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp.Saved = true
	}
	c.JSON(http.StatusOK, resp)
}

// ListRuns returns recent runs without their match lists. ?limit=N caps the count.
func (s *Server) ListRuns(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	runs, err := s.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	c.JSON(http.StatusOK, runs)
}

// GetRun returns one run with its full result.
func (s *Server) GetRun(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	run, err := s.runs.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run store is not configured"})
		return false
	}
	return true
}

func writeError(c *gin.Context, err error) {
	var rerr *recon.InvalidRecordError
	var cerr *recon.ConfigurationError
	switch {
	case errors.As(err, &rerr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "source": rerr.Source, "record_id": rerr.ID, "field": rerr.Field})
	case errors.As(err, &cerr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "option": cerr.Option})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// decodeRecords parses one side of the request. Errors other than
// *recon.InvalidRecordError are malformed JSON and come back as 400 too.
func decodeRecords(raw json.RawMessage, source model.Source) ([]model.Record, error) {
	var parser importer.JSONParser
	records, err := parser.Parse(bytes.NewReader(raw), source)
	if err != nil {
		var rerr *recon.InvalidRecordError
		if errors.As(err, &rerr) {
			return nil, err
		}
		return nil, &recon.InvalidRecordError{Source: source, Index: -1, Reason: err.Error(), Err: err}
	}
	return records, nil
}
