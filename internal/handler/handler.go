package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/Dan9191/cofrinho-service/internal/config"
	"github.com/Dan9191/cofrinho-service/internal/models"
	"github.com/Dan9191/cofrinho-service/internal/service"
	"github.com/Dan9191/cofrinho-service/internal/simulation"
	"github.com/Dan9191/cofrinho-service/internal/snapshot"
	"github.com/sirupsen/logrus"
)

// SignatureHeader carries the HMAC of an exported snapshot
const SignatureHeader = "X-Snapshot-Signature"

// maxRequestBytes bounds JSON request bodies
const maxRequestBytes = 64 << 10

var errTrailingData = errors.New("unexpected data after request body")

type Handler struct {
	svc *service.Service
	cfg *config.Config
	log *logrus.Logger
}

func NewHandler(svc *service.Service, cfg *config.Config, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, cfg: cfg, log: log}
}

// Simulate handles a simulation request
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSimulationRequest(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Simulate(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Export handles a simulation request and returns the snapshot file
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSimulationRequest(w, r)
	if !ok {
		return
	}
	data, signature, err := h.svc.Export(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": service.ExportFilename}))
	w.Header().Set(SignatureHeader, signature)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import handles an uploaded snapshot file, either as the raw request
// body or as the "file" field of a multipart form
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := h.readUpload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "file too large", Kind: "too_large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}

	verify, _ := strconv.ParseBool(r.URL.Query().Get("verify"))
	resp, err := h.svc.Import(r.Context(), data, r.Header.Get(SignatureHeader), verify)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CurrentRate returns the annual rate applied to simulations
func (h *Handler) CurrentRate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CurrentRate(r.Context()))
}

// RefreshRate fetches and stores the current CDI
func (h *Handler) RefreshRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.svc.RefreshRate(r.Context())
	if err != nil {
		h.log.Errorf("Rate refresh failed: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "failed to refresh rate", Kind: "upstream"})
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// Login handles administrator authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	token, err := h.svc.Login(req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// EmailExport mails a snapshot file
func (h *Handler) EmailExport(w http.ResponseWriter, r *http.Request) {
	var req models.EmailExportRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := h.svc.EmailExport(r.Context(), req.To, req.Simulation); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// decodeSimulationRequest accepts an empty body, which selects every default
func (h *Handler) decodeSimulationRequest(w http.ResponseWriter, r *http.Request) (models.SimulationRequest, bool) {
	var req models.SimulationRequest
	return req, decodeBody(w, r, &req, true)
}

// decodeBody reads exactly one JSON value of at most maxRequestBytes into v
// and writes the error response itself when it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	switch {
	case errors.Is(err, io.EOF) && allowEmpty:
		err = nil
	case err == nil:
		if _, terr := dec.Token(); terr == nil {
			err = errTrailingData
		} else if !errors.Is(terr, io.EOF) {
			err = terr
		}
	}

	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return true
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "request body too large", Kind: "too_large"})
	default:
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Kind: "bad_request"})
	}
	return false
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var perr *simulation.ParamError
	switch {
	case errors.As(err, &perr):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Kind: "invalid_parameter", Field: perr.Field})
	case errors.Is(err, simulation.ErrNumericOverflow):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: err.Error(), Kind: "numeric_overflow"})
	case errors.Is(err, snapshot.ErrMalformedInput):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Kind: "malformed_input"})
	case errors.Is(err, snapshot.ErrSchemaMismatch):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: err.Error(), Kind: "schema_mismatch"})
	case errors.Is(err, snapshot.ErrReplayMismatch):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: err.Error(), Kind: "replay_mismatch"})
	case errors.Is(err, service.ErrInvalidSignature):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Kind: "invalid_signature"})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: err.Error(), Kind: "unauthorized"})
	default:
		h.log.Errorf("Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error", Kind: "internal"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
