package httpapi

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"streamd/pkg/types"
)

// listModels godoc
// @Summary      List models
// @Description  Models discovered in the models directory.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func (a *api) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: a.svc.ListModels()})
}

// status godoc
// @Summary      Manager status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (a *api) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Status())
}

// loadModel godoc
// @Summary      Load a model in the background
// @Tags         models
// @Produce      json
// @Param        id   path      string  true  "Model id"
// @Success      202  {object}  types.LoadResponse
// @Failure      404  {object}  types.ErrorResponse
// @Router       /models/{id}/load [post]
func (a *api) loadModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	op, err := a.svc.Switch(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.LoadResponse{OpID: op, Model: id})
}

// unloadModel godoc
// @Summary      Drain and unload a model
// @Tags         models
// @Produce      json
// @Param        id   path      string  true  "Model id"
// @Success      200  {object}  types.SessionResponse
// @Failure      404  {object}  types.ErrorResponse
// @Failure      429  {object}  types.ErrorResponse
// @Router       /models/{id} [delete]
func (a *api) unloadModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := joinContexts(opts.BaseContext, r.Context())
	defer cancel()
	if err := a.svc.Unload(ctx, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SessionResponse{Model: id, Status: "unloaded"})
}

// requireJSON rejects bodies that are not declared as JSON.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if !requireJSON(w, r) {
		return false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, opts.MaxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "could not read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// countingWriter remembers whether anything reached the client.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// infer godoc
// @Summary      Stream a generation
// @Description  Streams NDJSON: one {"token":...} line per fragment, then a
// @Description  {"done":true,...} line with the full text, finish reason and
// @Description  usage. A failure after streaming began is reported on the
// @Description  done line with "error" and "error_kind".
// @Tags         inference
// @Accept       json
// @Produce      application/x-ndjson
// @Param        request  body      types.InferRequest  true  "Inference request"
// @Success      200      {object}  types.DoneLine
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /infer [post]
func (a *api) infer(w http.ResponseWriter, r *http.Request) {
	var req types.InferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	out := &countingWriter{w: w}
	writer := io.Writer(out)
	log := requestLogger(r)
	if log.GetLevel() <= zerolog.DebugLevel {
		writer = io.MultiWriter(out, &streamTap{log: log})
	}
	log.Info().Str("model", req.Model).Msg("infer start")

	start := time.Now()
	ctx, cancel := joinContexts(opts.BaseContext, r.Context())
	defer cancel()
	if opts.InferTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, opts.InferTimeout)
		defer tcancel()
	}

	err := a.svc.Infer(ctx, req, writer, flush)
	switch {
	case err == nil:
		log.Info().Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("infer end")
	case r.Context().Err() != nil || opts.BaseContext.Err() != nil:
		// Client went away or the server is shutting down.
		log.Info().Dur("dur", time.Since(start)).Err(err).Msg("infer aborted")
	case out.n > 0:
		// Headers are gone; the stream itself carries the outcome.
		log.Error().Dur("dur", time.Since(start)).Err(err).Msg("infer stream failed")
	default:
		w.Header().Del("Content-Type")
		status := writeServiceError(w, err)
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("infer end")
	}
}

// stopSession godoc
// @Summary      Stop the running generation
// @Description  Sets the session's stop flag; the generation ends at the next token boundary.
// @Tags         sessions
// @Produce      json
// @Param        model  path      string  true  "Model id"
// @Success      200    {object}  types.SessionResponse
// @Failure      404    {object}  types.ErrorResponse
// @Failure      409    {object}  types.ErrorResponse
// @Router       /sessions/{model}/stop [post]
func (a *api) stopSession(w http.ResponseWriter, r *http.Request) {
	resp, err := a.svc.StopSession(chi.URLParam(r, "model"))
	a.sessionResult(w, resp, err)
}

// resetSession godoc
// @Summary      Clear conversation memory
// @Tags         sessions
// @Produce      json
// @Param        model  path      string  true  "Model id"
// @Success      200    {object}  types.SessionResponse
// @Failure      404    {object}  types.ErrorResponse
// @Failure      409    {object}  types.ErrorResponse
// @Failure      429    {object}  types.ErrorResponse
// @Router       /sessions/{model}/reset [post]
func (a *api) resetSession(w http.ResponseWriter, r *http.Request) {
	resp, err := a.svc.ResetSession(r.Context(), chi.URLParam(r, "model"))
	a.sessionResult(w, resp, err)
}

// saveSession godoc
// @Summary      Snapshot session memory
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        model    path      string                true  "Model id"
// @Param        request  body      types.SessionRequest  true  "Snapshot key"
// @Success      200      {object}  types.SessionResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /sessions/{model}/save [post]
func (a *api) saveSession(w http.ResponseWriter, r *http.Request) {
	var req types.SessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeJSONError(w, http.StatusBadRequest, "key is required")
		return
	}
	resp, err := a.svc.SaveSession(r.Context(), chi.URLParam(r, "model"), req.Key)
	a.sessionResult(w, resp, err)
}

// loadSession godoc
// @Summary      Restore session memory
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        model    path      string                true  "Model id"
// @Param        request  body      types.SessionRequest  true  "Snapshot key"
// @Success      200      {object}  types.SessionResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /sessions/{model}/load [post]
func (a *api) loadSession(w http.ResponseWriter, r *http.Request) {
	var req types.SessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeJSONError(w, http.StatusBadRequest, "key is required")
		return
	}
	resp, err := a.svc.LoadSession(r.Context(), chi.URLParam(r, "model"), req.Key)
	a.sessionResult(w, resp, err)
}

func (a *api) sessionResult(w http.ResponseWriter, resp types.SessionResponse, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
