package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/oakwood-commons/jtv/internal/host"
	"github.com/oakwood-commons/jtv/pkg/logger"
)

// ErrorResponse is the body of every non-protocol error.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// DocumentResponse is the body of GET /api/document.
type DocumentResponse struct {
	Content string `json:"content"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	logger.FromContext(r.Context()).Error(err, "request error", logger.StatusKey, status)
	writeJSON(w, status, ErrorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	text, err := s.host.Text(r.Context())
	if err != nil {
		respondError(w, r, fmt.Errorf("read document: %w", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{Content: text})
}

// handleMessage serves one protocol request. Undecodable messages are a 400;
// requests the host rejects return the error reply with 422.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("read body: %w", err), http.StatusBadRequest)
		return
	}

	reply, err := s.host.HandleRaw(r.Context(), body)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	switch reply.Command {
	case host.CommandError:
		status = http.StatusUnprocessableEntity
	case host.CommandDocumentUpdated:
		// Other viewers learn about the edit without a request id.
		s.Publish(host.DocumentUpdated("", reply.NewContent))
	}
	writeJSON(w, status, reply)
}

// handleEvents streams document updates as server-sent events until the
// client goes away. Each event is named after the reply command and carries
// the reply as one JSON data line.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	updates, cancel := s.subscribe()
	defer cancel()

	sse := datastar.NewSSE(w, r)
	for {
		select {
		case <-sse.Context().Done():
			return
		case reply := <-updates:
			data, err := json.Marshal(reply)
			if err != nil {
				logger.FromContext(r.Context()).Error(err, "encode event")
				continue
			}
			if err := sse.Send(datastar.EventType(reply.Command), []string{string(data)}); err != nil {
				logger.FromContext(r.Context()).V(1).Info("event stream closed", "error", err.Error())
				return
			}
		}
	}
}
