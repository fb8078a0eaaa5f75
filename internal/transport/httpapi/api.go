package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
)

type errorBody struct {
	Error string `json:"error"`
}

type respondRequest struct {
	Channel        string          `json:"channel"`
	Text           string          `json:"text"`
	Contact        core.ContactRef `json:"contact"`
	ConversationID string          `json:"conversationId"`
	Language       string          `json:"language"`
}

type resolveRequest struct {
	Summary *string `json:"summary"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := core.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.FromCtx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: core.PublicMessage(err)})
}

// decodeJSON reads an optional JSON body; an empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return core.InvalidInput("invalid request body: %v", err)
	}
	return nil
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	channel, err := core.ParseChannel(req.Channel)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Responder.Respond(r.Context(), core.Inbound{
		BusinessID:     chi.URLParam(r, "businessID"),
		Channel:        channel,
		Text:           req.Text,
		Contact:        req.Contact,
		ConversationID: req.ConversationID,
		Language:       req.Language,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	if err := s.deps.Responder.Resolve(r.Context(), chi.URLParam(r, "businessID"), conversationID, req.Summary); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"conversationId": conversationID,
		"status":         string(core.StatusResolved),
	})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if s.deps.Summarizer == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "summarization is not configured"})
		return
	}

	sum, err := s.deps.Summarizer.Summarize(r.Context(), chi.URLParam(r, "businessID"), chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
