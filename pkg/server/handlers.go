package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pipescope/pkg/buildinfo"
	perrors "github.com/matzehuels/pipescope/pkg/errors"
	"github.com/matzehuels/pipescope/pkg/explorer"
	"github.com/matzehuels/pipescope/pkg/layout"
	"github.com/matzehuels/pipescope/pkg/lineage"
	"github.com/matzehuels/pipescope/pkg/session"
	"github.com/matzehuels/pipescope/pkg/view"
)

const maxBodyBytes = 1 << 20

// =============================================================================
// Response Types
// =============================================================================

type errorBody struct {
	Code    perrors.Code `json:"code"`
	Message string       `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

type sessionResponse struct {
	ID        string     `json:"id"`
	State     view.State `json:"state"`
	Highlight []string   `json:"highlight,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
}

type modesResponse struct {
	Default string              `json:"default"`
	Modes   []explorer.ModeInfo `json:"modes"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []lineage.Node `json:"results"`
}

type layoutResponse struct {
	*layout.Result
	Cached bool `json:"cached"`
}

// actionRequest is the body of every session action. Fields that do not
// apply to the action are ignored.
type actionRequest struct {
	Mode      string `json:"mode"`
	Node      string `json:"node"`
	Direction string `json:"direction"`
	Type      string `json:"type"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, modesResponse{
		Default: lineage.DefaultMode,
		Modes:   s.runner.Modes(),
	})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	d, err := s.runner.Detail(chi.URLParam(r, "mode"), chi.URLParam(r, "*"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	state, err := s.runner.Apply(view.State{}, explorer.Action{Kind: explorer.ActionMode, Mode: req.Mode})
	if err != nil {
		s.writeError(w, err)
		return
	}

	sess := session.New(s.runner.PayloadHash(), state, s.cfg.SessionTTL)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.writeError(w, perrors.Wrap(perrors.ErrCodeInternal, err, "store session"))
		return
	}
	s.logger.Debug("created session", "id", sess.ID, "mode", state.Mode)
	writeJSON(w, http.StatusCreated, s.sessionResponse(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.sessions.Delete(r.Context(), sess.ID); err != nil {
		s.writeError(w, perrors.Wrap(perrors.ErrCodeInternal, err, "delete session"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, hit, err := s.runner.LayoutWithCacheInfo(r.Context(), sess.State)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layoutResponse{Result: res, Cached: hit})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query().Get("q")
	nodes, err := s.runner.Search(sess.State, q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if nodes == nil {
		nodes = []lineage.Node{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: nodes})
}

// action returns a handler that applies one kind of action to a session
// and stores the resulting state. A rejected action leaves the session
// untouched.
func (s *Server) action(kind explorer.ActionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.loadSession(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		var req actionRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		state, err := s.runner.Apply(sess.State, explorer.Action{
			Kind:      kind,
			Mode:      req.Mode,
			Node:      req.Node,
			Direction: req.Direction,
			Type:      req.Type,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}

		sess.Update(state, s.cfg.SessionTTL)
		if err := s.sessions.Set(r.Context(), sess); err != nil {
			s.writeError(w, perrors.Wrap(perrors.ErrCodeInternal, err, "store session"))
			return
		}
		writeJSON(w, http.StatusOK, s.sessionResponse(sess))
	}
}

// =============================================================================
// Helpers
// =============================================================================

// loadSession returns the session named in the URL. Sessions created for a
// different payload are treated as missing.
func (s *Server) loadSession(r *http.Request) (*session.Session, error) {
	id := chi.URLParam(r, "id")
	if err := session.ValidateID(id); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "session id %q", id)
	}
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInternal, err, "load session")
	}
	if sess == nil || sess.Payload != s.runner.PayloadHash() {
		return nil, perrors.Wrap(perrors.ErrCodeSessionNotFound, session.ErrNotFound, "session %s", id)
	}
	return sess, nil
}

func (s *Server) sessionResponse(sess *session.Session) sessionResponse {
	return sessionResponse{
		ID:        sess.ID,
		State:     sess.State,
		Highlight: view.Highlight(s.runner.Graph(sess.State), sess.State),
		ExpiresAt: sess.ExpiresAt,
	}
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// unchanged.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := perrors.GetCode(err)
	if code == "" {
		code = perrors.ErrCodeInternal
	}
	status := perrors.HTTPStatus(code)
	msg := perrors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "err", err)
		if code == perrors.ErrCodeInternal {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
