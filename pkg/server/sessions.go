package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperion-energy/hyperion/pkg/controller"
	"github.com/hyperion-energy/hyperion/pkg/log"
	"github.com/hyperion-energy/hyperion/pkg/types"
)

type createSessionResponse struct {
	ID   string          `json:"id"`
	View types.ViewState `json:"view"`
}

type editRequest struct {
	Field types.Field `json:"field"`
	Value *float64    `json:"value"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := newID()
	// the session outlives the request so it only inherits a fresh logger
	ctx := log.WithAttrs(context.Background(), slog.String("sessionID", id))
	sess := s.controller.NewSession(ctx)
	s.sessions.add(id, sess)

	log.Ctx(r.Context()).InfoContext(r.Context(), "created session", slog.String("sessionID", id))
	writeJSON(w, createSessionResponse{ID: id, View: sess.View()}, http.StatusCreated)
}

// session looks up the session named in the path and writes the error
// response if there is none.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*controller.Session, bool) {
	sess, err := s.sessions.get(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, sess.View(), http.StatusOK)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.remove(r.PathValue("id")); err != nil {
		writeJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req editRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Value == nil {
		writeJSONError(w, "value is required", http.StatusBadRequest)
		return
	}
	rng, err := types.Range(req.Field)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// the slider only ever produces values on its grid
	if _, err := sess.Edit(r.Context(), req.Field, rng.Clamp(*req.Value)); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, sess.View(), http.StatusOK)
}

func (s *Server) handleReplaceInputs(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var patch inputsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := sess.Update(r.Context(), patch.apply); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, sess.View(), http.StatusOK)
}

// inputsPatch holds the fields of a PUT inputs body. Missing fields keep
// their current value.
type inputsPatch struct {
	NumEngines *float64 `json:"num_engines"`
	SolarMW    *float64 `json:"solar_mw"`
	BatteryMWH *float64 `json:"battery_mwh"`
	Latitude   *float64 `json:"latitude"`
}

// apply sets the present fields on in and clamps the result.
func (p inputsPatch) apply(in types.Inputs) types.Inputs {
	for f, v := range map[types.Field]*float64{
		types.FieldNumEngines: p.NumEngines,
		types.FieldSolarMW:    p.SolarMW,
		types.FieldBatteryMWH: p.BatteryMWH,
		types.FieldLatitude:   p.Latitude,
	} {
		if v == nil {
			continue
		}
		// every key is a known field
		in, _ = in.With(f, *v)
	}
	return in.Clamped()
}

func (s *Server) handleGenerateProposal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := sess.GenerateProposal(r.Context()); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, sess.View(), http.StatusAccepted)
}

func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, controller.ErrProposalInFlight):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, controller.ErrClosed):
		writeJSONError(w, ErrSessionNotFound.Error(), http.StatusNotFound)
	case errors.Is(err, types.ErrUnknownField):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// the client went away
		log.Ctx(r.Context()).DebugContext(r.Context(), "request canceled", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	default:
		log.Ctx(r.Context()).ErrorContext(r.Context(), "session operation failed", slog.Any("error", err))
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
