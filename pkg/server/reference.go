package server

import (
	"log/slog"
	"net/http"

	"github.com/hyperion-energy/hyperion/pkg/engine"
	"github.com/hyperion-energy/hyperion/pkg/log"
	"github.com/hyperion-energy/hyperion/pkg/proposal"
	"github.com/hyperion-energy/hyperion/pkg/types"
)

type fieldsResponse struct {
	Fields   []types.FieldRange `json:"fields"`
	Defaults types.Inputs       `json:"defaults"`
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, fieldsResponse{
		Fields:   types.Ranges(),
		Defaults: s.controller.Initial(),
	}, http.StatusOK)
}

// handleCalculate is the reference energy simulation service.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var in types.Inputs
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// frames must stay non-negative, which needs in-range inputs
	res, err := s.engine.Simulate(r.Context(), in.Clamped())
	if err != nil {
		log.Ctx(r.Context()).ErrorContext(r.Context(), "failed to simulate", slog.Any("error", err))
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, res, http.StatusOK)
}

// handleReferenceProposal is the reference proposal generation service.
func (s *Server) handleReferenceProposal(w http.ResponseWriter, r *http.Request) {
	var in types.Inputs
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	text, err := s.writer.GenerateProposal(r.Context(), in.Clamped())
	if err != nil {
		log.Ctx(r.Context()).ErrorContext(r.Context(), "failed to generate proposal", slog.Any("error", err))
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, proposal.Response{ProposalText: text}, http.StatusOK)
}

type productsResponse struct {
	Products []engine.Product `json:"products"`
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, productsResponse{Products: s.engine.Catalog().Products}, http.StatusOK)
}
