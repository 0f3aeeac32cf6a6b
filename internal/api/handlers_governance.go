package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/fund-engine/internal/models"
	"github.com/fund-engine/internal/types"
	"github.com/gorilla/mux"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// CreateProposalRequest is the body for POST /api/proposals.
type CreateProposalRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ProposalType string `json:"proposalType"`
	TargetValue  uint64 `json:"targetValue"`
}

// CreateProposalResponse reports the id of a new proposal.
type CreateProposalResponse struct {
	ProposalID uint64 `json:"proposalId"`
}

// VoteRequest is the body for POST /api/proposals/{id}/votes.
type VoteRequest struct {
	Support bool `json:"support"`
}

// handleCreateProposal registers a new governance proposal.
func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	caller, catErr := callerPrincipal(r)
	if catErr != nil {
		respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
		return
	}

	var req CreateProposalRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	id, err := s.engine.CreateProposal(r.Context(), caller, req.Title, req.Description, types.ProposalType(req.ProposalType), req.TargetValue)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CreateProposalResponse{ProposalID: id})
}

// handleGetProposal returns a proposal view, cached when possible.
func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseProposalID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid proposal id", nil)
		return
	}

	if s.cache != nil {
		var cached models.Proposal
		hit, cacheErr := s.cache.Get(ctx, s.cache.ProposalKey(id), &cached)
		if cacheErr != nil {
			log.Printf("WARN: proposal cache read failed: %v", cacheErr)
		} else if hit {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	proposal, err := s.engine.GetProposal(ctx, id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if proposal == nil {
		respondError(w, http.StatusNotFound, "PROPOSAL_NOT_FOUND", "proposal not found", nil)
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cache.ProposalKey(id), proposal); err != nil {
			log.Printf("WARN: proposal cache write failed: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, proposal)
}

// handleVote casts the caller's vote on a proposal.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	caller, catErr := callerPrincipal(r)
	if catErr != nil {
		respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
		return
	}

	id, err := parseProposalID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid proposal id", nil)
		return
	}

	var req VoteRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	if err := s.engine.Vote(r.Context(), caller, id, req.Support); err != nil {
		respondEngineError(w, err)
		return
	}

	s.invalidateProposalView(r, id)
	respondJSON(w, http.StatusOK, map[string]bool{"voted": true})
}

// handleExecuteRebalancing executes a passed rebalance proposal.
func (s *Server) handleExecuteRebalancing(w http.ResponseWriter, r *http.Request) {
	caller, catErr := callerPrincipal(r)
	if catErr != nil {
		respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
		return
	}

	id, err := parseProposalID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid proposal id", nil)
		return
	}

	result, err := s.engine.ExecuteRebalancing(r.Context(), caller, id)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	s.invalidateFundViews(r)
	s.invalidateProposalView(r, id)
	respondJSON(w, http.StatusOK, result)
}

// handleGetEvents returns recent fund events, optionally filtered by principal.
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "event history is not configured", nil)
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxEventLimit {
			respondError(w, http.StatusBadRequest, "INVALID_INPUT", "limit must be between 1 and 500", nil)
			return
		}
		limit = parsed
	}

	var (
		events []models.FundEvent
		err    error
	)
	if raw := r.URL.Query().Get("principal"); raw != "" {
		principal, parseErr := types.ParsePrincipal(raw)
		if parseErr != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PRINCIPAL", "invalid principal format", nil)
			return
		}
		events, err = s.history.PrincipalEvents(r.Context(), principal, limit)
	} else {
		events, err = s.history.RecentEvents(r.Context(), limit)
	}
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// parseProposalID extracts the proposal id path variable.
func parseProposalID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
}

// invalidateProposalView drops a cached proposal view after a vote or execution.
func (s *Server) invalidateProposalView(r *http.Request, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProposal(r.Context(), id); err != nil {
		log.Printf("WARN: proposal cache invalidation failed: %v", err)
	}
}
