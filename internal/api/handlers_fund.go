package api

import (
	"log"
	"net/http"

	"github.com/fund-engine/internal/fund"
	"github.com/fund-engine/internal/types"
	"github.com/gorilla/mux"
)

// DepositRequest is the body for POST /api/fund/deposits.
type DepositRequest struct {
	Amount uint64 `json:"amount"`
}

// DepositResponse reports the shares minted for a deposit.
type DepositResponse struct {
	SharesMinted uint64 `json:"sharesMinted"`
}

// WithdrawRequest is the body for POST /api/fund/withdrawals.
type WithdrawRequest struct {
	ShareAmount uint64 `json:"shareAmount"`
}

// WithdrawResponse reports the payout for a withdrawal.
type WithdrawResponse struct {
	Payout uint64 `json:"payout"`
}

// TransferRequest is the body for POST /api/fund/transfers.
type TransferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// PauseRequest is the body for POST /api/fund/pause.
type PauseRequest struct {
	Paused bool `json:"paused"`
}

// handleGetFundInfo returns the fund summary, cached when possible.
func (s *Server) handleGetFundInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.cache != nil {
		var cached fund.FundInfo
		hit, err := s.cache.Get(ctx, s.cache.FundInfoKey(), &cached)
		if err != nil {
			log.Printf("WARN: fund info cache read failed: %v", err)
		} else if hit {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	info, err := s.engine.FundInfo(ctx)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cache.FundInfoKey(), info); err != nil {
			log.Printf("WARN: fund info cache write failed: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, info)
}

// handleGetSharePrice returns the current share price.
func (s *Server) handleGetSharePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.engine.SharePrice(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]uint64{"sharePrice": price})
}

// handleGetAllocation returns one allocation table entry.
func (s *Server) handleGetAllocation(w http.ResponseWriter, r *http.Request) {
	asset := types.AssetSymbol(mux.Vars(r)["asset"])

	entry, err := s.engine.GetAllocation(r.Context(), asset)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// handleInitializeFund initializes the fund. Owner only.
func (s *Server) handleInitializeFund(w http.ResponseWriter, r *http.Request) {
	caller, catErr := callerPrincipal(r)
	if catErr != nil {
		respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
		return
	}

	if err := s.engine.InitializeFund(r.Context(), caller); err != nil {
		respondEngineError(w, err)
		return
	}

	s.invalidateFundViews(r)
	respondJSON(w, http.StatusOK, map[string]bool{"initialized": true})
}

// handleSetPaused toggles the paused flag. Owner only.
func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	caller, catErr := callerPrincipal(r)
	if catErr != nil {
		respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
		return
	}

	var req PauseRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	if err := s.engine.SetPaused(r.Context(), caller, req.Paused); err != nil {
		respondEngineError(w, err)
		return
	}

	s.invalidateFundViews(r)
	respondJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

// handleDeposit deposits funds for the caller and mints shares.
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	caller, catErr := callerPrincipal(r)
	if catErr != nil {
		respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
		return
	}

	var req DepositRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	minted, err := s.engine.Deposit(r.Context(), caller, req.Amount)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	s.invalidateFundViews(r)
	respondJSON(w, http.StatusOK, DepositResponse{SharesMinted: minted})
}

// handleWithdraw burns the caller's shares and reports the payout.
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, catErr := callerPrincipal(r)
	if catErr != nil {
		respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
		return
	}

	var req WithdrawRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	payout, err := s.engine.Withdraw(r.Context(), caller, req.ShareAmount)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	s.invalidateFundViews(r)
	respondJSON(w, http.StatusOK, WithdrawResponse{Payout: payout})
}

// handleTransfer moves shares between principals.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, catErr := callerPrincipal(r)
	if catErr != nil {
		respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
		return
	}

	var req TransferRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	from, err := types.ParsePrincipal(req.From)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PRINCIPAL", "invalid 'from' principal", nil)
		return
	}
	to, err := types.ParsePrincipal(req.To)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PRINCIPAL", "invalid 'to' principal", nil)
		return
	}

	if err := s.engine.Transfer(r.Context(), caller, from, to, req.Amount); err != nil {
		respondEngineError(w, err)
		return
	}

	s.invalidateFundViews(r)
	respondJSON(w, http.StatusOK, map[string]bool{"transferred": true})
}

// handleGetBalance returns a principal's share balance view, cached when possible.
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)

	principal, err := types.ParsePrincipal(vars["principal"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PRINCIPAL", "invalid principal format", nil)
		return
	}

	if s.cache != nil {
		var cached fund.UserBalance
		hit, cacheErr := s.cache.Get(ctx, s.cache.BalanceKey(principal.Hex()), &cached)
		if cacheErr != nil {
			log.Printf("WARN: balance cache read failed: %v", cacheErr)
		} else if hit {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	balance, err := s.engine.UserBalance(ctx, principal)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cache.BalanceKey(principal.Hex()), balance); err != nil {
			log.Printf("WARN: balance cache write failed: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, balance)
}

// invalidateFundViews drops the cached fund and balance views after a
// committed mutation. Cache failures are logged, never surfaced.
func (s *Server) invalidateFundViews(r *http.Request) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFund(r.Context()); err != nil {
		log.Printf("WARN: fund cache invalidation failed: %v", err)
	}
}
