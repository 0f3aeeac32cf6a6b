package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fund-engine/internal/fund"
	"github.com/fund-engine/internal/types"
)

var (
	testOwner = "0x00000000000000000000000000000000000000a1"
	testAlice = "0x00000000000000000000000000000000000000b1"
	testBob   = "0x00000000000000000000000000000000000000c1"
)

// testServer wires a real engine over the in-memory ledger behind the API.
type testServer struct {
	server *Server
	clock  *fund.ManualClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	owner, err := types.ParsePrincipal(testOwner)
	if err != nil {
		t.Fatalf("ParsePrincipal() error = %v", err)
	}

	clock := fund.NewManualClock(100)
	engine := fund.NewEngine(fund.NewMemoryLedger(), clock, nil, fund.Params{
		Owner:             owner,
		MinDeposit:        1_000_000,
		ManagementFeeBps:  200,
		PerformanceFeeBps: 2000,
	})

	config := &ServerConfig{
		Host:              "localhost",
		Port:              "8080",
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             1000,
	}

	return &testServer{
		server: NewServer(config, engine, nil, nil),
		clock:  clock,
	}
}

func (ts *testServer) request(t *testing.T, method, path, principal string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if principal != "" {
		req.Header.Set("X-Principal", principal)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	return resp.Error.Code
}

func (ts *testServer) initialize(t *testing.T) {
	t.Helper()
	rec := ts.request(t, http.MethodPost, "/api/fund/initialize", testOwner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("initialize status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["service"] != "fund-engine" {
		t.Errorf("service = %q, want fund-engine", body["service"])
	}
}

func TestInitializeFund_OwnerOnly(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/fund/initialize", testAlice, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if code := errorCode(t, rec); code != "OWNER_ONLY" {
		t.Errorf("error code = %q, want OWNER_ONLY", code)
	}

	ts.initialize(t)
}

func TestInitializeFund_RequiresPrincipalHeader(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/fund/initialize", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetFundInfo(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	rec := ts.request(t, http.MethodGet, "/api/fund", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var info fund.FundInfo
	decodeBody(t, rec, &info)
	if !info.Initialized {
		t.Error("Initialized = false, want true")
	}
	if info.SharePrice != 1_000_000 {
		t.Errorf("SharePrice = %d, want 1000000", info.SharePrice)
	}
	if len(info.Allocations) != 2 {
		t.Errorf("len(Allocations) = %d, want 2", len(info.Allocations))
	}
}

func TestDepositAndBalance(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	rec := ts.request(t, http.MethodPost, "/api/fund/deposits", testAlice, DepositRequest{Amount: 2_000_000})
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp DepositResponse
	decodeBody(t, rec, &resp)
	if resp.SharesMinted != 2_000_000 {
		t.Errorf("SharesMinted = %d, want 2000000", resp.SharesMinted)
	}

	rec = ts.request(t, http.MethodGet, "/api/balances/"+testAlice, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance status = %d", rec.Code)
	}

	var balance fund.UserBalance
	decodeBody(t, rec, &balance)
	if balance.Shares != 2_000_000 {
		t.Errorf("Shares = %d, want 2000000", balance.Shares)
	}
	if balance.TotalDeposited != 2_000_000 {
		t.Errorf("TotalDeposited = %d, want 2000000", balance.TotalDeposited)
	}
}

func TestGetAllocation(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	rec := ts.request(t, http.MethodGet, "/api/fund/allocations/STX", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = ts.request(t, http.MethodGet, "/api/fund/allocations/DOGE", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec); code != "UNKNOWN_ASSET" {
		t.Errorf("error code = %q, want UNKNOWN_ASSET", code)
	}
}

func TestDeposit_BelowMinimum(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	rec := ts.request(t, http.MethodPost, "/api/fund/deposits", testAlice, DepositRequest{Amount: 999_999})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code := errorCode(t, rec); code != "BELOW_MINIMUM" {
		t.Errorf("error code = %q, want BELOW_MINIMUM", code)
	}
}

func TestPauseBlocksDeposits(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	rec := ts.request(t, http.MethodPost, "/api/fund/pause", testOwner, PauseRequest{Paused: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d", rec.Code)
	}

	rec = ts.request(t, http.MethodPost, "/api/fund/deposits", testAlice, DepositRequest{Amount: 2_000_000})
	if rec.Code != http.StatusConflict {
		t.Fatalf("deposit status = %d, want 409", rec.Code)
	}
	if code := errorCode(t, rec); code != "FUND_PAUSED" {
		t.Errorf("error code = %q, want FUND_PAUSED", code)
	}
}

func TestWithdrawRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	ts.request(t, http.MethodPost, "/api/fund/deposits", testAlice, DepositRequest{Amount: 2_000_000})

	rec := ts.request(t, http.MethodPost, "/api/fund/withdrawals", testAlice, WithdrawRequest{ShareAmount: 2_000_000})
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp WithdrawResponse
	decodeBody(t, rec, &resp)
	if resp.Payout != 2_000_000 {
		t.Errorf("Payout = %d, want 2000000", resp.Payout)
	}
}

func TestTransferShares(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	ts.request(t, http.MethodPost, "/api/fund/deposits", testAlice, DepositRequest{Amount: 2_000_000})

	// Only the holder may move their shares
	rec := ts.request(t, http.MethodPost, "/api/fund/transfers", testBob, TransferRequest{
		From: testAlice, To: testBob, Amount: 500_000,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if code := errorCode(t, rec); code != "NOT_TOKEN_OWNER" {
		t.Errorf("error code = %q, want NOT_TOKEN_OWNER", code)
	}

	rec = ts.request(t, http.MethodPost, "/api/fund/transfers", testAlice, TransferRequest{
		From: testAlice, To: testBob, Amount: 500_000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var balance fund.UserBalance
	rec = ts.request(t, http.MethodGet, "/api/balances/"+testBob, "", nil)
	decodeBody(t, rec, &balance)
	if balance.Shares != 500_000 {
		t.Errorf("recipient shares = %d, want 500000", balance.Shares)
	}
}

func TestGetBalance_InvalidPrincipal(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	rec := ts.request(t, http.MethodGet, "/api/balances/not-an-address", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProposalLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	ts.request(t, http.MethodPost, "/api/fund/deposits", testAlice, DepositRequest{Amount: 2_000_000})

	rec := ts.request(t, http.MethodPost, "/api/proposals", testAlice, CreateProposalRequest{
		Title:        "Shift to STX",
		Description:  "Increase STX exposure",
		ProposalType: "rebalance",
		TargetValue:  7000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created CreateProposalResponse
	decodeBody(t, rec, &created)
	if created.ProposalID != 1 {
		t.Errorf("ProposalID = %d, want 1", created.ProposalID)
	}

	rec = ts.request(t, http.MethodGet, fmt.Sprintf("/api/proposals/%d", created.ProposalID), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = ts.request(t, http.MethodPost, fmt.Sprintf("/api/proposals/%d/votes", created.ProposalID), testAlice, VoteRequest{Support: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("vote status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Second vote from the same principal conflicts
	rec = ts.request(t, http.MethodPost, fmt.Sprintf("/api/proposals/%d/votes", created.ProposalID), testAlice, VoteRequest{Support: true})
	if rec.Code != http.StatusConflict {
		t.Fatalf("revote status = %d, want 409", rec.Code)
	}
	if code := errorCode(t, rec); code != "ALREADY_VOTED" {
		t.Errorf("error code = %q, want ALREADY_VOTED", code)
	}

	// Cannot execute while the voting window is open
	rec = ts.request(t, http.MethodPost, fmt.Sprintf("/api/proposals/%d/rebalance", created.ProposalID), testAlice, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("early execute status = %d, want 409", rec.Code)
	}

	ts.clock.Advance(fund.VotingWindowBlocks + 1)

	rec = ts.request(t, http.MethodPost, fmt.Sprintf("/api/proposals/%d/rebalance", created.ProposalID), testAlice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("execute status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Total value is 2,000,000 less the 240,000 performance fee; the
	// allocation targets are computed on the pre-fee total.
	var result fund.RebalanceResult
	decodeBody(t, rec, &result)
	if !result.Rebalanced {
		t.Error("Rebalanced = false, want true")
	}
	if result.STXAmount != 1_200_000 {
		t.Errorf("STXAmount = %d, want 1200000", result.STXAmount)
	}
	if result.StableAmount != 800_000 {
		t.Errorf("StableAmount = %d, want 800000", result.StableAmount)
	}
	if result.PerformanceFee != 240_000 {
		t.Errorf("PerformanceFee = %d, want 240000", result.PerformanceFee)
	}
}

func TestGetProposal_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	rec := ts.request(t, http.MethodGet, "/api/proposals/99", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec); code != "PROPOSAL_NOT_FOUND" {
		t.Errorf("error code = %q, want PROPOSAL_NOT_FOUND", code)
	}
}

func TestCreateProposal_InvalidType(t *testing.T) {
	ts := newTestServer(t)
	ts.initialize(t)

	ts.request(t, http.MethodPost, "/api/fund/deposits", testAlice, DepositRequest{Amount: 2_000_000})

	rec := ts.request(t, http.MethodPost, "/api/proposals", testAlice, CreateProposalRequest{
		Title:        "Bad",
		Description:  "Bad type",
		ProposalType: "liquidate",
		TargetValue:  1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_PROPOSAL" {
		t.Errorf("error code = %q, want INVALID_PROPOSAL", code)
	}
}

func TestGetEvents_UnavailableWithoutHistory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/events", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRateLimiting(t *testing.T) {
	owner, err := types.ParsePrincipal(testOwner)
	if err != nil {
		t.Fatalf("ParsePrincipal() error = %v", err)
	}
	engine := fund.NewEngine(fund.NewMemoryLedger(), fund.NewManualClock(100), nil, fund.Params{Owner: owner, MinDeposit: 1})

	server := NewServer(&ServerConfig{
		Host:              "localhost",
		Port:              "8080",
		RequestsPerSecond: 1,
		Burst:             2,
	}, engine, nil, nil)

	limited := false
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Principal", testAlice)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("no request was rate limited")
	}
}
