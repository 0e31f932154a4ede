package services

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jointvault/backend/internal/ledger"
	"github.com/jointvault/backend/internal/middleware"
	"github.com/jointvault/backend/internal/models"
)

// JointAccountService exposes the joint-account ledger and its withdrawal
// workflow over HTTP. Authorization-sensitive checks live in the core; this
// layer only decodes, validates shape, and maps error kinds to statuses.
type JointAccountService struct {
	ledger    *ledger.JointLedger
	journal   *JournalService
	validator *validator.Validate
}

// CreateAccountRequest is the account creation payload.
// @Description Joint account creation request
type CreateAccountRequest struct {
	CoOwners []string `json:"coOwners" validate:"max=3,dive,required" example:"pr_a1,pr_b2"` // Up to 3 co-owner principals
	Quorum   int      `json:"quorum" validate:"gte=0,lte=3" example:"1"`                     // Approval threshold, 0 = default
}

// AmountRequest carries a single monetary amount in the smallest unit.
type AmountRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0" example:"100000000"`
}

func NewJointAccountService(l *ledger.JointLedger, journal *JournalService) *JointAccountService {
	return &JointAccountService{
		ledger:    l,
		journal:   journal,
		validator: validator.New(),
	}
}

// CreateAccount opens a joint account
// @Summary Create a joint account
// @Description Create a joint account owned by the caller plus up to 3 co-owners
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAccountRequest true "Account creation request"
// @Success 201 {object} object{accountId=int64}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {string} string "Unauthorized"
// @Router /accounts [post]
func (s *JointAccountService) CreateAccount(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateAccountRequest
	if !s.decode(w, r, &req) {
		return
	}

	accountID, err := s.ledger.CreateAccount(callerID, req.CoOwners, req.Quorum)
	if err != nil {
		log.Printf("[JOINT] Account creation failed for %s: %v", callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[JOINT] Account %d created by %s with %d co-owners", accountID, callerID, len(req.CoOwners))
	WriteJSON(w, http.StatusCreated, map[string]any{"accountId": accountID})
}

// ListAccounts enumerates the caller's accounts
// @Summary List my joint accounts
// @Description List every joint account the caller owns, in creation order
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ledger.AccountView
// @Failure 401 {string} string "Unauthorized"
// @Router /accounts [get]
func (s *JointAccountService) ListAccounts(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	WriteJSON(w, http.StatusOK, s.ledger.AccountsFor(callerID))
}

// Deposit credits a joint account
// @Summary Deposit into a joint account
// @Description Move funds from the caller's external holding into the account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param request body AmountRequest true "Deposit amount"
// @Success 200 {object} ledger.AccountView
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{accountId}/deposit [post]
func (s *JointAccountService) Deposit(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	accountID, ok := s.pathID(w, r, "accountId")
	if !ok {
		return
	}

	var req AmountRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.ledger.Deposit(callerID, accountID, req.Amount); err != nil {
		log.Printf("[JOINT] Deposit of %d to account %d by %s failed: %v", req.Amount, accountID, callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	acct, err := s.ledger.Account(accountID)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	s.journal.RecordJointMovement(r.Context(), models.MovementJointDeposit, accountID, -1, callerID, req.Amount, acct.Balance)

	log.Printf("[JOINT] %s deposited %d into account %d", callerID, req.Amount, accountID)
	WriteJSON(w, http.StatusOK, acct)
}

// RequestWithdraw queues a withdrawal request
// @Summary Request a withdrawal
// @Description Queue a withdrawal request against the account's current balance
// @Tags withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param request body AmountRequest true "Withdrawal amount"
// @Success 201 {object} object{requestId=int64}
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /accounts/{accountId}/withdrawals [post]
func (s *JointAccountService) RequestWithdraw(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	accountID, ok := s.pathID(w, r, "accountId")
	if !ok {
		return
	}

	var req AmountRequest
	if !s.decode(w, r, &req) {
		return
	}

	requestID, err := s.ledger.RequestWithdraw(callerID, accountID, req.Amount)
	if err != nil {
		log.Printf("[JOINT] Withdrawal request on account %d by %s failed: %v", accountID, callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[JOINT] %s requested withdrawal %d of %d from account %d", callerID, requestID, req.Amount, accountID)
	WriteJSON(w, http.StatusCreated, map[string]any{"requestId": requestID})
}

// ApproveWithdraw approves a pending withdrawal request
// @Summary Approve a withdrawal request
// @Description Record the caller's approval; re-approval is a no-op
// @Tags withdrawals
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param requestId path int true "Request ID"
// @Success 200 {object} object{approvals=int}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /accounts/{accountId}/withdrawals/{requestId}/approve [post]
func (s *JointAccountService) ApproveWithdraw(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	accountID, ok := s.pathID(w, r, "accountId")
	if !ok {
		return
	}
	requestID, ok := s.pathID(w, r, "requestId")
	if !ok {
		return
	}

	if err := s.ledger.ApproveWithdraw(callerID, accountID, requestID); err != nil {
		log.Printf("[JOINT] Approval of request %d/%d by %s failed: %v", accountID, requestID, callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	approvals, err := s.ledger.ApprovalCount(accountID, requestID)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[JOINT] %s approved request %d on account %d (%d approvals)", callerID, requestID, accountID, approvals)
	WriteJSON(w, http.StatusOK, map[string]any{"approvals": approvals})
}

// GetApprovals reports the approval count of a request
// @Summary Get approval count
// @Tags withdrawals
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param requestId path int true "Request ID"
// @Success 200 {object} ledger.RequestView
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{accountId}/withdrawals/{requestId}/approvals [get]
func (s *JointAccountService) GetApprovals(w http.ResponseWriter, r *http.Request) {
	accountID, ok := s.pathID(w, r, "accountId")
	if !ok {
		return
	}
	requestID, ok := s.pathID(w, r, "requestId")
	if !ok {
		return
	}

	req, err := s.ledger.Request(accountID, requestID)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	WriteJSON(w, http.StatusOK, req)
}

// ExecuteWithdraw pays out an approved request
// @Summary Execute a withdrawal
// @Description Pay out an approved request to the requester's external holding, exactly once
// @Tags withdrawals
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param requestId path int true "Request ID"
// @Success 200 {object} ledger.RequestView
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /accounts/{accountId}/withdrawals/{requestId}/execute [post]
func (s *JointAccountService) ExecuteWithdraw(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	accountID, ok := s.pathID(w, r, "accountId")
	if !ok {
		return
	}
	requestID, ok := s.pathID(w, r, "requestId")
	if !ok {
		return
	}

	if err := s.ledger.Withdraw(callerID, accountID, requestID); err != nil {
		log.Printf("[JOINT] Execution of request %d/%d by %s failed: %v", accountID, requestID, callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	req, err := s.ledger.Request(accountID, requestID)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}
	acct, err := s.ledger.Account(accountID)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	s.journal.RecordJointMovement(r.Context(), models.MovementJointWithdraw, accountID, requestID, callerID, req.Amount, acct.Balance)

	log.Printf("[JOINT] %s executed request %d on account %d for %d", callerID, requestID, accountID, req.Amount)
	WriteJSON(w, http.StatusOK, req)
}

func (s *JointAccountService) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	if err := s.validator.Struct(dst); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *JointAccountService) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid "+name, http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}
