package services

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jointvault/backend/internal/middleware"
	"github.com/jointvault/backend/internal/models"
	"github.com/jointvault/backend/internal/privatebank"
)

// PrivateBankService exposes the single-authority private ledger over HTTP.
type PrivateBankService struct {
	bank      *privatebank.Bank
	journal   *JournalService
	validator *validator.Validate
}

// AddCustomerRequest is the authority's direct onboarding payload.
type AddCustomerRequest struct {
	Address string `json:"address" validate:"required" example:"pr_9f3c2a10d4"`
	Pin     int64  `json:"pin" validate:"required,gte=0" example:"321321"`
}

// PinRequest carries a customer-chosen pin.
type PinRequest struct {
	Pin int64 `json:"pin" validate:"required,gte=0" example:"123123"`
}

// ChangePinRequest rotates a customer pin.
type ChangePinRequest struct {
	OldPin int64 `json:"oldPin" validate:"gte=0" example:"123123"`
	NewPin int64 `json:"newPin" validate:"required,gte=0" example:"321321"`
}

// BankAmountRequest carries a deposit amount.
type BankAmountRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0" example:"1000000"`
}

// BankWithdrawRequest carries a pin-gated withdrawal.
type BankWithdrawRequest struct {
	Pin    int64 `json:"pin" validate:"gte=0" example:"123123"`
	Amount int64 `json:"amount" validate:"required,gt=0" example:"500000"`
}

func NewPrivateBankService(bank *privatebank.Bank, journal *JournalService) *PrivateBankService {
	return &PrivateBankService{
		bank:      bank,
		journal:   journal,
		validator: validator.New(),
	}
}

// AddCustomer onboards a customer directly
// @Summary Add a customer (authority only)
// @Description Onboard a customer directly; the record is immediately approved
// @Tags bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AddCustomerRequest true "Customer onboarding request"
// @Success 201 {object} privatebank.CustomerView
// @Failure 403 {object} ErrorResponse
// @Router /bank/customers [post]
func (s *PrivateBankService) AddCustomer(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req AddCustomerRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.bank.AddCustomer(callerID, req.Address, req.Pin); err != nil {
		log.Printf("[BANK] AddCustomer %s by %s failed: %v", req.Address, callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	c, err := s.bank.Customer(callerID, req.Address)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[BANK] Authority onboarded customer %s", req.Address)
	WriteJSON(w, http.StatusCreated, c)
}

// RequestBeCustomer files an onboarding request
// @Summary Request to become a customer
// @Description File an onboarding request; re-filing before approval keeps the latest pin
// @Tags bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PinRequest true "Chosen pin"
// @Success 202 {object} map[string]string
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /bank/customers/request [post]
func (s *PrivateBankService) RequestBeCustomer(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req PinRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.bank.RequestBeCustomer(callerID, req.Pin); err != nil {
		log.Printf("[BANK] Onboarding request by %s failed: %v", callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[BANK] %s requested onboarding", callerID)
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "pending approval"})
}

// ApproveCustomer accepts a pending onboarding request
// @Summary Approve a customer (authority only)
// @Tags bank
// @Produce json
// @Security BearerAuth
// @Param address path string true "Customer principal"
// @Success 200 {object} privatebank.CustomerView
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /bank/customers/{address}/approve [post]
func (s *PrivateBankService) ApproveCustomer(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	address := chi.URLParam(r, "address")

	if err := s.bank.ApproveNewCustomer(callerID, address); err != nil {
		log.Printf("[BANK] Approval of %s by %s failed: %v", address, callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	c, err := s.bank.Customer(callerID, address)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[BANK] Authority approved customer %s", address)
	WriteJSON(w, http.StatusOK, c)
}

// ChangePin rotates the caller's pin
// @Summary Change my pin
// @Tags bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePinRequest true "Pin rotation request"
// @Success 200 {object} map[string]string
// @Failure 403 {object} ErrorResponse
// @Router /bank/pin [post]
func (s *PrivateBankService) ChangePin(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req ChangePinRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.bank.ChangeMyPin(callerID, req.OldPin, req.NewPin); err != nil {
		log.Printf("[BANK] Pin change by %s failed: %v", callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	log.Printf("[BANK] %s rotated pin", callerID)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "pin changed"})
}

// Deposit credits the caller's bank balance
// @Summary Deposit into my bank balance
// @Tags bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BankAmountRequest true "Deposit amount"
// @Success 200 {object} object{balance=int64}
// @Failure 403 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /bank/deposit [post]
func (s *PrivateBankService) Deposit(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req BankAmountRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.bank.Deposit(callerID, req.Amount); err != nil {
		log.Printf("[BANK] Deposit of %d by %s failed: %v", req.Amount, callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	balance, err := s.bank.MyBalance(callerID)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	s.journal.RecordBankMovement(r.Context(), models.MovementBankDeposit, callerID, req.Amount, balance)

	log.Printf("[BANK] %s deposited %d", callerID, req.Amount)
	WriteJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// Withdraw pays out of the caller's bank balance
// @Summary Withdraw from my bank balance
// @Description Pin-gated payout to the caller's external holding
// @Tags bank
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BankWithdrawRequest true "Withdrawal request"
// @Success 200 {object} object{balance=int64}
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /bank/withdraw [post]
func (s *PrivateBankService) Withdraw(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req BankWithdrawRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.bank.Withdraw(callerID, req.Pin, req.Amount); err != nil {
		log.Printf("[BANK] Withdrawal of %d by %s failed: %v", req.Amount, callerID, err)
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	balance, err := s.bank.MyBalance(callerID)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	s.journal.RecordBankMovement(r.Context(), models.MovementBankWithdraw, callerID, req.Amount, balance)

	log.Printf("[BANK] %s withdrew %d", callerID, req.Amount)
	WriteJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// GetBalance reports the caller's bank balance
// @Summary Get my bank balance
// @Tags bank
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{balance=int64}
// @Failure 403 {object} ErrorResponse
// @Router /bank/balance [get]
func (s *PrivateBankService) GetBalance(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.Principal(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	balance, err := s.bank.MyBalance(callerID)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (s *PrivateBankService) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
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
