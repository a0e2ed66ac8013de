package models

import (
	"fmt"
	"time"
)

// MaxDescriptionLength is the number of characters kept from a transfer description.
const MaxDescriptionLength = 200

// Transfer records one money movement between two users. It is correlated with its
// two mirrored transactions through Transaction.TransferID.
type Transfer struct {
	ID             string    `json:"id"`
	SenderUserID   string    `json:"sender_user_id"`
	ReceiverUserID string    `json:"receiver_user_id"`
	Amount         int64     `json:"amount"`
	Description    string    `json:"description,omitempty"`
	StatusID       string    `json:"status_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type TransferRequest struct {
	SenderUserID   string `json:"sender_user_id"`
	ReceiverUserID string `json:"receiver_user_id"`
	Amount         int64  `json:"amount"`
	Description    string `json:"description"`
}

// TruncateDescription cuts s to MaxDescriptionLength characters.
func TruncateDescription(s string) string {
	return truncateRunes(s, MaxDescriptionLength)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type TransferErrorCode string

const (
	ErrCodeInvalidAmount     TransferErrorCode = "invalid-amount"
	ErrCodeSelfTransfer      TransferErrorCode = "self-transfer"
	ErrCodeInsufficientFunds TransferErrorCode = "insufficient-funds"
	ErrCodeNotFound          TransferErrorCode = "not-found"
	ErrCodeTransferFailed    TransferErrorCode = "transfer-failed"
)

// TransferError is the typed failure reported to transfer callers. Available and
// Required are set for insufficient-funds only.
type TransferError struct {
	Code      TransferErrorCode `json:"code"`
	Message   string            `json:"message"`
	Available int64             `json:"available,omitempty"`
	Required  int64             `json:"required,omitempty"`
}

func (e *TransferError) Error() string {
	return e.Message
}

func NewInvalidAmountError(amount int64) *TransferError {
	return &TransferError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("Amount must be greater than zero (got %d)", amount),
	}
}

func NewSelfTransferError() *TransferError {
	return &TransferError{
		Code:    ErrCodeSelfTransfer,
		Message: "Cannot transfer money to yourself",
	}
}

func NewInsufficientFundsError(available, required int64) *TransferError {
	return &TransferError{
		Code:      ErrCodeInsufficientFunds,
		Message:   fmt.Sprintf("Insufficient funds. Available: %s, Required: %s", FormatMinor(available), FormatMinor(required)),
		Available: available,
		Required:  required,
	}
}

func NewNotFoundError(role string) *TransferError {
	return &TransferError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", role),
	}
}

func NewTransferFailedError() *TransferError {
	return &TransferError{
		Code:    ErrCodeTransferFailed,
		Message: "Transfer failed. Please try again later",
	}
}

// TransferResult is what Execute hands back; it never carries a Go error.
type TransferResult struct {
	Success    bool           `json:"success"`
	TransferID string         `json:"transfer_id,omitempty"`
	Error      *TransferError `json:"error,omitempty"`
}

func TransferSucceeded(transferID string) TransferResult {
	return TransferResult{Success: true, TransferID: transferID}
}

func TransferFailed(err *TransferError) TransferResult {
	return TransferResult{Success: false, Error: err}
}
