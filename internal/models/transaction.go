package models

import "time"

// MaxCounterpartyLength is the width of the stored counterparty label.
const MaxCounterpartyLength = 255

// Transaction is an immutable ledger entry owned by one user. Amount is signed:
// positive for credits, negative for debits.
type Transaction struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Amount       int64     `json:"amount"`
	Counterparty string    `json:"counterparty"`
	Description  string    `json:"description,omitempty"`
	StatusID     string    `json:"status_id"`
	CategoryID   string    `json:"category_id"`
	TransferID   string    `json:"transfer_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TruncateCounterparty cuts s to MaxCounterpartyLength characters.
func TruncateCounterparty(s string) string {
	return truncateRunes(s, MaxCounterpartyLength)
}

type DepositRequest struct {
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
	DisplayAmount string `json:"display_amount,omitempty"`
	Label         string `json:"label"`
}
