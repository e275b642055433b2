package model

import "time"

// EntryType is the direction of a ledger entry.
type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

// ParseEntryType validates an entry type string from the wire.
func ParseEntryType(s string) (EntryType, bool) {
	switch EntryType(s) {
	case EntryCredit, EntryDebit:
		return EntryType(s), true
	}
	return "", false
}

// EntrySource records what produced a ledger entry.
type EntrySource string

const (
	SourceTaskCompletion EntrySource = "task_completion"
	SourceManual         EntrySource = "manual"
)

// LedgerEntry is one row of the append-only allowance ledger. Entries are
// never updated or deleted; corrections are compensating entries.
type LedgerEntry struct {
	ID          string      `json:"id"`
	FamilyID    string      `json:"family_id"`
	MemberUID   string      `json:"member_uid"`
	AmountCents *int64      `json:"amount_cents,omitempty"`
	Points      *int        `json:"points,omitempty"`
	Type        EntryType   `json:"type"`
	Source      EntrySource `json:"source"`
	SourceID    *string     `json:"source_id,omitempty"`
	Description string      `json:"description"`
	EntryDate   time.Time   `json:"entry_date"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Balance is derived, never stored: sum of credits minus sum of debits,
// independently for cents and points.
type Balance struct {
	MemberUID   string `json:"member_uid"`
	AmountCents int64  `json:"amount_cents"`
	Points      int    `json:"points"`
}
