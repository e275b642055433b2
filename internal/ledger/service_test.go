package ledger

import (
	"testing"
	"time"

	"github.com/fernwood/hearth/internal/apperror"
	"github.com/fernwood/hearth/internal/authz"
	"github.com/fernwood/hearth/internal/database"
	"github.com/fernwood/hearth/internal/model"
	"github.com/fernwood/hearth/internal/store"
)

func setupLedger(t *testing.T) (*Service, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	families := store.NewFamilyStore(db)
	members := store.NewMemberStore(db)
	entries := store.NewLedgerStore(db)
	audits := store.NewAuditStore(db)

	family, err := families.Create("Test Family", now)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	for uid, role := range map[string]model.Role{
		"parent": model.RoleParent,
		"kid":    model.RoleChild,
	} {
		if _, err := members.Create(family.ID, uid, uid, role, nil, now); err != nil {
			t.Fatalf("create member %s: %v", uid, err)
		}
	}

	svc := NewService(db, authz.NewGate(members), members, entries, audits)
	svc.SetClock(func() time.Time { return now })
	return svc, family.ID
}

func intp(v int) *int       { return &v }
func centsp(v int64) *int64 { return &v }

func TestManualEntryAndBalance(t *testing.T) {
	svc, familyID := setupLedger(t)

	if _, err := svc.AddManualEntry("parent", familyID, "kid", centsp(1000), nil, model.EntryCredit, "allowance"); err != nil {
		t.Fatalf("credit cents: %v", err)
	}
	if _, err := svc.AddManualEntry("parent", familyID, "kid", centsp(300), nil, model.EntryDebit, "candy"); err != nil {
		t.Fatalf("debit cents: %v", err)
	}
	if _, err := svc.AddManualEntry("parent", familyID, "kid", nil, intp(25), model.EntryCredit, "bonus points"); err != nil {
		t.Fatalf("credit points: %v", err)
	}
	if _, err := svc.AddManualEntry("parent", familyID, "kid", nil, intp(10), model.EntryDebit, "screen time"); err != nil {
		t.Fatalf("debit points: %v", err)
	}

	balance, err := svc.Balance("parent", familyID, "kid")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.AmountCents != 700 {
		t.Errorf("amount = %d, want 700", balance.AmountCents)
	}
	if balance.Points != 15 {
		t.Errorf("points = %d, want 15", balance.Points)
	}
}

func TestBalanceMayGoNegative(t *testing.T) {
	svc, familyID := setupLedger(t)

	if _, err := svc.AddManualEntry("parent", familyID, "kid", centsp(500), nil, model.EntryDebit, "advance"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	balance, err := svc.Balance("parent", familyID, "kid")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.AmountCents != -500 {
		t.Errorf("amount = %d, want -500", balance.AmountCents)
	}
}

func TestManualEntryValidation(t *testing.T) {
	svc, familyID := setupLedger(t)

	if _, err := svc.AddManualEntry("parent", familyID, "kid", nil, nil, model.EntryCredit, ""); !apperror.Is(err, apperror.InvalidArgument) {
		t.Errorf("expected InvalidArgument for empty amounts, got %v", err)
	}
	if _, err := svc.AddManualEntry("parent", familyID, "kid", centsp(-5), nil, model.EntryCredit, ""); !apperror.Is(err, apperror.InvalidArgument) {
		t.Errorf("expected InvalidArgument for negative cents, got %v", err)
	}
	if _, err := svc.AddManualEntry("parent", familyID, "kid", centsp(100), nil, "sideways", ""); !apperror.Is(err, apperror.InvalidArgument) {
		t.Errorf("expected InvalidArgument for bad type, got %v", err)
	}
	if _, err := svc.AddManualEntry("parent", familyID, "ghost", centsp(100), nil, model.EntryCredit, ""); !apperror.Is(err, apperror.NotFound) {
		t.Errorf("expected NotFound for unknown member, got %v", err)
	}
	if _, err := svc.AddManualEntry("kid", familyID, "kid", centsp(100), nil, model.EntryCredit, ""); !apperror.Is(err, apperror.PermissionDenied) {
		t.Errorf("expected PermissionDenied for child actor, got %v", err)
	}
}

func TestHistoryPagination(t *testing.T) {
	svc, familyID := setupLedger(t)

	for i := 0; i < 5; i++ {
		if _, err := svc.AddManualEntry("parent", familyID, "kid", centsp(100), nil, model.EntryCredit, "weekly"); err != nil {
			t.Fatalf("add entry %d: %v", i, err)
		}
	}

	page, err := svc.History("parent", familyID, "kid", 2, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("page size = %d, want 2", len(page))
	}

	rest, err := svc.History("parent", familyID, "kid", 10, 2)
	if err != nil {
		t.Fatalf("history offset: %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("remaining = %d, want 3", len(rest))
	}
}
