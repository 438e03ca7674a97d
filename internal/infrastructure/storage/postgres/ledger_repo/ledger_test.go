package ledger_repo

import (
	"context"
	"testing"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
)

func TestUpdateAndDeleteAlwaysFail(t *testing.T) {
	repo := NewLedgerRepo(nil)
	ctx := context.Background()

	err := repo.Update(ctx, &entity.LedgerEntry{ID: 7})
	if !apperror.IsImmutableRecord(err) {
		t.Errorf("Update: expected immutable record error, got %v", err)
	}

	err = repo.Delete(ctx, 7)
	if !apperror.IsImmutableRecord(err) {
		t.Errorf("Delete: expected immutable record error, got %v", err)
	}
}

func TestEntryColumns_PairWithInsertValues(t *testing.T) {
	// Append skips the generated id column and passes the remaining values
	// positionally; the extracted column order must match the entity fields.
	if entryColumns[0] != "id" {
		t.Fatalf("expected generated id first, got %s", entryColumns[0])
	}

	expected := []string{
		"entry_uid",
		"tenant_id", "product_id", "warehouse_id",
		"movement_type", "quantity",
		"unit_cost", "total_cost", "running_balance",
		"batch_number", "lot_number", "serial_number",
		"manufacturing_date", "expiry_date",
		"reference_type", "reference_id",
		"created_by", "notes", "metadata",
		"transaction_date", "created_at",
	}

	rest := entryColumns[1:]
	if len(rest) != len(expected) {
		t.Fatalf("expected %d insert columns, got %d: %v", len(expected), len(rest), rest)
	}
	for i, col := range expected {
		if rest[i] != col {
			t.Errorf("column %d: expected %s, got %s", i, col, rest[i])
		}
	}
}
