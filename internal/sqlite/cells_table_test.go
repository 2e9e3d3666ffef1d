// Tests for cell upserts and row cache/search maintenance.
package sqlite

import (
	"errors"
	"testing"

	"github.com/petrel-data/gridbase/pkg/types"
)

func TestUpsertCell_TextAndNumber(t *testing.T) {
	b := newTestBackend(t)
	tbl, cols := newTestTable(t, b, "cells")
	nameCol, ageCol := cols[0], cols[2]

	row, err := b.CreateRow(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CreateRow failed: %v", err)
	}

	c, err := b.UpsertCell(testOwner, tbl.TableID, row.RowID, nameCol.ColumnID, "Ada Lovelace")
	if err != nil {
		t.Fatalf("UpsertCell text failed: %v", err)
	}
	if c.TextValue == nil || *c.TextValue != "Ada Lovelace" {
		t.Errorf("TextValue = %v, want Ada Lovelace", c.TextValue)
	}
	if c.NumberValue != nil {
		t.Error("NumberValue should be nil for a text cell")
	}

	c, err = b.UpsertCell(testOwner, tbl.TableID, row.RowID, ageCol.ColumnID, 36)
	if err != nil {
		t.Fatalf("UpsertCell number failed: %v", err)
	}
	if c.NumberValue == nil || *c.NumberValue != 36 {
		t.Errorf("NumberValue = %v, want 36", c.NumberValue)
	}

	got, err := b.GetRow(testOwner, tbl.TableID, row.RowID)
	if err != nil {
		t.Fatalf("GetRow failed: %v", err)
	}
	if got.Cache[nameCol.ColumnID] != "Ada Lovelace" {
		t.Errorf("cache[name] = %v", got.Cache[nameCol.ColumnID])
	}
	if got.Cache[ageCol.ColumnID] != float64(36) {
		t.Errorf("cache[age] = %v", got.Cache[ageCol.ColumnID])
	}
	if got.Search != "ada lovelace 36" {
		t.Errorf("search = %q, want %q", got.Search, "ada lovelace 36")
	}
}

func TestUpsertCell_UpdateKeepsIdentity(t *testing.T) {
	b := newTestBackend(t)
	tbl, cols := newTestTable(t, b, "identity")

	row, err := b.CreateRow(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CreateRow failed: %v", err)
	}

	first, err := b.UpsertCell(testOwner, tbl.TableID, row.RowID, cols[0].ColumnID, "before")
	if err != nil {
		t.Fatalf("UpsertCell failed: %v", err)
	}
	second, err := b.UpsertCell(testOwner, tbl.TableID, row.RowID, cols[0].ColumnID, "after")
	if err != nil {
		t.Fatalf("UpsertCell failed: %v", err)
	}
	if second.CellID != first.CellID {
		t.Errorf("update changed cell id: %s -> %s", first.CellID, second.CellID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("update changed the cell creation time")
	}
	if *second.TextValue != "after" {
		t.Errorf("TextValue = %q, want after", *second.TextValue)
	}
}

func TestUpsertCell_NilClears(t *testing.T) {
	b := newTestBackend(t)
	tbl, cols := newTestTable(t, b, "clear")

	row, err := b.CreateRow(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CreateRow failed: %v", err)
	}
	if _, err := b.UpsertCell(testOwner, tbl.TableID, row.RowID, cols[0].ColumnID, "present"); err != nil {
		t.Fatalf("UpsertCell failed: %v", err)
	}
	c, err := b.UpsertCell(testOwner, tbl.TableID, row.RowID, cols[0].ColumnID, nil)
	if err != nil {
		t.Fatalf("UpsertCell nil failed: %v", err)
	}
	if c.TextValue != nil || c.NumberValue != nil {
		t.Error("cleared cell should have no value")
	}

	got, _ := b.GetRow(testOwner, tbl.TableID, row.RowID)
	if v := got.Cache[cols[0].ColumnID]; v != nil {
		t.Errorf("cache entry after clear = %v, want nil", v)
	}
	if got.Search != "" {
		t.Errorf("search after clear = %q, want empty", got.Search)
	}
}

func TestUpsertCell_TypeMismatch(t *testing.T) {
	b := newTestBackend(t)
	tbl, cols := newTestTable(t, b, "mismatch")
	nameCol, ageCol := cols[0], cols[2]

	row, err := b.CreateRow(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CreateRow failed: %v", err)
	}
	if _, err := b.UpsertCell(testOwner, tbl.TableID, row.RowID, nameCol.ColumnID, 42); !errors.Is(err, types.ErrTypeMismatch) {
		t.Errorf("number into text column: expected ErrTypeMismatch, got %v", err)
	}
	if _, err := b.UpsertCell(testOwner, tbl.TableID, row.RowID, ageCol.ColumnID, "old"); !errors.Is(err, types.ErrTypeMismatch) {
		t.Errorf("string into number column: expected ErrTypeMismatch, got %v", err)
	}
}

func TestUpsertCell_UnknownTargets(t *testing.T) {
	b := newTestBackend(t)
	tbl, cols := newTestTable(t, b, "unknown")

	row, err := b.CreateRow(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CreateRow failed: %v", err)
	}
	if _, err := b.UpsertCell(testOwner, tbl.TableID, row.RowID, "no-such-column", "x"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown column, got %v", err)
	}
	if _, err := b.UpsertCell(testOwner, tbl.TableID, "no-such-row", cols[0].ColumnID, "x"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown row, got %v", err)
	}
	if _, err := b.UpsertCell(testOwner, tbl.TableID, "", cols[0].ColumnID, "x"); !errors.Is(err, types.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestUpsertCell_BackfillsColumnAddedLater(t *testing.T) {
	b := newTestBackend(t)
	tbl, cols := newTestTable(t, b, "backfill")

	row, err := b.CreateRow(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CreateRow failed: %v", err)
	}
	if _, err := b.UpsertCell(testOwner, tbl.TableID, row.RowID, cols[0].ColumnID, "zed"); err != nil {
		t.Fatalf("UpsertCell failed: %v", err)
	}

	// Existing rows have no cache entry for a column added afterwards. The
	// first write backfills it.
	late, err := b.AddColumn(testOwner, tbl.TableID, "City", types.ColumnTypeText)
	if err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	got, _ := b.GetRow(testOwner, tbl.TableID, row.RowID)
	if _, present := got.Cache[late.ColumnID]; present {
		t.Fatal("cache should not have an entry for the late column yet")
	}

	if _, err := b.UpsertCell(testOwner, tbl.TableID, row.RowID, late.ColumnID, "Lisbon"); err != nil {
		t.Fatalf("UpsertCell on late column failed: %v", err)
	}
	got, _ = b.GetRow(testOwner, tbl.TableID, row.RowID)
	if got.Cache[late.ColumnID] != "Lisbon" {
		t.Errorf("cache[late] = %v, want Lisbon", got.Cache[late.ColumnID])
	}
	if got.Search != "zed lisbon" {
		t.Errorf("search = %q, want %q", got.Search, "zed lisbon")
	}
}
