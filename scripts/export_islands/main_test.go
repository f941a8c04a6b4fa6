package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mroshb/islands/internal/models"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	islands := []*models.Island{{
		ID:            "isl-1",
		Name:          "Alpha",
		OwnerName:     "Owner",
		Size:          150,
		IsPublic:      true,
		CreatedAt:     now,
		LastActivity:  now,
		Members:       []models.Member{{PlayerID: "m1", Name: "Mia"}, {PlayerID: "m2", Name: "Max"}},
		Contributions: map[string]int64{"owner": 40, "m1": 2},
	}}

	path := filepath.Join(t.TempDir(), "islands.xlsx")
	if err := writeWorkbook(path, islands); err != nil {
		t.Fatalf("writeWorkbook() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[1][1] != "Alpha" || rows[1][5] != "Mia, Max" || rows[1][7] != "42" {
		t.Errorf("row = %v", rows[1])
	}
}
