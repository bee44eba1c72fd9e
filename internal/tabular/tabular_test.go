package tabular

import (
	"strings"
	"testing"
)

func TestParseNormalizesHeaders(t *testing.T) {
	input := " Patient_ID ,AGE, Gender \np1,45,male\n"

	table, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []string{"patient_id", "age", "gender"}
	if len(table.Columns) != len(want) {
		t.Fatalf("columns = %v, want %v", table.Columns, want)
	}
	for i, col := range want {
		if table.Columns[i] != col {
			t.Errorf("column %d = %q, want %q", i, table.Columns[i], col)
		}
	}

	if len(table.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(table.Rows))
	}
	row := table.Rows[0]
	if row.Get("patient_id") != "p1" || row.Get("age") != "45" || row.Get("gender") != "male" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestParsePadsShortRecords(t *testing.T) {
	input := "age,gender,symptoms\n30,female\n"

	table, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	row := table.Rows[0]
	if row.Has("symptoms") {
		t.Errorf("expected empty symptoms cell, got %q", row.Get("symptoms"))
	}
	if !row.Has("age") {
		t.Error("expected age present")
	}
}

func TestParseEmptyInput(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); err != ErrEmptyTable {
		t.Fatalf("err = %v, want ErrEmptyTable", err)
	}
}

func TestRowHasIgnoresWhitespace(t *testing.T) {
	row := Row{"notes": "   "}
	if row.Has("notes") {
		t.Error("whitespace-only cell should not count as present")
	}
	if row.Has("missing") {
		t.Error("missing column should not count as present")
	}
}
