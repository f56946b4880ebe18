package xlsx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/frankban/quicktest"
	"github.com/xuri/excelize/v2"

	"github.com/andys/sheetsync/align"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	err := f.SetSheetName("Sheet1", "COBRANZA")
	if err != nil {
		t.Fatal(err)
	}
	rows := [][]interface{}{
		{" No de Transferencia ", "Concepto", "", "Unnamed: 3"},
		{101, "pago inicial", "dropped", "dropped"},
		{},
		{102, ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("COBRANZA", cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "workbook.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadSheet(t *testing.T) {
	c := quicktest.New(t)
	path := writeWorkbook(t)

	rows, err := NewReader().ReadSheet(path, "COBRANZA")
	c.Assert(err, quicktest.IsNil)
	c.Assert(rows, quicktest.HasLen, 2)

	// Headers come back trimmed and lower-cased; unnamed and blank header
	// columns are gone.
	c.Assert(rows[0], quicktest.DeepEquals, align.RawRow{
		"no de transferencia": "101",
		"concepto":            "pago inicial",
	})
	c.Assert(rows[1], quicktest.DeepEquals, align.RawRow{
		"no de transferencia": "102",
	})
}

func TestReadSheet_NameMatchIgnoresCase(t *testing.T) {
	c := quicktest.New(t)
	path := writeWorkbook(t)

	rows, err := NewReader().ReadSheet(path, "cobranza")
	c.Assert(err, quicktest.IsNil)
	c.Assert(rows, quicktest.HasLen, 2)
}

func TestReadSheet_MissingSheet(t *testing.T) {
	c := quicktest.New(t)
	path := writeWorkbook(t)

	_, err := NewReader().ReadSheet(path, "COMISIONES")
	c.Assert(errors.Is(err, ErrSheetNotFound), quicktest.IsTrue)
}

func TestReadSheet_UnreadableFileIsParseError(t *testing.T) {
	c := quicktest.New(t)
	path := filepath.Join(t.TempDir(), "not-a-workbook.xlsx")
	err := os.WriteFile(path, []byte("plain text, not a zip"), 0o644)
	c.Assert(err, quicktest.IsNil)

	_, err = NewReader().ReadSheet(path, "COBRANZA")
	c.Assert(errors.Is(err, ErrParse), quicktest.IsTrue)
}
