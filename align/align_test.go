package align

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/frankban/quicktest"

	"github.com/andys/sheetsync/db"
)

func testSchema() *db.TableSchema {
	return &db.TableSchema{
		Name: "sales",
		Columns: []db.ColumnSchema{
			{Name: "id", Type: db.TypeInteger},
			{Name: "name", Type: db.TypeText},
			{Name: "amount", Type: db.TypeFloat},
		},
	}
}

func TestAlign_CoercesToSchemaTypes(t *testing.T) {
	c := quicktest.New(t)
	rows := []RawRow{
		{"id": "5", "name": "A", "amount": "10.5"},
		{"id": "x", "name": "B", "amount": ""},
	}

	aligned, stats := Align(rows, testSchema())
	c.Assert(aligned, quicktest.HasLen, 2)

	c.Assert(aligned[0]["id"], quicktest.Equals, IntValue(5))
	c.Assert(aligned[0]["name"], quicktest.Equals, TextValue("A"))
	c.Assert(aligned[0]["amount"], quicktest.Equals, FloatValue(10.5))

	// "x" cannot become an integer and the empty amount is just absent.
	c.Assert(aligned[1]["id"].IsNull(), quicktest.IsTrue)
	c.Assert(aligned[1]["name"], quicktest.Equals, TextValue("B"))
	c.Assert(aligned[1]["amount"].IsNull(), quicktest.IsTrue)

	c.Assert(stats.BadCells, quicktest.Equals, 1)
}

func TestAlign_HeaderMatchingIgnoresCaseAndWhitespace(t *testing.T) {
	c := quicktest.New(t)
	rows := []RawRow{
		{"  ID ": "7", "NAME": "x", "Amount": "1"},
	}

	aligned, stats := Align(rows, testSchema())
	c.Assert(aligned[0]["id"], quicktest.Equals, IntValue(7))
	c.Assert(aligned[0]["name"], quicktest.Equals, TextValue("x"))
	c.Assert(aligned[0]["amount"], quicktest.Equals, FloatValue(1))
	c.Assert(stats.UnmappedColumns, quicktest.HasLen, 0)
}

func TestAlign_ExtraColumnsDroppedAndRecordedOnce(t *testing.T) {
	c := quicktest.New(t)
	rows := []RawRow{
		{"id": "1", "comments": "a"},
		{"id": "2", "comments": "b", "zzz": "c"},
	}

	aligned, stats := Align(rows, testSchema())
	c.Assert(stats.UnmappedColumns, quicktest.DeepEquals, []string{"comments", "zzz"})
	for _, row := range aligned {
		_, ok := row["comments"]
		c.Assert(ok, quicktest.IsFalse)
	}
}

func TestAlign_MissingColumnsBecomeNull(t *testing.T) {
	c := quicktest.New(t)
	aligned, stats := Align([]RawRow{{"id": "3"}}, testSchema())

	c.Assert(aligned[0]["name"].IsNull(), quicktest.IsTrue)
	c.Assert(aligned[0]["amount"].IsNull(), quicktest.IsTrue)
	// Absent columns are not coercion failures.
	c.Assert(stats.BadCells, quicktest.Equals, 0)
}

func TestAlign_KeySetAlwaysMatchesSchema(t *testing.T) {
	c := quicktest.New(t)
	faker := gofakeit.New(11)

	rows := make([]RawRow, 200)
	for i := range rows {
		rows[i] = RawRow{
			"id":     faker.Word(), // frequently non-numeric on purpose
			"name":   faker.Name(),
			"amount": faker.Word(),
			"extra":  faker.Word(),
		}
	}

	aligned, _ := Align(rows, testSchema())
	c.Assert(aligned, quicktest.HasLen, len(rows))
	for _, row := range aligned {
		c.Assert(row, quicktest.HasLen, 3)
		for _, col := range []string{"id", "name", "amount"} {
			_, ok := row[col]
			c.Assert(ok, quicktest.IsTrue)
		}
	}
}

func TestCoerce_Booleans(t *testing.T) {
	c := quicktest.New(t)
	schema := &db.TableSchema{Name: "t", Columns: []db.ColumnSchema{{Name: "flag", Type: db.TypeBoolean}}}

	cases := map[interface{}]Value{
		"true":  BoolValue(true),
		"YES":   BoolValue(true),
		"1":     BoolValue(true),
		"false": BoolValue(false),
		"No":    BoolValue(false),
		"0":     BoolValue(false),
		true:    BoolValue(true),
		"maybe": Null(),
	}
	for input, want := range cases {
		aligned, _ := Align([]RawRow{{"flag": input}}, schema)
		c.Assert(aligned[0]["flag"], quicktest.Equals, want, quicktest.Commentf("input %v", input))
	}
}

func TestCoerce_Timestamps(t *testing.T) {
	c := quicktest.New(t)
	schema := &db.TableSchema{Name: "t", Columns: []db.ColumnSchema{{Name: "at", Type: db.TypeTimestamp}}}

	aligned, stats := Align([]RawRow{
		{"at": "2024-03-01 13:45:00"},
		{"at": "2024-03-01"},
		{"at": "01/03/2024"},
		{"at": "not a date"},
	}, schema)

	c.Assert(aligned[0]["at"].Time, quicktest.Equals,
		time.Date(2024, 3, 1, 13, 45, 0, 0, time.UTC))
	c.Assert(aligned[1]["at"].Time, quicktest.Equals,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	c.Assert(aligned[2]["at"].Time, quicktest.Equals,
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	c.Assert(aligned[3]["at"].IsNull(), quicktest.IsTrue)
	c.Assert(stats.BadCells, quicktest.Equals, 1)
}

func TestCoerce_DateTruncatesTimeAndAcceptsSerials(t *testing.T) {
	c := quicktest.New(t)
	schema := &db.TableSchema{Name: "t", Columns: []db.ColumnSchema{{Name: "day", Type: db.TypeDate}}}

	aligned, _ := Align([]RawRow{
		{"day": "2024-03-01 13:45:00"},
		{"day": "45352"}, // Excel serial for 2024-03-01
		{"day": time.Date(2023, 7, 9, 18, 30, 0, 0, time.UTC)},
	}, schema)

	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c.Assert(aligned[0]["day"].Time, quicktest.Equals, want)
	c.Assert(aligned[1]["day"].Time, quicktest.Equals, want)
	c.Assert(aligned[2]["day"].Time, quicktest.Equals,
		time.Date(2023, 7, 9, 0, 0, 0, 0, time.UTC))
}

func TestCoerce_TextNormalization(t *testing.T) {
	c := quicktest.New(t)
	schema := &db.TableSchema{Name: "t", Columns: []db.ColumnSchema{{Name: "name", Type: db.TypeText}}}

	aligned, _ := Align([]RawRow{
		{"name": "  Comisión   de  Cobranza "},
		{"name": 42.5},
	}, schema)

	c.Assert(aligned[0]["name"], quicktest.Equals, TextValue("Comision de Cobranza"))
	c.Assert(aligned[1]["name"], quicktest.Equals, TextValue("42.5"))
}

func TestCoerce_IntegerAcceptsIntegralFloats(t *testing.T) {
	c := quicktest.New(t)
	schema := &db.TableSchema{Name: "t", Columns: []db.ColumnSchema{{Name: "id", Type: db.TypeInteger}}}

	aligned, stats := Align([]RawRow{
		{"id": "101.0"},
		{"id": 102.0},
		{"id": "103.5"},
	}, schema)

	c.Assert(aligned[0]["id"], quicktest.Equals, IntValue(101))
	c.Assert(aligned[1]["id"], quicktest.Equals, IntValue(102))
	c.Assert(aligned[2]["id"].IsNull(), quicktest.IsTrue)
	c.Assert(stats.BadCells, quicktest.Equals, 1)
}
