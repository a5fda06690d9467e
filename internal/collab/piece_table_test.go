package collab

import (
	"errors"
	"testing"

	"collabcore/internal/ot/delta"
)

func TestPieceTable_BasicString(t *testing.T) {
	pt := NewPieceTable("Hello world")
	if got := pt.String(); got != "Hello world" {
		t.Fatalf("String() = %q, want %q", got, "Hello world")
	}
	if gotLen := pt.Len(); gotLen != len([]rune("Hello world")) {
		t.Fatalf("Len() = %d, want %d", gotLen, len([]rune("Hello world")))
	}
}

func TestPieceTable_InsertMiddle(t *testing.T) {
	pt := NewPieceTable("Hello world")

	d := delta.Delta{
		{Kind: delta.KindRetain, Count: 5},
		{Kind: delta.KindInsert, Text: " collaborative"},
	}
	if err := pt.Apply(d); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := "Hello collaborative world"
	if got := pt.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestPieceTable_DeleteMiddle(t *testing.T) {
	pt := NewPieceTable("Hello collaborative world")

	// 保留 "Hello"，然后删 " collaborative"
	d := delta.Delta{
		{Kind: delta.KindRetain, Count: 5},
		{Kind: delta.KindDelete, Count: 14},
	}
	if err := pt.Apply(d); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := "Hello world"
	if got := pt.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestPieceTable_DeleteAcrossPieces(t *testing.T) {
	pt := NewPieceTable("abc")
	if err := pt.Apply(delta.Delta{{Kind: delta.KindRetain, Count: 1}, {Kind: delta.KindInsert, Text: "XY"}}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	// "aXYbc" -> 删掉跨越 add/original 两个 piece 的 "XYb"
	if err := pt.Apply(delta.Delta{{Kind: delta.KindRetain, Count: 1}, {Kind: delta.KindDelete, Count: 3}}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := pt.String(); got != "ac" {
		t.Fatalf("String() = %q, want %q", got, "ac")
	}
}

func TestPieceTable_OutOfRange(t *testing.T) {
	pt := NewPieceTable("hi")
	err := pt.Apply(delta.Delta{{Kind: delta.KindRetain, Count: 10}, {Kind: delta.KindInsert, Text: "x"}})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Apply() error = %v, want ErrOutOfRange", err)
	}

	err = pt.Apply(delta.Delta{{Kind: delta.KindDelete, Count: 3}})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Apply() error = %v, want ErrOutOfRange", err)
	}
}

func TestPieceTable_AppendText(t *testing.T) {
	pt := NewPieceTable("")
	pt.AppendText("hello")
	pt.AppendText(" world")
	if got := pt.String(); got != "hello world" {
		t.Fatalf("String() = %q, want %q", got, "hello world")
	}
}
