package delta

import (
	"errors"
	"testing"
)

func TestValidate_OK(t *testing.T) {
	d := Delta{
		{Kind: KindRetain, Count: 5},
		{Kind: KindInsert, Text: "Hello", Attrs: map[string]any{"bold": true}},
		{Kind: KindDelete, Count: 2},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_Empty(t *testing.T) {
	var d Delta
	if err := d.Validate(); !errors.Is(err, ErrEmptyDelta) {
		t.Fatalf("Validate() error = %v, want ErrEmptyDelta", err)
	}
}

func TestValidate_BadOps(t *testing.T) {
	cases := []Delta{
		{{Kind: "replace", Count: 1}},       // 未知类型
		{{Kind: KindRetain, Count: 0}},      // retain 长度必须为正
		{{Kind: KindDelete, Count: -3}},     // delete 长度必须为正
		{{Kind: KindInsert}},                // insert 不能为空
		{{Kind: KindInsert, Text: "a", Count: 1}},
		{{Kind: KindRetain, Count: 1, Text: "x"}},
	}
	for i, d := range cases {
		if err := d.Validate(); !errors.Is(err, ErrBadOp) {
			t.Fatalf("case %d: Validate() error = %v, want ErrBadOp", i, err)
		}
	}
}

func TestConcat(t *testing.T) {
	a := Delta{{Kind: KindInsert, Text: "Hello"}}
	b := Delta{{Kind: KindRetain, Count: 5}, {Kind: KindInsert, Text: " world"}}
	out := Concat(a, b)
	if len(out) != 3 {
		t.Fatalf("Concat() len = %d, want 3", len(out))
	}
	// 入参不能被修改
	if len(a) != 1 || len(b) != 2 {
		t.Fatalf("Concat() mutated inputs: len(a)=%d len(b)=%d", len(a), len(b))
	}
	if out[0].Text != "Hello" || out[2].Text != " world" {
		t.Fatalf("Concat() wrong order: %+v", out)
	}
}

func TestInsertText(t *testing.T) {
	d := Delta{
		{Kind: KindRetain, Count: 3},
		{Kind: KindInsert, Text: "foo"},
		{Kind: KindDelete, Count: 1},
		{Kind: KindInsert, Text: "bar"},
	}
	if got := d.InsertText(); got != "foobar" {
		t.Fatalf("InsertText() = %q, want %q", got, "foobar")
	}
	if got := d.InsertLen(); got != 6 {
		t.Fatalf("InsertLen() = %d, want 6", got)
	}
}
