package socket

import (
	"errors"
	"testing"
)

func TestSocket_IsNoneUntilFirstWrite(t *testing.T) {
	s := New("x")
	if !s.IsNone() {
		t.Fatal("fresh socket should be none-typed")
	}
	if err := Insert(s, 42); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if s.IsNone() {
		t.Fatal("socket should have established a type after Insert")
	}
	if !s.IsType("int") {
		t.Fatalf("TypeName = %q, want int", s.TypeName())
	}
}

func TestSocket_Dirtiness(t *testing.T) {
	s := New("x")
	if s.Dirty() {
		t.Fatal("fresh socket should not be dirty")
	}
	if err := Insert(s, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if s.Dirty() {
		t.Fatal("socket should not be dirty after Insert")
	}
	s.SetDirty(true)
	s.Notify()
	if s.Dirty() {
		t.Fatal("Notify should clear dirty")
	}
}

func TestSocket_WeAreNotPointers(t *testing.T) {
	type payload struct{ N int }
	s := New("x")
	v := payload{N: 1}
	if err := Insert(s, v); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	v.N = 2
	got, err := Get[payload](s)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.N != 1 {
		t.Fatalf("socket value tracked caller's mutation: got N=%d, want 1", got.N)
	}
}

func TestSocket_Copyness(t *testing.T) {
	s := New("x")
	if err := Insert(s, "hello"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	s.SetTokenID(7)
	s.SetRequired(true)

	cp := s.Copy()
	if cp.TokenID() != NoTokenID {
		t.Fatalf("Copy should reset token_id, got %d", cp.TokenID())
	}
	if !cp.Supplied() || !cp.Dirty() {
		t.Fatal("a copy of a valued socket should be supplied and dirty, as if freshly written")
	}
	if !cp.Required() {
		t.Fatal("Copy should preserve the required flag")
	}

	got, err := Get[string](cp)
	if err != nil || got != "hello" {
		t.Fatalf("Get on copy = %q, %v, want hello, nil", got, err)
	}

	if err := Insert(s, "changed"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, _ = Get[string](cp)
	if got != "hello" {
		t.Fatal("copy should not observe writes to the original")
	}
}

func TestSocket_TokenTransfer(t *testing.T) {
	src := New("src")
	dst := New("dst")
	if err := Insert(src, 5); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	src.SetTokenID(3)

	if err := InsertFrom(dst, src); err != nil {
		t.Fatalf("InsertFrom: %v", err)
	}
	if dst.TokenID() != 3 {
		t.Fatalf("dst token_id = %d, want 3", dst.TokenID())
	}
	got, err := Get[int](dst)
	if err != nil || got != 5 {
		t.Fatalf("Get(dst) = %d, %v, want 5, nil", got, err)
	}
}

func TestSocket_TokenResetting(t *testing.T) {
	s := New("x")
	if err := Insert(s, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	s.SetTokenID(9)
	if err := Insert(s, 2); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if s.TokenID() != NoTokenID {
		t.Fatalf("direct Insert should reset token_id to NoTokenID, got %d", s.TokenID())
	}
}

func TestSocket_Callbacks(t *testing.T) {
	s := New("x")
	var updateCalls int
	var typedValues []int

	s.SetUpdateCallback(func() { updateCalls++ })
	s.SetTypedCallback(func(v any) { typedValues = append(typedValues, v.(int)) })

	if err := Insert(s, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := Insert(s, 1); err != nil { // unchanged value, no callback
		t.Fatalf("Insert: %v", err)
	}
	if err := Insert(s, 2); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if updateCalls != 2 {
		t.Fatalf("updateCalls = %d, want 2 (fires once per actual value change)", updateCalls)
	}
	want := []int{1, 2}
	if len(typedValues) != len(want) || typedValues[0] != want[0] || typedValues[1] != want[1] {
		t.Fatalf("typedValues = %v, want %v", typedValues, want)
	}
}

func TestSocket_ValueUpdatesRequireConverter(t *testing.T) {
	s := New("x")
	if err := Insert(s, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	err := Insert(s, "not an int")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("Insert across unconvertible types: err = %v, want ErrTypeMismatch", err)
	}

	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected *ConversionError, got %T", err)
	}
	if convErr.From != "string" || convErr.To != "int" {
		t.Fatalf("ConversionError = %+v, want From=string To=int", convErr)
	}
}

func TestSocket_ResetToDefault(t *testing.T) {
	m := NewMap()
	sock := MustDeclareWithDefault(m, "count", 10)
	if err := Insert(sock, 99); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	sock.Notify()
	if sock.Dirty() {
		t.Fatal("Notify should have cleared dirty")
	}

	sock.ResetToDefault()
	got, err := Get[int](sock)
	if err != nil || got != 10 {
		t.Fatalf("after ResetToDefault: %d, %v, want 10, nil", got, err)
	}
	if !sock.Dirty() {
		t.Fatal("ResetToDefault should mark dirty")
	}
}

func TestForeign_RoundTripsThroughPrimitives(t *testing.T) {
	s := New("x")
	if err := Insert(s, int64(42)); err != nil {
		t.Fatalf("Insert int64: %v", err)
	}
	f, err := Get[Foreign](s)
	if err != nil {
		t.Fatalf("Get[Foreign]: %v", err)
	}
	if f.Kind != ForeignInt || f.Int != 42 {
		t.Fatalf("Foreign = %+v, want Kind=ForeignInt Int=42", f)
	}

	back := New("y")
	if err := Insert(back, f); err != nil {
		t.Fatalf("Insert foreign: %v", err)
	}
	got, err := Get[int64](back)
	if err != nil || got != 42 {
		t.Fatalf("round trip = %d, %v, want 42, nil", got, err)
	}
}

func TestForeign_WrongKindConversionFails(t *testing.T) {
	s := New("x")
	if err := Insert(s, "hello"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	f, err := Get[Foreign](s)
	if err != nil {
		t.Fatalf("Get[Foreign]: %v", err)
	}
	back := New("y")
	if err := Insert(back, f); err != nil {
		t.Fatalf("Insert foreign: %v", err)
	}
	if _, err := Get[int64](back); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("Get[int64] on a string-kind Foreign: err = %v, want ErrTypeMismatch", err)
	}
}
