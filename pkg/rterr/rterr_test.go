package rterr_test

import (
	"errors"
	"testing"

	"slangrt/pkg/rterr"
)

func TestSourceLocStringIsOneBased(t *testing.T) {
	loc := rterr.SourceLoc{Line: 0, Col: 0}
	if got := loc.String(); got != "line 1, col 1" {
		t.Errorf("expected 1-based location, got %q", got)
	}
}

func TestNewSourceErrorFormats(t *testing.T) {
	err := rterr.NewSourceError(rterr.SourceLoc{Line: 2, Col: 4}, "bad token %q", "foo")
	want := "line 3, col 5: bad token \"foo\""
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestSourceErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &rterr.SourceError{Loc: rterr.SourceLoc{}, Msg: "outer", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is must see through SourceError.Unwrap to the inner error")
	}
}

func TestFatalfPanicsWithFatalError(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected Fatalf to panic")
		}
		fe, ok := r.(rterr.FatalError)
		if !ok {
			t.Fatalf("expected rterr.FatalError, got %T", r)
		}
		if fe.Error() != "boom: 42" {
			t.Errorf("got %q", fe.Error())
		}
	}()
	rterr.Fatalf("boom: %d", 42)
}

func TestRecoverCatchesFatalError(t *testing.T) {
	run := func() (err error) {
		defer rterr.Recover(&err)
		rterr.Fatalf("boom: %d", 7)
		return nil
	}
	err := run()
	if err == nil {
		t.Fatal("expected Recover to populate err from the panicking FatalError")
	}
	if err.Error() != "boom: 7" {
		t.Errorf("got %q", err.Error())
	}
}

func TestRecoverRepanicsOnOtherValues(t *testing.T) {
	defer func() {
		r := recover()
		if r != "not a fatal error" {
			t.Fatalf("expected Recover to re-panic the original value, got %v", r)
		}
	}()
	run := func() (err error) {
		defer rterr.Recover(&err)
		panic("not a fatal error")
	}
	_ = run()
}
