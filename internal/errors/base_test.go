package errors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	err := Wrap(errWrapped, "Hello, Wrapped!")
	if err.Error() != "Hello, Wrapped!, err: wrapped error" {
		t.Fatalf("error mismatch: %+v", err)
	}

	if Wrap(nil, "nothing") != nil {
		t.Fatal("wrap nil should be nil")
	}
}

func TestBusiness(t *testing.T) {
	err := Business(errWrapped, "dispatch spot")
	if err.Error() != "business: dispatch spot, err: wrapped error" {
		t.Fatalf("error mismatch: %+v", err)
	}

	if !IsBusiness(err) {
		t.Fatal("should be business error")
	}

	if !errors.Is(err, errWrapped) {
		t.Fatal("business error should unwrap to cause")
	}

	outer := Wrap(err, "cycle")
	if !IsBusiness(outer) {
		t.Fatal("wrapped business error should still be business")
	}

	if IsBusiness(Wrap(errWrapped, "plain")) {
		t.Fatal("plain wrap should not be business")
	}

	if Business(nil, "x") != nil {
		t.Fatal("business nil should be nil")
	}
}
