package services_test

import (
	"errors"
	"strings"
	"testing"

	"setbreak/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "decode", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"decode", "ffmpeg", "failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	if !services.IsFatal(services.Wrap(services.ErrStorage, "commit", "insert", "", errors.New("disk full"))) {
		t.Fatal("expected storage error to be fatal")
	}
	if services.IsFatal(services.Wrap(services.ErrDecode, "decode", "wav", "", nil)) {
		t.Fatal("expected decode error to be non-fatal")
	}
	if services.IsFatal(nil) {
		t.Fatal("nil error is not fatal")
	}
}

type kindError struct{}

func (kindError) Error() string     { return "classified" }
func (kindError) ErrorKind() string { return "custom_kind" }

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrStorage, "", "", "x", nil), "storage"},
		{services.Wrap(services.ErrEngine, "", "", "x", nil), "engine"},
		{services.Wrap(services.ErrTimeout, "", "", "x", nil), "timeout"},
		{services.Wrap(services.ErrDecode, "decode", "", "", kindError{}), "custom_kind"},
		{errors.New("plain"), "unknown"},
	}
	for _, tc := range tests {
		if got := services.ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
