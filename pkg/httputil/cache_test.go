package httputil

import (
	"errors"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}

	type crate struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}

	if err := c.Set("crates:serde", crate{Name: "serde", Version: "1.0.0"}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	var got crate
	ok, err := c.Get("crates:serde", &got)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !ok {
		t.Fatal("Get() returned false for existing key")
	}
	if got.Name != "serde" || got.Version != "1.0.0" {
		t.Errorf("Get() = %+v, want serde 1.0.0", got)
	}
}

func TestCache_Miss(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	var result string
	ok, err := c.Get("missing", &result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("Get() returned true for missing key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c, _ := NewCache(t.TempDir(), 10*time.Millisecond)

	if err := c.Set("key", "value"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	var res string
	ok, err := c.Get("key", &res)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
	}

	time.Sleep(20 * time.Millisecond)

	ok, err = c.Get("key", &res)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("got error %v, want ErrExpired", err)
	}
	if ok {
		t.Error("expired entry reported as hit")
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c, _ := NewCache(t.TempDir(), 0)

	if err := c.Set("key", "value"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	var res string
	ok, err := c.Get("key", &res)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
	}
}

func TestCache_Namespace(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	crates := c.Namespace("crates:")

	if err := crates.Set("serde", "namespaced"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	// The parent must not see the un-prefixed key.
	var res string
	if ok, _ := c.Get("serde", &res); ok {
		t.Error("parent cache sees namespaced key without prefix")
	}
	if ok, _ := c.Get("crates:serde", &res); !ok {
		t.Error("parent cache misses the prefixed key")
	}
	if ok, _ := crates.Get("serde", &res); !ok || res != "namespaced" {
		t.Errorf("namespaced Get() = %v, %q", ok, res)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(t.Context(), 3, time.Millisecond, func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("permanent error retried %d times", calls)
	}
}

func TestRetry_RetriesRetryable(t *testing.T) {
	calls := 0
	err := Retry(t.Context(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("transient")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	transient := errors.New("transient")
	err := Retry(t.Context(), 3, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: transient}
	})
	if !errors.Is(err, transient) {
		t.Fatalf("got %v, want wrapped transient error", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}
