package breaker

import (
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New[string]("test-open", nil)
	boom := errors.New("boom")

	for i := 0; i < 5; i++ {
		if _, err := cb.Execute(func() (string, error) { return "", boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	_, err := cb.Execute(func() (string, error) { return "ok", nil })
	if !errors.Is(Translate(err), ErrRejected) {
		t.Errorf("Translate(%v) should be ErrRejected", err)
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	clientErr := errors.New("not found")
	cb := New[string]("test-client-errors", func(err error) bool {
		return err == nil || errors.Is(err, clientErr)
	})

	for i := 0; i < 10; i++ {
		cb.Execute(func() (string, error) { return "", clientErr })
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}
