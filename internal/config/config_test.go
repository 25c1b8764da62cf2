package config

import (
	"testing"

	"github.com/hailam/gostone/internal/board"
)

func TestDefaultOptions(t *testing.T) {
	o := Default()
	if o.Komi != 7.5 {
		t.Fatalf("expected default komi 7.5, got %v", o.Komi)
	}
	if o.Rule != board.RuleChinese {
		t.Fatalf("expected default rule Chinese")
	}
}

func TestSetRecognizedKeys(t *testing.T) {
	o := Default()
	if err := o.Set("komi", "6.5"); err != nil {
		t.Fatalf("Set(komi): %v", err)
	}
	if o.Komi != 6.5 {
		t.Fatalf("expected komi 6.5, got %v", o.Komi)
	}
	if err := o.Set("rule", "japanese"); err != nil {
		t.Fatalf("Set(rule): %v", err)
	}
	if o.Rule != board.RuleJapanese {
		t.Fatalf("expected rule Japanese")
	}
	if err := o.Set("num_threads", "4"); err != nil {
		t.Fatalf("Set(num_threads): %v", err)
	}
	if o.NumThreads != 4 {
		t.Fatalf("expected 4 threads, got %d", o.NumThreads)
	}
}

func TestSetRejectsUnknownKey(t *testing.T) {
	o := Default()
	if err := o.Set("not_a_real_key", "1"); err == nil {
		t.Fatalf("expected an error for an unrecognized key")
	}
}

func TestSetRejectsBadValue(t *testing.T) {
	o := Default()
	if err := o.Set("komi", "not-a-number"); err == nil {
		t.Fatalf("expected an error for a malformed float")
	}
}
