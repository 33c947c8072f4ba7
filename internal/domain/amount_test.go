package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountToCents(t *testing.T) {
	tests := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"100", 10000, true},
		{"0", 0, true},
		{"12.34", 1234, true},
		{"0.01", 1, true},
		{"1e2", 10000, true},
		{"-1", 0, false},
		{"-0.01", 0, false},
		{"1.005", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.in)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.in, err)
			}
			cents, ok := AmountToCents(d)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && cents != tt.cents {
				t.Errorf("cents = %d, want %d", cents, tt.cents)
			}
		})
	}
}

func TestParseKindRejectsUnknown(t *testing.T) {
	for _, name := range []string{"DEPOSIT", "WITHDRAW", "XFER", "FREEZE", "THAW"} {
		kind, err := ParseKind(name)
		if err != nil {
			t.Errorf("ParseKind(%q): %v", name, err)
		}
		if kind.String() != name {
			t.Errorf("round trip %q -> %q", name, kind.String())
		}
	}
	if _, err := ParseKind("deposit"); err == nil {
		t.Error("lowercase command accepted")
	}
}
