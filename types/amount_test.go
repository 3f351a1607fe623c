package types

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wei     string
		wantErr bool
	}{
		{"half", "0.5", "500000000000000000", false},
		{"one", "1", "1000000000000000000", false},
		{"one wei", "0.000000000000000001", "1", false},
		{"zero", "0", "0", false},
		{"large", "123456789.123456789", "123456789123456789000000000", false},
		{"too precise", "0.0000000000000000001", "", true},
		{"garbage", "abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEther(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.wei {
				t.Errorf("wei: got %s, want %s", got.String(), tt.wei)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Amount
		expected Amount
	}{
		{"Add", func() Amount { return WeiInt64(100).Add(WeiInt64(200)) }, WeiInt64(300)},
		{"Sub", func() Amount { return WeiInt64(500).Sub(WeiInt64(200)) }, WeiInt64(300)},
		{"Sub negative", func() Amount { return WeiInt64(1).Sub(WeiInt64(2)) }, WeiInt64(-1)},
		{"Zero value Add", func() Amount { return Amount{}.Add(WeiInt64(7)) }, WeiInt64(7)},
		{"Sum", func() Amount { return Sum(MustEther("0.1"), MustEther("0.2"), MustEther("0.2")) }, MustEther("0.5")},
		{"Sum empty", func() Amount { return Sum() }, ZeroAmount()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op(); !got.Equal(tt.expected) {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestAmountIsImmutable(t *testing.T) {
	src := big.NewInt(10)
	a := Wei(src)
	src.SetInt64(99)
	if a.String() != "10" {
		t.Errorf("Wei did not copy its input: %s", a)
	}

	b := a.Big()
	b.SetInt64(42)
	if a.String() != "10" {
		t.Errorf("Big leaked internal state: %s", a)
	}

	_ = a.Add(WeiInt64(5))
	if a.String() != "10" {
		t.Errorf("Add mutated receiver: %s", a)
	}
}

func TestAmountPredicates(t *testing.T) {
	if !(Amount{}).IsZero() {
		t.Error("zero value should be zero")
	}
	if !WeiInt64(1).IsPositive() || WeiInt64(1).IsNegative() {
		t.Error("1 wei should be positive")
	}
	if !WeiInt64(-1).IsNegative() {
		t.Error("-1 wei should be negative")
	}
	if WeiInt64(1).Cmp(WeiInt64(2)) != -1 {
		t.Error("1 should compare below 2")
	}
}

func TestFormatEther(t *testing.T) {
	if got := MustEther("0.5").FormatEther(); got != "0.5" {
		t.Errorf("got %q, want 0.5", got)
	}
	if got := WeiInt64(0).FormatEther(); got != "0" {
		t.Errorf("got %q, want 0", got)
	}
}

func TestAmountJSON(t *testing.T) {
	type wrapper struct {
		Amount Amount `json:"amount"`
	}

	data, err := json.Marshal(wrapper{Amount: MustEther("0.5")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"amount":"500000000000000000"}` {
		t.Errorf("unexpected json: %s", data)
	}

	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Amount.Equal(MustEther("0.5")) {
		t.Errorf("round trip mismatch: %s", out.Amount)
	}
}

func TestAmountScan(t *testing.T) {
	var a Amount
	if err := a.Scan("1000"); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if a.String() != "1000" {
		t.Errorf("got %s", a)
	}
	if err := a.Scan([]byte("12")); err != nil || a.String() != "12" {
		t.Errorf("scan bytes: %v %s", err, a)
	}
	if err := a.Scan(nil); err != nil || !a.IsZero() {
		t.Errorf("scan nil: %v %s", err, a)
	}
	if err := a.Scan(3.5); err == nil {
		t.Error("expected error scanning float")
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x694AA1769357215DE4FAC081bf1f309aDC325306")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if IsZeroAddress(addr) {
		t.Error("parsed address should not be zero")
	}
	if _, err := ParseAddress("not-an-address"); err == nil {
		t.Error("expected error for invalid address")
	}
	if !IsZeroAddress(Address{}) {
		t.Error("zero value should be zero address")
	}
}
