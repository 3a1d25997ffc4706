package money

import (
	"encoding/json"
	"testing"
)

func TestFromFloatRounding(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{1, 100},
		{150, 15000},
		{0.005, 1},
		{0.004, 0},
		{19.99, 1999},
		{216.0, 21600},
	}
	for _, tc := range cases {
		if got := FromFloat(tc.in).Cents(); got != tc.want {
			t.Errorf("FromFloat(%v) = %d cents, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMulRate(t *testing.T) {
	// 8% of 200.00 = 16.00
	subtotal := FromFloat(200)
	if got := subtotal.MulRate(0.08); got != FromFloat(16) {
		t.Errorf("MulRate(0.08) = %s, want 16.00", got)
	}
	// 7.5% of 10.01 = 0.75075 -> 0.75
	if got := FromFloat(10.01).MulRate(0.075); got.Cents() != 75 {
		t.Errorf("MulRate(0.075) = %d cents, want 75", got.Cents())
	}
}

func TestClampZero(t *testing.T) {
	if got := FromFloat(-5).ClampZero(); got != 0 {
		t.Errorf("ClampZero of negative = %d, want 0", got.Cents())
	}
	if got := FromFloat(5).ClampZero(); got != FromFloat(5) {
		t.Errorf("ClampZero of positive changed the value")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	a := FromFloat(216)
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "216.00" {
		t.Errorf("marshal = %s, want 216.00", data)
	}

	var b Amount
	if err := json.Unmarshal([]byte("19.99"), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.Cents() != 1999 {
		t.Errorf("unmarshal = %d cents, want 1999", b.Cents())
	}

	var c Amount
	if err := json.Unmarshal([]byte(`"12.50"`), &c); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if c.Cents() != 1250 {
		t.Errorf("unmarshal string = %d cents, want 1250", c.Cents())
	}
}
