package rfcomm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want Address
		str  string
	}{
		{"00:16:04:01:21:C0", Address{0x00, 0x16, 0x04, 0x01, 0x21, 0xC0}, "00:16:04:01:21:C0"},
		{"00:ff:ee:ee:dd:12", Address{0x00, 0xFF, 0xEE, 0xEE, 0xDD, 0x12}, "00:FF:EE:EE:DD:12"},
		{"aA:bB:cC:dD:eE:fF", Address{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, "AA:BB:CC:DD:EE:FF"},
		{"00:00:00:00:00:00", Address{}, "00:00:00:00:00:00"},
	}
	for _, tt := range tests {
		got, err := ParseAddress(tt.in)
		if err != nil {
			t.Errorf("ParseAddress(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAddress(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if s := got.String(); s != tt.str {
			t.Errorf("String() = %q, want %q", s, tt.str)
		}
		again, err := ParseAddress(got.String())
		if err != nil || again != got {
			t.Errorf("round trip of %q = %v, %v", tt.in, again, err)
		}
	}
}

func TestParseAddressInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"00:16:04:01:21",
		"00:16:04:01:21:C0:11",
		"00:16:04:01:21:C",
		"00:16:04:01:21:C00",
		"0:16:04:01:21:C0",
		"00:16:04:01:21:G0",
		"+0:16:04:01:21:C0",
		"-1:16:04:01:21:C0",
		"00-16-04-01-21-C0",
		" 00:16:04:01:21:C0",
		"00:16:04:01:21:C0 ",
	} {
		_, err := ParseAddress(in)
		if err == nil {
			t.Errorf("ParseAddress(%q) succeeded", in)
			continue
		}
		if !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ParseAddress(%q) error %v does not wrap ErrInvalidAddress", in, err)
		}
		var e *Error
		if !errors.As(err, &e) || e.Kind != KindDesc {
			t.Errorf("ParseAddress(%q) error %#v is not KindDesc", in, err)
		}
	}
}

func TestAnyAddress(t *testing.T) {
	a := AnyAddress()
	if !a.IsAny() {
		t.Fatal("AnyAddress().IsAny() = false")
	}
	if s := a.String(); s != "00:00:00:00:00:00" {
		t.Fatalf("AnyAddress() = %q", s)
	}
	if testAddr.IsAny() {
		t.Fatal("real address reported as any")
	}
}

func TestWireOrder(t *testing.T) {
	a := Address{0x00, 0x16, 0x04, 0x01, 0x21, 0xC0}
	if a.ToWireOrder().FromWireOrder() != a {
		t.Fatal("wire order conversion is not an involution")
	}

	saved := hostLittleEndian
	defer func() { hostLittleEndian = saved }()

	hostLittleEndian = true
	if got, want := a.ToWireOrder(), (Address{0xC0, 0x21, 0x01, 0x04, 0x16, 0x00}); got != want {
		t.Fatalf("little-endian wire order = %v, want %v", got, want)
	}
	hostLittleEndian = false
	if got := a.ToWireOrder(); got != a {
		t.Fatalf("big-endian wire order = %v, want %v", got, a)
	}
}

func TestCompare(t *testing.T) {
	lo := Address{0x00, 0x16, 0x04, 0x01, 0x21, 0xC0}
	hi := Address{0x00, 0x16, 0x04, 0x01, 0x22, 0x00}
	if Compare(lo, hi) >= 0 || Compare(hi, lo) <= 0 || Compare(lo, lo) != 0 {
		t.Fatal("Compare does not order byte-wise")
	}
}

func TestAddressText(t *testing.T) {
	type record struct {
		Addr Address `json:"addr"`
	}
	out, err := json.Marshal(record{Addr: testAddr})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"addr":"00:16:04:01:21:C0"}` {
		t.Fatalf("json = %s", out)
	}
	var back record
	if err := json.Unmarshal([]byte(`{"addr":"00:16:04:01:21:c0"}`), &back); err != nil {
		t.Fatal(err)
	}
	if back.Addr != testAddr {
		t.Fatalf("decoded %v", back.Addr)
	}
	if err := json.Unmarshal([]byte(`{"addr":"nope"}`), &back); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("decode of bad address: %v", err)
	}
}
