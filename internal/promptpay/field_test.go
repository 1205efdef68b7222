package promptpay_test

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/promptpay"
)

func TestEncodeField(t *testing.T) {
	tests := []struct {
		tag, value, want string
	}{
		{"00", "01", "000201"},
		{"58", "TH", "5802TH"},
		{"53", "764", "5303764"},
		{"54", "100.00", "5406100.00"},
		{"62", "", "6200"},
		{"01", "0066812345678", "01130066812345678"},
	}
	for _, tt := range tests {
		got, err := promptpay.EncodeField(tt.tag, tt.value)
		if err != nil {
			t.Fatalf("EncodeField(%q, %q): unexpected error: %v", tt.tag, tt.value, err)
		}
		if got != tt.want {
			t.Errorf("EncodeField(%q, %q): got %q, want %q", tt.tag, tt.value, got, tt.want)
		}
	}
}

func TestEncodeField_LengthIsBytes(t *testing.T) {
	// "ซัก" is 3 runes but 9 bytes in UTF-8.
	got, err := promptpay.EncodeField("08", "ซัก")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0809ซัก" {
		t.Errorf("got %q, want %q", got, "0809ซัก")
	}
}

func TestEncodeField_RoundTrip(t *testing.T) {
	for n := 0; n <= 99; n++ {
		value := strings.Repeat("x", n)
		encoded, err := promptpay.EncodeField("62", value)
		if err != nil {
			t.Fatalf("length %d: unexpected error: %v", n, err)
		}
		if encoded[:2] != "62" {
			t.Fatalf("length %d: tag got %q, want 62", n, encoded[:2])
		}
		length, err := strconv.Atoi(encoded[2:4])
		if err != nil {
			t.Fatalf("length %d: parse length: %v", n, err)
		}
		if got := encoded[4 : 4+length]; got != value || 4+length != len(encoded) {
			t.Errorf("length %d: value did not round-trip", n)
		}
	}
}

func TestEncodeField_ValueTooLong(t *testing.T) {
	_, err := promptpay.EncodeField("62", strings.Repeat("x", 100))
	if !errors.Is(err, promptpay.ErrValueTooLong) {
		t.Fatalf("got %v, want ErrValueTooLong", err)
	}
	var fe *promptpay.FieldError
	if !errors.As(err, &fe) || fe.Tag != "62" {
		t.Errorf("expected FieldError for tag 62, got %v", err)
	}
}

func TestEncodeField_InvalidTag(t *testing.T) {
	for _, tag := range []string{"", "1", "123", "A1", "0x"} {
		if _, err := promptpay.EncodeField(tag, "v"); !errors.Is(err, promptpay.ErrInvalidTag) {
			t.Errorf("tag %q: got %v, want ErrInvalidTag", tag, err)
		}
	}
}

func TestEncodeComposite(t *testing.T) {
	aid, _ := promptpay.EncodeField("00", promptpay.ApplicationID)
	id, _ := promptpay.EncodeField("01", "0066812345678")

	got, err := promptpay.EncodeComposite("29", aid, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "29370016A00000067701011101130066812345678"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncodeComposite_ValueTooLong(t *testing.T) {
	child, _ := promptpay.EncodeField("01", strings.Repeat("9", 60))
	if _, err := promptpay.EncodeComposite("29", child, child); !errors.Is(err, promptpay.ErrValueTooLong) {
		t.Fatalf("got %v, want ErrValueTooLong", err)
	}
}
