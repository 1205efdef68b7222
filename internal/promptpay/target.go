package promptpay

import (
	"fmt"
	"strings"
)

// Kind is the type of account a PromptPay identifier refers to.
type Kind int

const (
	KindMobile Kind = iota + 1
	KindNationalID
	KindEWallet
)

func (k Kind) String() string {
	switch k {
	case KindMobile:
		return "MOBILE"
	case KindNationalID:
		return "NATIONAL_ID"
	case KindEWallet:
		return "EWALLET"
	}
	return "UNKNOWN"
}

// subTag is the tag the identifier is carried under inside the
// merchant account information field.
func (k Kind) subTag() string {
	switch k {
	case KindMobile:
		return "01"
	case KindNationalID:
		return "02"
	case KindEWallet:
		return "03"
	}
	return ""
}

// DefaultMobilePrefix replaces the leading zero of a local mobile number.
// Some banking apps fail to read the "66" country-code form, so "0066" is
// used instead of plain E.164.
const DefaultMobilePrefix = "0066"

// MobilePolicy controls how local mobile numbers are normalized before
// they go into the payload.
type MobilePolicy struct {
	Prefix string
}

// DefaultMobilePolicy is the normalization used when none is configured.
var DefaultMobilePolicy = MobilePolicy{Prefix: DefaultMobilePrefix}

// Normalize turns a 10-digit local number ("0812345678") into its
// payload form ("0066812345678"). An empty Prefix means DefaultMobilePrefix.
func (p MobilePolicy) Normalize(local string) string {
	prefix := p.Prefix
	if prefix == "" {
		prefix = DefaultMobilePrefix
	}
	return prefix + strings.TrimPrefix(local, "0")
}

// Target is a classified payee identifier.
type Target struct {
	Kind  Kind
	Value string
}

// Classify strips everything but digits from raw and decides which kind of
// identifier it is from the digit count alone.
func Classify(raw string, policy MobilePolicy) (Target, error) {
	digits := digitsOnly(raw)
	switch {
	case len(digits) == 10 && digits[0] == '0':
		return Target{Kind: KindMobile, Value: policy.Normalize(digits)}, nil
	case len(digits) == 13:
		return Target{Kind: KindNationalID, Value: digits}, nil
	case len(digits) == 15:
		return Target{Kind: KindEWallet, Value: digits}, nil
	}
	return Target{}, fmt.Errorf("%w: %d digits", ErrInvalidIdentifier, len(digits))
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
