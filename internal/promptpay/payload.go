package promptpay

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Top-level tags of the payload, in the order they are written.
const (
	TagFormatIndicator = "00"
	TagInitiation      = "01"
	TagMerchantAccount = "29"
	TagCountry         = "58"
	TagCurrency        = "53"
	TagAmount          = "54"
	TagChecksum        = "63"
)

const (
	formatIndicator   = "01"
	initiationStatic  = "11"
	initiationDynamic = "12"

	// ApplicationID identifies PromptPay credit transfer inside tag 29.
	ApplicationID = "A000000677010111"
	subTagAID     = "00"

	countryCode  = "TH"
	currencyTHB  = "764"
	checksumSize = "04"
)

// Builder assembles PromptPay payloads. The zero value is not usable; use
// NewBuilder. A Builder holds no mutable state and is safe for concurrent use.
type Builder struct {
	policy MobilePolicy
}

// NewBuilder returns a Builder that normalizes mobile numbers with policy.
func NewBuilder(policy MobilePolicy) *Builder {
	return &Builder{policy: policy}
}

var defaultBuilder = NewBuilder(DefaultMobilePolicy)

// Build assembles a payload with the default mobile policy.
func Build(target string, amount *decimal.Decimal) (string, error) {
	return defaultBuilder.Build(target, amount)
}

// Build assembles the payload for target. A nil amount produces a static,
// reusable code; a non-nil amount produces a dynamic code locked to it.
func (b *Builder) Build(target string, amount *decimal.Decimal) (string, error) {
	t, err := Classify(target, b.policy)
	if err != nil {
		return "", err
	}
	return b.BuildFor(t, amount)
}

// BuildFor assembles the payload for an already classified target.
func (b *Builder) BuildFor(t Target, amount *decimal.Decimal) (string, error) {
	initiation := initiationStatic
	if amount != nil {
		initiation = initiationDynamic
	}

	aid, err := EncodeField(subTagAID, ApplicationID)
	if err != nil {
		return "", err
	}
	id, err := EncodeField(t.Kind.subTag(), t.Value)
	if err != nil {
		return "", err
	}
	merchant, err := EncodeComposite(TagMerchantAccount, aid, id)
	if err != nil {
		return "", err
	}

	payload := mustEncode(TagFormatIndicator, formatIndicator) +
		mustEncode(TagInitiation, initiation) +
		merchant +
		mustEncode(TagCountry, countryCode) +
		mustEncode(TagCurrency, currencyTHB)
	if amount != nil {
		field, err := EncodeField(TagAmount, FormatAmount(*amount))
		if err != nil {
			return "", err
		}
		payload += field
	}

	payload += TagChecksum + checksumSize
	return payload + CRC16(payload), nil
}

// mustEncode encodes fixed fields whose tag and value are constants.
func mustEncode(tag, value string) string {
	field, err := EncodeField(tag, value)
	if err != nil {
		panic(err)
	}
	return field
}

// FormatAmount renders amount with exactly two decimal places.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ParseAmount reads a user-entered baht amount for a dynamic code. The amount
// must be positive and representable in satang, so "0.001" is rejected rather
// than rendered as "0.00".
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.Equal(d.Truncate(2)) {
		return decimal.Zero, fmt.Errorf("%w: %s has fractional satang", ErrInvalidAmount, d)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAmount, d)
	}
	return d, nil
}
