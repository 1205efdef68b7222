package promptpay

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Field is one decoded tag-length-value entry.
type Field struct {
	Tag   string
	Value string
}

// Payload is a decoded PromptPay code.
type Payload struct {
	Fields   []Field // top-level fields in wire order, checksum included
	Target   Target
	Amount   *decimal.Decimal
	Static   bool
	Checksum string
}

// Get returns the value of the first top-level field with tag.
func (p *Payload) Get(tag string) (string, bool) {
	for _, f := range p.Fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}

// ParseFields splits data into consecutive TLV fields.
// Format: T(2 digits) L(2 decimal digits) V(L bytes), repeated.
func ParseFields(data string) ([]Field, error) {
	var fields []Field
	offset := 0
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrMalformedPayload, offset)
		}
		tag := data[offset : offset+2]
		if !validTag(tag) {
			return nil, &FieldError{Tag: tag, Err: ErrInvalidTag}
		}
		lengthStr := data[offset+2 : offset+4]
		length, err := strconv.Atoi(lengthStr)
		if err != nil || length < 0 {
			return nil, &FieldError{Tag: tag, Err: fmt.Errorf("%w: invalid length %q", ErrMalformedPayload, lengthStr)}
		}
		offset += 4

		if offset+length > len(data) {
			return nil, &FieldError{Tag: tag, Err: fmt.Errorf("%w: need %d bytes, got %d", ErrMalformedPayload, length, len(data)-offset)}
		}
		fields = append(fields, Field{Tag: tag, Value: data[offset : offset+length]})
		offset += length
	}
	return fields, nil
}

// Verify checks that payload ends in a checksum field whose value is the
// CRC of everything before it.
func Verify(payload string) error {
	const trailer = len(TagChecksum) + len(checksumSize) + 4
	if len(payload) < trailer {
		return fmt.Errorf("%w: too short", ErrMalformedPayload)
	}
	head := payload[:len(payload)-4]
	if head[len(head)-4:] != TagChecksum+checksumSize {
		return fmt.Errorf("%w: missing checksum field", ErrMalformedPayload)
	}
	want := CRC16(head)
	if got := payload[len(payload)-4:]; got != want {
		return fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, got, want)
	}
	return nil
}

// Decode verifies the checksum of payload and parses it back into its
// fields, the payee identifier and the optional amount.
func Decode(payload string) (*Payload, error) {
	if err := Verify(payload); err != nil {
		return nil, err
	}
	fields, err := ParseFields(payload)
	if err != nil {
		return nil, err
	}

	p := &Payload{Fields: fields, Checksum: payload[len(payload)-4:]}

	initiation, ok := p.Get(TagInitiation)
	if !ok {
		return nil, &FieldError{Tag: TagInitiation, Err: fmt.Errorf("%w: missing", ErrMalformedPayload)}
	}
	switch initiation {
	case initiationStatic:
		p.Static = true
	case initiationDynamic:
	default:
		return nil, &FieldError{Tag: TagInitiation, Err: fmt.Errorf("%w: unknown initiation method %q", ErrMalformedPayload, initiation)}
	}

	merchant, ok := p.Get(TagMerchantAccount)
	if !ok {
		return nil, &FieldError{Tag: TagMerchantAccount, Err: fmt.Errorf("%w: missing", ErrMalformedPayload)}
	}
	subFields, err := ParseFields(merchant)
	if err != nil {
		return nil, &FieldError{Tag: TagMerchantAccount, Err: err}
	}
	for _, f := range subFields {
		kind, ok := kindForSubTag(f.Tag)
		if !ok {
			continue
		}
		if p.Target.Kind != 0 {
			return nil, &FieldError{Tag: TagMerchantAccount, Err: fmt.Errorf("%w: more than one payee identifier", ErrMalformedPayload)}
		}
		p.Target = Target{Kind: kind, Value: f.Value}
	}
	if p.Target.Kind == 0 {
		return nil, &FieldError{Tag: TagMerchantAccount, Err: ErrInvalidIdentifier}
	}

	if raw, ok := p.Get(TagAmount); ok {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, &FieldError{Tag: TagAmount, Err: fmt.Errorf("%w: invalid amount %q", ErrMalformedPayload, raw)}
		}
		p.Amount = &amount
	}
	return p, nil
}

func kindForSubTag(tag string) (Kind, bool) {
	for _, k := range []Kind{KindMobile, KindNationalID, KindEWallet} {
		if k.subTag() == tag {
			return k, true
		}
	}
	return 0, false
}
