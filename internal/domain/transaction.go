package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted textual form of a transaction date.
const DateLayout = "2006-01-02"

// Transaction is one statement line extracted from a document.
// Values are immutable once built; every extraction attempt produces a new slice.
type Transaction struct {
	Date   civil.Date      // calendar date, rendered as YYYY-MM-DD
	Memo   string          // free-text description, never empty
	Amount decimal.Decimal // negative = debit, positive = credit
}

// NewTransaction builds a Transaction, rejecting records that are not well formed.
func NewTransaction(date civil.Date, memo string, amount decimal.Decimal) (Transaction, error) {
	if !date.IsValid() {
		return Transaction{}, fmt.Errorf("%w: invalid date %q", ErrMalformedRecord, date.String())
	}
	memo = strings.TrimSpace(memo)
	if memo == "" {
		return Transaction{}, fmt.Errorf("%w: memo is empty", ErrMalformedRecord)
	}
	return Transaction{Date: date, Memo: memo, Amount: amount}, nil
}

// ParseDate parses a strict YYYY-MM-DD date.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrMalformedRecord, s)
	}
	return d, nil
}

// ParseTransaction converts one decoded wire object into a Transaction.
// Numbers are expected as json.Number (decoder.UseNumber) so amounts keep
// their exact decimal digits.
func ParseTransaction(obj map[string]interface{}) (Transaction, error) {
	dateStr, err := getStringField(obj, "date")
	if err != nil {
		return Transaction{}, err
	}
	memo, err := getStringField(obj, "memo")
	if err != nil {
		return Transaction{}, err
	}
	amount, err := getDecimalField(obj, "amount")
	if err != nil {
		return Transaction{}, err
	}

	date, err := ParseDate(dateStr)
	if err != nil {
		return Transaction{}, err
	}

	return NewTransaction(date, memo, amount)
}

// ParseTransactions decodes a wire payload into an ordered record slice.
// The payload is either a JSON array of records or an object holding the
// array under "transactions".
func ParseTransactions(data []byte) ([]Transaction, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var parsed interface{}
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedRecord, err)
	}

	items, err := recordList(parsed)
	if err != nil {
		return nil, err
	}

	result := make([]Transaction, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, want object", ErrMalformedRecord, i, item)
		}
		tx, err := ParseTransaction(obj)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		result = append(result, tx)
	}

	return result, nil
}

func recordList(parsed interface{}) ([]interface{}, error) {
	switch v := parsed.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		txAny, ok := v["transactions"]
		if !ok {
			return nil, fmt.Errorf("%w: missing 'transactions' key", ErrMalformedRecord)
		}
		list, ok := txAny.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: 'transactions' is %T, want array", ErrMalformedRecord, txAny)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%w: payload is %T, want array", ErrMalformedRecord, parsed)
	}
}

// Validate reports whether an already-built record still satisfies the
// record invariants. Used on values handed over by external stages.
func (t Transaction) Validate() error {
	if !t.Date.IsValid() {
		return fmt.Errorf("%w: invalid date %q", ErrMalformedRecord, t.Date.String())
	}
	if strings.TrimSpace(t.Memo) == "" {
		return fmt.Errorf("%w: memo is empty", ErrMalformedRecord)
	}
	return nil
}

// Equal reports whether two records are identical field by field.
func (t Transaction) Equal(other Transaction) bool {
	return t.Date == other.Date && t.Memo == other.Memo && t.Amount.Equal(other.Amount)
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %q %s", t.Date.String(), t.Memo, t.Amount.String())
}

type wireTransaction struct {
	Date   string      `json:"date"`
	Memo   string      `json:"memo"`
	Amount json.Number `json:"amount"`
}

// MarshalJSON writes the wire form {"date","memo","amount"} with amount as a
// JSON number carrying the exact decimal digits.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTransaction{
		Date:   t.Date.String(),
		Memo:   t.Memo,
		Amount: json.Number(t.Amount.String()),
	})
}

// UnmarshalJSON goes through ParseTransaction so malformed input never
// produces a partially-formed record.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	parsed, err := ParseTransaction(obj)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ValidateRecords checks the structural shape of every record in order.
func ValidateRecords(records []Transaction) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// CloneTransactions returns an independent copy of records.
// decimal.Decimal is never mutated in place, so a shallow element copy is enough.
func CloneTransactions(records []Transaction) []Transaction {
	if records == nil {
		return nil
	}
	out := make([]Transaction, len(records))
	copy(out, records)
	return out
}

// NetAmount sums the signed amounts of records.
func NetAmount(records []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

func getStringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: missing required field %q", ErrMalformedRecord, key)
	}
	val, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q has type %T, want string", ErrMalformedRecord, key, v)
	}
	if strings.TrimSpace(val) == "" {
		return "", fmt.Errorf("%w: required field %q is empty", ErrMalformedRecord, key)
	}
	return val, nil
}

func getDecimalField(m map[string]interface{}, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Decimal{}, fmt.Errorf("%w: missing required field %q", ErrMalformedRecord, key)
	}
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: field %q: %v", ErrMalformedRecord, key, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: field %q has type %T, want number", ErrMalformedRecord, key, v)
	}
}
