package utils

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount read from a nullable numeric column.
//
// NULL scans as zero. JSON output is a bare number so front ends can do math
// on it without parsing strings.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps d.
func NewMoney(d decimal.Decimal) Money { return Money{Decimal: d} }

// MoneyFromFloat is a convenience for tests and fixtures.
func MoneyFromFloat(f float64) Money { return Money{Decimal: decimal.NewFromFloat(f)} }

func (m *Money) Scan(src any) error {
	var nd decimal.NullDecimal
	if err := nd.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	if !nd.Valid {
		m.Decimal = decimal.Zero
		return nil
	}
	m.Decimal = nd.Decimal
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.Decimal.String(), nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	return m.Decimal.UnmarshalJSON(b)
}
