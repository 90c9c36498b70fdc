package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Balances is a total mapping from every Asset to an amount. Assets absent
// from storage read as zero.
type Balances map[Asset]decimal.Decimal

// NewBalances returns a mapping with every asset set to zero.
func NewBalances() Balances {
	b := make(Balances, len(Assets))
	for _, a := range Assets {
		b[a] = decimal.Zero
	}
	return b
}

func (b Balances) Get(a Asset) decimal.Decimal {
	if v, ok := b[a]; ok {
		return v
	}
	return decimal.Zero
}

// Clone returns an independent copy that still covers every asset.
func (b Balances) Clone() Balances {
	c := NewBalances()
	for k, v := range b {
		c[k] = v
	}
	return c
}

func (b Balances) Value() (driver.Value, error) {
	return json.Marshal(b.Clone())
}

func (b *Balances) Scan(value interface{}) error {
	raw, err := scanBytes(value)
	if err != nil {
		return err
	}
	stored := make(map[Asset]decimal.Decimal)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			return err
		}
	}
	*b = Balances(stored).Clone()
	return nil
}

// AddressBook holds the display address per asset. Entries are generated lazily.
type AddressBook map[Asset]string

func (a AddressBook) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal(map[Asset]string{})
	}
	return json.Marshal(map[Asset]string(a))
}

func (a *AddressBook) Scan(value interface{}) error {
	raw, err := scanBytes(value)
	if err != nil {
		return err
	}
	book := make(map[Asset]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &book); err != nil {
			return err
		}
	}
	*a = book
	return nil
}

func (a AddressBook) Clone() AddressBook {
	c := make(AddressBook, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
