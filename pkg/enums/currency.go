package enums

import "strings"

// Currency is an ISO 4217 code. Every amount in the system is an int64 of
// the currency's minor unit (kobo for NGN).
type Currency string

const CurrencyNGN Currency = "NGN"

func (c Currency) String() string { return string(c) }

// Lower is the form card gateways expect.
func (c Currency) Lower() string { return strings.ToLower(string(c)) }

func (c Currency) IsValid() bool {
	return c == CurrencyNGN
}
