package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Artwork is a catalog record. Each artwork is a one-off piece.
type Artwork struct {
	ID              string         `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description,omitempty"`
	SizeDescription string         `db:"size" json:"size,omitempty"`
	PriceMinorUnits int64          `db:"price_cents" json:"price_cents"`
	CurrencyCode    string         `db:"currency" json:"currency"`
	Available       bool           `db:"available" json:"available"`
	Images          pq.StringArray `db:"images" json:"images"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// PrimaryImage returns the first image URL, or "" when there is none.
func (a *Artwork) PrimaryImage() string {
	if len(a.Images) == 0 {
		return ""
	}
	return a.Images[0]
}

// NewArtwork holds the validated fields of an artwork to insert.
type NewArtwork struct {
	Title           string
	Description     string
	SizeDescription string
	PriceMinorUnits int64
	CurrencyCode    string
	Available       bool
	Images          []string
}

// CartEntry is a snapshot of an artwork taken when it was added to a cart.
// Prices in a cart may be stale; checkout never trusts them.
type CartEntry struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	PriceMinorUnits int64   `json:"price_cents"`
	CurrencyCode    string  `json:"currency"`
	PrimaryImage    *string `json:"image"`
}

// CheckoutSummary is the read-only view of a completed hosted checkout.
type CheckoutSummary struct {
	SessionID   string             `json:"id"`
	Status      string             `json:"status"`
	PaidStatus  string             `json:"payment_status"`
	Created     time.Time          `json:"created"`
	AmountTotal int64              `json:"amount_total"`
	Currency    string             `json:"currency"`
	Customer    *CustomerDetails   `json:"customer_details,omitempty"`
	LineItems   []CheckoutLineItem `json:"line_items"`
}

// CustomerDetails is what the gateway collected from the buyer.
type CustomerDetails struct {
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
}

type CheckoutLineItem struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
}

// DefaultCurrency is used when a caller supplies no currency.
const DefaultCurrency = "EUR"

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// NormalizeCurrency trims and upper-cases a three-letter code. ok is false
// when code is not exactly three ASCII letters.
func NormalizeCurrency(code string) (normalized string, ok bool) {
	code = strings.TrimSpace(code)
	if !currencyPattern.MatchString(code) {
		return "", false
	}
	return strings.ToUpper(code), true
}
