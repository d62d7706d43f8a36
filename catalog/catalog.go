// Package catalog resolves which financial product, and therefore which
// periodic rate, applies to a requested principal and term.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/loansim/money"
)

// ErrNotFound is returned when no product admits the requested pair.
var ErrNotFound = errors.New("no product matches the requested principal and term")

// Product is one catalog entry. A nil maximum means unbounded.
type Product struct {
	Code         int              `json:"code" yaml:"code"`
	Description  string           `json:"description" yaml:"description"`
	Rate         decimal.Decimal  `json:"rate" yaml:"rate"`
	MinTerm      int              `json:"minTerm" yaml:"min_term"`
	MaxTerm      *int             `json:"maxTerm" yaml:"max_term,omitempty"`
	MinPrincipal decimal.Decimal  `json:"minPrincipal" yaml:"min_principal"`
	MaxPrincipal *decimal.Decimal `json:"maxPrincipal" yaml:"max_principal,omitempty"`
}

// MarshalJSON writes rates and amounts as plain numbers.
func (p Product) MarshalJSON() ([]byte, error) {
	var maxPrincipal *json.Number
	if p.MaxPrincipal != nil {
		n := money.Cash(*p.MaxPrincipal)
		maxPrincipal = &n
	}
	return json.Marshal(struct {
		Code         int          `json:"code"`
		Description  string       `json:"description"`
		Rate         json.Number  `json:"rate"`
		MinTerm      int          `json:"minTerm"`
		MaxTerm      *int         `json:"maxTerm"`
		MinPrincipal json.Number  `json:"minPrincipal"`
		MaxPrincipal *json.Number `json:"maxPrincipal"`
	}{
		Code:         p.Code,
		Description:  p.Description,
		Rate:         money.Rate(p.Rate),
		MinTerm:      p.MinTerm,
		MaxTerm:      p.MaxTerm,
		MinPrincipal: money.Cash(p.MinPrincipal),
		MaxPrincipal: maxPrincipal,
	})
}

// Admits reports whether the product's bounds include principal and term.
func (p Product) Admits(principal decimal.Decimal, term int) bool {
	if term < p.MinTerm {
		return false
	}
	if p.MaxTerm != nil && term > *p.MaxTerm {
		return false
	}
	if principal.LessThan(p.MinPrincipal) {
		return false
	}
	if p.MaxPrincipal != nil && principal.GreaterThan(*p.MaxPrincipal) {
		return false
	}
	return true
}

// Finder is the lookup the simulator consumes.
type Finder interface {
	Find(ctx context.Context, principal decimal.Decimal, term int) (Product, error)
}

// Catalog is a Finder that can also enumerate its products.
type Catalog interface {
	Finder
	List(ctx context.Context) ([]Product, error)
}

// moreSpecific orders candidates: the largest minimum term wins, ties go to
// the largest minimum principal.
func moreSpecific(a, b Product) bool {
	if a.MinTerm != b.MinTerm {
		return a.MinTerm > b.MinTerm
	}
	return a.MinPrincipal.GreaterThan(b.MinPrincipal)
}

// Static is an in-memory catalog with the same selection policy as the
// SQLite one.
type Static struct {
	products []Product
}

// NewStatic copies products into a new catalog.
func NewStatic(products []Product) *Static {
	ps := make([]Product, len(products))
	copy(ps, products)
	sort.SliceStable(ps, func(i, j int) bool { return moreSpecific(ps[i], ps[j]) })
	return &Static{products: ps}
}

// Find returns the most specific admitting product.
func (s *Static) Find(ctx context.Context, principal decimal.Decimal, term int) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	for _, p := range s.products {
		if p.Admits(principal, term) {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

// List returns all products, most specific first.
func (s *Static) List(ctx context.Context) ([]Product, error) {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func intPtr(v int) *int { return &v }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// DefaultProducts is the catalog seeded into a fresh database.
func DefaultProducts() []Product {
	return []Product{
		{
			Code:         1,
			Description:  "Produto 1",
			Rate:         decimal.RequireFromString("0.017900000"),
			MinTerm:      0,
			MaxTerm:      intPtr(24),
			MinPrincipal: decimal.RequireFromString("200.00"),
			MaxPrincipal: decPtr("10000.00"),
		},
		{
			Code:         2,
			Description:  "Produto 2",
			Rate:         decimal.RequireFromString("0.017500000"),
			MinTerm:      25,
			MaxTerm:      intPtr(48),
			MinPrincipal: decimal.RequireFromString("10001.00"),
			MaxPrincipal: decPtr("100000.00"),
		},
		{
			Code:         3,
			Description:  "Produto 3",
			Rate:         decimal.RequireFromString("0.018200000"),
			MinTerm:      49,
			MaxTerm:      intPtr(96),
			MinPrincipal: decimal.RequireFromString("100000.01"),
			MaxPrincipal: decPtr("1000000.00"),
		},
		{
			Code:         4,
			Description:  "Produto 4",
			Rate:         decimal.RequireFromString("0.015100000"),
			MinTerm:      96,
			MaxTerm:      nil,
			MinPrincipal: decimal.RequireFromString("1000000.01"),
			MaxPrincipal: nil,
		},
	}
}
