package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/loansim/money"
	"github.com/rustyeddy/loansim/simulation"
	"github.com/rustyeddy/loansim/telemetry"
)

// Summary is one row of a simulation listing.
type Summary struct {
	ID            string
	Principal     decimal.Decimal
	Term          int
	TotalPayments decimal.Decimal
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID            string      `json:"id"`
		Principal     json.Number `json:"principal"`
		Term          int         `json:"term"`
		TotalPayments json.Number `json:"totalPayments"`
	}{s.ID, money.Cash(s.Principal), s.Term, money.Cash(s.TotalPayments)})
}

// SimulationPage is one page of stored simulations, newest first.
type SimulationPage struct {
	Page       int       `json:"page"`
	TotalCount int       `json:"totalCount"`
	PageSize   int       `json:"pageSize"`
	Items      []Summary `json:"items"`
}

// Page lists stored simulations ordered by id descending. page and pageSize
// below one are treated as one.
func (s *Store) Page(ctx context.Context, page, pageSize int) (SimulationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	out := SimulationPage{Page: page, PageSize: pageSize, Items: []Summary{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM simulations`).Scan(&out.TotalCount); err != nil {
		return SimulationPage{}, fmt.Errorf("count simulations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, principal, term, envelope_json
		FROM simulations
		ORDER BY id DESC
		LIMIT ? OFFSET ?`, pageSize, (page-1)*pageSize)
	if err != nil {
		return SimulationPage{}, fmt.Errorf("list simulations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sum       Summary
			principal string
			body      string
		)
		if err := rows.Scan(&sum.ID, &principal, &sum.Term, &body); err != nil {
			return SimulationPage{}, fmt.Errorf("scan simulation: %w", err)
		}
		if sum.Principal, err = decimal.NewFromString(principal); err != nil {
			return SimulationPage{}, fmt.Errorf("simulation %s principal: %w", sum.ID, err)
		}
		env, err := decodeEnvelope(sum.ID, body)
		if err != nil {
			return SimulationPage{}, err
		}
		sum.TotalPayments = money.Round2(env.TotalPayment())
		out.Items = append(out.Items, sum)
	}
	if err := rows.Err(); err != nil {
		return SimulationPage{}, fmt.Errorf("list simulations: %w", err)
	}
	return out, nil
}

// ProductVolume aggregates one product's simulations for a day.
type ProductVolume struct {
	Code                int
	Description         string
	AverageRate         decimal.Decimal
	AverageTotalPayment decimal.Decimal
	SumOfPrincipals     decimal.Decimal
	SumOfTotalPayments  decimal.Decimal
}

func (v ProductVolume) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code                int         `json:"code"`
		Description         string      `json:"description"`
		AverageRate         json.Number `json:"averageRate"`
		AverageTotalPayment json.Number `json:"averageTotalPayment"`
		SumOfPrincipals     json.Number `json:"sumOfPrincipals"`
		SumOfTotalPayments  json.Number `json:"sumOfTotalPayments"`
	}{
		Code:                v.Code,
		Description:         v.Description,
		AverageRate:         money.Rate(v.AverageRate),
		AverageTotalPayment: money.Cash(v.AverageTotalPayment),
		SumOfPrincipals:     money.Cash(v.SumOfPrincipals),
		SumOfTotalPayments:  money.Cash(v.SumOfTotalPayments),
	})
}

// Volume is the per-product breakdown of one UTC day.
type Volume struct {
	ReferenceDate string          `json:"referenceDate"`
	Products      []ProductVolume `json:"products"`
}

// VolumeByDay aggregates the simulations created on day's UTC calendar date,
// one entry per product ordered by code.
func (s *Store) VolumeByDay(ctx context.Context, day time.Time) (Volume, error) {
	date := day.UTC().Format(telemetry.DateLayout)
	out := Volume{ReferenceDate: date, Products: []ProductVolume{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_code, product_description, rate, principal, envelope_json
		FROM simulations
		WHERE created_day = ?
		ORDER BY product_code, id`, date)
	if err != nil {
		return Volume{}, fmt.Errorf("volume for %s: %w", date, err)
	}
	defer rows.Close()

	type bucket struct {
		vol     ProductVolume
		count   int64
		rateSum decimal.Decimal
	}
	var buckets []*bucket

	for rows.Next() {
		var (
			id, desc, rate, principal, body string
			code                            int
		)
		if err := rows.Scan(&id, &code, &desc, &rate, &principal, &body); err != nil {
			return Volume{}, fmt.Errorf("scan simulation: %w", err)
		}
		r, err := decimal.NewFromString(rate)
		if err != nil {
			return Volume{}, fmt.Errorf("simulation %s rate: %w", id, err)
		}
		p, err := decimal.NewFromString(principal)
		if err != nil {
			return Volume{}, fmt.Errorf("simulation %s principal: %w", id, err)
		}
		env, err := decodeEnvelope(id, body)
		if err != nil {
			return Volume{}, err
		}

		if len(buckets) == 0 || buckets[len(buckets)-1].vol.Code != code {
			buckets = append(buckets, &bucket{vol: ProductVolume{Code: code, Description: desc}})
		}
		b := buckets[len(buckets)-1]
		b.count++
		b.rateSum = b.rateSum.Add(r)
		b.vol.SumOfPrincipals = b.vol.SumOfPrincipals.Add(p)
		b.vol.SumOfTotalPayments = b.vol.SumOfTotalPayments.Add(env.TotalPayment())
	}
	if err := rows.Err(); err != nil {
		return Volume{}, fmt.Errorf("volume for %s: %w", date, err)
	}

	for _, b := range buckets {
		n := decimal.NewFromInt(b.count)
		v := b.vol
		v.AverageRate = money.Round6(b.rateSum.Div(n))
		v.AverageTotalPayment = money.Round2(v.SumOfTotalPayments.Div(n))
		v.SumOfPrincipals = money.Round2(v.SumOfPrincipals)
		v.SumOfTotalPayments = money.Round2(v.SumOfTotalPayments)
		out.Products = append(out.Products, v)
	}
	return out, nil
}

func decodeEnvelope(id, body string) (*simulation.Envelope, error) {
	var env simulation.Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, fmt.Errorf("decode envelope %s: %w", id, err)
	}
	return &env, nil
}
