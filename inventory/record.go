package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	InStock    Status = "in stock"
	LowStock   Status = "low stock"
	OutOfStock Status = "out of stock"
	Deficit    Status = "deficit"
)

// Record is the merged inventory position of a single item.
type Record struct {
	Key            string
	Inflow         decimal.Decimal
	Released       decimal.Decimal
	InflowWeight   decimal.Decimal
	ReleasedWeight decimal.Decimal
	Rows           int
	First          time.Time
	Last           time.Time
	WeightOnly     bool
	Status         Status
	DerivedAt      time.Time
}

// Quantity is the net quantity on hand.
func (r Record) Quantity() decimal.Decimal {
	return r.Inflow.Sub(r.Released)
}

// Weight is the net weight on hand.
func (r Record) Weight() decimal.Decimal {
	return r.InflowWeight.Sub(r.ReleasedWeight)
}

// Merge combines two records for the same key. Every field is combined with a
// commutative, associative operation (exact sums, min/max, logical or) so the
// result does not depend on the order in which rows were read.
func (r Record) Merge(other Record) Record {
	return Record{
		Key:            r.Key,
		Inflow:         r.Inflow.Add(other.Inflow),
		Released:       r.Released.Add(other.Released),
		InflowWeight:   r.InflowWeight.Add(other.InflowWeight),
		ReleasedWeight: r.ReleasedWeight.Add(other.ReleasedWeight),
		Rows:           r.Rows + other.Rows,
		First:          earliest(r.First, other.First),
		Last:           latest(r.Last, other.Last),
		WeightOnly:     r.WeightOnly || other.WeightOnly,
	}
}

func fromMovement(m Movement, weightOnly bool) Record {
	r := Record{
		Key:            m.Key,
		Inflow:         decimal.Zero,
		Released:       decimal.Zero,
		InflowWeight:   decimal.Zero,
		ReleasedWeight: decimal.Zero,
		Rows:           1,
		First:          m.Date,
		Last:           m.Date,
		WeightOnly:     weightOnly,
	}

	switch m.Direction {
	case Release:
		r.Released = m.Quantity
		r.ReleasedWeight = m.Weight
	default:
		r.Inflow = m.Quantity
		r.InflowWeight = m.Weight
	}

	return r
}

// status is a pure function of the merged record and the rules.
func (rules Rules) status(r Record) Status {
	v := r.Quantity()
	if r.WeightOnly {
		v = r.Weight()
	}

	switch {
	case v.IsNegative():
		return Deficit
	case v.IsZero():
		return OutOfStock
	case v.LessThanOrEqual(rules.LowStock):
		return LowStock
	default:
		return InStock
	}
}

func earliest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	default:
		return a
	}
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}

	return a
}
