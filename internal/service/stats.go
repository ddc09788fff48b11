package service

import (
	"math"

	"github.com/shopspring/decimal"
)

// Growth compares the current month with the previous one
type Growth struct {
	CurrentCount  int64   `json:"current_count"`
	PreviousCount int64   `json:"previous_count"`
	GrowthRate    float64 `json:"growth_rate"` // Percent
}

// growthRate is the percent change from previous to current.
// Growth from zero is reported as 100% when anything happened, 0% otherwise.
func growthRate(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	rate, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}
	return rate
}
