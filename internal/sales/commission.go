package sales

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineSplit is how a line total is shared between the employee and the salon owner.
type LineSplit struct {
	Commission decimal.Decimal
	SalonOwner decimal.Decimal
}

// CalculateLine splits total by the given percentage rates, rounded to cents.
func CalculateLine(total, commissionRate, ownerRate decimal.Decimal) LineSplit {
	return LineSplit{
		Commission: percentOf(total, commissionRate),
		SalonOwner: percentOf(total, ownerRate),
	}
}

func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(2)
}
