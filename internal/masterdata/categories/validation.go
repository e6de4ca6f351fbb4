package categories

import (
	"strings"

	"github.com/shopspring/decimal"

	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/shared"
)

var hundred = decimal.NewFromInt(100)

func normalize(req Request) (Category, error) {
	verr := &shared.ValidationError{Fields: map[string]string{}}
	c := Category{
		Name:           mdshared.TitleName(req.Name),
		Kind:           Kind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		CommissionRate: req.CommissionRate.Round(4),
		SalonOwnerRate: req.SalonOwnerRate.Round(4),
		TracksStock:    req.TracksStock,
	}
	if c.Name == "" {
		verr.Fields["name"] = "is required"
	}
	if c.Kind != KindItem && c.Kind != KindExpense {
		verr.Fields["kind"] = "must be one of ITEM, EXPENSE"
	}
	checkRate(verr, "commission_rate", c.CommissionRate)
	checkRate(verr, "salon_owner_rate", c.SalonOwnerRate)
	if _, bad := verr.Fields["commission_rate"]; !bad && c.CommissionRate.Add(c.SalonOwnerRate).GreaterThan(hundred) {
		verr.Fields["commission_rate"] = "commission and salon owner rates must not exceed 100 together"
	}
	if c.Kind == KindExpense {
		if !c.CommissionRate.IsZero() || !c.SalonOwnerRate.IsZero() || c.TracksStock {
			verr.Fields["kind"] = "expense categories carry no rates and track no stock"
		}
	}
	if len(verr.Fields) > 0 {
		return Category{}, verr
	}
	return c, nil
}

func checkRate(verr *shared.ValidationError, field string, rate decimal.Decimal) {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		verr.Fields[field] = "must be between 0 and 100"
	}
}
