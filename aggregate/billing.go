package aggregate

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/catalog"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

// MixedCurrency marks a total summed over rows in more than one currency.
const MixedCurrency = "MIXED"

type billingKey struct {
	provider inventory.Provider
	service  string
	currency string
}

// groupBilling folds rows sharing provider, service and currency into one row. Costs add
// up null-safely: unknown plus unknown stays unknown, unknown plus a number is the number.
func groupBilling(rows []inventory.Row) []inventory.Row {
	index := map[billingKey]int{}
	grouped := make([]inventory.BillingRow, 0, len(rows))
	for _, r := range rows {
		b, ok := r.(inventory.BillingRow)
		if !ok {
			continue
		}
		k := billingKey{b.Provider, b.Service, b.Currency}
		i, seen := index[k]
		if !seen {
			index[k] = len(grouped)
			grouped = append(grouped, b)
			continue
		}
		grouped[i].Cost = addNull(grouped[i].Cost, b.Cost)
	}
	return lo.Map(grouped, func(b inventory.BillingRow, _ int) inventory.Row { return b })
}

func addNull(a, b decimal.NullDecimal) decimal.NullDecimal {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	}
	return decimal.NewNullDecimal(a.Decimal.Add(b.Decimal))
}

// billingTotals sums every known cost and rounds half away from zero to cents. The total
// is zero, not null, when nothing decoded.
func billingTotals(rows []inventory.Row) *inventory.Totals {
	total := decimal.Zero
	currencies := []string{}
	for _, r := range rows {
		b, ok := r.(inventory.BillingRow)
		if !ok {
			continue
		}
		currencies = append(currencies, b.Currency)
		if b.Cost.Valid {
			total = total.Add(b.Cost.Decimal)
		}
	}
	total = total.Round(2)

	currency := catalog.DefaultCurrency
	switch uniq := lo.Uniq(currencies); len(uniq) {
	case 0:
	case 1:
		currency = uniq[0]
	default:
		currency = MixedCurrency
	}
	return &inventory.Totals{TotalCost: &total, Currency: currency}
}
