package analytics

import (
	"sort"
	"time"
)

// FunnelRow is one row of the daily funnel mart: distinct users
// reaching each stage on a given day within a device segment, with
// stage-to-stage conversion percentages. Percentage fields are nil
// when the denominator stage had no users.
type FunnelRow struct {
	Date       time.Time
	DeviceType string

	UsersPageView    int
	UsersProductView int
	UsersAddToCart   int
	UsersPurchase    int

	ProductViewConversionPct *float64
	AddToCartConversionPct   *float64
	PurchaseConversionPct    *float64
	ConversionOverallPct     *float64

	ProductViewDropOffPct *float64
	AddToCartDropOffPct   *float64
	PurchaseDropOffPct    *float64
}

type funnelKey struct {
	date   time.Time
	device string
}

type funnelFlags struct {
	pageView    bool
	productView bool
	addToCart   bool
	purchase    bool
}

// FunnelDaily computes per-day, per-device stage counts over the four
// ordered stages: page view, product view, add-to-cart, purchase.
// Stage flags are independent per (user, day): a purchase without a
// same-day page view still counts at the purchase stage. The stage
// order itself is fixed.
func FunnelDaily(users []User, events []Event, sales []Sale) []FunnelRow {
	devices := make(map[string]string, len(users))
	for _, u := range users {
		devices[u.ID] = u.DeviceType
	}

	type userDay struct {
		user string
		day  time.Time
	}
	flags := make(map[userDay]*funnelFlags)

	get := func(user string, day time.Time) *funnelFlags {
		k := userDay{user: user, day: day}
		f, ok := flags[k]
		if !ok {
			f = &funnelFlags{}
			flags[k] = f
		}
		return f
	}

	for _, e := range StageEvents(events) {
		f := get(e.UserID, dateOf(e.Timestamp))
		switch e.Type {
		case EventPageView:
			f.pageView = true
		case EventProductView:
			f.productView = true
		case EventAddToCart:
			f.addToCart = true
		}
	}
	for _, s := range StageSales(sales) {
		get(s.UserID, dateOf(s.Timestamp)).purchase = true
	}

	counts := make(map[funnelKey]*FunnelRow)
	for k, f := range flags {
		key := funnelKey{date: k.day, device: devices[k.user]}
		row, ok := counts[key]
		if !ok {
			row = &FunnelRow{Date: key.date, DeviceType: key.device}
			counts[key] = row
		}
		if f.pageView {
			row.UsersPageView++
		}
		if f.productView {
			row.UsersProductView++
		}
		if f.addToCart {
			row.UsersAddToCart++
		}
		if f.purchase {
			row.UsersPurchase++
		}
	}

	rows := make([]FunnelRow, 0, len(counts))
	for _, row := range counts {
		row.ProductViewConversionPct = ratioPct(row.UsersProductView, row.UsersPageView)
		row.AddToCartConversionPct = ratioPct(row.UsersAddToCart, row.UsersProductView)
		row.PurchaseConversionPct = ratioPct(row.UsersPurchase, row.UsersAddToCart)
		row.ConversionOverallPct = ratioPct(row.UsersPurchase, row.UsersPageView)

		row.ProductViewDropOffPct = complementPct(row.ProductViewConversionPct)
		row.AddToCartDropOffPct = complementPct(row.AddToCartConversionPct)
		row.PurchaseDropOffPct = complementPct(row.PurchaseConversionPct)

		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].DeviceType < rows[j].DeviceType
	})

	return rows
}

// ratioPct returns num/den*100, or nil when the denominator is zero
func ratioPct(num, den int) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) / float64(den) * 100
	return &v
}

// complementPct returns 100-pct, propagating nil
func complementPct(pct *float64) *float64 {
	if pct == nil {
		return nil
	}
	v := 100 - *pct
	return &v
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
