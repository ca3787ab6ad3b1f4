// Package seed generates the synthetic raw dataset and loads it into a
// warehouse target. Generation is fully deterministic for a given
// random seed so repeated loads produce identical tables.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"martforge/internal/analytics"
	"martforge/pkg/models"
)

// anchor is the fixed end of the synthetic timeline; signups spread
// over the year before it, activity over the following months.
var anchor = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

var (
	regions        = []string{"NA", "EU", "APAC", "LATAM"}
	deviceTypes    = []string{"desktop", "mobile", "tablet"}
	trafficSources = []string{"organic", "paid_search", "social", "email", "direct"}
	categories     = []string{"electronics", "books", "clothing", "home", "sports"}
	brands         = []string{"acme", "globex", "initech", "umbrella", "soylent"}
	paymentMethods = []string{"card", "paypal", "bank_transfer", "gift_card"}
	// Browsing progresses through funnel stages: product views follow
	// page views, cart activity follows product views. The per-stage
	// slices weight what a bundle may emit next.
	browseAfterPage = []analytics.EventType{
		analytics.EventPageView,
		analytics.EventPageView,
		analytics.EventProductView,
	}
	browseAfterProduct = []analytics.EventType{
		analytics.EventPageView,
		analytics.EventProductView,
		analytics.EventProductView,
		analytics.EventAddToCart,
	}
	browseAfterCart = []analytics.EventType{
		analytics.EventPageView,
		analytics.EventProductView,
		analytics.EventAddToCart,
		analytics.EventRemoveFromCart,
	}
	orderStatuses = []string{
		analytics.OrderCompleted,
		analytics.OrderCompleted,
		analytics.OrderCompleted,
		analytics.OrderCompleted,
		analytics.OrderCompleted,
		analytics.OrderCompleted,
		analytics.OrderCompleted,
		analytics.OrderCompleted,
		"refunded",
		"cancelled",
	}
)

// Dataset is the generated raw input for the four source tables.
type Dataset struct {
	Users    []analytics.User
	Products []analytics.Product
	Events   []analytics.Event
	Sales    []analytics.Sale
}

// Generate builds a dataset from the seed configuration.
func Generate(cfg models.Seed) *Dataset {
	rng := rand.New(rand.NewSource(cfg.RandomSeed))

	ds := &Dataset{
		Users:    make([]analytics.User, cfg.Users),
		Products: make([]analytics.Product, cfg.Products),
		Events:   make([]analytics.Event, cfg.Events),
		Sales:    make([]analytics.Sale, cfg.Sales),
	}

	for i := range ds.Users {
		age := 18 + rng.Intn(52)
		ds.Users[i] = analytics.User{
			ID:         newID(rng),
			Age:        age,
			AgeGroup:   ageGroup(age),
			Region:     pick(rng, regions),
			DeviceType: pick(rng, deviceTypes),
			SignupDate: anchor.AddDate(0, 0, -rng.Intn(365)),
		}
	}

	for i := range ds.Products {
		base := 5 + rng.Float64()*495
		current := base * (0.8 + rng.Float64()*0.4)
		ds.Products[i] = analytics.Product{
			ID:           newID(rng),
			Category:     pick(rng, categories),
			Brand:        pick(rng, brands),
			BasePrice:    round2(base),
			CurrentPrice: round2(current),
		}
	}

	// Events come in browsing bundles: one user, one calendar day,
	// opening with a page view and deepening stage by stage. A day
	// with product views or cart activity therefore always records a
	// page view too.
	for i := 0; i < len(ds.Events); {
		u := ds.Users[rng.Intn(len(ds.Users))]
		start := activityTime(rng, u.SignupDate)
		source := pick(rng, trafficSources)
		size := 1 + rng.Intn(6)

		ts := start
		stage := 0
		for j := 0; j < size && i < len(ds.Events); j++ {
			typ := analytics.EventPageView
			if j > 0 {
				typ = nextBrowseEvent(rng, stage)
			}
			switch typ {
			case analytics.EventProductView:
				if stage < 1 {
					stage = 1
				}
			case analytics.EventAddToCart:
				stage = 2
			}

			e := analytics.Event{
				ID:            newID(rng),
				UserID:        u.ID,
				Type:          typ,
				Timestamp:     ts,
				TrafficSource: source,
			}
			if typ != analytics.EventPageView {
				e.ProductID = ds.Products[rng.Intn(len(ds.Products))].ID
			}
			ds.Events[i] = e
			i++

			// Keep the bundle on its day; a step past midnight
			// repeats the current timestamp instead.
			next := ts.Add(time.Duration(1+rng.Intn(10)) * time.Minute)
			if sameDay(next, start) {
				ts = next
			}
		}
	}

	for i := range ds.Sales {
		u := ds.Users[rng.Intn(len(ds.Users))]
		p := ds.Products[rng.Intn(len(ds.Products))]
		qty := 1 + rng.Intn(5)
		total := p.CurrentPrice * float64(qty)
		discount := total * rng.Float64() * 0.2
		ds.Sales[i] = analytics.Sale{
			ID:            newID(rng),
			UserID:        u.ID,
			ProductID:     p.ID,
			Timestamp:     activityTime(rng, u.SignupDate),
			Quantity:      qty,
			UnitPrice:     p.CurrentPrice,
			Total:         round2(total),
			Discount:      round2(discount),
			NetAmount:     round2(total - discount),
			PaymentMethod: pick(rng, paymentMethods),
			Status:        pick(rng, orderStatuses),
		}
	}

	return ds
}

// newID derives a UUID from the seeded stream so identical seeds yield
// identical identifiers.
func newID(rng *rand.Rand) string {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		// The rand.Rand reader never fails; fall back to a counterless
		// hex form just in case.
		return fmt.Sprintf("%016x", rng.Int63())
	}
	return id.String()
}

// nextBrowseEvent draws the next event of a bundle given how deep the
// bundle has gone: 0 pages only, 1 product views seen, 2 cart touched.
func nextBrowseEvent(rng *rand.Rand, stage int) analytics.EventType {
	switch stage {
	case 0:
		return browseAfterPage[rng.Intn(len(browseAfterPage))]
	case 1:
		return browseAfterProduct[rng.Intn(len(browseAfterProduct))]
	default:
		return browseAfterCart[rng.Intn(len(browseAfterCart))]
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// activityTime places an event between the user's signup and the
// anchor plus a three-month tail.
func activityTime(rng *rand.Rand, signup time.Time) time.Time {
	horizon := anchor.AddDate(0, 3, 0)
	window := int(horizon.Sub(signup) / time.Minute)
	if window <= 0 {
		return signup
	}
	return signup.Add(time.Duration(rng.Intn(window)) * time.Minute)
}

func ageGroup(age int) string {
	switch {
	case age < 25:
		return "18-24"
	case age < 35:
		return "25-34"
	case age < 45:
		return "35-44"
	case age < 55:
		return "45-54"
	default:
		return "55+"
	}
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
