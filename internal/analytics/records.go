// Package analytics reproduces the mart-layer computations as pure
// functions over ordered, typed records. Each function mirrors one of
// the catalog's mart models so results can be verified without a
// warehouse: partitioning is explicit sort-then-group, and running or
// trailing aggregates are a single forward pass per partition.
package analytics

import (
	"sort"
	"time"
)

// EventType enumerates the tracked user actions
type EventType string

const (
	EventPageView       EventType = "page_view"
	EventProductView    EventType = "product_view"
	EventAddToCart      EventType = "add_to_cart"
	EventRemoveFromCart EventType = "remove_from_cart"
)

// OrderCompleted is the only sale status retained downstream
const OrderCompleted = "completed"

// User is a row of the users dimension
type User struct {
	ID         string
	Age        int
	AgeGroup   string
	Region     string
	DeviceType string
	SignupDate time.Time
}

// CohortMonth returns the user's signup month truncated to the first day
func (u User) CohortMonth() time.Time {
	return truncMonth(u.SignupDate)
}

// Product is a row of the products dimension
type Product struct {
	ID           string
	Category     string
	Brand        string
	BasePrice    float64
	CurrentPrice float64
}

// Event is a row of the append-only event fact stream
type Event struct {
	ID            string
	UserID        string
	ProductID     string // empty when the event has no related product
	Type          EventType
	Timestamp     time.Time
	TrafficSource string
}

// Sale is a row of the sales fact stream
type Sale struct {
	ID            string
	UserID        string
	ProductID     string
	Timestamp     time.Time
	Quantity      int
	UnitPrice     float64
	Total         float64
	Discount      float64
	NetAmount     float64
	PaymentMethod string
	Status        string
}

// StageEvents applies the staging filters: non-empty keys and a
// non-null timestamp. Input order is preserved.
func StageEvents(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.ID == "" || e.UserID == "" || e.Timestamp.IsZero() {
			continue
		}
		out = append(out, e)
	}
	return out
}

// StageSales keeps completed sales with non-empty keys. Refunds and
// pending orders are dropped at this boundary.
func StageSales(sales []Sale) []Sale {
	out := make([]Sale, 0, len(sales))
	for _, s := range sales {
		if s.ID == "" || s.UserID == "" || s.ProductID == "" {
			continue
		}
		if s.Status != OrderCompleted {
			continue
		}
		out = append(out, s)
	}
	return out
}

// truncMonth truncates a time to the first day of its month (UTC)
func truncMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthsBetween returns the whole-month difference from a to b
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// sortEventsByUserTime orders events by user, then stably by timestamp.
// Stability preserves input order for duplicate timestamps, matching
// the engine's unspecified tie-break.
func sortEventsByUserTime(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// sortSalesByUserTime orders sales by user, then stably by timestamp
func sortSalesByUserTime(sales []Sale) []Sale {
	out := make([]Sale, len(sales))
	copy(out, sales)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
