package analytics

import (
	"time"
)

// DefaultSessionTimeout is the inter-event gap that closes a session
const DefaultSessionTimeout = 30 * time.Minute

// Session quality labels, derived from event-type counts
const (
	QualityHighIntent    = "High Intent"
	QualityMediumIntent  = "Medium Intent"
	QualityBrowsing      = "Browsing"
	QualityLowEngagement = "Low Engagement"
)

// Engagement score weights per event type
const (
	weightPageView       = 1
	weightProductView    = 2
	weightAddToCart      = 5
	weightRemoveFromCart = -3
)

// Session is one row of the user-sessions mart: a maximal run of a
// user's events with no inter-event gap exceeding the timeout.
type Session struct {
	UserID          string
	Sequence        int // 1-based session number per user
	Start           time.Time
	End             time.Time
	Duration        time.Duration
	Events          int
	PageViews       int
	ProductViews    int
	AddToCarts      int
	RemoveFromCarts int
	EngagementScore int
	Quality         string
}

// Sessionize groups each user's events into sessions using gap-based
// boundaries: a user's first event always opens a session, and any gap
// over the timeout opens the next one. Events are ordered by timestamp
// within the user; duplicate timestamps keep their input order.
func Sessionize(events []Event, timeout time.Duration) []Session {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}

	ordered := sortEventsByUserTime(StageEvents(events))

	var sessions []Session
	var current *Session

	flush := func() {
		if current != nil {
			current.Duration = current.End.Sub(current.Start)
			current.Quality = qualityLabel(*current)
			sessions = append(sessions, *current)
			current = nil
		}
	}

	for _, e := range ordered {
		newUser := current == nil || current.UserID != e.UserID
		newSession := newUser || e.Timestamp.Sub(current.End) > timeout

		if newSession {
			seq := 1
			if !newUser {
				seq = current.Sequence + 1
			}
			flush()
			current = &Session{
				UserID:   e.UserID,
				Sequence: seq,
				Start:    e.Timestamp,
				End:      e.Timestamp,
			}
		}

		current.End = e.Timestamp
		current.Events++
		switch e.Type {
		case EventPageView:
			current.PageViews++
			current.EngagementScore += weightPageView
		case EventProductView:
			current.ProductViews++
			current.EngagementScore += weightProductView
		case EventAddToCart:
			current.AddToCarts++
			current.EngagementScore += weightAddToCart
		case EventRemoveFromCart:
			current.RemoveFromCarts++
			current.EngagementScore += weightRemoveFromCart
		}
	}
	flush()

	return sessions
}

// qualityLabel applies the threshold rules in priority order
func qualityLabel(s Session) string {
	switch {
	case s.AddToCarts > 0 || s.RemoveFromCarts > 0:
		return QualityHighIntent
	case s.ProductViews > 3:
		return QualityMediumIntent
	case s.PageViews > 5:
		return QualityBrowsing
	default:
		return QualityLowEngagement
	}
}
