package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func eventAt(user string, minutes int, typ EventType) Event {
	return Event{
		ID:        fmt.Sprintf("%s-%d", user, minutes),
		UserID:    user,
		Type:      typ,
		Timestamp: sessionBase.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestSessionize(t *testing.T) {
	t.Run("gap over threshold splits sessions", func(t *testing.T) {
		events := []Event{
			eventAt("u1", 0, EventPageView),
			eventAt("u1", 10, EventPageView),
			eventAt("u1", 20, EventPageView),
			eventAt("u1", 80, EventPageView),
			eventAt("u1", 85, EventPageView),
		}

		sessions := Sessionize(events, 30*time.Minute)

		require.Len(t, sessions, 2)
		assert.Equal(t, 1, sessions[0].Sequence)
		assert.Equal(t, 3, sessions[0].Events)
		assert.Equal(t, 20*time.Minute, sessions[0].Duration)
		assert.Equal(t, 2, sessions[1].Sequence)
		assert.Equal(t, 2, sessions[1].Events)
		assert.Equal(t, 5*time.Minute, sessions[1].Duration)
	})

	t.Run("single event yields one zero-duration session", func(t *testing.T) {
		sessions := Sessionize([]Event{eventAt("u1", 0, EventPageView)}, 30*time.Minute)

		require.Len(t, sessions, 1)
		assert.Equal(t, 1, sessions[0].Sequence)
		assert.Equal(t, time.Duration(0), sessions[0].Duration)
		assert.Equal(t, 1, sessions[0].Events)
	})

	t.Run("gap equal to threshold stays in session", func(t *testing.T) {
		events := []Event{
			eventAt("u1", 0, EventPageView),
			eventAt("u1", 30, EventPageView),
		}

		sessions := Sessionize(events, 30*time.Minute)
		require.Len(t, sessions, 1)
	})

	t.Run("users are sessionized independently", func(t *testing.T) {
		events := []Event{
			eventAt("u2", 5, EventPageView),
			eventAt("u1", 0, EventPageView),
			eventAt("u2", 90, EventPageView),
		}

		sessions := Sessionize(events, 30*time.Minute)

		require.Len(t, sessions, 3)
		assert.Equal(t, "u1", sessions[0].UserID)
		assert.Equal(t, 1, sessions[0].Sequence)
		assert.Equal(t, "u2", sessions[1].UserID)
		assert.Equal(t, 1, sessions[1].Sequence)
		assert.Equal(t, "u2", sessions[2].UserID)
		assert.Equal(t, 2, sessions[2].Sequence)
	})

	t.Run("engagement score weights event types", func(t *testing.T) {
		events := []Event{
			eventAt("u1", 0, EventPageView),
			eventAt("u1", 1, EventProductView),
			eventAt("u1", 2, EventAddToCart),
			eventAt("u1", 3, EventRemoveFromCart),
		}

		sessions := Sessionize(events, 30*time.Minute)

		require.Len(t, sessions, 1)
		// 1 + 2 + 5 - 3
		assert.Equal(t, 5, sessions[0].EngagementScore)
	})

	t.Run("events with zero timestamp are dropped", func(t *testing.T) {
		events := []Event{
			{ID: "x", UserID: "u1", Type: EventPageView},
			eventAt("u1", 0, EventPageView),
		}

		sessions := Sessionize(events, 30*time.Minute)

		require.Len(t, sessions, 1)
		assert.Equal(t, 1, sessions[0].Events)
	})

	t.Run("zero timeout falls back to default", func(t *testing.T) {
		events := []Event{
			eventAt("u1", 0, EventPageView),
			eventAt("u1", 29, EventPageView),
		}

		sessions := Sessionize(events, 0)
		require.Len(t, sessions, 1)
	})
}

func TestQualityLabel(t *testing.T) {
	tests := []struct {
		name     string
		session  Session
		expected string
	}{
		{
			name:     "cart activity wins",
			session:  Session{AddToCarts: 1, ProductViews: 10, PageViews: 10},
			expected: QualityHighIntent,
		},
		{
			name:     "remove from cart is still cart activity",
			session:  Session{RemoveFromCarts: 1},
			expected: QualityHighIntent,
		},
		{
			name:     "many product views",
			session:  Session{ProductViews: 4},
			expected: QualityMediumIntent,
		},
		{
			name:     "exactly three product views is not enough",
			session:  Session{ProductViews: 3, PageViews: 6},
			expected: QualityBrowsing,
		},
		{
			name:     "many page views",
			session:  Session{PageViews: 6},
			expected: QualityBrowsing,
		},
		{
			name:     "default",
			session:  Session{PageViews: 2},
			expected: QualityLowEngagement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, qualityLabel(tt.session))
		})
	}
}
