package analytics

import (
	"sort"
	"time"
)

// CohortRow is one row of the cohort-analysis mart: one
// (segment, cohort age) bucket with retention and cumulative value.
type CohortRow struct {
	CohortMonth time.Time
	Region      string
	DeviceType  string
	AgeGroup    string

	CohortAge  int // whole months since the cohort month
	CohortSize int // distinct users assigned to the segment at signup

	ActiveUsers  int
	Revenue      float64
	Transactions int

	RetentionRatePct      float64
	CumulativeRevenue     float64
	CumulativeActiveUsers int
	LifetimeValueToDate   float64
}

type cohortSegment struct {
	month      time.Time
	region     string
	deviceType string
	ageGroup   string
}

type cohortBucket struct {
	users        map[string]struct{}
	revenue      float64
	transactions int
}

// CohortAnalysis buckets each user's completed purchases by cohort age
// (months since the signup month) within the user's signup segment.
// Purchases before the signup month are excluded. Rows are ordered by
// segment then age so cumulative columns are a forward running sum.
func CohortAnalysis(users []User, sales []Sale) []CohortRow {
	byUser := make(map[string]User, len(users))
	sizes := make(map[cohortSegment]int)
	for _, u := range users {
		if u.ID == "" {
			continue
		}
		byUser[u.ID] = u
		sizes[segmentOf(u)]++
	}

	buckets := make(map[cohortSegment]map[int]*cohortBucket)
	for _, s := range StageSales(sales) {
		u, ok := byUser[s.UserID]
		if !ok {
			continue
		}
		age := monthsBetween(u.CohortMonth(), truncMonth(s.Timestamp))
		if age < 0 {
			// Purchases before the signup month are undefined
			continue
		}

		seg := segmentOf(u)
		ages, ok := buckets[seg]
		if !ok {
			ages = make(map[int]*cohortBucket)
			buckets[seg] = ages
		}
		b, ok := ages[age]
		if !ok {
			b = &cohortBucket{users: make(map[string]struct{})}
			ages[age] = b
		}
		b.users[s.UserID] = struct{}{}
		b.revenue += s.NetAmount
		b.transactions++
	}

	segments := make([]cohortSegment, 0, len(buckets))
	for seg := range buckets {
		segments = append(segments, seg)
	}
	sort.Slice(segments, func(i, j int) bool { return lessSegment(segments[i], segments[j]) })

	var rows []CohortRow
	for _, seg := range segments {
		ages := make([]int, 0, len(buckets[seg]))
		for age := range buckets[seg] {
			ages = append(ages, age)
		}
		sort.Ints(ages)

		size := sizes[seg]
		cumRevenue := 0.0
		cumActive := 0
		for _, age := range ages {
			b := buckets[seg][age]
			cumRevenue += b.revenue
			cumActive += len(b.users)

			row := CohortRow{
				CohortMonth:           seg.month,
				Region:                seg.region,
				DeviceType:            seg.deviceType,
				AgeGroup:              seg.ageGroup,
				CohortAge:             age,
				CohortSize:            size,
				ActiveUsers:           len(b.users),
				Revenue:               b.revenue,
				Transactions:          b.transactions,
				CumulativeRevenue:     cumRevenue,
				CumulativeActiveUsers: cumActive,
			}
			// Guard empty cohorts: a zero denominator yields zero
			// rather than a division fault.
			if size > 0 {
				row.RetentionRatePct = float64(len(b.users)) / float64(size) * 100
				row.LifetimeValueToDate = cumRevenue / float64(size)
			}
			rows = append(rows, row)
		}
	}

	return rows
}

func segmentOf(u User) cohortSegment {
	return cohortSegment{
		month:      u.CohortMonth(),
		region:     u.Region,
		deviceType: u.DeviceType,
		ageGroup:   u.AgeGroup,
	}
}

func lessSegment(a, b cohortSegment) bool {
	if !a.month.Equal(b.month) {
		return a.month.Before(b.month)
	}
	if a.region != b.region {
		return a.region < b.region
	}
	if a.deviceType != b.deviceType {
		return a.deviceType < b.deviceType
	}
	return a.ageGroup < b.ageGroup
}
