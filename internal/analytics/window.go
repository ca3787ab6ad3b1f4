package analytics

import (
	"sort"
	"time"
)

// Trailing window sizes are row counts within the partition, not
// calendar days.
const (
	movingWindowShort = 7
	movingWindowLong  = 30
)

// WindowRow is one row of the sales window-analytics mart: the sale
// itself plus the catalog's independent per-row window computations.
type WindowRow struct {
	SaleID    string
	UserID    string
	ProductID string
	Category  string
	Region    string
	Date      time.Time
	NetAmount float64

	RunningUserRevenue        float64
	PurchaseSequence          int
	MovingAvg7                float64
	MovingAvg30               float64
	PrevPurchaseDate          *time.Time
	NextPurchaseDate          *time.Time
	FirstPurchaseAmount       float64
	LastPurchaseAmount        float64
	CategoryCumulativeRevenue float64
	CategoryRevenueDenseRank  int
	RegionPercentileRank      float64
	RegionQuartile            int
}

// WindowAnalytics computes the per-row window columns over the staged
// sales stream. Each column is independent; partitions share only
// their sort keys. User partitions are ordered by timestamp (stable
// for ties), category and region partitions likewise.
func WindowAnalytics(users []User, products []Product, sales []Sale) []WindowRow {
	regions := make(map[string]string, len(users))
	for _, u := range users {
		regions[u.ID] = u.Region
	}
	categories := make(map[string]string, len(products))
	for _, p := range products {
		categories[p.ID] = p.Category
	}

	staged := sortSalesByUserTime(StageSales(sales))
	rows := make([]WindowRow, len(staged))
	for i, s := range staged {
		rows[i] = WindowRow{
			SaleID:    s.ID,
			UserID:    s.UserID,
			ProductID: s.ProductID,
			Category:  categories[s.ProductID],
			Region:    regions[s.UserID],
			Date:      s.Timestamp,
			NetAmount: s.NetAmount,
		}
	}

	fillUserColumns(rows)
	fillCategoryColumns(rows)
	fillRegionColumns(rows)

	return rows
}

// fillUserColumns walks each user partition once, in order, carrying
// running accumulators. rows are already sorted by (user, timestamp).
func fillUserColumns(rows []WindowRow) {
	start := 0
	for start < len(rows) {
		end := start
		for end < len(rows) && rows[end].UserID == rows[start].UserID {
			end++
		}
		part := rows[start:end]

		running := 0.0
		for i := range part {
			running += part[i].NetAmount
			part[i].RunningUserRevenue = running
			part[i].PurchaseSequence = i + 1
			part[i].MovingAvg7 = trailingAvg(part, i, movingWindowShort)
			part[i].MovingAvg30 = trailingAvg(part, i, movingWindowLong)
			if i > 0 {
				d := part[i-1].Date
				part[i].PrevPurchaseDate = &d
			}
			if i < len(part)-1 {
				d := part[i+1].Date
				part[i].NextPurchaseDate = &d
			}
			part[i].FirstPurchaseAmount = part[0].NetAmount
			part[i].LastPurchaseAmount = part[len(part)-1].NetAmount
		}

		start = end
	}
}

// trailingAvg averages the window of the size most recent rows ending
// at position i, shrinking at the start of the partition.
func trailingAvg(part []WindowRow, i, size int) float64 {
	lo := i - size + 1
	if lo < 0 {
		lo = 0
	}
	sum := 0.0
	for j := lo; j <= i; j++ {
		sum += part[j].NetAmount
	}
	return sum / float64(i-lo+1)
}

func fillCategoryColumns(rows []WindowRow) {
	byCategory := make(map[string][]int)
	for i := range rows {
		byCategory[rows[i].Category] = append(byCategory[rows[i].Category], i)
	}

	for _, members := range byCategory {
		// Cumulative revenue ordered by date
		ordered := make([]int, len(members))
		copy(ordered, members)
		sort.SliceStable(ordered, func(a, b int) bool {
			return rows[ordered[a]].Date.Before(rows[ordered[b]].Date)
		})
		cum := 0.0
		for _, i := range ordered {
			cum += rows[i].NetAmount
			rows[i].CategoryCumulativeRevenue = cum
		}

		// Dense rank over distinct amounts, descending
		amounts := make([]float64, 0, len(members))
		seen := make(map[float64]struct{})
		for _, i := range members {
			if _, ok := seen[rows[i].NetAmount]; !ok {
				seen[rows[i].NetAmount] = struct{}{}
				amounts = append(amounts, rows[i].NetAmount)
			}
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(amounts)))
		rank := make(map[float64]int, len(amounts))
		for r, v := range amounts {
			rank[v] = r + 1
		}
		for _, i := range members {
			rows[i].CategoryRevenueDenseRank = rank[rows[i].NetAmount]
		}
	}
}

func fillRegionColumns(rows []WindowRow) {
	byRegion := make(map[string][]int)
	for i := range rows {
		byRegion[rows[i].Region] = append(byRegion[rows[i].Region], i)
	}

	for _, members := range byRegion {
		ordered := make([]int, len(members))
		copy(ordered, members)
		sort.SliceStable(ordered, func(a, b int) bool {
			return rows[ordered[a]].NetAmount < rows[ordered[b]].NetAmount
		})

		n := len(ordered)

		// percent_rank: (rank-1)/(n-1) with ties sharing the rank of
		// their first peer; a single-row partition ranks 0.
		for pos := 0; pos < n; pos++ {
			first := pos
			for first > 0 && rows[ordered[first-1]].NetAmount == rows[ordered[pos]].NetAmount {
				first--
			}
			if n > 1 {
				rows[ordered[pos]].RegionPercentileRank = float64(first) / float64(n-1)
			}
		}

		// ntile(4) over amount descending: quartile 1 holds the
		// largest amounts, earlier buckets absorb the remainder.
		desc := make([]int, n)
		for i := 0; i < n; i++ {
			desc[i] = ordered[n-1-i]
		}
		base := n / 4
		extra := n % 4
		pos := 0
		for bucket := 1; bucket <= 4 && pos < n; bucket++ {
			size := base
			if bucket <= extra {
				size++
			}
			for k := 0; k < size && pos < n; k++ {
				rows[desc[pos]].RegionQuartile = bucket
				pos++
			}
		}
	}
}
