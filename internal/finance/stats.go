package finance

import (
	"time"

	"gymdesk/internal/store"
)

// MonthBucket is one month of revenue, reported in thousands.
type MonthBucket struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// Stats are the aggregates the finance views render. Everything here is
// computed from the raw payment rows; the store does no pre-aggregation.
type Stats struct {
	Revenue       int64         `json:"revenue"`
	Transactions  int           `json:"transactions"`
	MonthlyData   []MonthBucket `json:"monthly_data"`
	MobileRevenue int64         `json:"mobile_revenue"`
	CashRevenue   int64         `json:"cash_revenue"`
}

// monthLabels are single-letter abbreviations indexed by time.Month - 1.
var monthLabels = [12]string{"J", "F", "M", "A", "M", "J", "J", "A", "S", "O", "N", "D"}

// monthBuckets is the size of the trailing revenue series: the current
// month plus the nine before it.
const monthBuckets = 10

// ComputeStats folds the payment rows into Stats as of now. It is a pure
// function of its inputs and insensitive to payment ordering.
//
// Payments without a transaction date count toward the grand totals but
// fall outside every month bucket. The method breakdown partitions rows
// into exactly Cash and Mobile Money; any other method is dropped from the
// breakdown while still counting in the totals.
func ComputeStats(payments []store.Payment, now time.Time) Stats {
	stats := Stats{
		MonthlyData: make([]MonthBucket, monthBuckets),
	}

	for _, p := range payments {
		stats.Revenue += p.Amount
		stats.Transactions++
		switch p.PaymentMethod {
		case store.MethodMobile:
			stats.MobileRevenue += p.Amount
		case store.MethodCash:
			stats.CashRevenue += p.Amount
		}
	}

	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < monthBuckets; i++ {
		anchor := firstOfMonth.AddDate(0, -(monthBuckets - 1 - i), 0)

		var sum int64
		for _, p := range payments {
			if p.TransactionDate == nil {
				continue
			}
			paid := p.TransactionDate.UTC()
			if paid.Month() == anchor.Month() && paid.Year() == anchor.Year() {
				sum += p.Amount
			}
		}
		stats.MonthlyData[i] = MonthBucket{
			Month:   monthLabels[anchor.Month()-1],
			Revenue: float64(sum) / 1000,
		}
	}

	return stats
}
