package insights

import (
	"runtime"
	"time"
)

// Column names the rules read from the fetched tables
const (
	ColSaleID       = "sale_id"
	ColClinicTK     = "clinic_tk"
	ColCustomerTK   = "customer_tk"
	ColProductName  = "product_name"
	ColInvoiceDate  = "invoice_date"
	ColActivityDate = "date_field"
	ColPeriodLabel  = "l_period"
)

// Default rule parameters
const (
	DefaultDaysThreshold   = 14
	DefaultStartYear       = 2018
	DefaultMonthsThreshold = 18
)

// Options parameterises the rules for one run
type Options struct {
	// DaysThreshold bounds follow-up gaps and the consult to dental window
	DaysThreshold int
	// StartYear is the first year scanned for lapsed clients
	StartYear int
	// ActiveStartYear is the first year scanned for active customers;
	// zero means StartYear
	ActiveStartYear int
	// MonthsThreshold is the active-customer lookback in months
	MonthsThreshold int
	// Parallelism caps concurrent period evaluations; zero means GOMAXPROCS
	Parallelism int
}

// DefaultOptions returns the unified defaults
func DefaultOptions() Options {
	return Options{
		DaysThreshold:   DefaultDaysThreshold,
		StartYear:       DefaultStartYear,
		MonthsThreshold: DefaultMonthsThreshold,
	}
}

// normalized fills unset fields with defaults. The zero Options value means
// DefaultOptions; otherwise a zero DaysThreshold is kept and only a negative
// one is replaced.
func (o Options) normalized() Options {
	if o == (Options{}) {
		o = DefaultOptions()
	}
	if o.DaysThreshold < 0 {
		o.DaysThreshold = DefaultDaysThreshold
	}
	if o.StartYear == 0 {
		o.StartYear = DefaultStartYear
	}
	if o.ActiveStartYear == 0 {
		o.ActiveStartYear = o.StartYear
	}
	if o.MonthsThreshold <= 0 {
		o.MonthsThreshold = DefaultMonthsThreshold
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	return o
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
