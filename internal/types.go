package internal

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Receivable is the canonical row produced by the normalizer. Optional
// fields are pointers; a nil pointer means the source had no usable value.
type Receivable struct {
	Entity      string
	Salesperson string
	Category    string
	DocumentID  string
	Article     string

	IssueDate *time.Time
	DueDate   *time.Time
	DaysToDue *int

	PendingAmount *decimal.Decimal
	NetValue      *decimal.Decimal
	Quantity      *decimal.Decimal

	Year    *int
	Month   *int
	ISOWeek *int

	// Extra holds columns the dataset schema does not recognize,
	// preserved verbatim under their trimmed source header.
	Extra map[string]string
}

// Bucket is a half-open interval [Lo, Hi) over days-to-due.
type Bucket struct {
	Order int    `yaml:"order"`
	Lo    int    `yaml:"lo"`
	Hi    int    `yaml:"hi"`
	Label string `yaml:"label"`
}

func (b Bucket) Contains(days int) bool {
	return days >= b.Lo && days < b.Hi
}

type BucketSet struct {
	Name    string   `yaml:"name"`
	Buckets []Bucket `yaml:"buckets"`
}

// Find returns the bucket containing days, or nil when days falls outside
// every bucket of the set.
func (s BucketSet) Find(days int) *Bucket {
	for i := range s.Buckets {
		if s.Buckets[i].Contains(days) {
			return &s.Buckets[i]
		}
	}
	return nil
}

type RiskLevel string

const (
	RiskActive   RiskLevel = "ACTIVE"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskFor maps days since last purchase to a risk level.
func RiskFor(daysSinceLastPurchase int) RiskLevel {
	switch {
	case daysSinceLastPurchase < 30:
		return RiskActive
	case daysSinceLastPurchase < 45:
		return RiskLow
	case daysSinceLastPurchase < 60:
		return RiskMedium
	case daysSinceLastPurchase < 90:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// InactivityRecord is the per-entity purchase recency summary.
type InactivityRecord struct {
	Entity                string          `json:"entity"`
	LastPurchaseDate      time.Time       `json:"lastPurchaseDate"`
	DaysSinceLastPurchase int             `json:"daysSinceLastPurchase"`
	LifetimeValue         decimal.Decimal `json:"lifetimeValue"`
	AverageTicket         decimal.Decimal `json:"averageTicket"`
	PurchaseCount         int             `json:"purchaseCount"`
	PreferredCategory     string          `json:"preferredCategory"`
	Salesperson           string          `json:"salesperson"`
	Risk                  RiskLevel       `json:"risk"`
	Inactive              bool            `json:"inactive"`
}

type VariationAlert string

const (
	AlertNewCustomer   VariationAlert = "NEW_CUSTOMER"
	AlertStoppedBuying VariationAlert = "STOPPED_BUYING"
	AlertStrongRise    VariationAlert = "STRONG_RISE"
	AlertModerateRise  VariationAlert = "MODERATE_RISE"
	AlertLightRise     VariationAlert = "LIGHT_RISE"
	AlertStable        VariationAlert = "STABLE"
	AlertLightDrop     VariationAlert = "LIGHT_DROP"
	AlertModerateDrop  VariationAlert = "MODERATE_DROP"
	AlertStrongDrop    VariationAlert = "STRONG_DROP"
)

// Period is a (year, month) pair.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// VariationRecord describes the quantity change of one (entity, article)
// pair between two consecutive periods. VariationPct is nil when the
// previous quantity is zero (NEW_CUSTOMER or a flat zero series).
type VariationRecord struct {
	Entity       string          `json:"entity"`
	Article      string          `json:"article"`
	PrevPeriod   Period          `json:"prevPeriod"`
	CurrPeriod   Period          `json:"currPeriod"`
	PrevQty      decimal.Decimal `json:"prevQty"`
	CurrQty      decimal.Decimal `json:"currQty"`
	VariationPct *float64        `json:"variationPct"`
	Alert        VariationAlert  `json:"alert"`
	Headline     bool            `json:"headline"`
}

// Failure surface. Source errors are fatal for the current load; schema
// errors are fatal for the affected dataset; row-level coercion failures
// are counted, never raised.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSourceCorrupt     = errors.New("source corrupt")
	ErrSheetMissing      = errors.New("sheet missing")
)

type UnknownDimensionError struct {
	Dimension string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("unknown filter dimension: %s", e.Dimension)
}

type RequiredColumnMissingError struct {
	Dataset string
	Column  string
}

func (e *RequiredColumnMissingError) Error() string {
	return fmt.Sprintf("dataset %s: required column missing: %s", e.Dataset, e.Column)
}

func StringPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

func DecimalPtr(v decimal.Decimal) *decimal.Decimal { return &v }

func TimePtr(v time.Time) *time.Time { return &v }
