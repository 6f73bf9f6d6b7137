package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"recebiveis/internal/filter"
)

// FilterRequest is the wire shape of the shell's filter surface, shared by
// the HTTP API and the CLI --filters flag. Absent members mean "all".
type FilterRequest struct {
	Year        []int    `json:"year"`
	Month       []int    `json:"month"`
	Entity      []string `json:"entity"`
	Salesperson []string `json:"salesperson"`
	Category    []string `json:"category"`
	Article     []string `json:"article"`

	DaysToDueRange *[2]int    `json:"days_to_due_range"`
	DateRange      *[2]string `json:"date_range"`
	DateField      string     `json:"date_field"`

	Today                   string `json:"today"`
	BucketSet               string `json:"bucket_set"`
	InactivityThresholdDays int    `json:"inactivity_threshold_days"`
	MinimumLifetimeValue    string `json:"minimum_lifetime_value"`
	TopN                    int    `json:"top_n"`
}

func ParseFilterJSON(raw []byte) (filter.Filters, ReportOptions, error) {
	var req FilterRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, ReportOptions{}, fmt.Errorf("invalid filter body: %w", err)
		}
	}
	return req.Resolve()
}

func (req FilterRequest) Resolve() (filter.Filters, ReportOptions, error) {
	filters := filter.Filters{}

	addValues := func(dim string, values []string) {
		if len(values) > 0 {
			filters[dim] = filter.SelectValues(values...)
		}
	}
	addValues(filter.DimEntity, req.Entity)
	addValues(filter.DimSalesperson, req.Salesperson)
	addValues(filter.DimCategory, req.Category)
	addValues(filter.DimArticle, req.Article)
	addValues(filter.DimYear, intsToStrings(req.Year))
	addValues(filter.DimMonth, intsToStrings(req.Month))

	if req.DaysToDueRange != nil {
		filters[filter.DimDaysToDue] = filter.SelectIntRange(req.DaysToDueRange[0], req.DaysToDueRange[1])
	}
	if req.DateRange != nil {
		from, err := time.Parse("2006-01-02", req.DateRange[0])
		if err != nil {
			return nil, ReportOptions{}, fmt.Errorf("invalid date_range start: %s", req.DateRange[0])
		}
		to, err := time.Parse("2006-01-02", req.DateRange[1])
		if err != nil {
			return nil, ReportOptions{}, fmt.Errorf("invalid date_range end: %s", req.DateRange[1])
		}
		dim := req.DateField
		if dim == "" {
			dim = filter.DimIssueDate
		}
		filters[dim] = filter.SelectDateRange(from, to)
	}

	opts := ReportOptions{
		BucketSet:           req.BucketSet,
		InactivityThreshold: req.InactivityThresholdDays,
		TopN:                req.TopN,
	}
	if req.Today != "" {
		today, err := time.Parse("2006-01-02", req.Today)
		if err != nil {
			return nil, ReportOptions{}, fmt.Errorf("invalid today: %s", req.Today)
		}
		opts.Today = today
	}
	if req.MinimumLifetimeValue != "" {
		floor, err := decimal.NewFromString(req.MinimumLifetimeValue)
		if err != nil || floor.IsNegative() {
			return nil, ReportOptions{}, fmt.Errorf("invalid minimum_lifetime_value: %s", req.MinimumLifetimeValue)
		}
		opts.MinimumLifetimeValue = floor
	}

	return filters, opts, nil
}

func intsToStrings(values []int) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strconv.Itoa(v))
	}
	return out
}
