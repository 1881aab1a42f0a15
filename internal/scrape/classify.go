package scrape

import "strings"

// ServiceCategory is the scraper service a session belongs to.
type ServiceCategory string

const (
	CategoryHistorical    ServiceCategory = "historical"
	CategoryHistoricalAPI ServiceCategory = "historicalAPI"
	CategoryCurrent       ServiceCategory = "current"
	CategoryCurrentAPI    ServiceCategory = "currentAPI"
	CategoryUnknown       ServiceCategory = "unknown"
)

// Categories lists the known (non-unknown) categories in display order.
var Categories = []ServiceCategory{
	CategoryHistorical,
	CategoryHistoricalAPI,
	CategoryCurrent,
	CategoryCurrentAPI,
}

// Classify maps a session identifier to its service category.
//
// Matching is case-insensitive and ordered: "historical" wins over "current",
// and "api" only selects the API variant of whichever family matched.
func Classify(identifier string) ServiceCategory {
	id := strings.ToLower(identifier)
	switch {
	case strings.Contains(id, "historical"):
		if strings.Contains(id, "api") {
			return CategoryHistoricalAPI
		}
		return CategoryHistorical
	case strings.Contains(id, "current"):
		if strings.Contains(id, "api") {
			return CategoryCurrentAPI
		}
		return CategoryCurrent
	default:
		return CategoryUnknown
	}
}

// Family collapses the static/API split: historical, current or unknown.
func (c ServiceCategory) Family() string {
	switch c {
	case CategoryHistorical, CategoryHistoricalAPI:
		return "historical"
	case CategoryCurrent, CategoryCurrentAPI:
		return "current"
	default:
		return "unknown"
	}
}
