// Package analytics derives the chart-ready dashboard views from the fact
// table and the device records.
//
// The package is organized into focused modules:
//   - analytics.go: domains, selections and shared result types
//   - site_chart.go: the month × site pivot (the read-out line chart)
//   - metrics.go: the os and browser count charts (the clickable bar charts)
//
// Every builder is a pure function of its inputs; calling one twice with the
// same inputs yields identical output.
package analytics

import (
	"sort"

	"trafficlens/internal/facts"
	"trafficlens/internal/records"
	"trafficlens/internal/selection"
)

// MetricCountResult represents a generic key-count pair for query results
type MetricCountResult struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Domains holds the fixed value domain of every facet.
type Domains struct {
	Sites    *selection.Domain
	OSTypes  *selection.Domain
	Browsers *selection.Domain
}

// ComputeDomains derives the facet domains from unfiltered data: every
// site observed in the fact table, and every os type and browser type whose
// device count exceeds threshold. All three are sorted ascending.
func ComputeDomains(t *facts.Table, devices []records.Device, threshold int64) Domains {
	osCounts := make(map[string]int64)
	browserCounts := make(map[string]int64)
	for _, d := range devices {
		if d.OSType != "" {
			osCounts[d.OSType]++
		}
		if d.BrowserType != "" {
			browserCounts[d.BrowserType]++
		}
	}

	return Domains{
		Sites:    selection.NewDomain(selection.Sites, t.Sites()),
		OSTypes:  selection.NewDomain(selection.OSTypes, aboveThreshold(osCounts, threshold)),
		Browsers: selection.NewDomain(selection.Browsers, aboveThreshold(browserCounts, threshold)),
	}
}

// For returns the domain of facet f.
func (d Domains) For(f selection.Facet) *selection.Domain {
	switch f {
	case selection.OSTypes:
		return d.OSTypes
	case selection.Browsers:
		return d.Browsers
	default:
		return d.Sites
	}
}

// Selections holds the current selection of every facet.
type Selections struct {
	Sites    selection.Set
	OSTypes  selection.Set
	Browsers selection.Set
}

// AllSelected returns selections holding every domain value.
func AllSelected(d Domains) Selections {
	return Selections{
		Sites:    selection.All(d.Sites),
		OSTypes:  selection.All(d.OSTypes),
		Browsers: selection.All(d.Browsers),
	}
}

// For returns a pointer to the selection of facet f so callers can mutate it in place.
func (s *Selections) For(f selection.Facet) *selection.Set {
	switch f {
	case selection.OSTypes:
		return &s.OSTypes
	case selection.Browsers:
		return &s.Browsers
	default:
		return &s.Sites
	}
}

// Clone returns an independent copy.
func (s Selections) Clone() Selections {
	return Selections{
		Sites:    s.Sites.Clone(),
		OSTypes:  s.OSTypes.Clone(),
		Browsers: s.Browsers.Clone(),
	}
}

// Values returns the selected values keyed by facet name.
func (s Selections) Values() map[string][]string {
	return map[string][]string{
		selection.Sites.String():    s.Sites.Values(),
		selection.OSTypes.String():  s.OSTypes.Values(),
		selection.Browsers.String(): s.Browsers.Values(),
	}
}

// UniqueDevices drops repeated device ids, keeping the first record, so
// device counts agree with the fact table's join.
func UniqueDevices(devices []records.Device) []records.Device {
	seen := make(map[string]bool, len(devices))
	out := make([]records.Device, 0, len(devices))
	for _, d := range devices {
		if seen[d.DeviceID] {
			continue
		}
		seen[d.DeviceID] = true
		out = append(out, d)
	}
	return out
}

func aboveThreshold(counts map[string]int64, threshold int64) []string {
	names := make([]string, 0, len(counts))
	for name, c := range counts {
		if c > threshold {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
