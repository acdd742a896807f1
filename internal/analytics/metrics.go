package analytics

import (
	"trafficlens/internal/records"
	"trafficlens/internal/selection"
)

// CategoryChart is a bar chart of device counts for one facet.
type CategoryChart struct {
	Facet selection.Facet     `json:"facet"`
	Rows  []MetricCountResult `json:"rows"`
}

// Names returns the categories present, in chart order.
func (c CategoryChart) Names() []string {
	names := make([]string, len(c.Rows))
	for i, r := range c.Rows {
		names[i] = r.Name
	}
	return names
}

// BuildOSChart counts devices per os type among devices whose browser is
// selected. The os selection itself is not applied, so deselecting an os
// bar never removes it. Categories with count <= threshold are dropped.
func BuildOSChart(devices []records.Device, d Domains, s Selections, threshold int64) CategoryChart {
	return countDevices(selection.OSTypes, devices, d.OSTypes, threshold, func(dev records.Device) (string, bool) {
		return dev.OSType, s.Browsers.Contains(dev.BrowserType)
	})
}

// BuildBrowserChart counts devices per browser type among devices whose os
// is selected. The browser selection itself is not applied. Categories with
// count <= threshold are dropped.
func BuildBrowserChart(devices []records.Device, d Domains, s Selections, threshold int64) CategoryChart {
	return countDevices(selection.Browsers, devices, d.Browsers, threshold, func(dev records.Device) (string, bool) {
		return dev.BrowserType, s.OSTypes.Contains(dev.OSType)
	})
}

// countDevices groups devices accepted by pick by the category pick returns,
// limited to the facet's domain, and keeps counts above threshold in domain
// order.
func countDevices(
	facet selection.Facet,
	devices []records.Device,
	domain *selection.Domain,
	threshold int64,
	pick func(records.Device) (string, bool),
) CategoryChart {
	counts := make(map[string]int64)
	for _, dev := range devices {
		category, ok := pick(dev)
		if !ok || !domain.Contains(category) {
			continue
		}
		counts[category]++
	}

	rows := make([]MetricCountResult, 0, len(counts))
	for _, name := range domain.Values() {
		if c := counts[name]; c > threshold {
			rows = append(rows, MetricCountResult{Name: name, Count: c})
		}
	}

	return CategoryChart{Facet: facet, Rows: rows}
}
