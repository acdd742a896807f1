package dashboard

import (
	"fmt"
	"slices"

	"trafficlens/internal/analytics"
	"trafficlens/internal/selection"
)

// View identifies one of the dashboard's charts.
type View int

const (
	SiteChartView View = iota
	OSChartView
	BrowserChartView
)

var viewNames = [...]string{
	SiteChartView:    "site_chart",
	OSChartView:      "os_chart",
	BrowserChartView: "browser_chart",
}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return fmt.Sprintf("View(%d)", int(v))
	}
	return viewNames[v]
}

// MarshalText encodes the view by name.
func (v View) MarshalText() ([]byte, error) {
	if v < 0 || int(v) >= len(viewNames) {
		return nil, fmt.Errorf("unknown view %d", int(v))
	}
	return []byte(viewNames[v]), nil
}

// Views returns every view in display order.
func Views() []View {
	return []View{SiteChartView, OSChartView, BrowserChartView}
}

// dependents lists the views that read each facet's selection. A bar chart
// never depends on its own facet.
var dependents = map[selection.Facet][]View{
	selection.Sites:    {SiteChartView},
	selection.OSTypes:  {SiteChartView, BrowserChartView},
	selection.Browsers: {SiteChartView, OSChartView},
}

// Dependents returns the views recomputed when facet f changes.
func Dependents(f selection.Facet) []View {
	return slices.Clone(dependents[f])
}

// Snapshot holds the current value of every view.
type Snapshot struct {
	SiteChart    analytics.SiteChart     `json:"site_chart"`
	OSChart      analytics.CategoryChart `json:"os_chart"`
	BrowserChart analytics.CategoryChart `json:"browser_chart"`
}
