package dashboard_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficlens/internal/analytics"
	"trafficlens/internal/dashboard"
	"trafficlens/internal/records"
	"trafficlens/internal/selection"
	"trafficlens/internal/testsupport"
)

func newTestContext(t *testing.T) *dashboard.Context {
	t.Helper()
	march := testsupport.Month(2024, time.March)
	april := testsupport.Month(2024, time.April)

	ds := testsupport.NewDataset().
		AddDevice("A", "Windows", "Chrome").
		AddDevice("B", "Linux", "Firefox").
		AddDevice("C", "macOS", "Safari").
		AddDevice("D", "Windows", "Firefox").
		AddEvents("A", march, "https://www.linkedin.com", 2).
		AddEvents("B", march, "", 1).
		AddEvents("C", april, "https://google.com/search", 1).
		AddEvents("D", april, "https://twitter.com", 1)

	ctx, err := dashboard.NewContext(ds.EventTable(), ds.DeviceTable(), dashboard.Options{Threshold: 0})
	require.NoError(t, err)
	return ctx
}

// freshViews rebuilds every view from scratch for the given selections.
func freshViews(ctx *dashboard.Context, s analytics.Selections) dashboard.Snapshot {
	devices := []records.Device{
		{DeviceID: "A", OSType: "Windows", BrowserType: "Chrome"},
		{DeviceID: "B", OSType: "Linux", BrowserType: "Firefox"},
		{DeviceID: "C", OSType: "macOS", BrowserType: "Safari"},
		{DeviceID: "D", OSType: "Windows", BrowserType: "Firefox"},
	}
	d := ctx.Domains()
	return dashboard.Snapshot{
		SiteChart:    analytics.BuildSiteChart(ctx.Facts(), d, s),
		OSChart:      analytics.BuildOSChart(devices, d, s, ctx.Threshold()),
		BrowserChart: analytics.BuildBrowserChart(devices, d, s, ctx.Threshold()),
	}
}

func TestNewSessionSelectsEverything(t *testing.T) {
	ctx := newTestContext(t)
	session := ctx.NewSession()

	sel := session.Selections()
	assert.True(t, sel.Sites.IsAll())
	assert.True(t, sel.OSTypes.IsAll())
	assert.True(t, sel.Browsers.IsAll())
	assert.Equal(t, []string{"Linux", "Windows", "macOS"}, sel.OSTypes.Values())

	assert.Equal(t, ctx.InitialViews(), session.Views())
	assert.Equal(t, freshViews(ctx, sel), session.Views())
	assert.Equal(t, 4, ctx.DeviceCount())
}

func TestNewContextRejectsMissingColumns(t *testing.T) {
	events := records.EventTable{Columns: []string{"device_id", "event_time"}}
	devices := records.DeviceTable{Columns: records.RequiredDeviceColumns}

	_, err := dashboard.NewContext(events, devices, dashboard.DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, records.ErrMissingColumn))

	var missing *records.MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "referrer", missing.Column)
}

func TestNewContextRejectsNegativeThreshold(t *testing.T) {
	ds := testsupport.NewDataset()
	_, err := dashboard.NewContext(ds.EventTable(), ds.DeviceTable(), dashboard.Options{Threshold: -1})
	assert.Error(t, err)
}

func TestDependents(t *testing.T) {
	assert.Equal(t, []dashboard.View{dashboard.SiteChartView}, dashboard.Dependents(selection.Sites))
	assert.Equal(t, []dashboard.View{dashboard.SiteChartView, dashboard.BrowserChartView}, dashboard.Dependents(selection.OSTypes))
	assert.Equal(t, []dashboard.View{dashboard.SiteChartView, dashboard.OSChartView}, dashboard.Dependents(selection.Browsers))
}

func TestOnSelectionChangedRecomputesDependents(t *testing.T) {
	tests := []struct {
		name       string
		facet      selection.Facet
		values     []string
		recomputed []dashboard.View
	}{
		{
			name:       "sites",
			facet:      selection.Sites,
			values:     []string{"LinkedIn"},
			recomputed: []dashboard.View{dashboard.SiteChartView},
		},
		{
			name:       "os types",
			facet:      selection.OSTypes,
			values:     []string{"Windows"},
			recomputed: []dashboard.View{dashboard.SiteChartView, dashboard.BrowserChartView},
		},
		{
			name:       "browsers",
			facet:      selection.Browsers,
			values:     []string{"Firefox"},
			recomputed: []dashboard.View{dashboard.SiteChartView, dashboard.OSChartView},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t)
			session := ctx.NewSession()
			before := session.Views()

			update, err := session.OnSelectionChanged(tt.facet, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.facet, update.Facet)
			assert.Equal(t, tt.recomputed, update.Recomputed)
			assert.Equal(t, tt.values, update.Selections.For(tt.facet).Values())

			after := session.Views()
			assert.Equal(t, after, update.Views)
			assert.Equal(t, freshViews(ctx, session.Selections()), after)

			// Views outside the dependency list keep their previous value.
			if !contains(tt.recomputed, dashboard.OSChartView) {
				assert.Equal(t, before.OSChart, after.OSChart)
			}
			if !contains(tt.recomputed, dashboard.BrowserChartView) {
				assert.Equal(t, before.BrowserChart, after.BrowserChart)
			}
		})
	}
}

func TestOSChartIgnoresOSSelection(t *testing.T) {
	ctx := newTestContext(t)
	session := ctx.NewSession()
	before := session.Views().OSChart

	_, err := session.OnSelectionChanged(selection.OSTypes, []string{"Linux"})
	require.NoError(t, err)
	_, err = session.OnBarClicked(selection.OSTypes, "macOS")
	require.NoError(t, err)

	assert.Equal(t, before, session.Views().OSChart)
	assert.Equal(t, before, freshViews(ctx, session.Selections()).OSChart)
}

func TestOnSelectionChangedRejectsEmptySelection(t *testing.T) {
	ctx := newTestContext(t)
	session := ctx.NewSession()
	_, err := session.OnSelectionChanged(selection.Browsers, []string{"Chrome"})
	require.NoError(t, err)

	sel, views := session.Selections(), session.Views()

	_, err = session.OnSelectionChanged(selection.Browsers, nil)
	assert.ErrorIs(t, err, selection.ErrEmptySelection)
	assert.Equal(t, sel, session.Selections())
	assert.Equal(t, views, session.Views())
}

func TestOnSelectionChangedRejectsUnknownValue(t *testing.T) {
	ctx := newTestContext(t)
	session := ctx.NewSession()
	sel, views := session.Selections(), session.Views()

	_, err := session.OnSelectionChanged(selection.OSTypes, []string{"Linux", "BeOS"})
	require.Error(t, err)
	assert.ErrorIs(t, err, selection.ErrUnknownCategoryValue)

	var unknown *selection.UnknownValueError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, selection.OSTypes, unknown.Facet)
	assert.Equal(t, "BeOS", unknown.Value)

	assert.Equal(t, sel, session.Selections())
	assert.Equal(t, views, session.Views())
}

func TestUnknownFacet(t *testing.T) {
	session := newTestContext(t).NewSession()

	_, err := session.OnSelectionChanged(selection.Facet(7), []string{"x"})
	assert.ErrorIs(t, err, selection.ErrUnknownFacet)

	_, err = session.OnBarClicked(selection.Facet(-1), "x")
	assert.ErrorIs(t, err, selection.ErrUnknownFacet)
}

func TestOnBarClickedToggles(t *testing.T) {
	ctx := newTestContext(t)
	session := ctx.NewSession()

	// All -> {Windows}
	update, err := session.OnBarClicked(selection.OSTypes, "Windows")
	require.NoError(t, err)
	assert.Equal(t, []string{"Windows"}, update.Selections.OSTypes.Values())
	assert.Equal(t, []dashboard.View{dashboard.SiteChartView, dashboard.BrowserChartView}, update.Recomputed)
	assert.Equal(t, []string{"Chrome", "Firefox"}, update.Views.BrowserChart.Names())

	// {Windows} -> {Linux}
	update, err = session.OnBarClicked(selection.OSTypes, "Linux")
	require.NoError(t, err)
	assert.Equal(t, []string{"Linux"}, update.Selections.OSTypes.Values())

	// {Linux} -> All
	update, err = session.OnBarClicked(selection.OSTypes, "Linux")
	require.NoError(t, err)
	assert.True(t, update.Selections.OSTypes.IsAll())
	assert.Equal(t, ctx.InitialViews(), session.Views())
}

func TestOnBarClickedFromMultiValueSelection(t *testing.T) {
	session := newTestContext(t).NewSession()
	_, err := session.OnSelectionChanged(selection.Browsers, []string{"Chrome", "Firefox"})
	require.NoError(t, err)

	update, err := session.OnBarClicked(selection.Browsers, "Chrome")
	require.NoError(t, err)
	assert.Equal(t, []string{"Chrome"}, update.Selections.Browsers.Values(),
		"clicking a value in a multi-value selection narrows to it")
}

func TestOnBarClickedRejectsUnknownValue(t *testing.T) {
	session := newTestContext(t).NewSession()
	views := session.Views()

	_, err := session.OnBarClicked(selection.Browsers, "Lynx")
	assert.ErrorIs(t, err, selection.ErrUnknownCategoryValue)
	assert.True(t, session.Selections().Browsers.IsAll())
	assert.Equal(t, views, session.Views())
}

func TestRepeatedSelectionIsIdempotent(t *testing.T) {
	session := newTestContext(t).NewSession()

	first, err := session.OnSelectionChanged(selection.Sites, []string{"Google", "Other"})
	require.NoError(t, err)
	second, err := session.OnSelectionChanged(selection.Sites, []string{"Other", "Google", "Other"})
	require.NoError(t, err)

	assert.Equal(t, first.Views, second.Views)
	assert.Equal(t, []string{"Google", "Other"}, second.Selections.Sites.Values())
}

func TestViewsMatchFreshBuildAfterAnySequence(t *testing.T) {
	ctx := newTestContext(t)
	session := ctx.NewSession()

	steps := []func() error{
		func() error { _, err := session.OnBarClicked(selection.Browsers, "Firefox"); return err },
		func() error { _, err := session.OnSelectionChanged(selection.Sites, []string{"Twitter", "Other"}); return err },
		func() error { _, err := session.OnBarClicked(selection.OSTypes, "Windows"); return err },
		func() error { _, err := session.OnBarClicked(selection.Browsers, "Firefox"); return err },
		func() error { _, err := session.OnSelectionChanged(selection.OSTypes, []string{"Linux", "macOS"}); return err },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assert.Equal(t, freshViews(ctx, session.Selections()), session.Views(), "step %d", i)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.NewSession()
	b := ctx.NewSession()

	_, err := a.OnBarClicked(selection.Sites, "Google")
	require.NoError(t, err)

	assert.True(t, b.Selections().Sites.IsAll())
	assert.Equal(t, ctx.InitialViews(), b.Views())
}

func TestEndToEndOSClick(t *testing.T) {
	march := testsupport.Month(2024, time.March)
	ds := testsupport.NewDataset().
		AddDevice("A", "Windows", "Chrome").
		AddDevice("B", "Linux", "Firefox").
		AddEvents("A", march, "https://linkedin.com/in/someone", 2).
		AddEvents("B", march, "", 1)

	ctx, err := dashboard.NewContext(ds.EventTable(), ds.DeviceTable(), dashboard.Options{Threshold: 0})
	require.NoError(t, err)
	session := ctx.NewSession()

	chart := session.Views().SiteChart
	assert.Equal(t, []string{"LinkedIn", "Other"}, chart.Sites)
	assert.Equal(t, []analytics.SiteChartRow{{Month: "2024-03", Counts: []int64{2, 1}}}, chart.Rows)

	update, err := session.OnBarClicked(selection.OSTypes, "Linux")
	require.NoError(t, err)
	assert.Equal(t, []analytics.SiteChartRow{{Month: "2024-03", Counts: []int64{0, 1}}}, update.Views.SiteChart.Rows)
	assert.Equal(t, []analytics.MetricCountResult{{Name: "Firefox", Count: 1}}, update.Views.BrowserChart.Rows)
	assert.Equal(t, []analytics.MetricCountResult{
		{Name: "Linux", Count: 1},
		{Name: "Windows", Count: 1},
	}, update.Views.OSChart.Rows)

	update, err = session.OnBarClicked(selection.OSTypes, "Linux")
	require.NoError(t, err)
	assert.True(t, update.Selections.OSTypes.IsAll())
	assert.Equal(t, ctx.InitialViews(), update.Views)
}

func TestViewNames(t *testing.T) {
	names := make([]string, 0, 3)
	for _, v := range dashboard.Views() {
		names = append(names, v.String())
	}
	assert.Equal(t, []string{"site_chart", "os_chart", "browser_chart"}, names)
}

func contains(views []dashboard.View, v dashboard.View) bool {
	for _, x := range views {
		if x == v {
			return true
		}
	}
	return false
}
