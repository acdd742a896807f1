// Package dashboard keeps the cross-filter state of one viewer and
// recomputes the views a selection change affects.
//
// A Context is built once from the loaded records and shared read-only by
// every Session. A Session owns its selections and the current views; it is
// not safe for concurrent use, callers serialize events per session.
package dashboard

import (
	"fmt"

	"trafficlens/internal/analytics"
	"trafficlens/internal/config"
	"trafficlens/internal/facts"
	"trafficlens/internal/records"
)

// Options tune how a Context derives its domains and charts.
type Options struct {
	// Threshold is the device count a category must exceed to appear in a
	// domain or a bar chart.
	Threshold int64
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{Threshold: config.DefaultDomainThreshold}
}

// OptionsFromConfig reads Options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{Threshold: cfg.DomainThreshold}
}

// Context is the immutable data every session filters.
type Context struct {
	facts     *facts.Table
	devices   []records.Device
	domains   analytics.Domains
	threshold int64
	initial   Snapshot
}

// NewContext builds the fact table, the domains and the unfiltered views.
// It fails when either table lacks a required column.
func NewContext(events records.EventTable, devices records.DeviceTable, opts Options) (*Context, error) {
	if opts.Threshold < 0 {
		return nil, fmt.Errorf("threshold must be non-negative, got %d", opts.Threshold)
	}

	table, err := facts.Build(events, devices)
	if err != nil {
		return nil, fmt.Errorf("failed to build fact table: %w", err)
	}

	unique := analytics.UniqueDevices(devices.Rows)
	c := &Context{
		facts:     table,
		devices:   unique,
		domains:   analytics.ComputeDomains(table, unique, opts.Threshold),
		threshold: opts.Threshold,
	}
	c.initial = c.build(analytics.AllSelected(c.domains))
	return c, nil
}

// Facts returns the shared fact table.
func (c *Context) Facts() *facts.Table {
	return c.facts
}

// Domains returns the facet domains.
func (c *Context) Domains() analytics.Domains {
	return c.domains
}

// Threshold returns the category count threshold.
func (c *Context) Threshold() int64 {
	return c.threshold
}

// DeviceCount returns the number of distinct device records.
func (c *Context) DeviceCount() int {
	return len(c.devices)
}

// InitialViews returns the views with every domain value selected.
func (c *Context) InitialViews() Snapshot {
	return c.initial
}

// NewSession starts a session with every domain value selected.
func (c *Context) NewSession() *Session {
	return &Session{
		ctx:        c,
		selections: analytics.AllSelected(c.domains),
		views:      c.initial,
	}
}

func (c *Context) build(s analytics.Selections) Snapshot {
	var snap Snapshot
	for _, v := range Views() {
		c.rebuild(&snap, v, s)
	}
	return snap
}

func (c *Context) rebuild(snap *Snapshot, v View, s analytics.Selections) {
	switch v {
	case SiteChartView:
		snap.SiteChart = analytics.BuildSiteChart(c.facts, c.domains, s)
	case OSChartView:
		snap.OSChart = analytics.BuildOSChart(c.devices, c.domains, s, c.threshold)
	case BrowserChartView:
		snap.BrowserChart = analytics.BuildBrowserChart(c.devices, c.domains, s, c.threshold)
	}
}
