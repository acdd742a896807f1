// Package facts builds the per-event-month fact table every dashboard view
// is derived from.
package facts

import (
	"sort"
	"time"

	"trafficlens/internal/pkg/referrers"
	"trafficlens/internal/records"
)

// Key identifies one fact row. Rows keep device granularity so any coarser
// view can be re-derived without touching raw events again.
type Key struct {
	Month       time.Time
	Site        referrers.Site
	OSType      string
	DeviceID    string
	BrowserType string
	Matched     bool // false when the event's device_id has no device record
}

// Row is one fact row: a key and its event count.
type Row struct {
	Key
	Count int64
}

// Table is the immutable fact table.
type Table struct {
	rows []Row
}

// Build joins events to devices, classifies referrers, buckets event times
// by month and counts events per key. Events whose device is unknown are
// kept with empty os and browser values. When a device_id appears more than
// once in devices, the first record is used.
func Build(events records.EventTable, devices records.DeviceTable) (*Table, error) {
	if err := events.Validate(); err != nil {
		return nil, err
	}
	if err := devices.Validate(); err != nil {
		return nil, err
	}

	byID := make(map[string]records.Device, len(devices.Rows))
	for _, d := range devices.Rows {
		if _, seen := byID[d.DeviceID]; !seen {
			byID[d.DeviceID] = d
		}
	}

	counts := make(map[Key]int64)
	for _, e := range events.Rows {
		key := Key{
			Month:    MonthEnd(e.EventTime),
			Site:     referrers.Classify(e.Referrer),
			DeviceID: e.DeviceID,
		}
		if d, ok := byID[e.DeviceID]; ok {
			key.Matched = true
			key.OSType = d.OSType
			key.BrowserType = d.BrowserType
		}
		counts[key]++
	}

	rows := make([]Row, 0, len(counts))
	for k, c := range counts {
		rows = append(rows, Row{Key: k, Count: c})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Key.less(rows[j].Key)
	})

	return &Table{rows: rows}, nil
}

// MonthEnd truncates t to the last calendar day of its month, midnight UTC.
// The month is read from t's own wall clock, so an offset timestamp stays in
// the month it was recorded in.
func MonthEnd(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// Rows returns a copy of the fact rows ordered by month, site, os, device and browser.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Each calls fn for every row in order without copying.
func (t *Table) Each(fn func(Row)) {
	for _, r := range t.rows {
		fn(r)
	}
}

// Len returns the number of fact rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Total returns the number of events represented by the table.
func (t *Table) Total() int64 {
	var total int64
	for _, r := range t.rows {
		total += r.Count
	}
	return total
}

// UnmatchedTotal returns the number of events whose device was unknown.
func (t *Table) UnmatchedTotal() int64 {
	var total int64
	for _, r := range t.rows {
		if !r.Matched {
			total += r.Count
		}
	}
	return total
}

// Sites returns the distinct sites present, ascending.
func (t *Table) Sites() []string {
	seen := make(map[string]bool)
	for _, r := range t.rows {
		seen[string(r.Site)] = true
	}
	return sortedKeys(seen)
}

// Months returns the distinct month keys present, ascending.
func (t *Table) Months() []time.Time {
	var months []time.Time
	for _, r := range t.rows {
		if n := len(months); n == 0 || !months[n-1].Equal(r.Month) {
			months = append(months, r.Month)
		}
	}
	return months
}

func (k Key) less(o Key) bool {
	if !k.Month.Equal(o.Month) {
		return k.Month.Before(o.Month)
	}
	if k.Site != o.Site {
		return k.Site < o.Site
	}
	if k.OSType != o.OSType {
		return k.OSType < o.OSType
	}
	if k.DeviceID != o.DeviceID {
		return k.DeviceID < o.DeviceID
	}
	if k.BrowserType != o.BrowserType {
		return k.BrowserType < o.BrowserType
	}
	return !k.Matched && o.Matched
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
