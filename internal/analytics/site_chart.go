package analytics

import (
	"encoding/json"
	"sort"
	"time"

	"trafficlens/internal/facts"
)

// MonthColumn is the first column of the site chart.
const MonthColumn = "month"

// MonthLayout formats site chart months.
const MonthLayout = "2006-01"

// SiteChart is the wide month × site table behind the line chart. Sites
// always lists the full site domain, so a site filtered out of every row
// still has a column of zeros.
type SiteChart struct {
	Sites []string
	Rows  []SiteChartRow
}

// SiteChartRow holds one month's counts, aligned with SiteChart.Sites.
type SiteChartRow struct {
	Month  string
	Counts []int64
}

// Columns returns the header: the month column then one column per site.
func (c SiteChart) Columns() []string {
	return append([]string{MonthColumn}, c.Sites...)
}

// Count returns the value at (month, site).
func (c SiteChart) Count(month, site string) (int64, bool) {
	col := -1
	for i, s := range c.Sites {
		if s == site {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, false
	}
	for _, r := range c.Rows {
		if r.Month == month {
			return r.Counts[col], true
		}
	}
	return 0, false
}

// MarshalJSON encodes the chart as a header plus positional rows:
// {"columns": ["month", "Google", ...], "rows": [["2024-03", 4, ...], ...]}.
func (c SiteChart) MarshalJSON() ([]byte, error) {
	rows := make([][]any, 0, len(c.Rows))
	for _, r := range c.Rows {
		row := make([]any, 0, len(r.Counts)+1)
		row = append(row, r.Month)
		for _, n := range r.Counts {
			row = append(row, n)
		}
		rows = append(rows, row)
	}

	return json.Marshal(struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}{
		Columns: c.Columns(),
		Rows:    rows,
	})
}

// BuildSiteChart filters fact rows to the selected sites, os types and
// browsers, sums counts per (month, site) and pivots sites into columns.
// Months are ascending; a month with no surviving rows is absent. Rows whose
// device was unknown carry no os or browser and never pass the filter.
func BuildSiteChart(t *facts.Table, d Domains, s Selections) SiteChart {
	sites := d.Sites.Values()
	column := make(map[string]int, len(sites))
	for i, site := range sites {
		column[site] = i
	}

	byMonth := make(map[time.Time][]int64)
	t.Each(func(r facts.Row) {
		site := string(r.Site)
		if !s.Sites.Contains(site) || !s.OSTypes.Contains(r.OSType) || !s.Browsers.Contains(r.BrowserType) {
			return
		}
		col, ok := column[site]
		if !ok {
			return
		}
		counts, ok := byMonth[r.Month]
		if !ok {
			counts = make([]int64, len(sites))
			byMonth[r.Month] = counts
		}
		counts[col] += r.Count
	})

	months := make([]time.Time, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	chart := SiteChart{Sites: sites, Rows: make([]SiteChartRow, 0, len(months))}
	for _, m := range months {
		chart.Rows = append(chart.Rows, SiteChartRow{
			Month:  m.Format(MonthLayout),
			Counts: byMonth[m],
		})
	}
	return chart
}
