package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"trafficlens/internal/analytics"
	"trafficlens/internal/dashboard"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func heading(w io.Writer, title string, color bool) {
	title = cases.Title(language.AmericanEnglish).String(strings.ReplaceAll(title, "_", " "))
	if color {
		fmt.Fprintf(w, "\033[1m%s\033[0m\n", title)
		return
	}
	fmt.Fprintln(w, title)
}

func renderDomains(w io.Writer, dc *dashboard.Context, color bool) error {
	p := message.NewPrinter(language.English)
	d := dc.Domains()

	p.Fprintf(w, "Devices: %d, events: %d (%d without a device record), threshold: %d\n\n",
		dc.DeviceCount(), dc.Facts().Total(), dc.Facts().UnmatchedTotal(), dc.Threshold())

	for _, domain := range []struct {
		name   string
		values []string
	}{
		{"sites", d.Sites.Values()},
		{"os_types", d.OSTypes.Values()},
		{"browsers", d.Browsers.Values()},
	} {
		heading(w, domain.name, color)
		if len(domain.values) == 0 {
			fmt.Fprintln(w, "  (none)")
		}
		for _, v := range domain.values {
			fmt.Fprintf(w, "  %s\n", v)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// viewsDocument is the yaml layout of a session's state.
type viewsDocument struct {
	Selections   map[string][]string           `yaml:"selections"`
	SiteChart    siteChartDocument             `yaml:"site_chart"`
	OSChart      []analytics.MetricCountResult `yaml:"os_chart"`
	BrowserChart []analytics.MetricCountResult `yaml:"browser_chart"`
}

type siteChartDocument struct {
	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows,flow"`
}

func newViewsDocument(s *dashboard.Session) viewsDocument {
	views := s.Views()
	rows := make([][]any, 0, len(views.SiteChart.Rows))
	for _, r := range views.SiteChart.Rows {
		row := []any{r.Month}
		for _, n := range r.Counts {
			row = append(row, n)
		}
		rows = append(rows, row)
	}
	return viewsDocument{
		Selections:   s.Selections().Values(),
		SiteChart:    siteChartDocument{Columns: views.SiteChart.Columns(), Rows: rows},
		OSChart:      views.OSChart.Rows,
		BrowserChart: views.BrowserChart.Rows,
	}
}

func renderViews(w io.Writer, format string, s *dashboard.Session, color bool) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newViewsDocument(s)); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		data, err := json.MarshalIndent(struct {
			Selections map[string][]string `json:"selections"`
			Views      dashboard.Snapshot  `json:"views"`
		}{s.Selections().Values(), s.Views()}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "table", "":
		return renderTables(w, s, color)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderTables(w io.Writer, s *dashboard.Session, color bool) error {
	p := message.NewPrinter(language.English)
	views := s.Views()

	heading(w, dashboard.SiteChartView.String(), color)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(views.SiteChart.Columns(), "\t")+"\t")
	for _, r := range views.SiteChart.Rows {
		cells := []string{r.Month}
		for _, n := range r.Counts {
			cells = append(cells, p.Sprintf("%d", n))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, chart := range []struct {
		view  dashboard.View
		chart analytics.CategoryChart
	}{
		{dashboard.OSChartView, views.OSChart},
		{dashboard.BrowserChartView, views.BrowserChart},
	} {
		fmt.Fprintln(w)
		heading(w, chart.view.String(), color)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, r := range chart.chart.Rows {
			p.Fprintf(tw, "%s\t%d\n", r.Name, r.Count)
		}
		if len(chart.chart.Rows) == 0 {
			fmt.Fprintln(tw, "(no category above threshold)")
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
