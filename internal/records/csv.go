package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// eventTimeLayouts are tried in order when parsing event_time cells.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LoadStats summarises a CSV read.
type LoadStats struct {
	Rows    int // rows kept
	Skipped int // malformed rows dropped
}

// ParseEventTime parses an event_time cell. Values without a zone are UTC;
// an explicit offset is kept.
func ParseEventTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized event_time %q", value)
}

// ReadEventsCSV reads an events CSV with a header row. Rows with an empty
// device_id or an unparsable event_time are skipped. An empty referrer cell
// is a null referrer.
func ReadEventsCSV(r io.Reader) (EventTable, LoadStats, error) {
	var stats LoadStats

	header, reader, err := readHeader(r)
	if err != nil {
		return EventTable{}, stats, fmt.Errorf("failed to read events header: %w", err)
	}
	if err := RequireColumns(EventsTable, header, RequiredEventColumns...); err != nil {
		return EventTable{}, stats, err
	}
	idx := columnIndex(header)

	table := EventTable{Columns: header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return EventTable{}, stats, fmt.Errorf("failed to read events row: %w", err)
		}

		deviceID := strings.TrimSpace(cell(row, idx[ColumnDeviceID]))
		eventTime, timeErr := ParseEventTime(cell(row, idx[ColumnEventTime]))
		if deviceID == "" || timeErr != nil {
			stats.Skipped++
			continue
		}

		var referrer *string
		if ref := strings.TrimSpace(cell(row, idx[ColumnReferrer])); ref != "" {
			referrer = StringPtr(ref)
		}

		table.Rows = append(table.Rows, Event{
			DeviceID:  deviceID,
			EventTime: eventTime,
			Referrer:  referrer,
		})
	}

	stats.Rows = len(table.Rows)
	return table, stats, nil
}

// ReadDevicesCSV reads a devices CSV with a header row. Rows with an empty
// device_id are skipped.
func ReadDevicesCSV(r io.Reader) (DeviceTable, LoadStats, error) {
	var stats LoadStats

	header, reader, err := readHeader(r)
	if err != nil {
		return DeviceTable{}, stats, fmt.Errorf("failed to read devices header: %w", err)
	}
	if err := RequireColumns(DevicesTable, header, RequiredDeviceColumns...); err != nil {
		return DeviceTable{}, stats, err
	}
	idx := columnIndex(header)

	table := DeviceTable{Columns: header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return DeviceTable{}, stats, fmt.Errorf("failed to read devices row: %w", err)
		}

		deviceID := strings.TrimSpace(cell(row, idx[ColumnDeviceID]))
		if deviceID == "" {
			stats.Skipped++
			continue
		}

		table.Rows = append(table.Rows, Device{
			DeviceID:    deviceID,
			OSType:      strings.TrimSpace(cell(row, idx[ColumnOSType])),
			BrowserType: strings.TrimSpace(cell(row, idx[ColumnBrowserType])),
		})
	}

	stats.Rows = len(table.Rows)
	return table, stats, nil
}

// WriteEventsCSV writes events with the canonical header.
func WriteEventsCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RequiredEventColumns); err != nil {
		return err
	}
	for _, e := range events {
		ref := ""
		if e.Referrer != nil {
			ref = *e.Referrer
		}
		if err := cw.Write([]string{e.DeviceID, e.EventTime.Format(time.RFC3339), ref}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDevicesCSV writes devices with the canonical header.
func WriteDevicesCSV(w io.Writer, devices []Device) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RequiredDeviceColumns); err != nil {
		return err
	}
	for _, d := range devices {
		if err := cw.Write([]string{d.DeviceID, d.OSType, d.BrowserType}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readHeader(r io.Reader) ([]string, *csv.Reader, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		return nil, nil, err
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = NormalizeColumn(h)
	}
	return columns, reader, nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	return idx
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
