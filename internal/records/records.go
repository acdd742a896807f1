// Package records holds the raw event and device records the dashboard is
// built from, together with the loaders that read them from CSV files or
// SQLite tables.
//
// The package is organized into focused files:
//   - records.go: record types, tables and schema checks
//   - models.go: gorm models for the SQLite record tables
//   - csv.go: CSV readers
//   - source.go: Source implementations and concurrent loading
package records

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Table names
const (
	EventsTable  = "events"
	DevicesTable = "devices"
)

// Column names
const (
	ColumnDeviceID    = "device_id"
	ColumnEventTime   = "event_time"
	ColumnReferrer    = "referrer"
	ColumnOSType      = "os_type"
	ColumnBrowserType = "browser_type"
)

// RequiredEventColumns lists the columns an event source must provide.
var RequiredEventColumns = []string{ColumnDeviceID, ColumnEventTime, ColumnReferrer}

// RequiredDeviceColumns lists the columns a device source must provide.
var RequiredDeviceColumns = []string{ColumnDeviceID, ColumnOSType, ColumnBrowserType}

// ErrMissingColumn is matched by every MissingColumnError.
var ErrMissingColumn = errors.New("missing required column")

// MissingColumnError reports a record source whose schema lacks a required column.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Table, ErrMissingColumn, e.Column)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

// Event is a single user event.
type Event struct {
	DeviceID  string
	EventTime time.Time
	Referrer  *string // nil when the referrer is null
}

// Device describes the device an event came from. Empty OSType or
// BrowserType means the value is missing.
type Device struct {
	DeviceID    string
	OSType      string
	BrowserType string
}

// EventTable is a loaded event source: the columns it exposed and its rows.
type EventTable struct {
	Columns []string
	Rows    []Event
}

// DeviceTable is a loaded device source.
type DeviceTable struct {
	Columns []string
	Rows    []Device
}

// Validate checks the event schema.
func (t EventTable) Validate() error {
	return RequireColumns(EventsTable, t.Columns, RequiredEventColumns...)
}

// Validate checks the device schema.
func (t DeviceTable) Validate() error {
	return RequireColumns(DevicesTable, t.Columns, RequiredDeviceColumns...)
}

// RequireColumns returns a MissingColumnError for the first required column
// absent from columns. Column names compare case-insensitively.
func RequireColumns(table string, columns []string, required ...string) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[NormalizeColumn(c)] = true
	}

	for _, r := range required {
		if !present[r] {
			return &MissingColumnError{Table: table, Column: r}
		}
	}
	return nil
}

// NormalizeColumn trims whitespace and a UTF-8 byte order mark and lowercases
// a column name.
func NormalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ToLower(strings.TrimSpace(name))
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
