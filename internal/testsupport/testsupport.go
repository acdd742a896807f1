package testsupport

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trafficlens/internal/database"
	"trafficlens/internal/logging"
	"trafficlens/internal/records"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// SetupTestDB creates a test database with the record tables migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by root test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// GetLogger returns a logger that discards output
func GetLogger() *slog.Logger {
	return logging.Discard()
}

// Dataset accumulates events and devices for a test.
type Dataset struct {
	Events  []records.Event
	Devices []records.Device
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{}
}

// AddDevice adds one device.
func (d *Dataset) AddDevice(id, os, browser string) *Dataset {
	d.Devices = append(d.Devices, records.Device{DeviceID: id, OSType: os, BrowserType: browser})
	return d
}

// AddFleet adds n devices named prefix-0..prefix-(n-1) sharing os and browser.
func (d *Dataset) AddFleet(prefix, os, browser string, n int) *Dataset {
	for i := 0; i < n; i++ {
		d.AddDevice(fmt.Sprintf("%s-%d", prefix, i), os, browser)
	}
	return d
}

// AddEvents adds n events from deviceID at when. An empty referrer is null.
func (d *Dataset) AddEvents(deviceID string, when time.Time, referrer string, n int) *Dataset {
	var ref *string
	if referrer != "" {
		ref = records.StringPtr(referrer)
	}
	for i := 0; i < n; i++ {
		d.Events = append(d.Events, records.Event{DeviceID: deviceID, EventTime: when, Referrer: ref})
	}
	return d
}

// AddFleetEvents adds one event per fleet device at when.
func (d *Dataset) AddFleetEvents(prefix string, n int, when time.Time, referrer string) *Dataset {
	for i := 0; i < n; i++ {
		d.AddEvents(fmt.Sprintf("%s-%d", prefix, i), when, referrer, 1)
	}
	return d
}

// EventTable returns the events with the canonical schema.
func (d *Dataset) EventTable() records.EventTable {
	return records.EventTable{Columns: records.RequiredEventColumns, Rows: d.Events}
}

// DeviceTable returns the devices with the canonical schema.
func (d *Dataset) DeviceTable() records.DeviceTable {
	return records.DeviceTable{Columns: records.RequiredDeviceColumns, Rows: d.Devices}
}

// Insert writes the dataset into the record tables of db.
func (d *Dataset) Insert(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, dev := range d.Devices {
		r := records.NewDeviceRecord(dev)
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("testsupport: failed to insert device: %v", err)
		}
	}
	for _, e := range d.Events {
		r := records.NewEventRecord(e)
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("testsupport: failed to insert event: %v", err)
		}
	}
}

// Month returns noon UTC on day 15 of the given month.
func Month(year int, month time.Month) time.Time {
	return time.Date(year, month, 15, 12, 0, 0, 0, time.UTC)
}
