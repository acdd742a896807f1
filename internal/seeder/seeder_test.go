package seeder

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficlens/internal/records"
	"trafficlens/internal/testsupport"
)

func smallOptions() Options {
	return Options{
		Devices:            400,
		Events:             2000,
		Start:              time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC),
		Months:             3,
		UnknownDeviceRatio: 0.05,
		Seed:               42,
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	a := NewSeeder(smallOptions(), testsupport.GetLogger()).Generate()
	b := NewSeeder(smallOptions(), testsupport.GetLogger()).Generate()
	assert.Equal(t, a, b)

	opts := smallOptions()
	opts.Seed = 7
	c := NewSeeder(opts, testsupport.GetLogger()).Generate()
	assert.NotEqual(t, a.Events, c.Events)
}

func TestGenerateShape(t *testing.T) {
	opts := smallOptions()
	ds := NewSeeder(opts, testsupport.GetLogger()).Generate()

	require.Len(t, ds.Devices, opts.Devices)
	require.Len(t, ds.Events, opts.Events)

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	unknown, direct := 0, 0
	for _, e := range ds.Events {
		assert.False(t, e.EventTime.Before(start))
		assert.True(t, e.EventTime.Before(end))
		if strings.HasPrefix(e.DeviceID, "unknown-") {
			unknown++
		}
		if e.Referrer == nil {
			direct++
		}
	}
	assert.Greater(t, unknown, 0)
	assert.Less(t, unknown, opts.Events/5)
	assert.Greater(t, direct, 0)

	for _, d := range ds.Devices {
		assert.NotEmpty(t, d.OSType)
		assert.NotEmpty(t, d.BrowserType)
	}
}

func TestSeedCSV(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "data", "events.csv")
	devicesPath := filepath.Join(dir, "data", "devices.csv")

	s := NewSeeder(smallOptions(), testsupport.GetLogger())
	require.NoError(t, s.SeedCSV(context.Background(), eventsPath, devicesPath))

	events, devices, err := records.Load(context.Background(), &records.CSVSource{
		EventsPath:  eventsPath,
		DevicesPath: devicesPath,
	})
	require.NoError(t, err)
	assert.Len(t, events.Rows, smallOptions().Events)
	assert.Len(t, devices.Rows, smallOptions().Devices)
}

func TestSeedSQLiteReplacesRows(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.NewDataset().AddDevice("stale", "BeOS", "NetPositive").Insert(t, db)

	s := NewSeeder(smallOptions(), testsupport.GetLogger())
	require.NoError(t, s.SeedSQLite(context.Background(), db))

	var deviceCount, eventCount, staleCount int64
	require.NoError(t, db.Model(&records.DeviceRecord{}).Count(&deviceCount).Error)
	require.NoError(t, db.Model(&records.EventRecord{}).Count(&eventCount).Error)
	require.NoError(t, db.Model(&records.DeviceRecord{}).Where("device_id = ?", "stale").Count(&staleCount).Error)

	assert.Equal(t, int64(smallOptions().Devices), deviceCount)
	assert.Equal(t, int64(smallOptions().Events), eventCount)
	assert.Zero(t, staleCount)
}
