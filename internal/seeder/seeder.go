package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"trafficlens/internal/records"
)

// Options control the size and shape of a generated dataset.
type Options struct {
	Devices int
	Events  int
	// Start is the first month events are spread over; Months is how many.
	Start  time.Time
	Months int
	// UnknownDeviceRatio is the share of events whose device has no record.
	UnknownDeviceRatio float64
	Seed               uint64
}

// DefaultOptions returns options that produce os and browser categories on
// both sides of the default threshold of 100 devices.
func DefaultOptions() Options {
	now := time.Now().UTC()
	return Options{
		Devices:            3000,
		Events:             30000,
		Start:              time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -5, 0),
		Months:             6,
		UnknownDeviceRatio: 0.03,
		Seed:               1,
	}
}

// Dataset is a generated pair of record tables.
type Dataset struct {
	Events  []records.Event
	Devices []records.Device
}

// Seeder generates synthetic traffic. The same Options always produce the
// same Dataset.
type Seeder struct {
	Logger  *slog.Logger
	Options Options
}

// NewSeeder creates a new seeder instance
func NewSeeder(opts Options, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		Logger:  logger,
		Options: opts,
	}
}

type weighted[T any] struct {
	value  T
	weight int
}

func pick[T any](rng *rand.Rand, choices []weighted[T]) T {
	total := 0
	for _, c := range choices {
		total += c.weight
	}
	n := rng.IntN(total)
	for _, c := range choices {
		if n < c.weight {
			return c.value
		}
		n -= c.weight
	}
	return choices[len(choices)-1].value
}

type platform struct {
	os       string
	browsers []weighted[string]
}

// platforms returns the os mix with each os's browser mix
func platforms() []weighted[platform] {
	return []weighted[platform]{
		{platform{"Windows", []weighted[string]{{"Chrome", 65}, {"Edge", 22}, {"Firefox", 13}}}, 44},
		{platform{"macOS", []weighted[string]{{"Safari", 55}, {"Chrome", 35}, {"Firefox", 10}}}, 24},
		{platform{"Android", []weighted[string]{{"Chrome", 85}, {"Samsung Internet", 15}}}, 13},
		{platform{"iOS", []weighted[string]{{"Safari", 90}, {"Chrome", 10}}}, 10},
		{platform{"Linux", []weighted[string]{{"Firefox", 55}, {"Chrome", 45}}}, 7},
		{platform{"ChromeOS", []weighted[string]{{"Chrome", 100}}}, 2},
	}
}

// getReferrers returns referrers with their relative frequency. An empty
// referrer is a direct visit.
func getReferrers() []weighted[string] {
	return []weighted[string]{
		{"", 14},
		{"https://www.google.com/", 20},
		{"https://www.google.co.uk/search?q=traffic", 4},
		{"https://www.linkedin.com/feed/", 12},
		{"https://lnkd.in/e3Xq9aB", 6},
		{"https://l.instagram.com/?u=https%3A%2F%2Fexample.com", 8},
		{"https://twitter.com/someone/status/1", 7},
		{"https://t.co/abc123", 3},
		{"https://duckduckgo.com/", 4},
		{"https://news.ycombinator.com/item?id=1", 3},
		{"https://github.com/", 3},
		{"android-app://com.google.android.gm", 2},
	}
}

// Generate builds the dataset.
func (s *Seeder) Generate() Dataset {
	opts := s.Options
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	plats := platforms()
	devices := make([]records.Device, 0, opts.Devices)
	for i := 0; i < opts.Devices; i++ {
		p := pick(rng, plats)
		devices = append(devices, records.Device{
			DeviceID:    fmt.Sprintf("dev-%06d", i),
			OSType:      p.os,
			BrowserType: pick(rng, p.browsers),
		})
	}

	start := time.Date(opts.Start.Year(), opts.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, opts.Months, 0)
	span := int64(end.Sub(start) / time.Second)

	refs := getReferrers()
	events := make([]records.Event, 0, opts.Events)
	for i := 0; i < opts.Events; i++ {
		var deviceID string
		if len(devices) == 0 || rng.Float64() < opts.UnknownDeviceRatio {
			deviceID = fmt.Sprintf("unknown-%04d", rng.IntN(500))
		} else {
			deviceID = devices[rng.IntN(len(devices))].DeviceID
		}

		var referrer *string
		if ref := pick(rng, refs); ref != "" {
			referrer = records.StringPtr(ref)
		}

		events = append(events, records.Event{
			DeviceID:  deviceID,
			EventTime: start.Add(time.Duration(rng.Int64N(span)) * time.Second),
			Referrer:  referrer,
		})
	}

	return Dataset{Events: events, Devices: devices}
}

// SeedCSV writes a generated dataset to two CSV files.
func (s *Seeder) SeedCSV(ctx context.Context, eventsPath, devicesPath string) error {
	start := time.Now()
	s.Logger.Info("Generating CSV dataset...",
		slog.Int("devices", s.Options.Devices),
		slog.Int("events", s.Options.Events))

	ds := s.Generate()
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := writeFile(devicesPath, func(f *os.File) error { return records.WriteDevicesCSV(f, ds.Devices) }); err != nil {
		return fmt.Errorf("failed to write devices: %w", err)
	}
	if err := writeFile(eventsPath, func(f *os.File) error { return records.WriteEventsCSV(f, ds.Events) }); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}

	s.Logger.Info("Seeding completed successfully",
		slog.String("events_path", eventsPath),
		slog.String("devices_path", devicesPath),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// SeedSQLite replaces the contents of the record tables with a generated
// dataset. The tables must already exist.
func (s *Seeder) SeedSQLite(ctx context.Context, db *gorm.DB) error {
	start := time.Now()
	s.Logger.Info("Starting database seeding...",
		slog.Int("devices", s.Options.Devices),
		slog.Int("events", s.Options.Events))

	ds := s.Generate()

	deviceRows := make([]records.DeviceRecord, 0, len(ds.Devices))
	for _, d := range ds.Devices {
		deviceRows = append(deviceRows, records.NewDeviceRecord(d))
	}
	eventRows := make([]records.EventRecord, 0, len(ds.Events))
	for _, e := range ds.Events {
		eventRows = append(eventRows, records.NewEventRecord(e))
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&records.EventRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear events: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&records.DeviceRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear devices: %w", err)
		}
		if len(deviceRows) > 0 {
			if err := tx.CreateInBatches(deviceRows, 500).Error; err != nil {
				return fmt.Errorf("failed to insert devices: %w", err)
			}
		}
		if len(eventRows) > 0 {
			if err := tx.CreateInBatches(eventRows, 500).Error; err != nil {
				return fmt.Errorf("failed to insert events: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.Info("Seeding completed successfully", slog.Duration("elapsed", time.Since(start)))
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
