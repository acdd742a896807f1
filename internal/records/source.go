package records

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"trafficlens/internal/pkg/async"
)

// Source provides the two record tables.
type Source interface {
	LoadEvents(ctx context.Context) (EventTable, error)
	LoadDevices(ctx context.Context) (DeviceTable, error)
}

// CSVSource reads events and devices from two CSV files
type CSVSource struct {
	EventsPath  string
	DevicesPath string
	Logger      *slog.Logger
}

func (s *CSVSource) LoadEvents(ctx context.Context) (EventTable, error) {
	f, err := os.Open(s.EventsPath)
	if err != nil {
		return EventTable{}, fmt.Errorf("failed to open events file: %w", err)
	}
	defer f.Close()

	table, stats, err := ReadEventsCSV(f)
	if err != nil {
		return EventTable{}, err
	}
	s.logStats(EventsTable, s.EventsPath, stats)
	return table, nil
}

func (s *CSVSource) LoadDevices(ctx context.Context) (DeviceTable, error) {
	f, err := os.Open(s.DevicesPath)
	if err != nil {
		return DeviceTable{}, fmt.Errorf("failed to open devices file: %w", err)
	}
	defer f.Close()

	table, stats, err := ReadDevicesCSV(f)
	if err != nil {
		return DeviceTable{}, err
	}
	s.logStats(DevicesTable, s.DevicesPath, stats)
	return table, nil
}

func (s *CSVSource) logStats(table, path string, stats LoadStats) {
	if s.Logger == nil {
		return
	}
	if stats.Skipped > 0 {
		s.Logger.Warn("Skipped malformed rows",
			slog.String("table", table),
			slog.String("path", path),
			slog.Int("skipped", stats.Skipped))
	}
	s.Logger.Info("Loaded records",
		slog.String("table", table),
		slog.String("path", path),
		slog.Int("rows", stats.Rows))
}

// SQLiteSource reads events and devices from the record tables.
type SQLiteSource struct {
	DB *gorm.DB
}

func (s *SQLiteSource) LoadEvents(ctx context.Context) (EventTable, error) {
	db := s.DB.WithContext(ctx)
	columns, err := tableColumns(db, &EventRecord{})
	if err != nil {
		return EventTable{}, err
	}
	if err := RequireColumns(EventsTable, columns, RequiredEventColumns...); err != nil {
		return EventTable{}, err
	}

	var rows []EventRecord
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return EventTable{}, fmt.Errorf("error fetching events: %w", err)
	}

	table := EventTable{Columns: columns, Rows: make([]Event, 0, len(rows))}
	for _, r := range rows {
		table.Rows = append(table.Rows, r.ToEvent())
	}
	return table, nil
}

func (s *SQLiteSource) LoadDevices(ctx context.Context) (DeviceTable, error) {
	db := s.DB.WithContext(ctx)
	columns, err := tableColumns(db, &DeviceRecord{})
	if err != nil {
		return DeviceTable{}, err
	}
	if err := RequireColumns(DevicesTable, columns, RequiredDeviceColumns...); err != nil {
		return DeviceTable{}, err
	}

	var rows []DeviceRecord
	if err := db.Order("device_id").Find(&rows).Error; err != nil {
		return DeviceTable{}, fmt.Errorf("error fetching devices: %w", err)
	}

	table := DeviceTable{Columns: columns, Rows: make([]Device, 0, len(rows))}
	for _, r := range rows {
		table.Rows = append(table.Rows, r.ToDevice())
	}
	return table, nil
}

func tableColumns(db *gorm.DB, model any) ([]string, error) {
	types, err := db.Migrator().ColumnTypes(model)
	if err != nil {
		return nil, fmt.Errorf("error reading table columns: %w", err)
	}
	columns := make([]string, 0, len(types))
	for _, ct := range types {
		columns = append(columns, NormalizeColumn(ct.Name()))
	}
	return columns, nil
}

// Load reads both tables from src concurrently.
func Load(ctx context.Context, src Source) (EventTable, DeviceTable, error) {
	results := async.NewPool(2).Execute(ctx, []async.Task{
		{
			Name: EventsTable,
			Execute: func(ctx context.Context) (any, error) {
				return src.LoadEvents(ctx)
			},
		},
		{
			Name: DevicesTable,
			Execute: func(ctx context.Context) (any, error) {
				return src.LoadDevices(ctx)
			},
		},
	})

	eventsResult := results[EventsTable]
	if eventsResult.Err != nil {
		return EventTable{}, DeviceTable{}, fmt.Errorf("failed to load events: %w", eventsResult.Err)
	}
	devicesResult := results[DevicesTable]
	if devicesResult.Err != nil {
		return EventTable{}, DeviceTable{}, fmt.Errorf("failed to load devices: %w", devicesResult.Err)
	}

	return eventsResult.Data.(EventTable), devicesResult.Data.(DeviceTable), nil
}
