package records

import "time"

// EventRecord is the SQLite row behind an Event
type EventRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	DeviceID  string    `gorm:"index;not null"`
	EventTime time.Time `gorm:"index;type:datetime;not null"`
	Referrer  *string
	CreatedAt time.Time
}

func (EventRecord) TableName() string {
	return EventsTable
}

// DeviceRecord is the SQLite row behind a Device
type DeviceRecord struct {
	DeviceID    string `gorm:"primaryKey"`
	OSType      *string
	BrowserType *string
	CreatedAt   time.Time
}

func (DeviceRecord) TableName() string {
	return DevicesTable
}

// ToEvent converts the row into an Event
func (r EventRecord) ToEvent() Event {
	return Event{
		DeviceID:  r.DeviceID,
		EventTime: r.EventTime.UTC(),
		Referrer:  r.Referrer,
	}
}

// ToDevice converts the row into a Device
func (r DeviceRecord) ToDevice() Device {
	d := Device{DeviceID: r.DeviceID}
	if r.OSType != nil {
		d.OSType = *r.OSType
	}
	if r.BrowserType != nil {
		d.BrowserType = *r.BrowserType
	}
	return d
}

// NewEventRecord builds the row for an Event
func NewEventRecord(e Event) EventRecord {
	return EventRecord{
		DeviceID:  e.DeviceID,
		EventTime: e.EventTime.UTC(),
		Referrer:  e.Referrer,
	}
}

// NewDeviceRecord builds the row for a Device. Missing values become NULL.
func NewDeviceRecord(d Device) DeviceRecord {
	r := DeviceRecord{DeviceID: d.DeviceID}
	if d.OSType != "" {
		r.OSType = StringPtr(d.OSType)
	}
	if d.BrowserType != "" {
		r.BrowserType = StringPtr(d.BrowserType)
	}
	return r
}
