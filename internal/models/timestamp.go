package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Aroma identifies one of the scents the dispenser can release.
type Aroma string

const (
	AromaA Aroma = "A"
	AromaB Aroma = "B"
	AromaC Aroma = "C"
	AromaD Aroma = "D"
)

// Aromas lists every valid aroma code in display order.
var Aromas = []Aroma{AromaA, AromaB, AromaC, AromaD}

// Valid reports whether a is a known aroma code.
func (a Aroma) Valid() bool {
	for _, known := range Aromas {
		if a == known {
			return true
		}
	}
	return false
}

// Moment is a time of day, stored as the offset from midnight.
type Moment time.Duration

const day = Moment(24 * time.Hour)

// ParseMoment accepts "HH:MM" or "HH:MM:SS".
func ParseMoment(s string) (Moment, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return momentOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// NewMoment builds a Moment from its clock components.
func NewMoment(hour, minute, second int) Moment {
	return Moment(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

func momentOf(t time.Time) Moment {
	return NewMoment(t.Hour(), t.Minute(), t.Second())
}

func (m Moment) String() string {
	d := time.Duration(m)
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

func (m Moment) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Moment) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseMoment(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer for TIME columns.
func (m Moment) Value() (driver.Value, error) {
	if m < 0 || m >= day {
		return nil, fmt.Errorf("time of day out of range: %d", m)
	}
	return m.String(), nil
}

// Scan implements sql.Scanner for TIME columns.
func (m *Moment) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*m = momentOf(v)
		return nil
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Moment", src)
	}
}

func (m *Moment) scanString(s string) error {
	// Postgres may append fractional seconds.
	if len(s) > 8 {
		s = s[:8]
	}
	parsed, err := ParseMoment(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// TimeStamp marks the moment in a video when an aroma should be released.
type TimeStamp struct {
	ID        int64     `json:"id"`
	VideoID   int64     `json:"video"`
	Aroma     Aroma     `json:"aroma"`
	Moment    Moment    `json:"moment"`
	CreatedAt time.Time `json:"created_at"`
}
