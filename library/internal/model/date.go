package model

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Date is a calendar day without a time component, serialized as
// "2006-01-02" in JSON and stored as a DATE column.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	y, m, d := time.Now().UTC().Date()
	return NewDate(y, m, d)
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return errors.Wrap(err, "parse date")
	}
	d.Time = t
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		y, m, day := v.Date()
		d.Time = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return errors.Wrap(err, "scan date")
		}
		d.Time = t
		return nil
	case nil:
		return nil
	default:
		return errors.Errorf("scan date: unsupported type %T", src)
	}
}

// NullDate is a nullable Date; Valid is false when the column is NULL.
type NullDate struct {
	Date
	Valid bool
}

func NewNullDate(d Date) NullDate {
	return NullDate{Date: d, Valid: true}
}

func (d NullDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return d.Date.MarshalJSON()
}

func (d *NullDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		d.Valid = false
		return nil
	}
	if err := d.Date.UnmarshalJSON(data); err != nil {
		return err
	}
	d.Valid = true
	return nil
}

func (d NullDate) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Date.Value()
}

func (d *NullDate) Scan(src any) error {
	if src == nil {
		d.Valid = false
		return nil
	}
	if err := d.Date.Scan(src); err != nil {
		return err
	}
	d.Valid = true
	return nil
}
