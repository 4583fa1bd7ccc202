package repository

import (
	"fmt"
	"time"
)

// dbTime scans a DATETIME column regardless of how the driver hands it
// over.  go-sql-driver/mysql returns time.Time when parseTime=true, while
// modernc.org/sqlite returns time.Time or the stored text depending on the
// declared column type.
type dbTime struct {
	t time.Time
}

var dbTimeLayouts = []string{
	dbTimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseDBTime(s string) (time.Time, error) {
	for _, layout := range dbTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.t = v.UTC()
		return nil
	case []byte:
		t, err := parseDBTime(string(v))
		if err != nil {
			return err
		}
		d.t = t
		return nil
	case string:
		t, err := parseDBTime(v)
		if err != nil {
			return err
		}
		d.t = t
		return nil
	case nil:
		return fmt.Errorf("unexpected NULL time")
	}
	return fmt.Errorf("unsupported time type %T", src)
}

// nullDBTime is the nullable variant used for released_at and end_time.
type nullDBTime struct {
	t     time.Time
	valid bool
}

func (n *nullDBTime) Scan(src any) error {
	if src == nil {
		n.t, n.valid = time.Time{}, false
		return nil
	}
	var d dbTime
	if err := d.Scan(src); err != nil {
		return err
	}
	n.t, n.valid = d.t, true
	return nil
}

// ptr returns nil when the column was NULL.
func (n nullDBTime) ptr() *time.Time {
	if !n.valid {
		return nil
	}
	t := n.t
	return &t
}
