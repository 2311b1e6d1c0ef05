package helper

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"timedock.com/timedock/utils"
)

type Record struct {
	ID          int
	EmployeeRef string
	Timestamp   time.Time
	Date        string
	Location    string
}

// Session is one employee-day bracket: earliest punch to latest punch.
type Session struct {
	EmployeeRef string
	Date        string
	From        time.Time
	To          time.Time
	Records     []Record
}

// ParseClockCSV reads punch rows (ID, EmployeeRef, Timestamp, Location).
// Timestamps are ISO 8601; offset shifts them into the site's local zone so
// the day grouping matches the roster, not UTC.
func ParseClockCSV(r io.Reader, offset int) ([]Record, error) {
	rows, err := utils.ParseCSV(r)
	if err != nil {
		return nil, err
	}

	loc := time.FixedZone("OFFSET", offset)

	var records []Record
	for i, row := range rows {
		if i == 0 {
			continue
		}

		if len(row) < 4 {
			return nil, fmt.Errorf("row %d: expected 4 columns, got %d", i, len(row))
		}

		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid ID: %w", i, err)
		}

		timestamp, err := utils.ParseISOTime(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid timestamp: %w", i, err)
		}
		local := timestamp.In(loc)

		records = append(records, Record{
			ID:          id,
			EmployeeRef: row[1],
			Timestamp:   local,
			Date:        local.Format("2006-01-02"),
			Location:    row[3],
		})
	}

	return records, nil
}

// GroupSessions collapses punches into one session per employee per day.
func GroupSessions(records []Record) []Session {
	grouped := utils.GroupBy(records, func(r Record) string {
		return r.EmployeeRef + "|" + r.Date
	})

	var sessions []Session
	for _, rs := range grouped {
		session := Session{
			EmployeeRef: rs[0].EmployeeRef,
			Date:        rs[0].Date,
			From:        rs[0].Timestamp,
			To:          rs[0].Timestamp,
			Records:     rs,
		}
		for _, r := range rs[1:] {
			if r.Timestamp.Before(session.From) {
				session.From = r.Timestamp
			}
			if r.Timestamp.After(session.To) {
				session.To = r.Timestamp
			}
		}
		sessions = append(sessions, session)
	}

	return sessions
}
