package helper

import (
	"strings"
	"testing"
)

func TestParseClockCSV(t *testing.T) {
	csvData := `ID,EmployeeRef,Timestamp,Location
1,55,2025-03-10T09:00:00+00:00,Office
2,99,2025-03-10T10:00:00+00:00,Remote
`
	records, err := ParseClockCSV(strings.NewReader(csvData), 10*60*60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].ID != 1 || records[0].EmployeeRef != "55" || records[0].Location != "Office" || records[0].Date != "2025-03-10" {
		t.Errorf("unexpected first record: %+v", records[0])
	}

	if records[1].ID != 2 || records[1].EmployeeRef != "99" || records[1].Location != "Remote" || records[1].Date != "2025-03-10" {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestParseClockCSVAppliesOffset(t *testing.T) {
	// 23:00 UTC lands on the next local day at UTC+10
	csvData := `ID,EmployeeRef,Timestamp,Location
1,55,2025-03-10T23:00:00+00:00,Office
`
	records, err := ParseClockCSV(strings.NewReader(csvData), 10*60*60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records[0].Date != "2025-03-11" {
		t.Errorf("expected local date 2025-03-11, got %s", records[0].Date)
	}
}

func TestGroupSessions(t *testing.T) {
	csvData := `ID,EmployeeRef,Timestamp,Location
1,55,2025-03-10T09:00:00+00:00,Office
2,55,2025-03-10T12:30:00+00:00,Office
3,55,2025-03-10T17:15:00+00:00,Office
4,99,2025-03-10T08:00:00+00:00,Remote
`
	records, err := ParseClockCSV(strings.NewReader(csvData), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sessions := GroupSessions(records)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	for _, s := range sessions {
		switch s.EmployeeRef {
		case "55":
			if len(s.Records) != 3 {
				t.Errorf("expected 3 punches for 55, got %d", len(s.Records))
			}
			if got := s.To.Sub(s.From).String(); got != "8h15m0s" {
				t.Errorf("expected 8h15m bracket for 55, got %s", got)
			}
		case "99":
			if len(s.Records) != 1 {
				t.Errorf("expected 1 punch for 99, got %d", len(s.Records))
			}
			if !s.From.Equal(s.To) {
				t.Errorf("single punch session should have From == To")
			}
		default:
			t.Errorf("unexpected session for %s", s.EmployeeRef)
		}
	}
}
