package feed

import (
	"testing"
	"time"
)

func chicagoUnix(t *testing.T, year int, month time.Month, day, hour, min int) int64 {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(year, month, day, hour, min, 0, 0, loc).Unix()
}

func TestEpochSecondsDateTime(t *testing.T) {
	got, ok := EpochSeconds("2023-06-08T15:04:00")
	if !ok {
		t.Fatalf("expected ok")
	}
	if want := chicagoUnix(t, 2023, time.June, 8, 15, 4); got != want {
		t.Fatalf("epoch = %d, want %d", got, want)
	}
}

func TestEpochSecondsDateOnlyIsMidnight(t *testing.T) {
	got, ok := EpochSeconds("2023-06-08")
	if !ok {
		t.Fatalf("expected ok")
	}
	if want := chicagoUnix(t, 2023, time.June, 8, 0, 0); got != want {
		t.Fatalf("epoch = %d, want %d", got, want)
	}
}

func TestEpochSecondsMinutePrecision(t *testing.T) {
	got, ok := EpochSeconds("2023-06-08T15:04")
	if !ok {
		t.Fatalf("expected ok for minute-precision timestamp")
	}
	if want := chicagoUnix(t, 2023, time.June, 8, 15, 4); got != want {
		t.Fatalf("epoch = %d, want %d", got, want)
	}
}

func TestEpochSecondsAbsent(t *testing.T) {
	if _, ok := EpochSeconds(""); ok {
		t.Fatalf("empty input must report absent")
	}
	if _, ok := EpochSeconds("garbage"); ok {
		t.Fatalf("unparseable input must report absent")
	}
}

func TestDisplayTime(t *testing.T) {
	if got := DisplayTime("2023-06-08T15:04:00"); got != "6/8/23, 3:04 PM" {
		t.Fatalf("DisplayTime = %q", got)
	}
	if got := DisplayTime("2023-06-08"); got != "6/8/23, 12:00 AM" {
		t.Fatalf("date-only DisplayTime = %q", got)
	}
	if got := DisplayTime(""); got != "" {
		t.Fatalf("absent input must render empty, got %q", got)
	}
}
