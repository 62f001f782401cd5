package discord

import (
	"testing"

	"ctawatch/internal/feed"
)

func displayAlert() feed.Alert {
	return feed.Alert{
		ID:          "137",
		Title:       "Red Line Delays",
		Description: "Trains are operating with residual delays",
		Color:       "ff0000",
		URL:         "https://example.org/alert/137",
		Start:       "5/1/24, 10:00 AM",
		End:         "5/3/24, 10:00 PM",
	}
}

func TestNewAlertShape(t *testing.T) {
	a := displayAlert()
	e := NewAlert(a)

	if e.Color != 0xff0000 {
		t.Fatalf("color = %d, want %d", e.Color, 0xff0000)
	}
	if e.Title != a.Description {
		t.Fatalf("title = %q, want the description", e.Title)
	}
	if e.Author.Name != a.Title {
		t.Fatalf("author = %q, want the headline", e.Author.Name)
	}
	if e.URL != a.URL {
		t.Fatalf("url = %q", e.URL)
	}
	if len(e.Fields) != 2 {
		t.Fatalf("expected start+end fields, got %d", len(e.Fields))
	}
	if e.Fields[0].Name != "Start time" || e.Fields[0].Value != a.Start || !e.Fields[0].Inline {
		t.Fatalf("unexpected start field: %+v", e.Fields[0])
	}
	if e.Fields[1].Name != "End time" || e.Fields[1].Value != a.End {
		t.Fatalf("unexpected end field: %+v", e.Fields[1])
	}
}

func TestNewAlertDefaultsAbsentTimesToTBD(t *testing.T) {
	a := displayAlert()
	a.Start = ""
	a.End = ""
	e := NewAlert(a)
	if e.Fields[0].Value != "TBD" || e.Fields[1].Value != "TBD" {
		t.Fatalf("absent times must render TBD, got %q / %q", e.Fields[0].Value, e.Fields[1].Value)
	}
}

func TestChangedAlertMarksAuthor(t *testing.T) {
	a := displayAlert()
	e := ChangedAlert(a)
	if e.Author.Name != "Updated: "+a.Title {
		t.Fatalf("author = %q", e.Author.Name)
	}
	if e.Title != a.Description || len(e.Fields) != 2 {
		t.Fatalf("changed embed must keep the new-alert shape")
	}
}

func TestStartedAlertFieldsOnlyWithEnd(t *testing.T) {
	a := displayAlert()
	e := StartedAlert(a)
	if e.Title != "Starting now: "+a.Description {
		t.Fatalf("title = %q", e.Title)
	}
	if len(e.Fields) != 1 || e.Fields[0].Name != "End time" {
		t.Fatalf("expected a single end field, got %+v", e.Fields)
	}

	a.End = ""
	e = StartedAlert(a)
	if e.Fields != nil {
		t.Fatalf("no end time means no fields, got %+v", e.Fields)
	}
}

func TestEndedAlertShape(t *testing.T) {
	a := displayAlert()
	e := EndedAlert(a)
	if e.Title != "Ended: "+a.Description {
		t.Fatalf("title = %q", e.Title)
	}
	if e.Author.Name != a.Title+" - Ended" {
		t.Fatalf("author = %q", e.Author.Name)
	}
	if e.Fields != nil {
		t.Fatalf("ended embed carries no fields")
	}
}

func TestParseColor(t *testing.T) {
	if c, err := ParseColor("ff0000"); err != nil || c != 16711680 {
		t.Fatalf("ParseColor(ff0000) = %d, %v", c, err)
	}
	if _, err := ParseColor("not-a-color"); err == nil {
		t.Fatalf("expected error for malformed hex")
	}
}

func TestMalformedColorDegradesToZero(t *testing.T) {
	a := displayAlert()
	a.Color = "zz"
	if e := NewAlert(a); e.Color != 0 {
		t.Fatalf("malformed color must degrade to 0, got %d", e.Color)
	}
}
