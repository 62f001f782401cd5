package feed

import (
	"strings"
	"time"
	// Feed timestamps carry no zone; pin America/Chicago even on
	// tzdata-less hosts (scratch containers).
	_ "time/tzdata"
)

// Feed timestamps are local CTA times without a zone designator, e.g.
// "2023-06-08T15:04:00" or a bare date "2023-06-08".
var feedLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var chicago = mustLoadChicago()

func mustLoadChicago() *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		// tzdata is linked in above; this cannot happen.
		panic(err)
	}
	return loc
}

func parseFeedTime(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if !strings.Contains(s, "T") {
		s += "T00:00:00"
	}
	for _, layout := range feedLayouts {
		if t, err := time.ParseInLocation(layout, s, chicago); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EpochSeconds converts a raw feed timestamp to epoch seconds.
// Absent or unparseable input reports ok=false.
func EpochSeconds(raw string) (int64, bool) {
	t, ok := parseFeedTime(raw)
	if !ok {
		return 0, false
	}
	return t.Unix(), true
}

// DisplayTime renders a raw feed timestamp for notifications in the
// short en-US form the webhook consumers expect, e.g. "6/8/23, 3:04 PM".
// Absent or unparseable input yields "".
func DisplayTime(raw string) string {
	t, ok := parseFeedTime(raw)
	if !ok {
		return ""
	}
	return t.Format("1/2/06, 3:04 PM")
}
