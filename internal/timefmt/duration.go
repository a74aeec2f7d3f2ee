package timefmt

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"k8s.io/utils/clock"
)

// Now is the end-of-interval sentinel meaning "the clock's current time".
const Now = "now"

const day = 24 * time.Hour

// Between returns the elapsed time from start to end.
// end may be Now, which resolves through clk. ok is false when either
// bound is absent or malformed.
func Between(start, end string, clk clock.PassiveClock) (d time.Duration, ok bool) {
	from, err := Parse(start)
	if err != nil {
		return 0, false
	}

	var to time.Time
	if strings.EqualFold(strings.TrimSpace(end), Now) {
		to = clk.Now().UTC()
	} else {
		to, err = Parse(end)
		if err != nil {
			return 0, false
		}
	}
	return to.Sub(from), true
}

// HumanizeDuration renders d as "1d 2h 3m 4s", omitting zero units.
// Sub-second remainders are dropped; negative durations keep their sign.
func HumanizeDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Truncate(time.Second)
	if d == 0 {
		return "0s"
	}

	units := []struct {
		size   time.Duration
		suffix string
	}{
		{day, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}

	parts := make([]string, 0, len(units))
	for _, u := range units {
		n := d / u.size
		if n == 0 {
			continue
		}
		d -= n * u.size
		parts = append(parts, strconv.FormatInt(int64(n), 10)+u.suffix)
	}
	return sign + strings.Join(parts, " ")
}

// SizeFromMiB renders a MiB figure as an IEC size string ("1.5 GiB").
// Absent or negative input yields "".
func SizeFromMiB(mib *float64) string {
	if mib == nil || *mib < 0 {
		return ""
	}
	return humanize.IBytes(uint64(*mib * 1024 * 1024))
}
