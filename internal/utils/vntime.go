package utils

import "time"

// VNZone is Asia/Ho_Chi_Minh. Vietnam has no DST, so a fixed zone avoids
// depending on tzdata being installed on the scanner host.
var VNZone = time.FixedZone("ICT", 7*60*60)

const vnTimestampLayout = "2006-01-02T15:04:05.000-07:00"

// VNTimestamp formats t as "2025-11-19T14:30:00.000+07:00"
func VNTimestamp(t time.Time) string {
	return t.In(VNZone).Format(vnTimestampLayout)
}

// VNDate formats t as "2025-11-19" in Vietnam time
func VNDate(t time.Time) string {
	return t.In(VNZone).Format("2006-01-02")
}

// ParseVNTimestamp reads a timestamp written by VNTimestamp
func ParseVNTimestamp(s string) (time.Time, error) {
	return time.Parse(vnTimestampLayout, s)
}
