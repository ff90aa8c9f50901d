package output

import (
	"time"

	"github.com/dustin/go-humanize"
)

// HumanBytes renders a byte count the way `repos list` reports index
// size and `repos clean` reports reclaimed space (e.g. "4.2 MB"), matching go-humanize's default
// SI-ish rounding rather than hand-rolled division.
func HumanBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}

// HumanTime renders a unix timestamp as a relative duration (e.g. "3
// minutes ago"), used by `status` for the daemon's last activity and by
// `daemon status` for its uptime start.
func HumanTime(unixSeconds int64) string {
	return humanize.Time(time.Unix(unixSeconds, 0))
}
