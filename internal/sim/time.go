package sim

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Time is a simulated instant or duration in picoseconds.
type Time int64

// Unit is a simulated time unit.
type Unit string

// Supported time units.
const (
	PS Unit = "ps"
	NS Unit = "ns"
	US Unit = "us"
	MS Unit = "ms"
	S  Unit = "s"
)

var unitScale = map[Unit]Time{
	PS: 1,
	NS: 1_000,
	US: 1_000_000,
	MS: 1_000_000_000,
	S:  1_000_000_000_000,
}

// ParseUnit validates a unit name.
func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if _, ok := unitScale[u]; !ok {
		return "", errors.Errorf("unknown time unit %q", s)
	}
	return u, nil
}

// Scale returns the number of picoseconds in one u.
func (u Unit) Scale() (Time, error) {
	sc, ok := unitScale[u]
	if !ok {
		return 0, errors.Errorf("unknown time unit %q", string(u))
	}
	return sc, nil
}

// Duration converts v units of u to Time.
func Duration(v int64, u Unit) (Time, error) {
	sc, err := u.Scale()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.Errorf("negative duration %d%s", v, u)
	}
	if v > math.MaxInt64/int64(sc) {
		return 0, errors.Errorf("duration %d%s overflows simulated time", v, u)
	}
	return Time(v) * sc, nil
}

// In returns t expressed in unit u.
func (t Time) In(u Unit) float64 {
	sc, ok := unitScale[u]
	if !ok {
		return 0
	}
	return float64(t) / float64(sc)
}

// String formats t using the largest unit that divides it evenly.
func (t Time) String() string {
	for _, u := range []Unit{S, MS, US, NS} {
		sc := unitScale[u]
		if t != 0 && t%sc == 0 {
			return strconv.FormatInt(int64(t/sc), 10) + string(u)
		}
	}
	return strconv.FormatInt(int64(t), 10) + string(PS)
}
