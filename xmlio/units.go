package xmlio

import "fmt"

// NormalizeTimeNS converts a value carrying a time unit attribute (ns, us,
// ms, s) into nanoseconds.
func NormalizeTimeNS(value float64, unit string) (int64, error) {
	switch unit {
	case "ns":
		return int64(value), nil
	case "us":
		return int64(value * 1_000), nil
	case "ms":
		return int64(value * 1_000_000), nil
	case "s":
		return int64(value * 1_000_000_000), nil
	default:
		return 0, fmt.Errorf("%w: unknown time unit %q", ErrBadConfig, unit)
	}
}

// NormalizeSpeedMBps converts a value carrying a speed unit attribute
// (KB/s, MB/s, GB/s) into MB/s.
func NormalizeSpeedMBps(value float64, unit string) (int, error) {
	switch unit {
	case "KB/s":
		return int(value / 1_000), nil
	case "MB/s":
		return int(value), nil
	case "GB/s":
		return int(value * 1_000), nil
	default:
		return 0, fmt.Errorf("%w: unknown speed unit %q", ErrBadConfig, unit)
	}
}
