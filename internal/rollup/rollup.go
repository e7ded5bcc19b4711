// Package rollup resolves time-bucket granularities and generates the
// bucket-start series a query is aggregated over.
package rollup

import "time"

// supported rollups, finest first, with the number of buckets each is
// sized for. Resolution picks the finest rollup whose span covers the
// requested window.
var supported = []struct {
	seconds int64
	samples int64
}{
	{10, 360},
	{60, 60},
	{3600, 24},
	{86400, 30},
}

// Optimal returns the finest supported rollup able to cover the window
// with its sample budget, falling back to the coarsest.
func Optimal(start, end time.Time) int64 {
	window := end.Unix() - start.Unix()
	for _, r := range supported {
		if r.seconds*r.samples >= window {
			return r.seconds
		}
	}
	return supported[len(supported)-1].seconds
}

// Resolve picks the effective rollup (the requested one when given,
// otherwise the optimal for the window) and returns it together with
// the bucket-start series covering [start, end).
func Resolve(start, end time.Time, requested int64) (int64, []int64) {
	r := requested
	if r <= 0 {
		r = Optimal(start, end)
	}
	return r, Series(start, end, r)
}

// Series returns the ordered bucket-start timestamps covering
// [start, end) at the given rollup. The series always has at least one
// bucket; an end on or before start degenerates to the single bucket
// containing start.
func Series(start, end time.Time, rollup int64) []int64 {
	first := normalize(start.Unix(), rollup)
	last := first
	if endTs := end.Unix() - 1; endTs > start.Unix() {
		if n := normalize(endTs, rollup); n > last {
			last = n
		}
	}

	series := make([]int64, 0, (last-first)/rollup+1)
	for ts := first; ts <= last; ts += rollup {
		series = append(series, ts)
	}
	return series
}

// AddJitter shifts every bucket boundary by a seed-derived offset in
// [0, rollup), so callers asking for the same logical window hit
// different cache lines. When the shifted first bucket would start
// after the requested start, the whole series is pulled back one
// rollup instead, keeping the window covered. A zero seed disables
// jitter. The bucket count never changes.
func AddJitter(series []int64, start time.Time, rollup int64, seed int64) []int64 {
	if seed == 0 || len(series) == 0 {
		return series
	}

	jitter := seed % rollup
	if jitter < 0 {
		jitter += rollup
	}
	if start.Unix()-series[0] < jitter {
		jitter -= rollup
	}

	shifted := make([]int64, len(series))
	for i, ts := range series {
		shifted[i] = ts + jitter
	}
	return shifted
}

func normalize(ts, rollup int64) int64 {
	return ts - ts%rollup
}
