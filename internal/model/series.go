package model

// Point is one time bucket of a counted series.
type Point struct {
	Timestamp int64 `json:"timestamp"`
	Value     int64 `json:"value"`
}

// ScoredItem is one ranked entry of a most-frequent result. Higher
// scores mean more frequent.
type ScoredItem struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

// ScoredBucket is one time bucket of a most-frequent series.
type ScoredBucket struct {
	Timestamp int64              `json:"timestamp"`
	Scores    map[string]float64 `json:"scores"`
}

// CountBucket is one time bucket of a frequency series: counts keyed by
// the secondary dimension.
type CountBucket struct {
	Timestamp int64            `json:"timestamp"`
	Counts    map[string]int64 `json:"counts"`
}
