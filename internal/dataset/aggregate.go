package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// FrequencyEntry is one key of a frequency table.
type FrequencyEntry struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// FrequencyTable groups keys, counts them and attaches the percentage of the
// total, rounded to 2 decimals. Results are sorted by descending count; ties
// keep first-encountered order. The max(total,1) divisor guards the empty
// input.
func FrequencyTable(keys []string) []FrequencyEntry {
	counts := make(map[string]int, len(keys))
	var order []string
	for _, k := range keys {
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	total := len(keys)
	divisor := total
	if divisor < 1 {
		divisor = 1
	}

	entries := make([]FrequencyEntry, 0, len(order))
	for _, k := range order {
		entries = append(entries, FrequencyEntry{
			Key:     k,
			Count:   counts[k],
			Percent: round2(float64(counts[k]) / float64(divisor) * 100),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	return entries
}

// TopN returns at most n leading entries of a frequency table.
func TopN(entries []FrequencyEntry, n int) []FrequencyEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[:n]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AgeBucket is one band of the age distribution.
type AgeBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"` // -1 means unbounded
	Count int    `json:"count"`
}

// ageBands partitions every non-negative age: 0-18, 19-30, 31-50, 51-70, 71+.
func ageBands() []AgeBucket {
	return []AgeBucket{
		{Label: "0-18", Min: 0, Max: 18},
		{Label: "19-30", Min: 19, Max: 30},
		{Label: "31-50", Min: 31, Max: 50},
		{Label: "51-70", Min: 51, Max: 70},
		{Label: "71+", Min: 71, Max: -1},
	}
}

// AgeYears computes age in whole years at the reference time.
func AgeYears(birth, at time.Time) int {
	years := at.Year() - birth.Year()
	anniversary := birth.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}

// AgeDistribution buckets birth dates into the fixed age bands. Every
// subject lands in exactly one bucket, so bucket counts always sum to the
// population size.
func AgeDistribution(births []time.Time, at time.Time) []AgeBucket {
	buckets := ageBands()
	for _, b := range births {
		age := AgeYears(b, at)
		for i := range buckets {
			if age >= buckets[i].Min && (buckets[i].Max < 0 || age <= buckets[i].Max) {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

// HumanizeBytes renders a byte count with the largest fitting unit, rounded
// to 2 decimals. Units stop at GB.
func HumanizeBytes(n int64) string {
	units := []string{"B", "KB", "MB", "GB"}
	value := float64(n)
	idx := 0
	for value > 1024 && idx < len(units)-1 {
		value /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%d %s", n, units[0])
	}
	return fmt.Sprintf("%.2f %s", value, units[idx])
}
