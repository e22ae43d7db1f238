package domain

import (
	"fmt"
	"math"
)

// AgeBucket identifies one of the five open-ticket age ranges.
type AgeBucket string

const (
	AgeBucketUnder24h AgeBucket = "lt_24h"
	AgeBucket24to48h  AgeBucket = "24_48h"
	AgeBucket48to72h  AgeBucket = "48_72h"
	AgeBucket72to96h  AgeBucket = "72_96h"
	AgeBucketOver96h  AgeBucket = "gt_96h"
)

// AgeBucketRange is a half-open interval [Lower, Upper) in hours. Upper is
// +Inf for the last bucket; the first bucket also absorbs negative ages
// caused by clock skew between the export and this service.
type AgeBucketRange struct {
	Bucket AgeBucket
	Lower  float64
	Upper  float64
}

// AgeBuckets lists the canonical ranges in ascending order. Every component
// that buckets by age uses this table.
var AgeBuckets = []AgeBucketRange{
	{Bucket: AgeBucketUnder24h, Lower: 0, Upper: 24},
	{Bucket: AgeBucket24to48h, Lower: 24, Upper: 48},
	{Bucket: AgeBucket48to72h, Lower: 48, Upper: 72},
	{Bucket: AgeBucket72to96h, Lower: 72, Upper: 96},
	{Bucket: AgeBucketOver96h, Lower: 96, Upper: math.Inf(1)},
}

// ParseAgeBucket validates a bucket identifier.
func ParseAgeBucket(raw string) (AgeBucket, bool) {
	for _, r := range AgeBuckets {
		if string(r.Bucket) == raw {
			return r.Bucket, true
		}
	}
	return "", false
}

// Range returns the interval of the bucket.
func (b AgeBucket) Range() (AgeBucketRange, bool) {
	for _, r := range AgeBuckets {
		if r.Bucket == b {
			return r, true
		}
	}
	return AgeBucketRange{}, false
}

// BucketForAge classifies an age in hours.
func BucketForAge(hours float64) AgeBucket {
	for _, r := range AgeBuckets {
		if hours < r.Upper {
			return r.Bucket
		}
	}
	return AgeBucketOver96h
}

// Contains reports whether hours falls in the bucket.
func (r AgeBucketRange) Contains(hours float64) bool {
	return BucketForAge(hours) == r.Bucket
}

// AgeHistogram counts tickets per age bucket.
type AgeHistogram struct {
	Under24h int `json:"lt_24h"`
	H24to48  int `json:"24_48h"`
	H48to72  int `json:"48_72h"`
	H72to96  int `json:"72_96h"`
	Over96h  int `json:"gt_96h"`
}

// Add records one ticket of the given age.
func (h *AgeHistogram) Add(hours float64) {
	h.AddBucket(BucketForAge(hours), 1)
}

// AddBucket adds n tickets to a bucket.
func (h *AgeHistogram) AddBucket(b AgeBucket, n int) {
	switch b {
	case AgeBucketUnder24h:
		h.Under24h += n
	case AgeBucket24to48h:
		h.H24to48 += n
	case AgeBucket48to72h:
		h.H48to72 += n
	case AgeBucket72to96h:
		h.H72to96 += n
	case AgeBucketOver96h:
		h.Over96h += n
	}
}

// Count returns the count of one bucket.
func (h AgeHistogram) Count(b AgeBucket) int {
	switch b {
	case AgeBucketUnder24h:
		return h.Under24h
	case AgeBucket24to48h:
		return h.H24to48
	case AgeBucket48to72h:
		return h.H48to72
	case AgeBucket72to96h:
		return h.H72to96
	case AgeBucketOver96h:
		return h.Over96h
	}
	return 0
}

// Total sums all buckets.
func (h AgeHistogram) Total() int {
	return h.Under24h + h.H24to48 + h.H48to72 + h.H72to96 + h.Over96h
}

// FormatAge renders an age in hours the way the export does, e.g. "3d 4h 5m".
func FormatAge(hours float64) string {
	if hours < 0 {
		hours = 0
	}
	totalMinutes := int(math.Floor(hours * 60))
	days := totalMinutes / (24 * 60)
	h := (totalMinutes / 60) % 24
	m := totalMinutes % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, h, m)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
