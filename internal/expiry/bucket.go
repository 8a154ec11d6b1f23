package expiry

// Bucket is a named urgency tier for document expiry, tied to a day-count
// threshold. The ordering below is most-urgent first and is load-bearing:
// bucket assignment walks it and takes the first match, and pending alert
// ordering sorts by it.
type Bucket string

const (
	BucketExpired Bucket = "expired"
	Bucket1Day    Bucket = "1_day"
	Bucket7Days   Bucket = "7_days"
	Bucket30Days  Bucket = "30_days"
	Bucket60Days  Bucket = "60_days"
	Bucket90Days  Bucket = "90_days"
)

var bucketThresholds = []struct {
	bucket Bucket
	days   int
}{
	{BucketExpired, 0},
	{Bucket1Day, 1},
	{Bucket7Days, 7},
	{Bucket30Days, 30},
	{Bucket60Days, 60},
	{Bucket90Days, 90},
}

// BucketFor converts days-until-expiry into the most urgent applicable
// bucket. A document more than 90 days out has no bucket.
func BucketFor(daysUntilExpiry int) (Bucket, bool) {
	for _, t := range bucketThresholds {
		if daysUntilExpiry <= t.days {
			return t.bucket, true
		}
	}
	return "", false
}

// Urgency returns the bucket's position in the most-urgent-first ordering.
// Unknown buckets sort last.
func (b Bucket) Urgency() int {
	for i, t := range bucketThresholds {
		if t.bucket == b {
			return i
		}
	}
	return len(bucketThresholds)
}

// Valid reports whether b is one of the known buckets.
func (b Bucket) Valid() bool {
	return b.Urgency() < len(bucketThresholds)
}
