// Package metrics provides the Prometheus collectors of the part detection
// service.
package metrics

// Namespace prefixes every metric name.
const Namespace = "partdetect"

// Histogram bucket parameters.
const (
	BucketStart1ms = 0.001
	BucketFactor2  = 2
	BucketCount12  = 12
	BucketCount10  = 10
)
