// internal/app/system/limits/limits.go
package limits

// Request and workload size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody is the maximum size of a JSON request body.
	MaxJSONBody = 1 << 20 // 1 MB

	// InsightFeedback is how many recent feedback entries feed one analysis.
	InsightFeedback = 50
)
