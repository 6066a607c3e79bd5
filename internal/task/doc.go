// Package task runs generation work off the interactive path. The runner
// deliberately uses a single consumer: at most one outbound generation call
// is in flight at any time, which respects a shared provider rate limit
// without an explicit token bucket.
package task
