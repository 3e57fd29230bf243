//go:build !linux

package dispatch

// residentSetMiB is unavailable off Linux; the status report degrades to
// "unknown".
func residentSetMiB() (int64, bool) {
	return 0, false
}
