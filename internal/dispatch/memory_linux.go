//go:build linux

package dispatch

import "golang.org/x/sys/unix"

// residentSetMiB reports the peak resident set size of this process.
// Linux fills Maxrss in kibibytes.
func residentSetMiB() (int64, bool) {
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err != nil {
		return 0, false
	}
	return usage.Maxrss / 1024, true
}
