package vl53l1x

import "time"

// SetTimeout sets the timeout for blocking polls (boot completion, data
// ready). Zero means block indefinitely. New sessions default to 500ms.
func (v *VL53L1X) SetTimeout(timeout time.Duration) {
	v.ioTimeout = timeout
}

// TimeoutOccurred reports whether a blocking poll has timed out since the
// last call. This is a side-effecting read: the sticky flag is cleared on
// the way out.
func (v *VL53L1X) TimeoutOccurred() bool {
	tmp := v.didTimeout
	v.didTimeout = false
	return tmp
}

// startTimeout starts the timeout counter
func (v *VL53L1X) startTimeout() {
	v.timeoutStart = time.Now()
}

// checkTimeoutExpired checks if the timeout has expired
func (v *VL53L1X) checkTimeoutExpired() bool {
	return (v.ioTimeout > 0) && (time.Since(v.timeoutStart) > v.ioTimeout)
}
