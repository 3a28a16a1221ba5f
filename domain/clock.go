package domain

import (
	"sync/atomic"
	"time"
)

var lastTimestamp int64

// NextTimestamp returns the current time in milliseconds, strictly increasing
// across calls so lastUpdated values never tie even within one millisecond.
func NextTimestamp() int64 {
	for {
		now := time.Now().UnixMilli()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}
