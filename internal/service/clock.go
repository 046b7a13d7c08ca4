package service

import "time"

// Clock supplies the current time. Services take the system clock by
// default; tests swap in a fixed one to pin expiry windows.
type Clock func() time.Time

// SystemClock is the wall clock.
var SystemClock Clock = time.Now
