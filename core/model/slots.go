package model

import "time"

// Midnight returns local midnight of t's day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SlotIndex returns the index of the slot containing t, counted from local
// midnight of t's day.
func SlotIndex(t time.Time, slot time.Duration) int {
	if slot <= 0 {
		return 0
	}
	return int(t.Sub(Midnight(t)) / slot)
}

// SlotStart returns the start of the slot containing t.
func SlotStart(t time.Time, slot time.Duration) time.Time {
	return Midnight(t).Add(time.Duration(SlotIndex(t, slot)) * slot)
}

// SecondsRemaining returns the seconds left in the slot containing t.
func SecondsRemaining(t time.Time, slot time.Duration) float64 {
	return SlotStart(t, slot).Add(slot).Sub(t).Seconds()
}
