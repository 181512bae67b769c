package model

import (
	"testing"
	"time"
)

func fullResponse(slots int) OptimizeResponse {
	return OptimizeResponse{
		ACCharge:         make([]float64, slots),
		DCCharge:         make([]float64, slots),
		DischargeAllowed: make([]bool, slots),
		WarmStart:        []float64{0.1, 0.2},
	}
}

func TestRequestSlots(t *testing.T) {
	if got := (OptimizeRequest{SlotDuration: time.Hour}).Slots(); got != 48 {
		t.Fatalf("hourly slots = %d, want 48", got)
	}
	if got := (OptimizeRequest{SlotDuration: 15 * time.Minute}).Slots(); got != 192 {
		t.Fatalf("quarter-hour slots = %d, want 192", got)
	}
	if got := (OptimizeRequest{}).Slots(); got != 0 {
		t.Fatalf("zero duration slots = %d", got)
	}
}

func TestResponseValidate(t *testing.T) {
	if err := fullResponse(48).Validate(48); err != nil {
		t.Fatalf("valid response rejected: %v", err)
	}

	r := fullResponse(48)
	r.DCCharge = nil
	if err := r.Validate(48); err == nil {
		t.Fatalf("missing array accepted")
	}

	r = fullResponse(48)
	r.DischargeAllowed = make([]bool, 47)
	if err := r.Validate(48); err == nil {
		t.Fatalf("length mismatch accepted")
	}

	if err := fullResponse(12).Validate(48); err == nil {
		t.Fatalf("short horizon accepted")
	}

	r = fullResponse(48)
	r.WarmStart = []float64{0.1}
	if err := r.Validate(48); err == nil {
		t.Fatalf("single-entry warm start accepted")
	}
}

func TestResponseEmpty(t *testing.T) {
	if !(OptimizeResponse{}).Empty() {
		t.Fatalf("zero response not empty")
	}
	if fullResponse(4).Empty() {
		t.Fatalf("populated response empty")
	}
}

func TestSlotHelpers(t *testing.T) {
	at := time.Date(2026, 3, 10, 10, 20, 0, 0, time.Local)

	if got := SlotIndex(at, time.Hour); got != 10 {
		t.Fatalf("hourly index = %d, want 10", got)
	}
	if got := SlotIndex(at, 15*time.Minute); got != 41 {
		t.Fatalf("quarter index = %d, want 41", got)
	}
	if got := SlotStart(at, time.Hour); !got.Equal(time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)) {
		t.Fatalf("slot start = %s", got)
	}
	if got := SecondsRemaining(at, time.Hour); got != 2400 {
		t.Fatalf("seconds remaining = %v, want 2400", got)
	}
	if got := SecondsRemaining(at, 15*time.Minute); got != 600 {
		t.Fatalf("seconds remaining = %v, want 600", got)
	}
}
