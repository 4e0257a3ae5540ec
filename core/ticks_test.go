package core

import "testing"

func TestTickSpaceArithmetic(t *testing.T) {
	s := NewTickSpace(100)

	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"add", s.Add(10, 20), 30},
		{"add wraps", s.Add(95, 10), 5},
		{"sub", s.Sub(30, 20), 10},
		{"sub wraps", s.Sub(5, 10), 95},
		{"sub more than range", s.Sub(5, 210), 95},
		{"distance", s.Distance(10, 30), 20},
		{"distance wraps", s.Distance(95, 5), 10},
		{"distance zero", s.Distance(42, 42), 0},
		{"horizon", s.Horizon(), 50},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestTickSpaceOrdering(t *testing.T) {
	s := NewTickSpace(100)

	if !s.Reached(5, 95) {
		t.Error("5 should have reached 95 across the wrap")
	}
	if s.Reached(95, 5) {
		t.Error("95 should not have reached 5")
	}
	if !s.Reached(40, 40) {
		t.Error("A tick has reached itself")
	}
	if !s.Before(95, 5) || s.Before(5, 95) {
		t.Error("Before is wrong across the wrap")
	}
	if s.Before(7, 7) {
		t.Error("A tick is not before itself")
	}
	if s.Before(0, 50) {
		t.Error("A distance of half the range is not ahead")
	}
	if !s.Valid(99) || s.Valid(100) {
		t.Error("Valid is wrong at the range end")
	}
}

func TestTickSpaceHardwareRange(t *testing.T) {
	s := NewTickSpace(RTCMaxCount)

	if s.Horizon() != 0x54600000 {
		t.Errorf("Horizon = %#x", s.Horizon())
	}
	if got := s.Add(RTCMaxCount-1, 1); got != 0 {
		t.Errorf("Counter after Max-1 = %d, want 0", got)
	}
	if got := s.Distance(RTCMaxCount-10, 10); got != 20 {
		t.Errorf("Distance across wrap = %d, want 20", got)
	}
	// Near the top of uint32: no overflow in the intermediate sums
	if got := s.Add(RTCMaxCount-1, RTCMaxCount-1); got != RTCMaxCount-2 {
		t.Errorf("Add = %#x, want %#x", got, uint32(RTCMaxCount-2))
	}
}

func TestTickSpaceRejectsTinyRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for a range of 1")
		}
	}()
	NewTickSpace(1)
}
