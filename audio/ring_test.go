package audio

import "testing"

func TestRingRecentBeforeFill(t *testing.T) {
	r := NewRing(16)
	r.Write([]float32{1, 2, 3})

	dst := make([]float32, 4)
	if r.Recent(dst) {
		t.Error("Recent should report false with only 3 of 4 samples written")
	}

	r.Write([]float32{4})
	if !r.Recent(dst) {
		t.Fatal("Recent should succeed after 4 samples")
	}
	for i, want := range []float32{1, 2, 3, 4} {
		if dst[i] != want {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
}

func TestRingWrapAround(t *testing.T) {
	r := NewRing(4)
	r.Write([]float32{1, 2, 3, 4, 5, 6})

	dst := make([]float32, 4)
	if !r.Recent(dst) {
		t.Fatal("Recent failed after wrap")
	}
	for i, want := range []float32{3, 4, 5, 6} {
		if dst[i] != want {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
}

func TestRingWindowLargerThanCapacity(t *testing.T) {
	r := NewRing(4)
	r.Write(make([]float32, 100))

	dst := make([]float32, 8)
	if r.Recent(dst) {
		t.Error("Recent should report false when window exceeds capacity")
	}
}

func TestRingPosition(t *testing.T) {
	r := NewRing(4)
	if r.Position() != 0 {
		t.Errorf("fresh ring position = %d, want 0", r.Position())
	}
	r.Write(make([]float32, 10))
	if r.Position() != 10 {
		t.Errorf("position = %d, want 10 after wrap", r.Position())
	}
}
