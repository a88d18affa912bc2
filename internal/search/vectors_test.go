package search

import "testing"

func TestFloat32BytesRoundTrip(t *testing.T) {
	orig := []float32{1.5, -2.25, 0, 3.75}
	b := Float32ToBytes(orig)
	got := BytesToFloat32(b)
	if len(got) != len(orig) {
		t.Fatalf("round trip length = %d, want %d", len(got), len(orig))
	}
	for i := range orig {
		if got[i] != orig[i] {
			t.Fatalf("round trip[%d] = %f, want %f", i, got[i], orig[i])
		}
	}
}

func TestBytesToFloat32InvalidLength(t *testing.T) {
	if got := BytesToFloat32([]byte{1, 2, 3}); got != nil {
		t.Fatalf("BytesToFloat32(invalid length) = %v, want nil", got)
	}
}
