package pool

import "testing"

func TestGetFloat32SliceZeroed(t *testing.T) {
	s := GetFloat32Slice(16)
	if len(s) != 16 {
		t.Fatalf("len = %d, want 16", len(s))
	}
	for i := range s {
		s[i] = float32(i)
	}
	PutFloat32Slice(s)

	// A pooled slice must come back zeroed, not with stale data.
	s2 := GetFloat32Slice(16)
	for i, v := range s2 {
		if v != 0 {
			t.Fatalf("s2[%d] = %v, want 0 (stale pooled data)", i, v)
		}
	}
	PutFloat32Slice(s2)
}

func TestGetFloat32SliceGrows(t *testing.T) {
	s := GetFloat32Slice(100000)
	if len(s) != 100000 {
		t.Fatalf("len = %d, want 100000", len(s))
	}
	PutFloat32Slice(s)
}

func TestByteBufferRoundTrip(t *testing.T) {
	buf := GetByteBuffer()
	if len(buf) != 0 {
		t.Fatalf("fresh buffer len = %d, want 0", len(buf))
	}
	buf = append(buf, 1, 2, 3)
	PutByteBuffer(buf)

	buf2 := GetByteBuffer()
	if len(buf2) != 0 {
		t.Fatalf("reused buffer len = %d, want 0", len(buf2))
	}
	PutByteBuffer(buf2)
}

func TestDisabledPooling(t *testing.T) {
	old := globalConfig
	defer Configure(old)

	Configure(Config{Enabled: false})
	if IsEnabled() {
		t.Fatal("pooling should be disabled")
	}

	s := GetFloat32Slice(8)
	if len(s) != 8 {
		t.Fatalf("len = %d, want 8", len(s))
	}
	PutFloat32Slice(s) // no-op
}
