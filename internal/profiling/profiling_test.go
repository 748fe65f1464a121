package profiling

import (
	"testing"
	"time"
)

func TestRecorderTopN(t *testing.T) {
	r := NewRecorder()
	r.Add("a", 3*time.Millisecond)
	r.Add("b", 1*time.Millisecond)
	r.Add("a", 1*time.Millisecond)
	r.Add("c", 2*time.Millisecond)

	if got, want := r.TopN(2), "a:4.0ms, c:2.0ms"; got != want {
		t.Fatalf("TopN(2) = %q, want %q", got, want)
	}
	if got := r.Count("a"); got != 2 {
		t.Fatalf("Count(a) = %d, want 2", got)
	}
	if got := r.TopN(10); got != "a:4.0ms, c:2.0ms, b:1.0ms" {
		t.Fatalf("TopN(10) = %q", got)
	}

	r.Reset()
	if len(r.Snapshot()) != 0 {
		t.Fatalf("snapshot should be empty after reset")
	}
}

func TestTrackRecordsOnPackageFrame(t *testing.T) {
	ResetFrame()
	stop := Track("test.Track")
	stop()
	if _, ok := Snapshot()["test.Track"]; !ok {
		t.Fatalf("Track did not record into the frame recorder")
	}
	ResetFrame()
}
