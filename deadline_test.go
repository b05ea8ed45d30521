package waiton

import (
	"testing"
	"time"
)

func TestRunDeadlineFires(t *testing.T) {
	d := newRunDeadline(10 * time.Millisecond)
	defer d.stop()

	select {
	case <-d.fired():
	case <-time.After(time.Second):
		t.Fatal("deadline never fired")
	}
}

func TestRunDeadlineZeroNeverFires(t *testing.T) {
	d := newRunDeadline(0)
	defer d.stop()

	select {
	case <-d.fired():
		t.Fatal("zero-duration deadline should never fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunDeadlineStopIsIdempotent(t *testing.T) {
	d := newRunDeadline(time.Second)
	d.stop()
	d.stop()
}
