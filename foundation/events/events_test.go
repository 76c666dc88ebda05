package events_test

import (
	"testing"

	"github.com/veralabs/ledger/foundation/events"
)

func Test_SendReceive(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	ch := evts.Acquire("observer-1")

	evts.Sendf("%s: blk[%d]", events.BlockAppended, 7)

	select {
	case msg := <-ch:
		exp := "ledger: block appended: blk[7]"
		if msg != exp {
			t.Logf("got: %s", msg)
			t.Logf("exp: %s", exp)
			t.Fatalf("Should receive the formatted event.")
		}
	default:
		t.Fatalf("Should have an event waiting in the channel.")
	}
}

func Test_NonBlockingSend(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	evts.Acquire("slow-observer")

	// Flood well past the channel buffer. Send must drop rather than
	// block when nobody is draining.
	for i := 0; i < 500; i++ {
		evts.Send("event")
	}
}

func Test_AcquireRelease(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	ch1 := evts.Acquire("observer")
	ch2 := evts.Acquire("observer")
	if ch1 != ch2 {
		t.Fatalf("Should hand the same channel back for the same id.")
	}

	if err := evts.Release("observer"); err != nil {
		t.Fatalf("Should be able to release a registered id: %s", err)
	}

	if _, open := <-ch1; open {
		t.Fatalf("Should close the channel on release.")
	}

	if err := evts.Release("observer"); err == nil {
		t.Fatalf("Should refuse to release an unknown id.")
	}
}
