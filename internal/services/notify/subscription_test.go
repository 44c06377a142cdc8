package notifysvc

import (
	"testing"

	logpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/log"
)

func testLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))
}

func newTestSub(ch Channel, replaying bool) *Subscription {
	req := SubscribeRequest{Stream: "test"}
	if replaying {
		req.StartMs = 1
	}
	return newSubscription("test", "client-1", nil, req, newCountingChannel(ch), testLogger())
}

func TestStreamingDeliversImmediately(t *testing.T) {
	ch := newRecordingChannel()
	sub := newTestSub(ch, false)

	sub.deliver(Event{Name: "a"})
	sub.deliver(Event{Name: "b"})

	got := ch.names()
	want := []string{"a", "b"}
	if !equalStrings(got, want) {
		t.Fatalf("delivered %v, want %v", got, want)
	}
	if n := sub.SentCount(); n != 2 {
		t.Fatalf("sent count = %d, want 2", n)
	}
}

func TestReplayOrdering(t *testing.T) {
	ch := newRecordingChannel()
	sub := newTestSub(ch, true)

	// Live events arriving mid-replay queue behind the replay tail.
	sub.deliver(Event{Name: "e3"})
	sub.deliver(Event{Name: "e4"})
	if got := ch.names(); len(got) != 0 {
		t.Fatalf("queued events leaked to channel: %v", got)
	}

	// The replay job's writes, then handover.
	if err := sub.ch.SendEvent(Event{Name: "e1"}); err != nil {
		t.Fatal(err)
	}
	if err := sub.ch.SendEvent(Event{Name: "e2"}); err != nil {
		t.Fatal(err)
	}
	if err := sub.ch.SendReplayComplete(); err != nil {
		t.Fatal(err)
	}
	sub.replayFinished()

	got := ch.names()
	want := []string{"e1", "e2", "<replayComplete>", "e3", "e4"}
	if !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if st := sub.State(); st != SubStateStreaming {
		t.Fatalf("state = %v, want STREAMING", st)
	}
}

func TestCompletionQueuedBehindReplay(t *testing.T) {
	ch := newRecordingChannel()
	sub := newTestSub(ch, true)

	sub.deliver(Event{Name: "e1"})
	sub.sendCompletion()
	sub.replayFinished()

	got := ch.names()
	want := []string{"e1", "<notificationComplete>"}
	if !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestCompletionSentImmediatelyWhenStreaming(t *testing.T) {
	ch := newRecordingChannel()
	sub := newTestSub(ch, false)

	sub.sendCompletion()

	got := ch.kinds()
	if !equalStrings(got, []string{"notificationComplete"}) {
		t.Fatalf("kinds = %v", got)
	}
}

func TestCloseDropsDeliveriesAndPending(t *testing.T) {
	ch := newRecordingChannel()
	sub := newTestSub(ch, true)

	sub.deliver(Event{Name: "queued"})
	sub.close()
	sub.close() // idempotent
	sub.deliver(Event{Name: "late"})
	sub.sendCompletion()
	sub.replayFinished()

	if got := ch.names(); len(got) != 0 {
		t.Fatalf("closed subscription wrote %v", got)
	}
	if st := sub.State(); st != SubStateClosed {
		t.Fatalf("state = %v, want CLOSED", st)
	}
}

func TestSendFailureMakesSubscriptionInert(t *testing.T) {
	ch := newRecordingChannel()
	sub := newTestSub(ch, false)

	ch.setFail(true)
	sub.deliver(Event{Name: "a"})

	if st := sub.State(); st != SubStateClosed {
		t.Fatalf("state after failed send = %v, want CLOSED", st)
	}

	// Later deliveries are dropped, not retried against the dead channel.
	ch.setFail(false)
	sub.deliver(Event{Name: "b"})
	if got := ch.names(); len(got) != 0 {
		t.Fatalf("inert subscription wrote %v", got)
	}
	if n := sub.SentCount(); n != 0 {
		t.Fatalf("sent count = %d, want 0", n)
	}
}

func TestSendFailureMidDrainStopsFlush(t *testing.T) {
	ch := newRecordingChannel()
	sub := newTestSub(ch, true)

	sub.deliver(Event{Name: "e1"})
	sub.deliver(Event{Name: "e2"})

	ch.setFail(true)
	sub.replayFinished()

	if got := ch.names(); len(got) != 0 {
		t.Fatalf("failed drain wrote %v", got)
	}
	if st := sub.State(); st != SubStateClosed {
		t.Fatalf("state = %v, want CLOSED", st)
	}
}

func TestReplayFinishedIgnoredAfterClose(t *testing.T) {
	ch := newRecordingChannel()
	sub := newTestSub(ch, true)

	sub.close()
	sub.replayFinished()

	if st := sub.State(); st != SubStateClosed {
		t.Fatalf("state = %v, want CLOSED", st)
	}
}

func TestCountingChannelCountsMarkers(t *testing.T) {
	ch := newRecordingChannel()
	cc := newCountingChannel(ch)

	if err := cc.SendEvent(Event{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := cc.SendReplayComplete(); err != nil {
		t.Fatal(err)
	}
	if err := cc.SendNotificationComplete(); err != nil {
		t.Fatal(err)
	}
	if n := cc.Count(); n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	ch.setFail(true)
	if err := cc.SendEvent(Event{Name: "b"}); err == nil {
		t.Fatal("expected error")
	}
	if n := cc.Count(); n != 3 {
		t.Fatalf("failed send counted: %d", n)
	}
}
