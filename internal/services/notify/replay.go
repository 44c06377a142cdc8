package notifysvc

import (
	"sync"
	"time"

	logpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/log"
)

// replayJob drains one point-in-time snapshot of historical events through a
// subscription's channel, emits the replayComplete marker, then hands the
// subscription over to live streaming. During replay the job is the only
// writer to the channel: live events queue inside the subscription until
// replayFinished flushes them.
type replayJob struct {
	sub    *Subscription
	ch     Channel
	events []Event
	logger logpkg.Logger

	// onDone, when set, runs after the subscription has left the replaying
	// state. The stop-window-already-elapsed path uses it to end the
	// subscription right after its replay.
	onDone func()
}

func (j *replayJob) run() {
	start := time.Now()
	sent := 0
	clean := true
	send := j.ch.SendEvent
	if w, ok := j.ch.(EventWaiter); ok {
		// Backpressure from a slow subscriber belongs on this worker, not
		// on the subscription.
		send = w.SendEventWait
	}
	for _, ev := range j.events {
		if j.sub.State() == SubStateClosed {
			clean = false
			break
		}
		if err := send(ev); err != nil {
			j.logger.Warn("notify.replay send failed, closing subscription",
				logpkg.Str("stream", j.sub.StreamName()),
				logpkg.Str("client", j.sub.Client()),
				logpkg.Err(err),
			)
			j.sub.close()
			clean = false
			break
		}
		sent++
	}
	// The marker means "the replay window was delivered"; a replay cut
	// short by a closed subscription or a dead channel must not emit it.
	if clean && j.sub.State() != SubStateClosed {
		if err := j.ch.SendReplayComplete(); err != nil {
			j.logger.Warn("notify.replay completion marker failed",
				logpkg.Str("stream", j.sub.StreamName()),
				logpkg.Str("client", j.sub.Client()),
				logpkg.Err(err),
			)
		}
	}
	j.sub.replayFinished()
	if j.onDone != nil {
		j.onDone()
	}
	j.logger.Debug("notify.replay",
		logpkg.Str("stream", j.sub.StreamName()),
		logpkg.Str("client", j.sub.Client()),
		logpkg.Int("snapshot_n", len(j.events)),
		logpkg.Int("sent_n", sent),
		logpkg.Dur("replay_ms", time.Since(start)),
	)
}

// replayPool runs replay jobs on a fixed set of workers, keeping replay
// channel writes (the one place backpressure may block) off the event
// ingestion path.
type replayPool struct {
	jobs      chan *replayJob
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newReplayPool(workers int) *replayPool {
	if workers <= 0 {
		workers = 4
	}
	p := &replayPool{jobs: make(chan *replayJob, workers*16)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				j.run()
			}
		}()
	}
	return p
}

// submit enqueues a job; blocks only when every worker is busy and the
// backlog is full.
func (p *replayPool) submit(j *replayJob) { p.jobs <- j }

// close stops the workers after draining submitted jobs.
func (p *replayPool) close() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
