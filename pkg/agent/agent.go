// Package agent drives the scheduling loop that turns a Scheduler and a
// Probe Client into a stream of outcomes on a bounded result channel.
package agent

import (
	"context"
	"log"
	"time"

	"github.com/nightwatch/monitor/pkg/config"
	"github.com/nightwatch/monitor/pkg/killswitch"
	"github.com/nightwatch/monitor/pkg/probe"
)

// ResultChannel names the bounded, single-producer/single-consumer FIFO of
// outcomes that connects the Agent to the Exporter. It is never closed
// while the Agent runs; consumers detect shutdown via the Killswitch plus
// an empty channel.
type ResultChannel chan probe.Outcome

// NewResultChannel allocates a ResultChannel sized to hold one outcome per
// descriptor, matching the Result Channel's memory-safety guarantee.
func NewResultChannel(descriptorCount int) ResultChannel {
	return make(ResultChannel, descriptorCount)
}

// Prober is the subset of probe.Client the Agent depends on, so tests can
// substitute a fake without standing up real network calls.
type Prober interface {
	Probe(ctx context.Context, svc *config.ServiceDescriptor) probe.Outcome
}

// Agent owns one logical scheduling loop: pop a due descriptor, sleep out
// its priority, probe it, publish the outcome, push it back.
type Agent struct {
	scheduler  scheduler
	prober     Prober
	results    ResultChannel
	killswitch *killswitch.Killswitch
}

// scheduler is the minimal surface Agent needs from pkg/scheduler.Scheduler,
// declared locally to avoid an import cycle concern and to keep Agent
// testable against a fake.
type scheduler interface {
	Pop() *config.ServiceDescriptor
	Push(svc *config.ServiceDescriptor)
}

// New builds an Agent. sched must satisfy the Pop/Push contract of
// pkg/scheduler.Scheduler (which it does, structurally).
func New(sched scheduler, prober Prober, results ResultChannel, ks *killswitch.Killswitch) *Agent {
	return &Agent{scheduler: sched, prober: prober, results: results, killswitch: ks}
}

// Run executes the scheduling loop until the Killswitch is engaged. It is
// single-threaded and cooperative: one probe is ever in flight at a time.
// Any unexpected error engages the Killswitch and returns.
func (a *Agent) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR | agent | unexpected error: %v", r)
			a.killswitch.Engage()
		}
	}()

	for !a.killswitch.Engaged() {
		svc := a.scheduler.Pop()

		if !a.sleep(svc.PriorityValue(time.Now().UTC())) {
			a.scheduler.Push(svc)
			return
		}

		outcome := a.prober.Probe(ctx, svc)

		if svc.LastCheckedAt != nil {
			elapsed := outcome.RequestTimestamp.Sub(*svc.LastCheckedAt)
			allowed := time.Duration(svc.IntervalSec)*time.Second + 200*time.Millisecond
			if elapsed > allowed {
				log.Printf("WARNING | agent | %q is behind schedule: elapsed=%s interval=%ds", svc.URL, elapsed, svc.IntervalSec)
			}
		}

		responseTimestamp := outcome.ResponseTimestamp
		svc.LastCheckedAt = &responseTimestamp

		if !a.enqueue(outcome) {
			a.scheduler.Push(svc)
			return
		}

		a.scheduler.Push(svc)
	}
}

// sleep suspends for the given number of seconds (wait<=0 returns
// immediately) and reports whether it completed without cancellation.
func (a *Agent) sleep(waitSeconds float64) bool {
	if waitSeconds <= 0 {
		return !a.killswitch.Engaged()
	}
	timer := time.NewTimer(time.Duration(waitSeconds * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-a.killswitch.Done():
		return false
	}
}

// enqueue sends outcome on the result channel, blocking until space is
// available or the Killswitch engages.
func (a *Agent) enqueue(outcome probe.Outcome) bool {
	select {
	case a.results <- outcome:
		return true
	case <-a.killswitch.Done():
		select {
		case a.results <- outcome:
			return true
		default:
			return false
		}
	}
}
