// Package exporter drains outcomes from the Agent's result channel and
// writes them to the remote store in batches.
package exporter

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nightwatch/monitor/pkg/agent"
	"github.com/nightwatch/monitor/pkg/killswitch"
	"github.com/nightwatch/monitor/pkg/monitorerr"
	"github.com/nightwatch/monitor/pkg/probe"
	"github.com/nightwatch/monitor/pkg/store"
)

// MaxReconnectionAttempts bounds how many consecutive connection-class
// failures the Exporter tolerates before giving up and engaging the
// Killswitch.
const MaxReconnectionAttempts = 15

// Exporter owns the export loop: drain, write, reconnect-or-fatal, sleep,
// repeat until the Killswitch is engaged and the pipeline is drained.
type Exporter struct {
	store      store.Adapter
	results    agent.ResultChannel
	killswitch *killswitch.Killswitch

	batchSize int
	interval  time.Duration

	reconnectAttempts int
	backoff           backoff.BackOff
}

// New builds an Exporter. batchSize and interval are assumed already
// validated against [config.MinBatchSize, config.MaxBatchSize] and
// [config.MinExportIntervalSeconds, config.MaxExportIntervalSeconds].
func New(adapter store.Adapter, results agent.ResultChannel, ks *killswitch.Killswitch, batchSize int, interval time.Duration) *Exporter {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0 // the attempt counter, not elapsed time, bounds retries

	return &Exporter{
		store:      adapter,
		results:    results,
		killswitch: ks,
		batchSize:  batchSize,
		interval:   interval,
		backoff:    bo,
	}
}

// Run executes the export loop described by the state machine: connect,
// drain-write-sleep, reconnect on connection-class error, fatal on any
// other error, drain on shutdown, disconnect on return.
func (e *Exporter) Run(ctx context.Context) {
	if err := e.store.Connect(ctx); err != nil {
		log.Printf("ERROR | exporter | initial connect failed: %v", err)
		e.killswitch.Engage()
		return
	}
	defer func() {
		if err := e.store.Disconnect(); err != nil {
			log.Printf("WARNING | exporter | disconnect failed: %v", err)
		}
	}()

	var buffer []probe.Outcome

	for {
		if len(buffer) == 0 {
			buffer = e.drain()
		}

		if len(buffer) > 0 {
			if err := e.store.Create(ctx, buffer); err != nil {
				if monitorerr.IsConnError(err) {
					e.reconnectAttempts++
					if e.reconnectAttempts > MaxReconnectionAttempts {
						log.Printf("ERROR | exporter | %v", monitorerr.ErrReconnectAttemptsExceeded)
						e.killswitch.Engage()
						return
					}
					log.Printf("WARNING | exporter | connection error, attempt %d/%d: %v", e.reconnectAttempts, MaxReconnectionAttempts, err)
					e.sleep(e.backoff.NextBackOff())
					if rerr := e.store.Reconnect(ctx); rerr != nil {
						log.Printf("WARNING | exporter | reconnect failed: %v", rerr)
					}
					continue
				}

				log.Printf("ERROR | exporter | fatal write error: %v", err)
				e.killswitch.Engage()
				return
			}

			log.Printf("INFO | exporter | wrote %d outcomes", len(buffer))
			buffer = nil
			e.reconnectAttempts = 0
			e.backoff.Reset()
		}

		if e.terminal(buffer) {
			return
		}

		if !e.killswitch.Engaged() {
			e.sleep(e.interval)
		}
	}
}

// terminal reports whether the Exporter may stop: Killswitch engaged, the
// result channel empty, and the carry-over buffer empty.
func (e *Exporter) terminal(buffer []probe.Outcome) bool {
	return e.killswitch.Engaged() && len(e.results) == 0 && len(buffer) == 0
}

// drain takes up to batchSize outcomes immediately available on the
// result channel, without waiting. It may return an empty, non-nil slice.
func (e *Exporter) drain() []probe.Outcome {
	batch := make([]probe.Outcome, 0, e.batchSize)
	for len(batch) < e.batchSize {
		select {
		case outcome := <-e.results:
			batch = append(batch, outcome)
		default:
			return batch
		}
	}
	return batch
}

// sleep suspends for d, cancellable by the Killswitch, and reports whether
// it completed without cancellation.
func (e *Exporter) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-e.killswitch.Done():
		return false
	}
}
