package metrics

import (
	"relicpool/core/events"
)

// EventEmitter is an events.Emitter that records pool activity in the staking
// metrics registry before forwarding to the wrapped emitter. Wiring it between
// the engine and any downstream sink keeps the engines free of metrics
// plumbing.
type EventEmitter struct {
	next    events.Emitter
	metrics *StakingMetrics
}

// NewEventEmitter wraps the given emitter. A nil next discards events after
// counting them.
func NewEventEmitter(next events.Emitter) *EventEmitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &EventEmitter{next: next, metrics: Staking()}
}

// Emit implements the events.Emitter interface.
func (e *EventEmitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	switch typed := evt.(type) {
	case events.Staked:
		e.metrics.Deposit(formatPool(typed.Pool))
	case events.Unstaked:
		e.metrics.Withdrawal(formatPool(typed.Pool))
	case events.EmergencyUnstake:
		e.metrics.EmergencyExit(formatPool(typed.Pool))
	case events.RewardPaid:
		e.metrics.RewardPaid(formatPool(typed.Pool))
	case events.ClaimableStatusUpdated:
		e.metrics.ClaimToggle(formatPool(typed.Pool))
	case events.PoolCreated:
		e.metrics.PoolCreated()
	}
	e.next.Emit(evt)
}
