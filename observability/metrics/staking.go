package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type StakingMetrics struct {
	deposits          *prometheus.CounterVec
	withdrawals       *prometheus.CounterVec
	emergencyExits    *prometheus.CounterVec
	rewardsPaid       *prometheus.CounterVec
	claimToggles      *prometheus.CounterVec
	poolsCreated      prometheus.Counter
	operationFailures *prometheus.CounterVec
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_deposits_total",
				Help: "Count of assets deposited into custody by pool.",
			}, []string{"pool"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_withdrawals_total",
				Help: "Count of assets withdrawn through the settlement path by pool.",
			}, []string{"pool"}),
			emergencyExits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_emergency_exits_total",
				Help: "Count of assets withdrawn through the emergency path by pool.",
			}, []string{"pool"}),
			rewardsPaid: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_rewards_paid_total",
				Help: "Count of reward payouts by pool.",
			}, []string{"pool"}),
			claimToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_claim_toggles_total",
				Help: "Count of claimable status changes by pool.",
			}, []string{"pool"}),
			poolsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "staking_pools_created_total",
				Help: "Count of pools provisioned by the factory.",
			}),
			operationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_operation_failures_total",
				Help: "Count of failed staking operations by kind.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			stakingRegistry.deposits,
			stakingRegistry.withdrawals,
			stakingRegistry.emergencyExits,
			stakingRegistry.rewardsPaid,
			stakingRegistry.claimToggles,
			stakingRegistry.poolsCreated,
			stakingRegistry.operationFailures,
		)
	})
	return stakingRegistry
}

func (m *StakingMetrics) Deposit(pool string) {
	if m == nil {
		return
	}
	m.deposits.WithLabelValues(pool).Inc()
}

func (m *StakingMetrics) Withdrawal(pool string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(pool).Inc()
}

func (m *StakingMetrics) EmergencyExit(pool string) {
	if m == nil {
		return
	}
	m.emergencyExits.WithLabelValues(pool).Inc()
}

func (m *StakingMetrics) RewardPaid(pool string) {
	if m == nil {
		return
	}
	m.rewardsPaid.WithLabelValues(pool).Inc()
}

func (m *StakingMetrics) ClaimToggle(pool string) {
	if m == nil {
		return
	}
	m.claimToggles.WithLabelValues(pool).Inc()
}

func (m *StakingMetrics) PoolCreated() {
	if m == nil {
		return
	}
	m.poolsCreated.Inc()
}

func (m *StakingMetrics) OperationFailure(operation string) {
	if m == nil {
		return
	}
	m.operationFailures.WithLabelValues(operation).Inc()
}
