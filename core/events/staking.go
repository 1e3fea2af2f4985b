package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"relicpool/core/types"
)

const (
	// TypeStaked is emitted when an asset enters pool custody.
	TypeStaked = "staking.staked"
	// TypeUnstaked is emitted when an asset leaves pool custody through the
	// ordinary settlement path.
	TypeUnstaked = "staking.unstaked"
	// TypeEmergencyUnstake is emitted when an asset is pulled out through the
	// reward-forfeiting escape hatch.
	TypeEmergencyUnstake = "staking.emergencyUnstake"
	// TypeRewardPaid captures the actual amount transferred during a claim,
	// which may be below the earned amount when the vault is under-funded.
	TypeRewardPaid = "staking.rewardPaid"
	// TypeClaimableStatusUpdated signals the administrator toggled claims.
	TypeClaimableStatusUpdated = "staking.claimableStatusUpdated"
	// TypeRewardsTokenUpdated signals the administrator rotated the reward token.
	TypeRewardsTokenUpdated = "staking.rewardsTokenUpdated"
	// TypePoolCreated is emitted by the factory for each provisioned pool.
	TypePoolCreated = "staking.poolCreated"
)

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Staked captures a successful deposit.
type Staked struct {
	Pool      [20]byte
	Depositor [20]byte
	AssetID   uint64
	Weight    *big.Int
}

// EventType satisfies the Event interface.
func (Staked) EventType() string { return TypeStaked }

// Event converts the structured payload into a broadcastable event.
func (e Staked) Event() *types.Event {
	return &types.Event{
		Type: TypeStaked,
		Attributes: map[string]string{
			"pool":      formatAddress(e.Pool),
			"depositor": formatAddress(e.Depositor),
			"assetId":   strconv.FormatUint(e.AssetID, 10),
			"weight":    formatAmount(e.Weight),
		},
	}
}

// Unstaked captures an ordinary withdrawal.
type Unstaked struct {
	Pool      [20]byte
	Depositor [20]byte
	AssetID   uint64
	Weight    *big.Int
}

func (Unstaked) EventType() string { return TypeUnstaked }

// Event converts the structured payload into a broadcastable event.
func (e Unstaked) Event() *types.Event {
	return &types.Event{
		Type: TypeUnstaked,
		Attributes: map[string]string{
			"pool":      formatAddress(e.Pool),
			"depositor": formatAddress(e.Depositor),
			"assetId":   strconv.FormatUint(e.AssetID, 10),
			"weight":    formatAmount(e.Weight),
		},
	}
}

// EmergencyUnstake captures a reward-forfeiting exit.
type EmergencyUnstake struct {
	Pool      [20]byte
	Depositor [20]byte
	AssetID   uint64
	Weight    *big.Int
}

func (EmergencyUnstake) EventType() string { return TypeEmergencyUnstake }

// Event converts the structured payload into a broadcastable event.
func (e EmergencyUnstake) Event() *types.Event {
	return &types.Event{
		Type: TypeEmergencyUnstake,
		Attributes: map[string]string{
			"pool":      formatAddress(e.Pool),
			"depositor": formatAddress(e.Depositor),
			"assetId":   strconv.FormatUint(e.AssetID, 10),
			"weight":    formatAmount(e.Weight),
		},
	}
}

// RewardPaid captures a claim payout.
type RewardPaid struct {
	Pool      [20]byte
	Depositor [20]byte
	Paid      *big.Int
	Earned    *big.Int
}

func (RewardPaid) EventType() string { return TypeRewardPaid }

// Event converts the structured payload into a broadcastable event.
func (e RewardPaid) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardPaid,
		Attributes: map[string]string{
			"pool":      formatAddress(e.Pool),
			"depositor": formatAddress(e.Depositor),
			"paid":      formatAmount(e.Paid),
			"earned":    formatAmount(e.Earned),
		},
	}
}

// ClaimableStatusUpdated records the administrator toggling claims.
type ClaimableStatusUpdated struct {
	Pool    [20]byte
	Enabled bool
}

func (ClaimableStatusUpdated) EventType() string { return TypeClaimableStatusUpdated }

// Event converts the structured payload into a broadcastable event.
func (e ClaimableStatusUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeClaimableStatusUpdated,
		Attributes: map[string]string{
			"pool":    formatAddress(e.Pool),
			"enabled": strconv.FormatBool(e.Enabled),
		},
	}
}

// RewardsTokenUpdated records a reward-token rotation.
type RewardsTokenUpdated struct {
	Pool     [20]byte
	Previous [20]byte
	Current  [20]byte
}

func (RewardsTokenUpdated) EventType() string { return TypeRewardsTokenUpdated }

// Event converts the structured payload into a broadcastable event.
func (e RewardsTokenUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardsTokenUpdated,
		Attributes: map[string]string{
			"pool":     formatAddress(e.Pool),
			"previous": formatAddress(e.Previous),
			"current":  formatAddress(e.Current),
		},
	}
}

// PoolCreated records a factory deployment.
type PoolCreated struct {
	Pool         [20]byte
	Deployer     [20]byte
	RewardToken  [20]byte
	Collection   [20]byte
	EmissionRate *big.Int
}

func (PoolCreated) EventType() string { return TypePoolCreated }

// Event converts the structured payload into a broadcastable event.
func (e PoolCreated) Event() *types.Event {
	return &types.Event{
		Type: TypePoolCreated,
		Attributes: map[string]string{
			"pool":         formatAddress(e.Pool),
			"deployer":     formatAddress(e.Deployer),
			"rewardToken":  formatAddress(e.RewardToken),
			"collection":   formatAddress(e.Collection),
			"emissionRate": formatAmount(e.EmissionRate),
		},
	}
}
