package staking

import "errors"

var (
	errNilState     = errors.New("staking engine: state not configured")
	errNilOracle    = errors.New("staking engine: score oracle not configured")
	errNilCustodian = errors.New("staking engine: custodian not configured")

	// ErrAlreadyInitialized is returned when Initialize is called on a pool
	// that already carries a configuration.
	ErrAlreadyInitialized = errors.New("staking: pool already initialized")
	// ErrNotInitialized is returned when an operation runs before Initialize.
	ErrNotInitialized = errors.New("staking: pool not initialized")
	// ErrUnauthorized is returned when a non-administrator invokes an
	// admin-only operation.
	ErrUnauthorized = errors.New("staking: caller is not the pool administrator")
	// ErrAssetAlreadyStaked is returned when a deposit targets an asset that
	// is already in pool custody.
	ErrAssetAlreadyStaked = errors.New("staking: asset already staked")
	// ErrNotAssetOwner is returned when a withdrawal is attempted by an
	// identity that did not stake the asset.
	ErrNotAssetOwner = errors.New("staking: caller does not own staked asset")
	// ErrClaimsDisabled is returned when a claim runs while the administrator
	// has claims switched off.
	ErrClaimsDisabled = errors.New("staking: claims are disabled")
	// ErrZeroEmissionRate is returned when the emission rate is set to zero.
	ErrZeroEmissionRate = errors.New("staking: emission rate must be positive")
	// ErrNegativeScore is returned when the oracle reports a negative weight.
	ErrNegativeScore = errors.New("staking: oracle score cannot be negative")
	// ErrReentrantCall is returned when a custody hook re-enters a mutating
	// operation while another operation on the same pool is in flight.
	ErrReentrantCall = errors.New("staking: reentrant call rejected")
	// ErrUnexpectedAsset is returned when the receipt hook fires for an asset
	// the pool is not currently accepting.
	ErrUnexpectedAsset = errors.New("staking: unexpected asset receipt")
)
