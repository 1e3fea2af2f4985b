package types

// Event is the wire form of a pool notification: a dotted type name (for
// example "staking.rewardPaid") plus flat string attributes, so it serializes
// the same way for the gateway feed and for log sinks.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
