package flow

// AccountID is a human readable account name. Accounts are ordered
// lexicographically for shard assignment.
type AccountID string
