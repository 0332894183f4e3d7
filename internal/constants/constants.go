package constants

import "time"

// Redis keys
const (
	RedisKeyRecentSwaps  = "swaps:recent"
	RedisKeyPoolPrefix   = "pool:"
	RedisKeyPoolIndex    = "pools:index"
	RedisKeyHaltPrefix   = "halt:"
	RedisKeyHaltIndex    = "halts:index"
	RedisKeyPoolSwapsFmt = "swaps:pool:%s"
)

// Redis Pub/Sub channels
const (
	PubSubChannelAll     = "pool-events:all"
	PubSubChannelPoolFmt = "pool-events:pool:%s"
	PubSubChannelKindFmt = "pool-events:kind:%s"
	PubSubPatternPools   = "pool-events:pool:*"
)

// Limits
const (
	MaxRecentSwaps        = 200
	DefaultRecentSwaps    = 100
	DefaultEventQueue     = 1024
	DefaultPublishTimeout = 3 * time.Second
)

// ClickHouse
const (
	ClickHouseSwapsTable = "amm_swaps"
)
