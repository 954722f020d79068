// Package bus provides the in-process pub/sub channel that decouples tick
// ingestion from consumption. Delivery preserves publish order per key;
// ordering across different keys is unspecified.
package bus

import (
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/williamsryan/OptiTrade/internal/market"
	"github.com/williamsryan/OptiTrade/internal/metrics"
)

// ErrDisconnected is returned once the bus is closed. It is fatal for the
// caller's session; reconnection is the caller's responsibility.
var ErrDisconnected = errors.New("bus: disconnected")

// Mode selects the backpressure policy applied when a subscriber's inbound
// queue is full.
type Mode string

const (
	// ModeBlock blocks the delivering worker until the subscriber drains.
	ModeBlock Mode = "block"
	// ModeDropOldest evicts the oldest queued tick to make room.
	ModeDropOldest Mode = "drop_oldest"
)

// ParseMode maps a config string to a Mode, defaulting to ModeBlock.
func ParseMode(s string) Mode {
	if s == string(ModeDropOldest) {
		return ModeDropOldest
	}
	return ModeBlock
}

// Config sizes the bus.
type Config struct {
	// Shards is the number of delivery workers. Keys are hashed to a shard,
	// so per-key order holds regardless of the worker count.
	Shards int
	// ShardBuffer is the publish queue depth per shard.
	ShardBuffer int
	// SubscriberBuffer is the inbound queue depth per subscription.
	SubscriberBuffer int
	Mode             Mode
}

func (c Config) withDefaults() Config {
	if c.Shards <= 0 {
		c.Shards = 4
	}
	if c.ShardBuffer <= 0 {
		c.ShardBuffer = 256
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = 64
	}
	if c.Mode != ModeDropOldest {
		c.Mode = ModeBlock
	}
	return c
}

type envelope struct {
	topic string
	tick  market.Tick
}

// Subscription is one subscriber's view of a topic. The channel returned by
// C is closed permanently when the bus shuts down; an empty channel means
// "no tick yet", a closed one means the stream is gone.
type Subscription struct {
	ch      chan market.Tick
	dropped atomic.Uint64
}

// C returns the subscriber's tick channel.
func (s *Subscription) C() <-chan market.Tick { return s.ch }

// Dropped reports how many ticks were evicted under ModeDropOldest.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Bus fans published ticks out to topic subscribers through a bounded pool
// of shard workers.
type Bus struct {
	cfg    Config
	shards []chan envelope

	// mu guards the lifecycle: the closed flag and sends into shard
	// channels. subMu guards the topic map. Shard workers only ever take
	// subMu, so a publisher blocked on a full shard while holding mu.RLock
	// can still be drained.
	mu     sync.RWMutex
	closed bool

	subMu  sync.RWMutex
	topics map[string][]*Subscription

	wg sync.WaitGroup
}

// New starts the shard workers and returns a ready bus.
func New(cfg Config) *Bus {
	cfg = cfg.withDefaults()
	b := &Bus{
		cfg:    cfg,
		shards: make([]chan envelope, cfg.Shards),
		topics: make(map[string][]*Subscription),
	}
	for i := range b.shards {
		b.shards[i] = make(chan envelope, cfg.ShardBuffer)
		b.wg.Add(1)
		go b.runShard(b.shards[i])
	}
	return b
}

// Publish enqueues a tick for every subscriber of the topic. Messages sharing
// a key are delivered in publish order. Publish may block when the shard
// queue is full; after Close it fails with ErrDisconnected.
func (b *Bus) Publish(topic, key string, tick market.Tick) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrDisconnected
	}
	b.shards[b.shardFor(key)] <- envelope{topic: topic, tick: tick}
	return nil
}

// Subscribe registers a new subscriber for the topic. Subscriptions created
// after Close receive an already-closed channel.
func (b *Bus) Subscribe(topic string) *Subscription {
	sub := &Subscription{ch: make(chan market.Tick, b.cfg.SubscriberBuffer)}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subMu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.subMu.Unlock()
	return sub
}

// Close stops accepting publishes, drains the shard queues, and closes every
// subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, shard := range b.shards {
		close(shard)
	}
	b.wg.Wait()

	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, subs := range b.topics {
		for _, sub := range subs {
			close(sub.ch)
		}
	}
	b.topics = make(map[string][]*Subscription)
}

func (b *Bus) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(b.shards)))
}

func (b *Bus) runShard(shard <-chan envelope) {
	defer b.wg.Done()
	for env := range shard {
		b.subMu.RLock()
		subs := b.topics[env.topic]
		b.subMu.RUnlock()
		for _, sub := range subs {
			b.deliver(sub, env.tick)
		}
	}
}

func (b *Bus) deliver(sub *Subscription, tick market.Tick) {
	if b.cfg.Mode == ModeBlock {
		sub.ch <- tick
		return
	}
	for {
		select {
		case sub.ch <- tick:
			return
		default:
		}
		select {
		case <-sub.ch:
			sub.dropped.Add(1)
			metrics.BusDroppedTotal.Inc()
		default:
		}
	}
}
