// Package bus carries drey envelopes between nodes over Redis Pub/Sub.
//
// # Overview
//
// Every node publishes to and subscribes on one shared channel. Redis Pub/Sub
// fans each message out to every subscriber, which gives the flat
// publish/subscribe fabric drey assumes: every node sees every event,
// including its own.
//
// # Delivery
//
// A Consume call owns one Redis subscription and fans the received messages out
// to a fixed number of worker sessions, so envelopes are handled in parallel.
// Redis Pub/Sub has no acknowledgments. A handler error is treated as a negative
// acknowledgment: the raw message and the error are pushed onto a capped
// dead-letter list next to the channel, for operators to inspect.
//
// # Redis Schema
//
// Events channel: {channel} (default drey:cluster:events)
// Dead letters:   {channel}:rejected (LIST, newest first, capped)
package bus
