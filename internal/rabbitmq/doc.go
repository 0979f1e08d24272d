// Package rabbitmq owns the process-wide AMQP connection and channel.
//
// The ChannelManager lazily dials the broker on first use and caches a single
// confirm-capable channel. When the connection or channel closes, all cached
// state is discarded so the next call transparently reconnects; there is no
// background reconnection loop. Producers pick up a fresh channel through
// their own publish-retry policy, and the consumer loop runs an explicit
// reconnect cycle.
package rabbitmq
