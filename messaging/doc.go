// Package messaging implements the reliable publish/consume layer on top of
// a topic-exchange broker.
//
// EventPublisher serializes an envelope and publishes it with delivery
// confirmation, retrying transient failures with exponential backoff.
//
// ConsumerLoop drives the consuming side as a small state machine
// (connecting, bound, consuming, channel-closed, shutting-down): it acquires
// a channel, declares topology, dispatches validated envelopes to registered
// handlers under a prefetch limit, and applies the retry/dead-letter policy
// on handler failure. Channel loss sends the loop back to connecting, which
// is the self-healing path across broker restarts.
//
// Both sides talk to the broker through narrow transport interfaces so they
// can be exercised with fakes in tests.
package messaging
