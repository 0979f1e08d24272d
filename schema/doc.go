// Package schema maps (eventType, version) pairs to payload decoders so a
// consumer can validate event data before any handler runs.
//
// Payload types register a decoder once at startup. An envelope whose
// (eventType, version) pair has no registered decoder, or whose data fails the
// payload's own validation, is a permanent error: the consumer acknowledges
// and drops the message rather than retrying it.
package schema
