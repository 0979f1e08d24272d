// Package reliability provides the retry and backoff primitives used by the
// publisher and the consumer loop. Policies compute jittered exponential
// delays; Retry drives a function through a policy with context-aware sleeps.
package reliability
