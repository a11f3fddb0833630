// Package component defines lifecycle-managed infrastructure: the HTTP
// server, the Kafka worker and the recognition model all implement
// Component and are started and stopped by a Registry.
//
// Lazy provides the initialize-once guard used for expensive resources such
// as the model. Concurrent callers block until the first initialization
// finishes; a failed initialization is retried by the next caller.
package component
