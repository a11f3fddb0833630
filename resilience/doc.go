// Package resilience provides the bulkhead that bounds concurrent model
// inference. With MaxConcurrent 1 it serializes calls into the engine.
package resilience
