// Package webhooks holds the delivery-resolution utilities composed by the
// core orchestrator: the bounded retry scheduler that re-probes an event's
// pending delivery count, the outcome deduplicator that decides whether a
// resolution may trigger side effects, and the failure notification
// template.
package webhooks
