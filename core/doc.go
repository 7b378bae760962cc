// Package core contains the webhook delivery reconciliation engine: the
// domain model, the store and provider contracts, and the orchestrating
// Service that resolves a tenant for an inbound relay notification, probes
// the provider until the delivery settles or the retry budget runs out,
// deduplicates the outcome, appends the audit record, and applies usage and
// alerting side effects for novel outcomes only.
package core
