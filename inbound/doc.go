// Package inbound is the HTTP boundary for relay notifications. It decodes
// the provider's notification payload, resolves the optional tenant path
// segment, hands the request to the reconciliation service, and acknowledges
// the caller as soon as the notification is accepted for processing.
package inbound
