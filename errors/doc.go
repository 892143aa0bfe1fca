// Package errors provides the single error model shared by every streamkit
// component. Each failure carries a Kind (transport, protocol, hydrate,
// internal), a human-readable message, an optional cause, and the controller
// status that was current right before the failure.
//
// Consumers match on the kind rather than on identity:
//
//	if errors.IsProtocol(err) {
//	    // a single malformed line or message
//	}
package errors
