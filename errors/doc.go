// Package errors provides standardized error handling patterns for the
// videostream SDK.
//
// # Overview
//
// The package implements a three-class error classification: Transient
// (temporary, a caller may retry), Invalid (bad input, non-retryable),
// and Fatal (unrecoverable, stop processing). The SDK itself never
// retries - retry is a caller policy - but classification tells the
// caller which policy applies.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if client.Status() != rtm.StatusRunning {
//	    return errors.ErrNotConnected
//	}
//
// Wrap errors with component context:
//
//	if err := conn.WriteMessage(data); err != nil {
//	    return errors.WrapTransient(err, "rtm", "Publish", "write publish frame")
//	}
//
// Check classification at handling sites:
//
//	if errors.IsFatal(err) {
//	    return err // tear down, do not mask
//	}
//
// Contract violations - a double subscribe, an acknowledgement with no
// matching pending request, an unrecognized frame action - are classified
// Fatal: they indicate protocol desynchronization that must not be
// papered over.
package errors
