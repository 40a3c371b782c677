// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunSignup, RunVerifyAccount, RunSignin, RunIssueSession,
// RunUpdateAccountStatus) accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies. Flows are unit tested with
// stub dependencies and keep the Engine type thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the account store, token issuer, session
// cache, audit dispatcher and metrics. They do NOT own any of these resources.
// Ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAccount (to avoid import cycles). Shared value types live in
//     internal/domain.
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
