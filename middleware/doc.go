// Package middleware adapts goAccount access tokens to net/http handlers.
//
// [Guard] authenticates the request from the access-token cookie or a Bearer
// header and stores the account id in the request context. [RequireRole]
// runs after Guard and admits only active accounts whose stored role
// matches.
//
// Neither middleware parses tokens or touches Redis itself; both delegate to
// the Engine.
package middleware
