// Package httpapi exposes the goAccount engine over JSON HTTP.
//
// Routes:
//
//	GET  /                                  health check (pings Redis)
//	POST /api/v1/auth/signup                {fname, lname, email, password} -> {token}
//	POST /api/v1/auth/verify                {activationToken, otp} -> 201 {user}
//	POST /api/v1/auth/signin                {email, password, rememberMe} -> {user, accessToken} + cookie
//	GET  /api/v1/auth/me                    guarded
//	POST /api/v1/auth/signout               guarded, 204
//	POST /api/v1/admin/accounts/{id}/ban    admin only, {reason}
//	POST /api/v1/admin/accounts/{id}/unban  admin only
//	POST /api/v1/admin/accounts/{id}/disable admin only, {reason}
//	POST /api/v1/admin/accounts/{id}/enable admin only
//	GET  /api/v1/admin/accounts/{id}/signins admin only, when a history source is set
//	GET  /metrics                           Prometheus text, when enabled
//
// Every JSON body uses the envelope {"status": "success"|"fail"|"error",
// "message": ...}. "fail" is used for 4xx responses and "error" for 5xx.
package httpapi
