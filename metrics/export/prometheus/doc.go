// Package prometheus renders goAccount engine metrics as Prometheus text.
//
// Mount [Exporter.Handler] on a route of your choosing; nothing is registered
// globally. Counter names are goaccount_*_total and the sign-in histogram is
// goaccount_signin_latency_seconds.
package prometheus
