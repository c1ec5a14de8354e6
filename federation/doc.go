// Package federation implements the five-stage token exchange chain that
// turns a provider authorization code into a service account profile. Stages
// run strictly in order with early exit; each stage is a single external
// request/response with its own failure domain, and no intermediate token is
// logged, cached, or persisted.
package federation
