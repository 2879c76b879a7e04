// Package observability holds the Prometheus collectors and the HTTP
// middleware shared by the API server.
//
// Collectors live in the default registry and are registered lazily on the
// first Record call, so packages can record without a setup step.
package observability
