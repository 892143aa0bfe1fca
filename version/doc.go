// Package version reports the streamkit build version. Observability uses it
// as the default service version on exported traces and metrics.
package version
