/*
Package observability turns scanner lifecycle hooks into Prometheus metrics
and structured log lines.

Both helpers return domain.LifecycleHooks, so they compose with Merge:

	hooks := observability.LoggingHooks(logger).Merge(metrics.Hooks())
*/
package observability
