/*
Package monitoring provides Prometheus metrics for the chat service.

Metrics cover HTTP traffic, the session store (active, created, removed by
reason), reaper sweeps, chat turn outcomes and collaborator failures.
*Metrics satisfies the observer interfaces of the session store, the
reaper and the orchestrator, so the domain packages report through it
without importing Prometheus.

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", metrics.GinHandler())

Each Metrics owns its registry; tests create as many as they like.
*/
package monitoring
