/*
Package tracing provides lightweight request tracing.

Every HTTP request gets a span; the trace id is taken from the inbound
X-Trace-ID header or generated, stored in the request context, and echoed in
the response. Outbound calls (the retrieval client) copy it forward with
InjectTraceContext so one question can be followed across services.

	tracer := tracing.New("echochat", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

Finished spans are logged by a single collector goroutine; when its buffer
is full spans are dropped rather than blocking the request path.
*/
package tracing
