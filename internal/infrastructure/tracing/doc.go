/*
Package tracing records spans for HTTP requests and navigations.

A span is opened per API request by HTTPMiddleware and per dispatched
navigation by the tab, closed when the navigation commits, fails or is
stopped. Finished spans are queued to a collector goroutine that logs
them through zap; canceled spans log at debug like successful ones.

	span, ctx := tracer.StartSpan(ctx, "navigate")
	span.SetTag("url", url)
	defer tracer.End(span, err)

X-Trace-ID and X-Span-ID carry a trace across process boundaries: the
middleware continues one found on the request, and the loopback renderer
stamps them on the origin fetches it makes for a navigation.
*/
package tracing
