/*
Package resilience guards the renderer's origin fetches and the session
store with circuit breakers.

A Breaker counts outcomes per generation. While closed, failures
accumulate until Settings.ReadyToTrip says to open; an open breaker
rejects calls with ErrCircuitOpen until Settings.Timeout elapses, then
lets Settings.MaxRequests probe calls through in the half-open state.
Any failed probe reopens it.

	closed --trip--> open --timeout--> half-open --probes ok--> closed
	                   ^                    |
	                   +------failure-------+

Do returns the callee's typed result:

	page, err := resilience.Do(breaker, func() (*Document, error) {
		return fetcher.fetch(ctx, url)
	})

A canceled context counts as success, so a user pressing stop never
trips a breaker. Results reported after a state change are dropped.
*/
package resilience
