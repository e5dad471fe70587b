/*
Package loopback is an in-process renderer for tabs.

It plays the part of renderer processes: it receives navigation requests
from a tab, fetches the document over HTTP (or decodes data: and
about:blank), reports the commit back and then builds the frame tree the
document declares with <iframe> elements, committing each child as an
automatic subframe load.

Fetch path:

	resty -> retryablehttp transport -> rate limiter -> circuit breaker

Loads that stay in the current document skip the fetch entirely: fragment
changes and history steps between items that share a document sequence
number. When a history entry restores a document, child frames load what
the entry recorded for them rather than their src attribute.

Script-driven changes are exposed as methods so callers can drive a page
the way its own script would: PushState, ReplaceState, FragmentNavigate,
CreateIframe, RemoveIframe and NavigateFrame.
*/
package loopback
