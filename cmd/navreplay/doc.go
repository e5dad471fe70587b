// Command navreplay replays a YAML script of navigations against one tab
// backed by the loopback renderer, printing the back/forward list after
// every step.
//
// A script:
//
//	name: subframes
//	base: https://example.com
//	steps:
//	  - op: load
//	    url: /
//	  - op: navigate
//	    frame: side
//	    url: /other
//	  - op: back
//	    expect: {index: 0}
//
// Ops are load, back, forward, go (n), reload (mode), stop, push, replace,
// fragment (name), iframe (name, url, frame as parent), remove, navigate
// and expect. Any step may carry an expect block; the run stops at the
// first mismatch.
//
// Usage:
//
//	navreplay run script.yaml
//	navreplay run --subframe-history -q script.yaml
//	navreplay check scripts/*.yaml
package main
