/*
Package monitoring provides metrics collection for the framenav server.

# Overview

Prometheus collectors live on a registry private to each Metrics value,
covering HTTP traffic, navigation commits, tab lifecycle, loopback renderer
fetches, session snapshots and WebSocket streams.

# Navigation

Metrics.Navigation adapts the collector to navigation.Metrics, so every
controller reports commits by classification, discarded pending entries,
pruned entries and renderer inconsistencies.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "session", "save")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
