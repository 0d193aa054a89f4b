// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package plugin

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ActivePlugins tracks the size of the active-plugin registry.
// Use RegisterMetrics to register this with a Prometheus registry.
var ActivePlugins = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "vesper_plugins_active",
		Help: "Number of plugins currently registered",
	},
)

// ActiveCallbacks tracks handlers currently registered with the client.
var ActiveCallbacks = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "vesper_callbacks_active",
		Help: "Number of plugin callbacks currently registered",
	},
)

// LoadFailures counts source files that failed to load during discovery.
var LoadFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vesper_plugin_load_failures_total",
		Help: "Total number of plugin load failures",
	},
	[]string{"plugin"},
)

// RegisterMetrics registers plugin package metrics with the given registry.
// Call once at startup. Panics if registration fails (prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ActivePlugins)
	reg.MustRegister(ActiveCallbacks)
	reg.MustRegister(LoadFailures)
}
