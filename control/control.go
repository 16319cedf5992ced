// File: control/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Controller implements api.Control on top of the control primitives.

package control

import (
	"github.com/momentics/hioload-http/api"
)

// Controller combines configuration, metrics and debug probes.
type Controller struct {
	config  *ConfigStore
	metrics *MetricsRegistry
	debug   *DebugProbes
}

var _ api.Control = (*Controller)(nil)

// NewController returns a controller with platform probes registered.
func NewController() *Controller {
	c := &Controller{
		config:  NewConfigStore(),
		metrics: NewMetricsRegistry(),
		debug:   NewDebugProbes(),
	}
	RegisterPlatformProbes(c.debug)
	return c
}

// Metrics exposes the registry sessions report into.
func (c *Controller) Metrics() *MetricsRegistry { return c.metrics }

func (c *Controller) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

func (c *Controller) SetConfig(cfg map[string]any) error {
	if cfg == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "nil config")
	}
	c.config.SetConfig(cfg)
	return nil
}

// Stats merges metrics with probe output; probe keys carry a "debug." prefix.
func (c *Controller) Stats() map[string]any {
	combined := c.metrics.GetSnapshot()
	c.debug.DumpInto(combined, "debug.")
	return combined
}

// OnReload registers fn to run asynchronously after every SetConfig.
func (c *Controller) OnReload(fn func()) {
	c.config.OnReload(fn)
}

func (c *Controller) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}
