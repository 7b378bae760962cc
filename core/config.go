package core

import (
	"fmt"
	"strings"
	"time"
)

// ReconcileConfig bounds the retry/backoff loop. RetryWaitMS is the ordered
// wait schedule in milliseconds; RegisteredHooks is the count of registered
// hooks that never settle and so stay pending.
type ReconcileConfig struct {
	RegisteredHooks int   `koanf:"registered_hooks" mapstructure:"registered_hooks"`
	RetryWaitMS     []int `koanf:"retry_wait_ms" mapstructure:"retry_wait_ms"`
	SettleTimeoutMS int   `koanf:"settle_timeout_ms" mapstructure:"settle_timeout_ms"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Reconcile   ReconcileConfig `koanf:"reconcile" mapstructure:"reconcile"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "relaywatch",
		Reconcile: ReconcileConfig{
			RegisteredHooks: 1,
			RetryWaitMS:     []int{5000, 10000, 15000},
			SettleTimeoutMS: 55000,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Reconcile.RegisteredHooks < 0 {
		return fmt.Errorf("core: reconcile.registered_hooks must be >= 0")
	}
	for i, wait := range c.Reconcile.RetryWaitMS {
		if wait <= 0 {
			return fmt.Errorf("core: reconcile.retry_wait_ms[%d] must be > 0", i)
		}
	}
	if c.Reconcile.SettleTimeoutMS < 0 {
		return fmt.Errorf("core: reconcile.settle_timeout_ms must be >= 0")
	}
	return nil
}

// RetryWaits returns the schedule as durations.
func (c ReconcileConfig) RetryWaits() []time.Duration {
	waits := make([]time.Duration, 0, len(c.RetryWaitMS))
	for _, ms := range c.RetryWaitMS {
		waits = append(waits, time.Duration(ms)*time.Millisecond)
	}
	return waits
}

// SettleTimeout caps how long a detached reconciliation may keep running
// after the inbound request was acknowledged.
func (c ReconcileConfig) SettleTimeout() time.Duration {
	if c.SettleTimeoutMS <= 0 {
		return 55 * time.Second
	}
	return time.Duration(c.SettleTimeoutMS) * time.Millisecond
}
