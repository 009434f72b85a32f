package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/juvenxu/account-service/internal/infra/config"
)

// Provider holds the lifecycle business metrics. HTTP-level metrics live in
// the transport middleware; these count domain transitions.
type Provider struct {
	signUpCounter     prometheus.Counter
	activationCounter prometheus.Counter
}

// NewProvider registers the lifecycle counters on the given registerer.
func NewProvider(reg prometheus.Registerer) *Provider {
	factory := promauto.With(reg)

	return &Provider{
		signUpCounter: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "signups_total",
			Help:      "Total number of successful sign-ups",
		}),
		activationCounter: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "activations_total",
			Help:      "Total number of successful activations",
		}),
	}
}

// Attach configures telemetry on the default registry and returns a provider
// handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return NewProvider(prometheus.DefaultRegisterer), nil
}

// SignUpCounter exposes the successful sign-up metric.
func (p *Provider) SignUpCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.signUpCounter
}

// ActivationCounter exposes the successful activation metric.
func (p *Provider) ActivationCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.activationCounter
}
