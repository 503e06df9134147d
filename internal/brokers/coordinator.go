package brokers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"openstocks/pkg/logger"
)

// AuthObserver receives authentication outcomes for metrics collection.
type AuthObserver interface {
	ObserveAuthAttempt(broker string, success bool)
	SetAvailableBrokers(count int)
}

// Coordinator orchestrates startup-time authentication across the registry
// and provides the broker-or-error lookup used by every tool call. It is
// the only component tool handlers and the startup sequence talk to.
type Coordinator struct {
	registry *Registry
	log      *logger.Logger
	observer AuthObserver
}

// NewCoordinator builds a coordinator over the given registry.
func NewCoordinator(registry *Registry, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Get()
	}
	return &Coordinator{
		registry: registry,
		log:      log.With("component", "auth_coordinator"),
	}
}

// SetObserver wires an optional metrics observer.
func (c *Coordinator) SetObserver(observer AuthObserver) {
	c.observer = observer
}

// Registry exposes the underlying registry for status tools.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// AttemptBrokerLogins authenticates all configured brokers and returns
// (successCount, totalCount, failedNames). It never fails the host
// process: all outcomes are logged and returned as counts.
// requireAtLeastOne only changes logging verbosity when nothing
// authenticated.
func (c *Coordinator) AttemptBrokerLogins(ctx context.Context, requireAtLeastOne bool) (int, int, []string) {
	c.log.Info("Starting multi-broker authentication")

	registered := c.registry.ListBrokers()
	if len(registered) == 0 {
		c.log.Warn("No brokers registered - running without broker access")
		return 0, 0, []string{}
	}
	c.log.Infof("Registered brokers: %s", strings.Join(registered, ", "))

	start := time.Now()
	results := c.registry.AuthenticateAll(ctx, false)
	elapsed := time.Since(start)

	successful := 0
	failed := make([]string, 0, len(results))
	for _, name := range registered {
		ok, attempted := results[name]
		if !attempted {
			continue
		}
		if ok {
			successful++
		} else {
			failed = append(failed, name)
		}
		if c.observer != nil {
			c.observer.ObserveAuthAttempt(name, ok)
		}
	}
	total := len(results)

	c.log.Infof("Authentication summary (%.1fs)", elapsed.Seconds())
	for _, name := range registered {
		ok, attempted := results[name]
		if !attempted {
			continue
		}
		if ok {
			c.log.Infof("  %s: authenticated", name)
			continue
		}

		broker, found := c.registry.GetBroker(name)
		if !found {
			continue
		}
		info := broker.AuthInfo()
		switch info.Status {
		case StatusNotConfigured:
			c.log.Infof("  %s: not configured (skipped)", name)
		case StatusMFARequired:
			c.log.Warnf("  %s: MFA required", name)
		default:
			errMsg := info.ErrorMessage
			if errMsg == "" {
				errMsg = "unknown error"
			}
			c.log.Errorf("  %s: %s", name, errMsg)
		}
	}

	switch {
	case total > 0 && successful == total:
		c.log.Infof("All %d broker(s) authenticated successfully", total)
	case successful > 0:
		c.log.Warnf("Partial success: %d/%d broker(s) authenticated", successful, total)
		c.log.Warnf("Unavailable: %s", strings.Join(failed, ", "))
	case total > 0:
		c.log.Errorf("No brokers authenticated (%d attempted)", total)
		c.log.Errorf("Failed: %s", strings.Join(failed, ", "))
		if requireAtLeastOne {
			c.log.Error("Server will start but all broker-specific tools will be unavailable")
		}
	default:
		c.log.Warn("No authentication attempts made")
	}

	if c.observer != nil {
		c.observer.SetAvailableBrokers(len(c.registry.AvailableBrokers()))
	}

	return successful, total, failed
}

// AuthenticatedBrokerOrError returns a ready broker, or the structured
// error payload the tool should hand back verbatim.
func (c *Coordinator) AuthenticatedBrokerOrError(name, operation string) (Broker, Response) {
	return c.registry.GetBrokerOrError(name, operation)
}

// UnauthenticatedResponse builds the generic no-broker-available payload,
// distinct from a specific broker's own unavailable response.
func (c *Coordinator) UnauthenticatedResponse(brokerName string) Response {
	var message string
	if brokerName != "" {
		message = fmt.Sprintf(
			"%s is not available. Please check authentication status with the 'broker_status' tool.",
			titleCase(brokerName),
		)
	} else {
		message = "No authenticated brokers available. " +
			"Please check authentication status with the 'broker_status' tool."
	}

	return Response{
		"result": map[string]interface{}{
			"error":  message,
			"status": ResultNoAuthenticatedBrokers,
			"help":   "Check logs for authentication errors or run 'broker_status' tool",
		},
	}
}

// LogoutAll tears down every broker session on shutdown.
func (c *Coordinator) LogoutAll(ctx context.Context) {
	c.registry.LogoutAll(ctx)
	if c.observer != nil {
		c.observer.SetAvailableBrokers(len(c.registry.AvailableBrokers()))
	}
}
