package farm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// PersistencePolicy decides what happens when mirroring to the local store or
// enqueueing to the outbox fails. The in-memory collection has already changed
// by then and stays changed under every policy.
type PersistencePolicy int

const (
	// PolicyLog logs the failure and reports success to the caller.
	PolicyLog PersistencePolicy = iota
	// PolicyIgnore drops the failure silently.
	PolicyIgnore
	// PolicyPropagate returns the failure to the caller.
	PolicyPropagate
)

func (p PersistencePolicy) String() string {
	switch p {
	case PolicyIgnore:
		return "ignore"
	case PolicyPropagate:
		return "propagate"
	default:
		return "log"
	}
}

// ParsePolicy maps a config value to a policy. Empty means log.
func ParsePolicy(s string) (PersistencePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "log":
		return PolicyLog, nil
	case "ignore":
		return PolicyIgnore, nil
	case "propagate":
		return PolicyPropagate, nil
	default:
		return PolicyLog, fmt.Errorf("unknown persistence error policy %q", s)
	}
}

func (e *env) persistErr(op string, collection string, err error) error {
	if err == nil {
		return nil
	}
	if e.failures != nil {
		e.failures.StoreFailure(op)
	}
	switch e.policy {
	case PolicyIgnore:
		return nil
	case PolicyPropagate:
		return fmt.Errorf("%s %s: %w", op, collection, err)
	default:
		e.logger.Warn("local persistence failed",
			zap.String("op", op),
			zap.String("collection", collection),
			zap.Error(err))
		return nil
	}
}
