// Package invalidation defines the price-reload event that flushes cached
// plans crossing the reloaded states.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

const OpPricesReloaded = "prices_reloaded"

type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	States  []string  `json:"states"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	if e.Op != OpPricesReloaded {
		return fmt.Errorf("op must be %q", OpPricesReloaded)
	}
	if len(e.States) == 0 {
		return fmt.Errorf("at least one state is required")
	}
	for _, st := range e.States {
		if strings.TrimSpace(st) == "" {
			return fmt.Errorf("blank state code")
		}
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
