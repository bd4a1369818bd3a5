package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"MarketTimeMachine/internal/allocation"
	"MarketTimeMachine/internal/notifier"
	"MarketTimeMachine/internal/replay"
)

// Commands answers chat commands against one long-lived session.
type Commands struct {
	Manager    *Manager
	SessionID  string
	Scenario   string
	Notional   float64
	MaxPercent int
}

const helpText = "Available commands:\n• /status\n• /start\n• /reset\n• /alloc TICKER PERCENT"

// Handle processes a command and returns a reply.
func (c *Commands) Handle(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}

	s, err := c.Manager.Ensure(c.SessionID, c.Scenario)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}

	switch fields[0] {
	case "/status":
		return notifier.FormatSnapshot(s.Scenario, s.Stepper.Snapshot(), s.Alloc.GrossExposure(), c.Notional)
	case "/start":
		err := s.Start()
		var expErr *allocation.ExposureError
		switch {
		case err == nil:
			return "▶️ Simulation started"
		case errors.Is(err, replay.ErrNoDataset):
			return "⏳ Scenario data not loaded yet"
		case errors.As(err, &expErr):
			return fmt.Sprintf("❌ %v", expErr)
		default:
			return fmt.Sprintf("❌ %v", err)
		}
	case "/reset":
		s.Reset()
		return "⏹ Simulation reset"
	case "/alloc":
		if len(fields) != 3 {
			return "Usage: /alloc TICKER PERCENT"
		}
		ticker := strings.ToUpper(fields[1])
		percent, err := strconv.Atoi(strings.TrimSuffix(fields[2], "%"))
		if err != nil {
			return fmt.Sprintf("❌ invalid percent %q", fields[2])
		}
		if percent < -c.MaxPercent || percent > c.MaxPercent {
			return fmt.Sprintf("❌ percent must be within ±%d", c.MaxPercent)
		}
		s.Alloc.SetWeight(ticker, percent)
		return fmt.Sprintf("✅ %s set to %+d%% (gross %.0f%%)", ticker, percent, s.Alloc.GrossExposure()*100)
	default:
		return helpText
	}
}
