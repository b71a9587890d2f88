package notifications

// Notifier delivers human-facing alerts about trading activity.
type Notifier interface {
	// SendAlert sends an alert with the specified level and message.
	// Levels: info, success, warning, error.
	SendAlert(level, message string) error
}

// Noop discards all alerts. Used when no notification channel is
// configured.
type Noop struct{}

func (Noop) SendAlert(level, message string) error { return nil }
