package venue

import (
	"fmt"
	"strings"
)

// Config selects and configures a venue adapter.
type Config struct {
	Name string `json:"name"`

	Bybit *BybitConfig `json:"bybit,omitempty"`
}

// BybitConfig carries the credentials and environment for the Bybit
// adapter.
type BybitConfig struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Category  string `json:"category"` // "spot" or "linear"
	Testnet   bool   `json:"testnet"`
	Demo      bool   `json:"demo"`
}

// BybitFactory builds the Bybit adapter. Declared as a variable so the
// venue package stays free of the SDK import cycle; wired by the bybit
// subpackage's registration in cmd.
type BybitFactory func(cfg *BybitConfig) (Adapter, error)

// Factory creates venue adapters by name.
type Factory struct {
	newBybit BybitFactory
}

// NewFactory creates a factory. bybitFactory may be nil when only the
// paper venue is needed (tests, demo mode).
func NewFactory(bybitFactory BybitFactory) *Factory {
	return &Factory{newBybit: bybitFactory}
}

// Supported returns the venue names this factory can build.
func (f *Factory) Supported() []string {
	return []string{"paper", "bybit"}
}

// Create builds the adapter named in the config.
func (f *Factory) Create(cfg Config) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "paper":
		return NewPaperVenue(), nil
	case "bybit":
		if f.newBybit == nil {
			return nil, fmt.Errorf("bybit venue requested but no bybit factory registered")
		}
		if cfg.Bybit == nil {
			return nil, fmt.Errorf("bybit venue requires a bybit config section")
		}
		if cfg.Bybit.APIKey == "" || cfg.Bybit.APISecret == "" {
			return nil, fmt.Errorf("bybit venue requires api_key and api_secret")
		}
		return f.newBybit(cfg.Bybit)
	default:
		return nil, fmt.Errorf("unsupported venue %q, supported: %v", cfg.Name, f.Supported())
	}
}
