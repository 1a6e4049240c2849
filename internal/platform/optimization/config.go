// Package optimization provides websocket tuning profiles for the server and
// turns observed metrics into tuning advice.
package optimization

import (
	"fmt"
)

// Config holds tuned parameters for the websocket hub.
type Config struct {
	// Channel buffer sizes
	DirectBuffer     int // Hub queue for replies to a single client
	ClientSendBuffer int // Per WebSocket

	// Admission
	MaxClients int // 0 means unlimited
}

// Profile names accepted by Profile.
const (
	ProfileDefault = "default"
	ProfileStress  = "stress"
	ProfileLow     = "low"
)

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	return &Config{
		DirectBuffer:     64,
		ClientSendBuffer: 256,
		MaxClients:       200,
	}
}

// StressTestConfig returns aggressive settings for stress testing.
func StressTestConfig() *Config {
	return &Config{
		DirectBuffer:     512,
		ClientSendBuffer: 512,
		MaxClients:       1000,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		DirectBuffer:     16,
		ClientSendBuffer: 32,
		MaxClients:       20,
	}
}

// Profile returns the named profile. An empty name is the default.
func Profile(name string) (*Config, error) {
	switch name {
	case "", ProfileDefault:
		return DefaultConfig(), nil
	case ProfileStress:
		return StressTestConfig(), nil
	case ProfileLow:
		return LowResourceConfig(), nil
	}
	return nil, fmt.Errorf("unknown tuning profile %q (want default, stress or low)", name)
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseSendBuffer bool
	IncreaseMaxClients bool
	Notes              []string
}

// Analyze examines a metrics.Collector snapshot and returns tuning recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 100 {
			rec.Notes = append(rec.Notes, "Tick latency exceeds 100ms - the game loop is falling behind")
		}
	}

	if saves, ok := metrics["saves"].(map[string]interface{}); ok {
		if maxLat, ok := saves["max_latency_ms"].(float64); ok && maxLat > 50 {
			rec.Notes = append(rec.Notes, "Save latency exceeds 50ms - consider the sqlite driver or a faster disk")
		}
		if errors, ok := saves["errors"].(int64); ok && errors > 0 {
			rec.Notes = append(rec.Notes, "Save errors detected - check the storage path")
		}
	}

	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseSendBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
		if rejected, ok := ws["rejected"].(int64); ok && rejected > 0 {
			rec.IncreaseMaxClients = true
			rec.Notes = append(rec.Notes, "Connections were refused at the client limit - raise max clients")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseSendBuffer {
		config.DirectBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseMaxClients && config.MaxClients > 0 {
		config.MaxClients = int(float64(config.MaxClients) * 1.5)
	}
	return config
}
