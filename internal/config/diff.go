package config

import "reflect"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// needs a restart and callers should warn when RestartNeeded reports true.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// HostsChanged is true when either host name changed. New runs pick up
	// the new names; in-flight runs keep the names they started with.
	HostsChanged bool

	// PresetsChanged is true when any preset voice sample mapping changed.
	PresetsChanged bool

	// PipelineChanged is true when any pipeline tuning knob changed.
	PipelineChanged bool

	// restart tracks changes that cannot take effect without a restart.
	restart bool
}

// RestartNeeded reports whether the new config contains changes that only
// take effect after a restart (listen address, providers, storage, database,
// auth).
func (d ConfigDiff) RestartNeeded() bool {
	return d.restart
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Hosts != new.Hosts {
		d.HostsChanged = true
	}

	if !presetsEqual(old.Voices.Presets, new.Voices.Presets) {
		d.PresetsChanged = true
	}

	if old.Pipeline != new.Pipeline {
		d.PipelineChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		!reflect.DeepEqual(old.Providers, new.Providers) ||
		old.Storage != new.Storage ||
		old.Database != new.Database ||
		old.Auth != new.Auth {
		d.restart = true
	}

	return d
}

func presetsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
