package waiton

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the shape of a --config YAML file. Every field is optional;
// a field present in the file fills in an Options field the flags left
// unset, and boolean fields are OR-ed with their flags. Durations are strings parsed with ParseDuration so a config
// file can use the same grammar as the CLI flags ("500ms", "2s", ...).
type FileConfig struct {
	Resources      []string `yaml:"resources,omitempty"`
	Delay          string   `yaml:"delay,omitempty"`
	Interval       string   `yaml:"interval,omitempty"`
	Window         string   `yaml:"window,omitempty"`
	Timeout        string   `yaml:"timeout,omitempty"`
	HTTPTimeout    string   `yaml:"httpTimeout,omitempty"`
	TCPTimeout     string   `yaml:"tcpTimeout,omitempty"`
	Simultaneous   int      `yaml:"simultaneous,omitempty"`
	Reverse        bool     `yaml:"reverse,omitempty"`
	Log            bool     `yaml:"log,omitempty"`
	Verbose        bool     `yaml:"verbose,omitempty"`
	FollowRedirect *bool    `yaml:"followRedirect,omitempty"`
	StrictSSL      bool     `yaml:"strictSSL,omitempty"`
}

// LoadFileConfig reads and parses a --config YAML file.
func LoadFileConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, newConfigError("reading config file %q: %v", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, newConfigError("parsing config file %q: %v", path, err)
	}
	return fc, nil
}

// ApplyTo overlays fc onto opts. Command-line positional resources (already
// in opts.Resources when this is called) take precedence over the config
// file's resources list.
func (fc FileConfig) ApplyTo(opts *Options) error {
	if len(opts.Resources) == 0 {
		opts.Resources = fc.Resources
	}

	var err error
	if opts.Delay, err = overlayDuration(fc.Delay, opts.Delay); err != nil {
		return err
	}
	if opts.Interval, err = overlayDurationPtr(fc.Interval, opts.Interval); err != nil {
		return err
	}
	if opts.Window, err = overlayDurationPtr(fc.Window, opts.Window); err != nil {
		return err
	}
	if opts.Timeout, err = overlayDuration(fc.Timeout, opts.Timeout); err != nil {
		return err
	}
	if opts.HTTPTimeout, err = overlayDuration(fc.HTTPTimeout, opts.HTTPTimeout); err != nil {
		return err
	}
	if opts.TCPTimeout, err = overlayDurationPtr(fc.TCPTimeout, opts.TCPTimeout); err != nil {
		return err
	}

	if fc.Simultaneous != 0 && opts.Simultaneous == 0 {
		opts.Simultaneous = fc.Simultaneous
	}
	opts.Reverse = opts.Reverse || fc.Reverse
	opts.Log = opts.Log || fc.Log
	opts.Verbose = opts.Verbose || fc.Verbose
	opts.StrictSSL = opts.StrictSSL || fc.StrictSSL
	if fc.FollowRedirect != nil {
		opts.FollowRedirect = fc.FollowRedirect
	}

	return nil
}

func overlayDuration(raw string, current time.Duration) (time.Duration, error) {
	if raw == "" {
		return current, nil
	}
	if current != 0 {
		return current, nil // flag already set explicitly, flags win over config file
	}
	return ParseDuration(raw)
}

// overlayDurationPtr is overlayDuration's counterpart for the Options
// fields that use *time.Duration to tell an explicit zero apart from
// unset: a non-nil current value (however explicitly set, including to
// zero) always wins over the config file.
func overlayDurationPtr(raw string, current *time.Duration) (*time.Duration, error) {
	if current != nil {
		return current, nil
	}
	if raw == "" {
		return nil, nil
	}
	d, err := ParseDuration(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
