package rpio

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults of the pulse train.
const (
	DefaultPin      uint8  = 18
	DefaultDivider  uint32 = 500
	DefaultBits            = 32
	DefaultPulses          = 100
	DefaultInterval        = 50 * time.Microsecond

	maxPin = 53
)

// Config describes one pulse train.
type Config struct {
	Map MapConfig `yaml:"map"`

	// Pin is the BCM number of the output, Mode its PWM function select.
	Pin  uint8 `yaml:"pin"`
	Mode Mode  `yaml:"mode"`

	// Divider is the integer PWM clock divider applied to PLLD.
	Divider uint32 `yaml:"divider"`

	// Bits is the number of high bits per pulse, clamped to [1, MaxBits].
	Bits int `yaml:"bits"`

	Pulses   int           `yaml:"pulses"`
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig returns 100 pulses of 32 bits on BCM 18 with divider 500.
func DefaultConfig() Config {
	return Config{
		Pin:      DefaultPin,
		Mode:     PWM,
		Divider:  DefaultDivider,
		Bits:     DefaultBits,
		Pulses:   DefaultPulses,
		Interval: DefaultInterval,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values that would address registers outside the GPIO
// block. The divider and bit count are deliberately not checked.
func (c Config) Validate() error {
	if c.Pin > maxPin {
		return errors.Errorf("pin %d out of range [0, %d]", c.Pin, maxPin)
	}
	if uint32(c.Mode) > modeMask {
		return errors.Errorf("mode %d is not a 3 bit function select", c.Mode)
	}
	if c.Pulses < 0 {
		return errors.Errorf("negative pulse count %d", c.Pulses)
	}
	if c.Interval < 0 {
		return errors.Errorf("negative pulse interval %s", c.Interval)
	}
	return nil
}
