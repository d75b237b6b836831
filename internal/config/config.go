// Package config loads the daemon configuration from YAML, applies defaults
// and validates it.
package config

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/go-playground/validator.v9"
	"gopkg.in/yaml.v2"
)

// Config is the daemon configuration.
type Config struct {
	TargetMAC string        `yaml:"target_mac" validate:"required,mac48"`
	Interface string        `yaml:"interface" validate:"omitempty,ifname"`
	Broadcast string        `yaml:"broadcast" default:"255.255.255.255:9" validate:"required,hostport"`
	Window    time.Duration `yaml:"window" default:"10s" validate:"gt=0"`
	Burst     int           `yaml:"burst" default:"3" validate:"min=1,max=10"`
	Heartbeat time.Duration `yaml:"heartbeat" default:"15m"` // negative disables

	HomeKit  HomeKit  `yaml:"homekit"`
	MQTT     MQTT     `yaml:"mqtt"`
	HTTP     HTTP     `yaml:"http"`
	Button   Button   `yaml:"button"`
	Schedule []string `yaml:"schedule" validate:"dive,required"`
}

// HomeKit configures the accessory.
type HomeKit struct {
	Name         string `yaml:"name" default:"WOL" validate:"required"`
	Manufacturer string `yaml:"manufacturer" default:"wol-switch"`
	Model        string `yaml:"model" default:"WOL"`
	Serial       string `yaml:"serial"`
	Pin          string `yaml:"pin" default:"14774147" validate:"len=8,numeric"`
	StoragePath  string `yaml:"storage_path" default:"./db" validate:"required"`
	Port         string `yaml:"port"`
}

// MQTT configures the optional broker connection. An empty broker disables it.
type MQTT struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix" default:"wol/switch"`
	ClientID    string `yaml:"client_id" default:"wol-switch"`
}

// HTTP configures the status server.
type HTTP struct {
	Addr string `yaml:"addr" default:":8080"`
}

// HTTPOff is the address that disables the status server.
const HTTPOff = "off"

// Enabled reports whether the status server should run.
func (h HTTP) Enabled() bool {
	return h.Addr != HTTPOff
}

// Button configures the optional wake button. Pin 0 disables it.
type Button struct {
	Chip     string        `yaml:"chip" default:"gpiochip0"`
	Pin      int           `yaml:"pin" validate:"min=0,max=53"`
	Poll     time.Duration `yaml:"poll" default:"20ms" validate:"gt=0"`
	Debounce time.Duration `yaml:"debounce" default:"50ms" validate:"gte=0"`
}

// Load reads path and applies defaults. An empty path yields the defaults,
// which still need a target MAC before Validate passes.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document and applies defaults. Unknown keys are
// rejected. Zero values are replaced by defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks every field and reports all failures at once.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report yaml names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "mac48", mac48)
	mustRegister(v, "ifname", ifname)
	mustRegister(v, "hostport", hostport)
	return v
}

func mustRegister(v *validator.Validate, name string, fn validator.Func) {
	if err := v.RegisterValidation(name, fn); err != nil {
		panic(fmt.Sprintf("config: register validation %s: %v", name, err))
	}
}

// mac48 accepts 6-byte hardware addresses only.
func mac48(fl validator.FieldLevel) bool {
	hw, err := net.ParseMAC(fl.Field().String())
	return err == nil && len(hw) == 6
}

// ifname accepts names that fit IFNAMSIZ and contain no separators.
func ifname(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) > 0 && len(s) < 16 && !strings.ContainsAny(s, "/ \t\n:")
}

func hostport(fl validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fl.Field().String())
	return err == nil && port != ""
}
