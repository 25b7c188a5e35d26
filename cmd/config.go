package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/dylanmei/iso8601"
	"github.com/evcc-io/cdrive/core"
	"github.com/evcc-io/cdrive/core/projector"
	"github.com/evcc-io/cdrive/server"
	"github.com/evcc-io/cdrive/vehicle/connected"
	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/thoas/go-funk"
)

type config struct {
	URI       string
	Log       string
	Metrics   bool
	Profile   bool
	Levels    map[string]string
	Interval  time.Duration
	Units     string
	Home      *projector.Location
	Database  string
	Accounts  []accountConfig
	Vehicles  []vehicleConfig
	Mqtt      server.MqttConfig
	Influx    server.InfluxConfig
	Messaging messagingConfig
}

type accountConfig struct {
	ID       string
	Username string
	Password string
	Region   string
	Captcha  string
}

type vehicleConfig struct {
	Entity string
	VIN    string
	Status string
}

type messagingConfig struct {
	Title string
	Msg   string
	URLs  []string
}

var defaults = config{
	URI:      "0.0.0.0:7080",
	Log:      "error",
	Interval: core.MinInterval,
	Units:    string(projector.UnitsMetric),
	Database: "~/.cdrive/cdrive.db",
	Mqtt: server.MqttConfig{
		Topic: "cdrive",
	},
}

func loadConfigFile(cfgFile string) (conf config, err error) {
	if cfgFile != "" {
		log.INFO.Println("using config file", cfgFile)
		if err := viper.UnmarshalExact(&conf, viper.DecodeHook(decodeHook())); err != nil {
			return conf, fmt.Errorf("failed parsing config file %s: %w", cfgFile, err)
		}
	} else {
		err = errors.New("missing config file")
	}

	if err == nil {
		err = conf.complete()
	}

	return conf, err
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationHook,
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationHook decodes Go durations like 5m and ISO 8601 durations like PT5M
func durationHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}

	s := strings.ToUpper(strings.TrimSpace(data.(string)))
	if strings.HasPrefix(s, "P") {
		return iso8601.ParseDuration(s)
	}

	return time.ParseDuration(strings.ToLower(s))
}

// complete merges defaults and validates the configuration
func (c *config) complete() error {
	if err := mergo.Merge(c, defaults); err != nil {
		return err
	}

	path, err := expandHome(c.Database)
	if err != nil {
		return err
	}
	c.Database = path

	for i := range c.Accounts {
		if c.Accounts[i].Region == "" {
			c.Accounts[i].Region = "rest_of_world"
		}
	}

	return c.validate()
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[2:]), nil
}

func (c *config) validate() error {
	if c.Interval < core.MinInterval || c.Interval > core.MaxInterval {
		return fmt.Errorf("interval: must be between %v and %v", core.MinInterval, core.MaxInterval)
	}

	if _, err := projector.UnitsString(c.Units); err != nil {
		return fmt.Errorf("units: %w", err)
	}

	if len(c.Accounts) == 0 {
		return errors.New("accounts: missing")
	}

	ids := funk.Map(c.Accounts, func(a accountConfig) string { return a.ID }).([]string)
	if len(funk.UniqString(ids)) != len(ids) {
		return errors.New("accounts: duplicate id")
	}

	for i, a := range c.Accounts {
		if a.ID == "" || a.Username == "" || a.Password == "" {
			return fmt.Errorf("accounts[%d]: missing id, username or password", i)
		}

		if _, err := connected.RegionString(a.Region); err != nil {
			return fmt.Errorf("accounts[%d].region: %w", i, err)
		}
	}

	entities := funk.Map(c.Vehicles, func(v vehicleConfig) string { return v.Entity }).([]string)
	if len(funk.UniqString(entities)) != len(entities) {
		return errors.New("vehicles: duplicate entity")
	}

	for i, v := range c.Vehicles {
		if v.Entity == "" || v.VIN == "" {
			return fmt.Errorf("vehicles[%d]: missing entity or vin", i)
		}

		if v.Status != "" && !funk.ContainsString(projector.StatusFields, v.Status) {
			return fmt.Errorf("vehicles[%d].status: must be one of %s", i, strings.Join(projector.StatusFields, ", "))
		}
	}

	return nil
}
