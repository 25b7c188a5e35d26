package cmd

import (
	"testing"
	"time"

	"github.com/evcc-io/cdrive/core/projector"
	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/require"
)

func validConfig() config {
	return config{
		Database: "/tmp/cdrive.db",
		Accounts: []accountConfig{
			{ID: "home", Username: "user", Password: "secret", Region: "rest_of_world"},
		},
		Vehicles: []vehicleConfig{
			{Entity: "car", VIN: "WBY1", Status: projector.FieldMileage},
		},
	}
}

func TestConfigDefaults(t *testing.T) {
	conf := validConfig()
	require.NoError(t, conf.complete())

	require.Equal(t, 5*time.Minute, conf.Interval)
	require.Equal(t, "metric", conf.Units)
	require.Equal(t, "cdrive", conf.Mqtt.Topic)
	require.Equal(t, "/tmp/cdrive.db", conf.Database)
}

func TestConfigValidation(t *testing.T) {
	for name, mod := range map[string]func(*config){
		"interval":  func(c *config) { c.Interval = time.Minute },
		"units":     func(c *config) { c.Units = "imperial" },
		"accounts":  func(c *config) { c.Accounts = nil },
		"duplicate": func(c *config) { c.Accounts = append(c.Accounts, c.Accounts[0]) },
		"password":  func(c *config) { c.Accounts[0].Password = "" },
		"region":    func(c *config) { c.Accounts[0].Region = "mars" },
		"vin":       func(c *config) { c.Vehicles[0].VIN = "" },
		"status":    func(c *config) { c.Vehicles[0].Status = "color" },
		"entity":    func(c *config) { c.Vehicles = append(c.Vehicles, vehicleConfig{Entity: "car", VIN: "WBY2"}) },
	} {
		conf := validConfig()
		mod(&conf)
		require.Error(t, conf.complete(), name)
	}
}

func TestConfigDurations(t *testing.T) {
	for in, out := range map[string]time.Duration{
		"15m":    15 * time.Minute,
		"1h":     time.Hour,
		"PT10M":  10 * time.Minute,
		"pt1h5m": 65 * time.Minute,
	} {
		var conf config

		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: decodeHook(),
			Result:     &conf,
		})
		require.NoError(t, err)

		require.NoError(t, dec.Decode(map[string]interface{}{"interval": in}), in)
		require.Equal(t, out, conf.Interval, in)
	}

	var conf config

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: decodeHook(),
		Result:     &conf,
	})
	require.NoError(t, err)
	require.Error(t, dec.Decode(map[string]interface{}{"interval": "soon"}))
}
