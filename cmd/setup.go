package cmd

import (
	"context"
	"strings"

	"github.com/asaskevich/EventBus"
	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/core"
	"github.com/evcc-io/cdrive/core/projector"
	"github.com/evcc-io/cdrive/core/session"
	"github.com/evcc-io/cdrive/core/storage"
	"github.com/evcc-io/cdrive/push"
	"github.com/evcc-io/cdrive/util"
	"github.com/evcc-io/cdrive/vehicle/connected"
	"github.com/spf13/viper"
)

// site is the configured engine with its collaborators
type site struct {
	bus        EventBus.Bus
	store      *storage.Store
	engine     *core.Engine
	dispatcher *core.Dispatcher
}

// configure loads the configuration and creates engine, sessions and bindings publishing to sink
func configure(ctx context.Context, sink api.Sink) (config, *site, error) {
	util.LogLevel(viper.GetString("log"), viper.GetStringMapString("levels"))
	log.INFO.Printf("cdrive %s", Version)

	conf, err := loadConfigFile(cfgFile)
	if err != nil {
		return conf, nil, err
	}

	// re-configure logging after reading config file
	util.LogLevel(conf.Log, conf.Levels)

	store, err := storage.Open(conf.Database)
	if err != nil {
		return conf, nil, err
	}

	s, err := configureSite(ctx, conf, store, connected.New(util.NewLogger("connected")), sink)
	if err != nil {
		_ = store.Close()
	}

	return conf, s, err
}

func configureSite(ctx context.Context, conf config, store *storage.Store, service api.VehicleService, sink api.Sink) (*site, error) {
	units, err := projector.UnitsString(conf.Units)
	if err != nil {
		return nil, err
	}

	bus := EventBus.New()

	engine, err := core.NewEngine(bus, conf.Interval, projector.New(units, projector.DefaultSkip), core.NewCache(), core.NewBindings(bus), sink)
	if err != nil {
		return nil, err
	}

	if conf.Home != nil {
		engine.SetHome(*conf.Home)
	}

	for _, a := range conf.Accounts {
		region, err := connected.RegionString(a.Region)
		if err != nil {
			return nil, err
		}

		creds := api.Credentials{
			Username: a.Username,
			Password: a.Password,
			Region:   region,
			Captcha:  a.Captcha,
		}

		if err := engine.AddAccount(session.New(a.ID, creds, service, session.WithStore(store))); err != nil {
			return nil, err
		}
	}

	for _, v := range conf.Vehicles {
		if err := engine.Bindings().Bind(core.Binding{
			Entity: v.Entity,
			VIN:    strings.ToUpper(v.VIN),
			Status: v.Status,
		}); err != nil {
			return nil, err
		}
	}

	return &site{
		bus:        bus,
		store:      store,
		engine:     engine,
		dispatcher: core.NewDispatcher(ctx, engine, bus),
	}, nil
}

// configureMessaging creates the notification hub for command results
func configureMessaging(conf messagingConfig) (*push.Hub, error) {
	hub, err := push.NewHub(conf.Title, conf.Msg)
	if err != nil {
		return nil, err
	}

	if len(conf.URLs) > 0 {
		sender, err := push.NewShoutrrr(conf.URLs)
		if err != nil {
			return nil, err
		}
		hub.Add(sender)
	}

	return hub, nil
}
