package cmd

import (
	"context"
	"net/http"
	_ "net/http/pprof" // pprof handler
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evcc-io/cdrive/core"
	"github.com/evcc-io/cdrive/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runCmd runs the update engine and the http server
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run update engine and http server",
	Run:   runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.PersistentFlags().StringP(
		"uri", "u",
		"0.0.0.0:7080",
		"Listen address",
	)
	bind(runCmd, "uri")

	runCmd.PersistentFlags().Bool(
		"metrics",
		false,
		"Expose metrics",
	)
	bind(runCmd, "metrics")

	runCmd.PersistentFlags().Bool(
		"profile",
		false,
		"Expose pprof profiles",
	)
	bind(runCmd, "profile")
}

func runRun(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())

	// start broadcasting values
	tee := new(core.Tee)

	conf, site, err := configure(ctx, tee)
	if err != nil {
		log.FATAL.Fatal(err)
	}

	var closers []func()
	closers = append(closers, func() { _ = site.store.Close() })

	// publish to UI
	socketHub := server.NewSocketHub(site.engine)
	tee.Attach(socketHub)
	go socketHub.Run(ctx)

	// setup mqtt publisher
	if conf.Mqtt.Broker != "" {
		publisher, err := server.NewMQTT(conf.Mqtt)
		if err != nil {
			log.FATAL.Fatal(err)
		}

		tee.Attach(publisher)
		closers = append(closers, publisher.Close)
	}

	// setup database
	if conf.Influx.URL != "" {
		influx := server.NewInfluxClient(conf.Influx)
		tee.Attach(influx)
		closers = append(closers, influx.Close)
	}

	// setup messaging
	if len(conf.Messaging.URLs) > 0 {
		notifier, err := configureMessaging(conf.Messaging)
		if err != nil {
			log.FATAL.Fatal(err)
		}
		site.dispatcher.SetNotifier(notifier)
	}

	// create webserver
	uri := viper.GetString("uri")
	httpd := server.NewHTTPd(uri, site.engine, site.dispatcher, socketHub)

	// metrics
	if viper.GetBool("metrics") {
		httpd.Router().Handle("/metrics", promhttp.Handler())
	}

	// pprof
	if viper.GetBool("profile") {
		httpd.Router().PathPrefix("/debug/").Handler(http.DefaultServeMux)
	}

	if url, err := server.PublicURL(uri); err == nil {
		log.INFO.Println("listening at", url)
	}

	exitC := make(chan struct{})

	go func() {
		site.engine.Run(ctx)
		close(exitC)
	}()

	// catch signals
	go func() {
		signalC := make(chan os.Signal, 1)
		signal.Notify(signalC, os.Interrupt, syscall.SIGTERM)

		<-signalC // wait for signal
		cancel()  // signal loop to end

		shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()

		if err := httpd.Shutdown(shutdown); err != nil {
			log.ERROR.Println(err)
		}
	}()

	if err := httpd.ListenAndServe(); err != http.ErrServerClosed {
		log.FATAL.Fatal(err)
	}

	select {
	case <-exitC: // wait for loop to end
	case <-time.NewTimer(core.Tick * 5).C: // wait max 5 ticks
	}

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
