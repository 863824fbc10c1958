package main

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"fritzbox-exporter/internal/collector"
	"fritzbox-exporter/internal/config"
	"fritzbox-exporter/internal/metrics"
	"fritzbox-exporter/internal/tr064"
)

const exporterName = "fritzbox_exporter"

// the device can be defined via flags and environment, or via config file.
var (
	configFile    = kingpin.Flag("config-file", "config file to load").Envar("FRITZ_CONFIG_FILE").String()
	host          = kingpin.Flag("host", "address of the FRITZ!Box").Default(config.DefaultHost).Envar("FRITZ_HOST").String()
	devicePort    = kingpin.Flag("device-port", "TR-064 port of the FRITZ!Box (default 49000, 49443 with TLS)").Envar("FRITZ_PORT").String()
	srvRecord     = kingpin.Flag("srv", "SRV record to discover the FRITZ!Box with").Envar("FRITZ_SRV").String()
	user          = kingpin.Flag("user", "user for authentication with the FRITZ!Box").Envar("FRITZ_USER").String()
	password      = kingpin.Flag("password", "password for authentication with the FRITZ!Box").Envar("FRITZ_PASS").String()
	useTLS        = kingpin.Flag("tls", "use TLS to connect to the FRITZ!Box").Envar("FRITZ_TLS").Bool()
	insecure      = kingpin.Flag("insecure", "skips verification of server certificate when using TLS (not recommended)").Envar("FRITZ_INSECURE").Bool()
	timeout       = kingpin.Flag("timeout", "timeout of a single remote call to the FRITZ!Box").Default(collector.DefaultTimeout.String()).Envar("FRITZ_TIMEOUT").Duration()
	feats         = kingpin.Flag("features", "comma separated list of metric features, all if empty").Envar("FRITZ_FEATURES").String()
	scrapeMetrics = kingpin.Flag("scrape-metrics", "export success of remote calls and scrape duration").Bool()
	listenPort    = kingpin.Flag("port", "port number to listen on").Default("8765").Envar("FRITZ_EXPORTER_PORT").String()
	metricsPath   = kingpin.Flag("path", "path to answer requests on").Default("/metrics").String()
	logFormat     = kingpin.Flag("log-format", "log format").Default("json").Envar("LOGFORMAT").Enum("text", "json")
	logLevel      = kingpin.Flag("log-level", "log level").Default("info").Envar("LOGLEVEL").String()
)

func main() {
	os.Exit(run())
}

func run() int {
	kingpin.Version(version.Print(exporterName))
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	if err := configureLog(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Errorf("Could not load config: %v", err)
		return 3
	}

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("Please make sure to set FRITZ_USER and FRITZ_PASS environment variables correctly")
		return 1
	}

	if err := validateTimeout(*timeout); err != nil {
		log.WithError(err).Error("Please make sure to set FRITZ_TIMEOUT to a positive duration")
		return 1
	}

	if err := config.ResolveSrv(cfg.Device); err != nil {
		log.WithError(err).Error("Could not resolve device")
		return 1
	}

	h, err := createMetricsHandler(cfg, features(cfg), *timeout, *scrapeMetrics)
	if err != nil {
		log.WithError(err).Error("Could not set up metrics")
		return 1
	}

	return startServer(h)
}

func configureLog() error {
	ll, err := log.ParseLevel(*logLevel)
	if err != nil {
		return err
	}

	log.SetLevel(ll)

	if *logFormat == "text" {
		log.SetFormatter(&log.TextFormatter{})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	return nil
}

func loadConfig() (*config.Config, error) {
	if *configFile != "" {
		return loadConfigFromFile()
	}

	return loadConfigFromFlags(), nil
}

func loadConfigFromFile() (*config.Config, error) {
	b, err := ioutil.ReadFile(*configFile)
	if err != nil {
		return nil, err
	}

	c, err := config.Load(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	// credentials are preferably kept out of the file
	if c.Device.User == "" {
		c.Device.User = *user
	}
	if c.Device.Password == "" {
		c.Device.Password = *password
	}

	return c, nil
}

func loadConfigFromFlags() *config.Config {
	d := &config.Device{
		Address:  *host,
		Port:     *devicePort,
		User:     *user,
		Password: *password,
		TLS:      *useTLS,
		Insecure: *insecure,
	}
	if *srvRecord != "" {
		d.Address = ""
		d.Srv = config.SrvRecord{Record: *srvRecord}
	}
	d.ApplyDefaults()

	return &config.Config{Device: d}
}

func validateTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid timeout %s", d)
	}

	return nil
}

func features(cfg *config.Config) []string {
	if *feats != "" {
		var fs []string
		for _, f := range strings.Split(*feats, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fs = append(fs, f)
			}
		}
		return fs
	}
	if fs := cfg.EnabledFeatures(); len(fs) > 0 {
		return fs
	}

	return metrics.Registry.Names()
}

func createMetricsHandler(cfg *config.Config, feats []string, timeout time.Duration, withScrapeMetrics bool) (http.Handler, error) {
	defs, err := metrics.Registry.Load(feats...)
	if err != nil {
		return nil, err
	}

	custom, err := metrics.FromConfig(cfg.Definitions)
	if err != nil {
		return nil, err
	}

	table, err := metrics.NewTable(append(defs, custom...)...)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"device":      cfg.Device.Name,
		"url":         cfg.Device.BaseURL(),
		"features":    feats,
		"definitions": table.Len(),
	}).Info("setting up exporter")

	client := tr064.NewClient(cfg.Device, tr064.WithTimeout(timeout))

	opts := []collector.Option{collector.WithTimeout(timeout)}
	if withScrapeMetrics {
		opts = append(opts, collector.WithScrapeMetrics())
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(version.NewCollector(exporterName)); err != nil {
		return nil, err
	}
	if err := registry.Register(collector.New(table, client, opts...)); err != nil {
		return nil, err
	}

	return promhttp.HandlerFor(registry,
		promhttp.HandlerOpts{
			ErrorLog:      log.New(),
			ErrorHandling: promhttp.ContinueOnError,
		}), nil
}

func newMux(h http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(*metricsPath, h)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>
			<head><title>FRITZ!Box Exporter</title></head>
			<body>
			<h1>FRITZ!Box Exporter</h1>
			<p><a href="` + *metricsPath + `">Metrics</a></p>
			</body>
			</html>`))
	})

	return mux
}

func startServer(h http.Handler) int {
	srv := &http.Server{
		Addr:    ":" + *listenPort,
		Handler: newMux(h),
	}

	srvc := make(chan struct{})
	term := make(chan os.Signal, 1)
	signal.Notify(term, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("Listening on ", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("Error starting HTTP server")
			close(srvc)
		}
	}()

	select {
	case <-term:
		log.Info("Received SIGTERM, exiting gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Error shutting down HTTP server")
			return 1
		}
		return 0
	case <-srvc:
		return 1
	}
}
