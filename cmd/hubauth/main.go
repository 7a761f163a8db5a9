package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/notebookhub/hubauth/internal/auth"
	"github.com/notebookhub/hubauth/internal/pkg/httpserver"
	log "github.com/notebookhub/hubauth/internal/pkg/logging"
)

func init() {
	log.SetServiceName("hubauth")
}

func main() {
	logger := log.NewLogEntry()

	config, err := auth.LoadConfig()
	if err != nil {
		logger.Error(err, "error loading in config from env vars")
		os.Exit(1)
	}

	err = config.Validate()
	if err != nil {
		logger.Error(err, "error validating config")
		os.Exit(1)
	}

	log.SetLevel(config.LoggingConfig.Level)

	statsdClient, err := auth.NewStatsdClient(config.MetricsConfig.StatsdConfig.Host, config.MetricsConfig.StatsdConfig.Port)
	if err != nil {
		logger.Error(err, "error creating statsd client")
		os.Exit(1)
	}
	logger.WithStatsdHost(config.MetricsConfig.StatsdConfig.Host).WithStatsdPort(
		config.MetricsConfig.StatsdConfig.Port).Info("statsd client is running")

	authMux, err := auth.NewAuthenticatorMux(config, statsdClient)
	if err != nil {
		logger.Error(err, "error creating authenticator mux")
		os.Exit(1)
	}
	defer authMux.Stop()

	// we leave the message field blank, which will inherit the stdlib timeout page which is sufficient
	// and better than other naive messages we would currently place here
	timeoutHandler := http.TimeoutHandler(authMux, config.ServerConfig.TimeoutConfig.Request, "")

	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.ServerConfig.Port),
		ReadTimeout:  config.ServerConfig.TimeoutConfig.Read,
		WriteTimeout: config.ServerConfig.TimeoutConfig.Write,
		Handler:      auth.NewLoggingHandler(os.Stdout, timeoutHandler, config.LoggingConfig.Enable, statsdClient),
	}

	if err := httpserver.Run(s, config.ServerConfig.TimeoutConfig.Shutdown, logger); err != nil {
		logger.Error(err, "error shutting down http server")
		os.Exit(1)
	}
}
