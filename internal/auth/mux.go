package auth

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/notebookhub/hubauth/internal/pkg/hostmux"
	log "github.com/notebookhub/hubauth/internal/pkg/logging"
	"github.com/notebookhub/hubauth/internal/pkg/ping"

	"github.com/datadog/datadog-go/statsd"
)

type AuthenticatorMux struct {
	handler        http.Handler
	authenticators []*Authenticator
}

// NewAuthenticatorMux constructs one authenticator per configured provider
// and mounts each under its slug.
func NewAuthenticatorMux(config Configuration, statsdClient *statsd.Client) (*AuthenticatorMux, error) {
	logger := log.NewLogEntry()

	authenticators := []*Authenticator{}
	idpMux := http.NewServeMux()

	// iterate in a stable order so startup logs and errors are reproducible
	slugs := make([]string, 0, len(config.ProviderConfigs))
	for slug := range config.ProviderConfigs {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		providerConfig := config.ProviderConfigs[slug]

		idp, err := newProvider(providerConfig, config.SessionConfig)
		if err != nil {
			logger.WithProvider(slug).Error(err, "error creating new Identity Provider")
			return nil, err
		}

		idpSlug := idp.Data().ProviderSlug
		authenticator, err := NewAuthenticator(config,
			SetProvider(idp),
			SetCookieStore(config, idpSlug),
			SetStatsdClient(statsdClient),
			SetRedirectURL(config, idpSlug),
			SetAllowedGroups(providerConfig.OpenShiftProviderConfig.GroupsConfig.Allowed),
			SetValidators(config.AuthorizeConfig),
		)
		if err != nil {
			logger.WithProvider(slug).Error(err, "error creating new Authenticator")
			return nil, err
		}

		authenticators = append(authenticators, authenticator)

		// setup our mux with the idp slug as the first part of the path
		idpMux.Handle(
			fmt.Sprintf("/%s/", idpSlug),
			http.StripPrefix(fmt.Sprintf("/%s", idpSlug), authenticator.ServeMux),
		)
	}

	// load static files
	fsHandler, err := loadFSHandler()
	if err != nil {
		return nil, err
	}
	idpMux.Handle("/static/", http.StripPrefix("/static/", fsHandler))

	hostRouter := hostmux.NewRouter()
	hostRouter.HandleStatic(config.ServerConfig.Host, idpMux)

	// /ping answers on any host so load balancer health checks pass
	healthcheckHandler := &ping.PingHandler{
		Handler: hostRouter,
		Path:    "/ping",
	}

	return &AuthenticatorMux{
		handler:        healthcheckHandler,
		authenticators: authenticators,
	}, nil
}

func (a *AuthenticatorMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Stop stops background work owned by each authenticator's provider
func (a *AuthenticatorMux) Stop() {
	for _, authenticator := range a.authenticators {
		authenticator.Stop()
	}
}
