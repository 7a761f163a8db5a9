package auth

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/notebookhub/hubauth/internal/auth/providers"
	"github.com/notebookhub/hubauth/internal/pkg/aead"
	"github.com/notebookhub/hubauth/internal/pkg/cabundle"
	log "github.com/notebookhub/hubauth/internal/pkg/logging"
	"github.com/notebookhub/hubauth/internal/pkg/options"
	"github.com/notebookhub/hubauth/internal/pkg/sessions"

	"github.com/datadog/datadog-go/statsd"
)

// newProvider constructs the identity provider chain for a single provider
// config: the provider itself, wrapped by the user cache when a cache TTL is
// configured, wrapped by the single-flight deduplicator.
func newProvider(pc ProviderConfig, sc SessionConfig) (providers.Provider, error) {
	providerData := &providers.ProviderData{
		ProviderSlug:       pc.ProviderSlug,
		ClientID:           pc.ClientConfig.ID,
		ClientSecret:       pc.ClientConfig.Secret,
		Scope:              pc.Scope,
		SessionLifetimeTTL: sc.SessionLifetimeTTL,
		SessionValidTTL:    sc.SessionValidTTL,
	}

	var provider providers.Provider
	switch pc.ProviderType {
	case providers.OpenShiftProviderName:
		opc := pc.OpenShiftProviderConfig

		bundles := cabundle.NewStore(opc.BundleConfig.Refresh)
		openShiftProvider, err := providers.NewOpenShiftProvider(providerData, providers.OpenShiftConfig{
			ClusterURL:         opc.URL,
			RESTAPIURL:         opc.APIConfig.Rest,
			AuthAPIURL:         opc.APIConfig.Auth,
			CABundlePath:       opc.BundleConfig.Cluster,
			SystemBundlePath:   opc.BundleConfig.System,
			ValidateServerCert: !opc.TLSConfig.Skip,
			AllowedGroups:      opc.GroupsConfig.Allowed,
			AdminGroups:        opc.GroupsConfig.Admin,
		}, bundles)
		if err != nil {
			bundles.Stop()
			return nil, err
		}

		if opc.BundleConfig.Refresh > 0 && !opc.TLSConfig.Skip {
			clusterPath, systemPath := openShiftProvider.BundlePaths()
			go bundles.RefreshLoop(clusterPath)
			go bundles.RefreshLoop(systemPath)
		}

		provider = openShiftProvider
	case "test":
		provider = providers.NewTestProvider(nil)
	default:
		return nil, fmt.Errorf("unknown provider.type: %q", pc.ProviderType)
	}

	if ttl := pc.UserCacheConfig.TTL; ttl > 0 {
		tags := []string{fmt.Sprintf("provider:%s", pc.ProviderSlug)}
		provider = providers.NewUserCache(provider, ttl, nil, tags)
	}

	return providers.NewSingleFlightProvider(provider), nil
}

// SetProvider assigns a provider to the authenticator
func SetProvider(provider providers.Provider) func(*Authenticator) error {
	return func(a *Authenticator) error {
		a.provider = provider
		return nil
	}
}

// SetCookieStore sets the cookie store to use a miscreant cipher
func SetCookieStore(config Configuration, providerSlug string) func(*Authenticator) error {
	return func(a *Authenticator) error {
		sessionConfig := config.SessionConfig
		cookieConfig := sessionConfig.CookieConfig

		decodedAuthCodeSecret, err := base64.StdEncoding.DecodeString(sessionConfig.Key)
		if err != nil {
			return err
		}
		authCodeCipher, err := aead.NewMiscreantCipher(decodedAuthCodeSecret)
		if err != nil {
			return err
		}

		decodedCookieSecret, err := base64.StdEncoding.DecodeString(cookieConfig.Secret)
		if err != nil {
			return err
		}
		cookieStore, err := sessions.NewCookieStore(
			fmt.Sprintf("%s_%s", cookieConfig.Name, providerSlug),
			sessions.CreateMiscreantCookieCipher(decodedCookieSecret),
			func(c *sessions.CookieStore) error {
				c.CookieDomain = cookieConfig.Domain
				c.CookieHTTPOnly = cookieConfig.HTTPOnly
				c.CookieExpire = cookieConfig.Expire
				c.CookieSecure = cookieConfig.Secure
				return nil
			},
		)
		if err != nil {
			return err
		}

		a.csrfStore = cookieStore
		a.sessionStore = cookieStore
		a.AuthCodeCipher = authCodeCipher
		return nil
	}
}

// SetAllowedGroups records the provider's allowed groups so the sign-in page
// can tell users who may enter
func SetAllowedGroups(groups []string) func(*Authenticator) error {
	return func(a *Authenticator) error {
		a.AllowedGroups = groups
		return nil
	}
}

// SetStatsdClient sets the statsd client on the authenticator and its provider
func SetStatsdClient(statsdClient *statsd.Client) func(*Authenticator) error {
	return func(a *Authenticator) error {
		a.StatsdClient = statsdClient
		if a.provider != nil {
			a.provider.SetStatsdClient(statsdClient)
		}
		return nil
	}
}

// SetRedirectURL preassembles the callback url for the given provider slug
func SetRedirectURL(config Configuration, providerSlug string) func(*Authenticator) error {
	return func(a *Authenticator) error {
		a.redirectURL = &url.URL{
			Scheme: config.ServerConfig.Scheme,
			Host:   config.ServerConfig.Host,
			Path:   fmt.Sprintf("/%s/callback", providerSlug),
		}
		return nil
	}
}

// SetValidators installs the service-level username and group restrictions
func SetValidators(config AuthorizeConfig) func(*Authenticator) error {
	return func(a *Authenticator) error {
		logger := log.NewLogEntry()

		validators := []options.Validator{}
		if len(config.Usernames) != 0 {
			validators = append(validators, options.NewUsernameValidator(config.Usernames))
		}
		if len(config.Groups) != 0 {
			validators = append(validators, options.NewGroupValidator(config.Groups))
		}
		if len(validators) == 0 {
			logger.Info("no service-level validators configured, admitting all provider-approved users")
		}

		a.Validators = validators
		return nil
	}
}
