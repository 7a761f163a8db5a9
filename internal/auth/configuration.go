package auth

import (
	"encoding/base64"
	"io/ioutil"
	"net/http"
	"os"
	"time"

	"github.com/imdario/mergo"
	"github.com/micro/go-micro/config"
	"github.com/micro/go-micro/config/source/env"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/xerrors"
	yaml "gopkg.in/yaml.v2"
)

// DefaultAuthConfig specifies all the defaults used to configure hubauth
// All configuration can be set using environment variables. Below is a list of
// configuration variables via their environment configuration
//
// SESSION_COOKIE_NAME
// SESSION_COOKIE_SECRET
// SESSION_COOKIE_EXPIRE
// SESSION_COOKIE_DOMAIN
// SESSION_COOKIE_SECURE
// SESSION_COOKIE_HTTPONLY
// SESSION_LIFETIME
// SESSION_VALID
// SESSION_KEY
//
// CLIENT_HUB_ID
// CLIENT_HUB_SECRET
// CLIENT_HUB_SIGNATURE
//
// PROVIDER_*_TYPE
// PROVIDER_*_SLUG
// PROVIDER_*_CLIENT_ID
// PROVIDER_*_CLIENT_SECRET
// PROVIDER_*_SCOPE
//
// PROVIDER_*_OPENSHIFT_URL
// PROVIDER_*_OPENSHIFT_API_REST
// PROVIDER_*_OPENSHIFT_API_AUTH
// PROVIDER_*_OPENSHIFT_BUNDLE_CLUSTER
// PROVIDER_*_OPENSHIFT_BUNDLE_SYSTEM
// PROVIDER_*_OPENSHIFT_BUNDLE_REFRESH
// PROVIDER_*_OPENSHIFT_TLS_SKIP
// PROVIDER_*_OPENSHIFT_GROUPS_ALLOWED
// PROVIDER_*_OPENSHIFT_GROUPS_ADMIN
//
// PROVIDER_*_USERCACHE_TTL
//
// SERVER_SCHEME
// SERVER_HOST
// SERVER_PORT
// SERVER_TIMEOUT_REQUEST
// SERVER_TIMEOUT_WRITE
// SERVER_TIMEOUT_READ
// SERVER_TIMEOUT_SHUTDOWN
//
// AUTHORIZE_HUB_DOMAINS
// AUTHORIZE_USERNAMES
// AUTHORIZE_GROUPS
//
// METRICS_STATSD_PORT
// METRICS_STATSD_HOST
//
// LOGGING_ENABLE
// LOGGING_LEVEL
//
// Setting CONFIG_FILE to the path of a YAML file overlays that file's values
// over the defaults before the environment is applied; the environment wins.

func DefaultAuthConfig() Configuration {
	return Configuration{
		ProviderConfigs: map[string]ProviderConfig{},
		ClientConfigs: map[string]ClientConfig{
			"hub": ClientConfig{},
		},
		ServerConfig: ServerConfig{
			Port:   4180,
			Scheme: "https",
			TimeoutConfig: TimeoutConfig{
				Write:    30 * time.Second,
				Read:     30 * time.Second,
				Request:  45 * time.Second,
				Shutdown: 46 * time.Second, // by default, shutdown timeout matches request timeout + a little headroom
			},
		},
		SessionConfig: SessionConfig{
			SessionLifetimeTTL: (30 * 24) * time.Hour,
			SessionValidTTL:    time.Minute,
			CookieConfig: CookieConfig{
				Expire:   (7 * 24) * time.Hour,
				Name:     "_hubauth",
				Secure:   true,
				HTTPOnly: true,
			},
		},
		LoggingConfig: LoggingConfig{
			Enable: true,
			Level:  "info",
		},
		MetricsConfig: MetricsConfig{
			StatsdConfig: StatsdConfig{
				Port: 8125,
				Host: "localhost",
			},
		},
		// we provide no defaults for these right now
		AuthorizeConfig: AuthorizeConfig{
			HubConfig: HubConfig{
				Domains: []string{},
			},
			Usernames: []string{},
			Groups:    []string{},
		},
	}
}

// Validator interface ensures all config structs implement Validate()
type Validator interface {
	Validate() error
}

var (
	_ Validator = Configuration{}
	_ Validator = ProviderConfig{}
	_ Validator = ClientConfig{}
	_ Validator = AuthorizeConfig{}
	_ Validator = HubConfig{}
	_ Validator = ServerConfig{}
	_ Validator = MetricsConfig{}
	_ Validator = OpenShiftProviderConfig{}
	_ Validator = SessionConfig{}
	_ Validator = CookieConfig{}
	_ Validator = TimeoutConfig{}
	_ Validator = StatsdConfig{}
	_ Validator = LoggingConfig{}
)

// Configuration is the parent struct that holds all the configuration
type Configuration struct {
	ProviderConfigs map[string]ProviderConfig `mapstructure:"provider"`
	ClientConfigs   map[string]ClientConfig   `mapstructure:"client"`
	AuthorizeConfig AuthorizeConfig           `mapstructure:"authorize"`
	SessionConfig   SessionConfig             `mapstructure:"session"`
	ServerConfig    ServerConfig              `mapstructure:"server"`
	MetricsConfig   MetricsConfig             `mapstructure:"metrics"`
	LoggingConfig   LoggingConfig             `mapstructure:"logging"`
}

func (c Configuration) Validate() error {
	for slug, providerConfig := range c.ProviderConfigs {
		if err := providerConfig.Validate(); err != nil {
			return xerrors.Errorf("invalid provider.%s config: %w", slug, err)
		}
	}

	for slug, clientConfig := range c.ClientConfigs {
		if err := clientConfig.Validate(); err != nil {
			return xerrors.Errorf("invalid client.%s config: %w", slug, err)
		}
	}

	if err := c.SessionConfig.Validate(); err != nil {
		return xerrors.Errorf("invalid session config: %w", err)
	}

	if err := c.ServerConfig.Validate(); err != nil {
		return xerrors.Errorf("invalid server config: %w", err)
	}

	if err := c.AuthorizeConfig.Validate(); err != nil {
		return xerrors.Errorf("invalid authorize config: %w", err)
	}

	if err := c.MetricsConfig.Validate(); err != nil {
		return xerrors.Errorf("invalid metrics config: %w", err)
	}

	return nil
}

type ProviderConfig struct {
	ProviderType string       `mapstructure:"type"`
	ProviderSlug string       `mapstructure:"slug"`
	ClientConfig ClientConfig `mapstructure:"client"`
	Scope        string       `mapstructure:"scope"`

	// provider specific
	OpenShiftProviderConfig OpenShiftProviderConfig `mapstructure:"openshift"`

	// caching
	UserCacheConfig UserCacheConfig `mapstructure:"usercache"`
}

func (pc ProviderConfig) Validate() error {
	if pc.ProviderType == "" {
		return xerrors.Errorf("invalid provider.type: %q", pc.ProviderType)
	}

	if pc.ProviderSlug == "" {
		return xerrors.Errorf("invalid provider.slug: %q", pc.ProviderSlug)
	}

	if err := pc.ClientConfig.Validate(); err != nil {
		return xerrors.Errorf("invalid provider.client: %w", err)
	}

	switch pc.ProviderType {
	case "openshift":
		if err := pc.OpenShiftProviderConfig.Validate(); err != nil {
			return xerrors.Errorf("invalid provider.openshift config: %w", err)
		}
	case "test":
		break
	default:
		return xerrors.Errorf("unknown provider.type: %q", pc.ProviderType)
	}

	return nil
}

type OpenShiftProviderConfig struct {
	// base url of the cluster; the oauth metadata discovery document and,
	// unless overridden, the REST API live here
	URL string `mapstructure:"url"`

	APIConfig    OpenShiftAPIConfig `mapstructure:"api"`
	BundleConfig BundleConfig       `mapstructure:"bundle"`
	TLSConfig    TLSConfig          `mapstructure:"tls"`
	GroupsConfig GroupsConfig       `mapstructure:"groups"`
}

func (opc OpenShiftProviderConfig) Validate() error {
	if err := opc.BundleConfig.Validate(); err != nil {
		return xerrors.Errorf("invalid openshift.bundle config: %w", err)
	}
	return nil
}

type OpenShiftAPIConfig struct {
	// REST api base url, defaults to the cluster url
	Rest string `mapstructure:"rest"`
	// explicit oauth server url; setting it skips endpoint discovery
	Auth string `mapstructure:"auth"`
}

type BundleConfig struct {
	Cluster string        `mapstructure:"cluster"`
	System  string        `mapstructure:"system"`
	Refresh time.Duration `mapstructure:"refresh"`
}

func (bc BundleConfig) Validate() error {
	if bc.Refresh < 0 {
		return xerrors.Errorf("bundle.refresh must not be negative: %v", bc.Refresh)
	}
	return nil
}

// TLSConfig controls server-cert validation for cluster requests. Skip is
// false by default so the zero value stays safe.
type TLSConfig struct {
	Skip bool `mapstructure:"skip"`
}

type GroupsConfig struct {
	Allowed []string `mapstructure:"allowed"`
	Admin   []string `mapstructure:"admin"`
}

type UserCacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type SessionConfig struct {
	CookieConfig CookieConfig `mapstructure:"cookie"`

	SessionLifetimeTTL time.Duration `mapstructure:"lifetime"`
	SessionValidTTL    time.Duration `mapstructure:"valid"`
	Key                string        `mapstructure:"key"`
}

func (sc SessionConfig) Validate() error {
	if sc.Key == "" {
		return xerrors.New("no session.key configured")
	}

	if err := validateCipherKeyValue(sc.Key); err != nil {
		return xerrors.Errorf("invalid session.key: %w", err)
	}

	if sc.SessionLifetimeTTL >= (365*24)*time.Hour || sc.SessionLifetimeTTL <= 1*time.Minute {
		return xerrors.Errorf("session.lifetime must be between 1 minute and 1 year but is: %v", sc.SessionLifetimeTTL)
	}

	if sc.SessionValidTTL <= 0 || sc.SessionValidTTL >= sc.SessionLifetimeTTL {
		return xerrors.Errorf("session.valid must be between 0 and session.lifetime but is: %v", sc.SessionValidTTL)
	}

	if err := sc.CookieConfig.Validate(); err != nil {
		return xerrors.Errorf("invalid session.cookie config: %w", err)
	}

	return nil
}

func validateCipherKeyValue(val string) error {
	s, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return xerrors.Errorf("expected base64-encoded bytes, as from `openssl rand 32 -base64`: %w", err)
	}

	slen := len(s)
	if slen != 32 && slen != 64 {
		return xerrors.Errorf("expected to decode 32 or 64 base64-encoded bytes, but decoded %d", slen)
	}

	return nil
}

type CookieConfig struct {
	Name     string        `mapstructure:"name"`
	Secret   string        `mapstructure:"secret"`
	Domain   string        `mapstructure:"domain"`
	Expire   time.Duration `mapstructure:"expire"`
	Secure   bool          `mapstructure:"secure"`
	HTTPOnly bool          `mapstructure:"httponly"`
}

func (cc CookieConfig) Validate() error {
	if cc.Name == "" {
		return xerrors.New("no cookie.name configured")
	}

	cookie := &http.Cookie{Name: cc.Name}
	if cookie.String() == "" {
		return xerrors.Errorf("invalid cookie.name: %q", cc.Name)
	}

	if cc.Secret == "" {
		return xerrors.New("no cookie.secret configured")
	}

	if err := validateCipherKeyValue(cc.Secret); err != nil {
		return xerrors.Errorf("invalid cookie.secret: %w", err)
	}

	return nil
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	Scheme string `mapstructure:"scheme"`

	TimeoutConfig TimeoutConfig `mapstructure:"timeout"`
}

func (sc ServerConfig) Validate() error {
	if sc.Host == "" {
		return xerrors.New("no server.host configured")
	}

	if sc.Port == 0 {
		return xerrors.New("no server.port configured")
	}

	if err := sc.TimeoutConfig.Validate(); err != nil {
		return xerrors.Errorf("invalid server.timeout config: %w", err)
	}

	return nil
}

type TimeoutConfig struct {
	Write    time.Duration `mapstructure:"write"`
	Read     time.Duration `mapstructure:"read"`
	Request  time.Duration `mapstructure:"request"`
	Shutdown time.Duration `mapstructure:"shutdown"`
}

func (tc TimeoutConfig) Validate() error {
	return nil
}

type ClientConfig struct {
	ID     string `mapstructure:"id"`
	Secret string `mapstructure:"secret"`

	// optional hmac key for request-signature validation
	Signature string `mapstructure:"signature"`
}

func (cc ClientConfig) Validate() error {
	if cc.ID == "" {
		return xerrors.New("no client.id configured")
	}

	if cc.Secret == "" {
		return xerrors.New("no client.secret configured")
	}

	return nil
}

type AuthorizeConfig struct {
	HubConfig HubConfig `mapstructure:"hub"`

	// optional service-level restrictions on top of the provider's group
	// policy
	Usernames []string `mapstructure:"usernames"`
	Groups    []string `mapstructure:"groups"`
}

func (ac AuthorizeConfig) Validate() error {
	if err := ac.HubConfig.Validate(); err != nil {
		return xerrors.Errorf("invalid authorize.hub config: %w", err)
	}

	return nil
}

type HubConfig struct {
	Domains []string `mapstructure:"domains"`
}

func (hc HubConfig) Validate() error {
	if len(hc.Domains) == 0 {
		return xerrors.New("no hub.domains configured")
	}

	return nil
}

type MetricsConfig struct {
	StatsdConfig StatsdConfig `mapstructure:"statsd"`
}

func (mc MetricsConfig) Validate() error {
	if err := mc.StatsdConfig.Validate(); err != nil {
		return xerrors.Errorf("invalid metrics.statsd config: %w", err)
	}

	return nil
}

type LoggingConfig struct {
	Enable bool   `mapstructure:"enable"`
	Level  string `mapstructure:"level"`
}

func (lc LoggingConfig) Validate() error {
	return nil
}

type StatsdConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

func (sc StatsdConfig) Validate() error {
	if sc.Host == "" {
		return xerrors.New("no statsd.host configured")
	}

	if sc.Port == 0 {
		return xerrors.New("no statsd.port configured")
	}

	return nil
}

// LoadConfig loads all the configuration from an optional config file, the
// environment, and defaults
func LoadConfig() (Configuration, error) {
	c := DefaultAuthConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileConfig, err := loadConfigFile(path)
		if err != nil {
			return c, err
		}
		if err := mergo.Merge(&c, fileConfig, mergo.WithOverride); err != nil {
			return c, err
		}
	}

	conf := config.NewConfig()
	err := conf.Load(env.NewSource())
	if err != nil {
		return c, err
	}

	decoder, err := newConfigDecoder(&c)
	if err != nil {
		return c, err
	}

	err = decoder.Decode(conf.Map())
	if err != nil {
		return c, err
	}

	return c, nil
}

// loadConfigFile decodes the YAML file at path into a Configuration using
// the same decode hooks the environment goes through.
func loadConfigFile(path string) (Configuration, error) {
	var c Configuration

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return c, xerrors.Errorf("failed to read config file %q: %w", path, err)
	}

	values := make(map[string]interface{})
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return c, xerrors.Errorf("failed to parse config file %q: %w", path, err)
	}

	decoder, err := newConfigDecoder(&c)
	if err != nil {
		return c, err
	}
	if err := decoder.Decode(values); err != nil {
		return c, xerrors.Errorf("failed to decode config file %q: %w", path, err)
	}

	return c, nil
}

func newConfigDecoder(result *Configuration) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: result,
	})
}
