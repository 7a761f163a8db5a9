package auth

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func testConfiguration(t *testing.T) Configuration {
	c := Configuration{
		ServerConfig: ServerConfig{
			Host:   "localhost",
			Scheme: "http",
			Port:   4180,
			TimeoutConfig: TimeoutConfig{
				Write: 30 * time.Second,
				Read:  30 * time.Second,
			},
		},
		SessionConfig: SessionConfig{
			SessionLifetimeTTL: (30 * 24) * time.Hour,
			SessionValidTTL:    time.Minute,
			CookieConfig: CookieConfig{
				Name:     "_hubauth",
				Secret:   "zaPX2fYMyegfOwwMEaMiphwrjgxz0pxoTbxvQiK9zBY=", // generated using `openssl rand -base64 32`
				Expire:   (7 * 24) * time.Hour,
				Secure:   true,
				HTTPOnly: true,
			},
			Key: "CrYro5Kp6CO2aBbVGoHgnh2/YQaz9cqqRYNbtTSUBDs=", // generated using `openssl rand -base64 32`
		},
		MetricsConfig: MetricsConfig{
			StatsdConfig: StatsdConfig{
				Host: "localhost",
				Port: 8124,
			},
		},
		LoggingConfig: LoggingConfig{
			Enable: true,
		},

		// we provide no defaults for these right now
		ProviderConfigs: map[string]ProviderConfig{
			"foo": ProviderConfig{
				ProviderType: "test",
				ProviderSlug: "foo",
				ClientConfig: ClientConfig{
					ID:     "foo-client-id",
					Secret: "foo-client-secret",
				},
			},
		},
		ClientConfigs: map[string]ClientConfig{
			"hub": ClientConfig{
				ID:     "hub-client-id",
				Secret: "hub-client-secret",
			},
		},
		AuthorizeConfig: AuthorizeConfig{
			HubConfig: HubConfig{
				Domains: []string{"hub.local", "root.local", "example.com"},
			},
		},
	}
	err := c.Validate()
	if err != nil {
		t.Fatalf("unexpected err initializing test configuration: %v", err)
	}
	return c
}

func assertEq(want, have interface{}, t *testing.T) {
	if !reflect.DeepEqual(want, have) {
		t.Errorf("want: %#v", want)
		t.Errorf("have: %#v", have)
		t.Errorf("expected values to be equal")
	}
}

func TestDefaultConfiguration(t *testing.T) {
	want := DefaultAuthConfig()
	have, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected err loading config: %v", err)
	}
	assertEq(want, have, t)
}

func TestEnvironmentOverridesConfiguration(t *testing.T) {
	testCases := []struct {
		Name         string
		EnvOverrides map[string]string
		CheckFunc    func(c Configuration, t *testing.T)
	}{
		{
			Name: "Test Server Host Overrides",
			EnvOverrides: map[string]string{
				"SERVER_HOST": "example.com",
			},
			CheckFunc: func(c Configuration, t *testing.T) {
				assertEq("example.com", c.ServerConfig.Host, t)
			},
		},
		{
			Name: "Test Request Timeout Overrides",
			EnvOverrides: map[string]string{
				"SERVER_TIMEOUT_WRITE": "60s",
				"SERVER_TIMEOUT_READ":  "60s",
			},
			CheckFunc: func(c Configuration, t *testing.T) {
				assertEq(60*time.Second, c.ServerConfig.TimeoutConfig.Write, t)
				assertEq(60*time.Second, c.ServerConfig.TimeoutConfig.Read, t)
			},
		},
		{
			Name: "Test Provider Overrides",
			EnvOverrides: map[string]string{
				"PROVIDER_OPENSHIFT_TYPE":          "openshift",
				"PROVIDER_OPENSHIFT_SLUG":          "openshift",
				"PROVIDER_OPENSHIFT_CLIENT_ID":     "system:serviceaccount:hub:hubauth",
				"PROVIDER_OPENSHIFT_CLIENT_SECRET": "sa-token",
				"PROVIDER_OPENSHIFT_SCOPE":         "user:info",
			},
			CheckFunc: func(c Configuration, t *testing.T) {
				pc, ok := c.ProviderConfigs["openshift"]
				if !ok {
					t.Fatalf("expected provider %q to be configured", "openshift")
				}
				assertEq("openshift", pc.ProviderType, t)
				assertEq("openshift", pc.ProviderSlug, t)
				assertEq("system:serviceaccount:hub:hubauth", pc.ClientConfig.ID, t)
				assertEq("sa-token", pc.ClientConfig.Secret, t)
				assertEq("user:info", pc.Scope, t)
			},
		},
		{
			Name: "Test OpenShift Provider Overrides",
			EnvOverrides: map[string]string{
				"PROVIDER_OPENSHIFT_TYPE":                    "openshift",
				"PROVIDER_OPENSHIFT_SLUG":                    "openshift",
				"PROVIDER_OPENSHIFT_OPENSHIFT_URL":           "https://api.cluster.example.com",
				"PROVIDER_OPENSHIFT_OPENSHIFT_API_REST":      "https://api.cluster.example.com:6443",
				"PROVIDER_OPENSHIFT_OPENSHIFT_BUNDLE_REFRESH": "10m",
				"PROVIDER_OPENSHIFT_OPENSHIFT_TLS_SKIP":      "true",
				"PROVIDER_OPENSHIFT_OPENSHIFT_GROUPS_ALLOWED": "datahub-users,datahub-ops",
				"PROVIDER_OPENSHIFT_OPENSHIFT_GROUPS_ADMIN":   "datahub-ops",
			},
			CheckFunc: func(c Configuration, t *testing.T) {
				opc := c.ProviderConfigs["openshift"].OpenShiftProviderConfig
				assertEq("https://api.cluster.example.com", opc.URL, t)
				assertEq("https://api.cluster.example.com:6443", opc.APIConfig.Rest, t)
				assertEq(10*time.Minute, opc.BundleConfig.Refresh, t)
				assertEq(true, opc.TLSConfig.Skip, t)
				assertEq([]string{"datahub-users", "datahub-ops"}, opc.GroupsConfig.Allowed, t)
				assertEq([]string{"datahub-ops"}, opc.GroupsConfig.Admin, t)
			},
		},
		{
			Name: "Test Session Overrides",
			EnvOverrides: map[string]string{
				"SESSION_COOKIE_NAME": "_hubauth_test",
				"SESSION_LIFETIME":    "720h",
				"SESSION_VALID":       "2m",
			},
			CheckFunc: func(c Configuration, t *testing.T) {
				assertEq("_hubauth_test", c.SessionConfig.CookieConfig.Name, t)
				assertEq(720*time.Hour, c.SessionConfig.SessionLifetimeTTL, t)
				assertEq(2*time.Minute, c.SessionConfig.SessionValidTTL, t)
			},
		},
		{
			Name: "Test Authorize Overrides",
			EnvOverrides: map[string]string{
				"AUTHORIZE_HUB_DOMAINS": "hub.example.com,example.com",
				"AUTHORIZE_USERNAMES":   "alice,bob",
				"AUTHORIZE_GROUPS":      "datahub-users",
			},
			CheckFunc: func(c Configuration, t *testing.T) {
				assertEq([]string{"hub.example.com", "example.com"}, c.AuthorizeConfig.HubConfig.Domains, t)
				assertEq([]string{"alice", "bob"}, c.AuthorizeConfig.Usernames, t)
				assertEq([]string{"datahub-users"}, c.AuthorizeConfig.Groups, t)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			for k, v := range tc.EnvOverrides {
				err := os.Setenv(k, v)
				if err != nil {
					t.Fatalf("unexpected err setting env: %v", err)
				}
			}
			defer func() {
				for k := range tc.EnvOverrides {
					os.Unsetenv(k)
				}
			}()

			have, err := LoadConfig()
			if err != nil {
				t.Fatalf("unexpected err loading config: %v", err)
			}
			tc.CheckFunc(have, t)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		Name        string
		Mutate      func(c Configuration) Configuration
		ExpectedErr bool
	}{
		{
			Name:        "base test configuration is valid",
			Mutate:      func(c Configuration) Configuration { return c },
			ExpectedErr: false,
		},
		{
			Name: "missing hub client id",
			Mutate: func(c Configuration) Configuration {
				c.ClientConfigs["hub"] = ClientConfig{Secret: "secret"}
				return c
			},
			ExpectedErr: true,
		},
		{
			Name: "missing hub domains",
			Mutate: func(c Configuration) Configuration {
				c.AuthorizeConfig.HubConfig.Domains = []string{}
				return c
			},
			ExpectedErr: true,
		},
		{
			Name: "session valid ttl must stay below lifetime",
			Mutate: func(c Configuration) Configuration {
				c.SessionConfig.SessionValidTTL = c.SessionConfig.SessionLifetimeTTL + time.Hour
				return c
			},
			ExpectedErr: true,
		},
		{
			Name: "session key must decode to 32 or 64 bytes",
			Mutate: func(c Configuration) Configuration {
				c.SessionConfig.Key = "dG9vc2hvcnQ="
				return c
			},
			ExpectedErr: true,
		},
		{
			Name: "unknown provider type",
			Mutate: func(c Configuration) Configuration {
				pc := c.ProviderConfigs["foo"]
				pc.ProviderType = "emoji"
				c.ProviderConfigs["foo"] = pc
				return c
			},
			ExpectedErr: true,
		},
		{
			Name: "negative bundle refresh",
			Mutate: func(c Configuration) Configuration {
				pc := c.ProviderConfigs["foo"]
				pc.ProviderType = "openshift"
				pc.OpenShiftProviderConfig.BundleConfig.Refresh = -time.Minute
				c.ProviderConfigs["foo"] = pc
				return c
			},
			ExpectedErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			c := Configuration{}
			// build a fresh base config for each case, Mutate may share maps
			base := testConfiguration(t)
			c = tc.Mutate(base)

			err := c.Validate()
			if tc.ExpectedErr && err == nil {
				t.Errorf("expected validation error, got nil")
			}
			if !tc.ExpectedErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
