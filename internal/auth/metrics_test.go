package auth

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datadog/datadog-go/statsd"
)

func newTestStatsdClient(t *testing.T) (*statsd.Client, string, int) {
	client, err := NewStatsdClient("127.0.0.1", 8125)
	if err != nil {
		t.Fatalf("error starting new statsd client %s", err.Error())
	}
	return client, "127.0.0.1", 8125
}

func TestNewStatsd(t *testing.T) {
	testCases := []struct {
		name                 string
		host                 string
		port                 int
		additionalTags       []string
		expectedGlobalTags   []string
		expectedNamespace    string
		expectedPacketString string
	}{
		{
			name: "normal case no additional tags",
			host: "127.0.0.1",
			port: 8125,
			expectedGlobalTags: []string{
				"service:hubauth",
			},
			expectedNamespace:    "hubauth.",
			expectedPacketString: "hubauth.request:1|c|#service:hubauth",
		},
		{
			name: "normal case with additional tags",
			host: "127.0.0.1",
			port: 8125,
			expectedGlobalTags: []string{
				"service:hubauth",
			},
			additionalTags: []string{
				"another:tag",
			},
			expectedNamespace:    "hubauth.",
			expectedPacketString: "hubauth.request:1|c|#service:hubauth,another:tag",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// listen to incoming udp packets
			pc, err := net.ListenPacket("udp", fmt.Sprintf("%s:%d", tc.host, tc.port))
			if err != nil {
				t.Fatalf("error %s", err.Error())
			}
			defer pc.Close()

			client, err := NewStatsdClient(tc.host, tc.port)
			if err != nil {
				t.Fatalf("error starting new statsd client: %s", err.Error())
			}

			if client.Namespace != tc.expectedNamespace {
				t.Errorf("expected client namespace to be %s but was %s", tc.expectedNamespace, client.Namespace)
			}

			if len(client.Tags) != len(tc.expectedGlobalTags) {
				t.Errorf("expected length of global tags to be %d but was %d", len(tc.expectedGlobalTags), len(client.Tags))
			}
			for i, expectedTag := range tc.expectedGlobalTags {
				if client.Tags[i] != tc.expectedGlobalTags[i] {
					t.Errorf("expected tag %d to be %s but was %s", i, expectedTag, client.Tags[i])
				}
			}

			err = client.Incr("request", tc.additionalTags, 1.0)
			if err != nil {
				t.Fatalf("expected error to be nil but was %s", err.Error())
			}

			readBytes := make([]byte, len(tc.expectedPacketString))
			pc.ReadFrom(readBytes)
			packetString := string(readBytes)
			if packetString != tc.expectedPacketString {
				t.Errorf("expected packet string to be %s but was %s", tc.expectedPacketString, packetString)
			}
			pc.Close()
		})
	}
}

func TestLogRequestMetrics(t *testing.T) {
	testCases := []struct {
		name         string
		requestURL   string
		method       string
		status       int
		hubHost      string
		expectedTags []string
	}{
		{
			name:       "request URL is / with hubHost set",
			requestURL: "/",
			hubHost:    "hubHost",
			method:     "GET",
			status:     http.StatusOK,
			expectedTags: []string{
				"service:hubauth",
				"method:GET",
				fmt.Sprintf("status_code:%d", http.StatusOK),
				"status_category:2xx",
				"hub_host:hubHost",
				"action:unknown",
			},
		},
		{
			name:       "request url is / and no hubHost set while logging request metrics",
			requestURL: "/",
			method:     "GET",
			status:     http.StatusOK,
			expectedTags: []string{
				"service:hubauth",
				"method:GET",
				fmt.Sprintf("status_code:%d", http.StatusOK),
				"status_category:2xx",
				"hub_host:unknown",
				"action:unknown",
			},
		},
		{
			name:       "sign_in path adds action to tags",
			requestURL: "/sign_in?query=parameter",
			method:     "GET",
			status:     http.StatusOK,
			expectedTags: []string{
				"service:hubauth",
				"method:GET",
				fmt.Sprintf("status_code:%d", http.StatusOK),
				"status_category:2xx",
				"hub_host:unknown",
				"action:sign_in",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pc, err := net.ListenPacket("udp", "127.0.0.1:8125")
			if err != nil {
				t.Fatalf("error %s", err.Error())
			}
			defer pc.Close()

			client, _, _ := newTestStatsdClient(t)
			tagString := strings.Join(tc.expectedTags, ",")
			expectedPacketString := fmt.Sprintf("hubauth.request:5.000000|ms|#%s", tagString)
			// create a request with a url
			// check metrics
			req := httptest.NewRequest(tc.method, tc.requestURL, nil)

			logRequestMetrics(tc.hubHost, req, time.Millisecond*5, tc.status, client)
			readBytes := make([]byte, len(expectedPacketString))
			pc.ReadFrom(readBytes)
			if expectedPacketString != string(readBytes) {
				t.Errorf("expected packet string to be %s but was %s", expectedPacketString, string(readBytes))
			}
		})
	}
}

func TestGetActionTag(t *testing.T) {
	testCases := []struct {
		name           string
		url            string
		expectedAction string
	}{
		{
			name:           "request with start in the path",
			url:            "/start",
			expectedAction: "start",
		},
		{
			name:           "request with start in the path with query parameters",
			url:            "/start?query=parameter",
			expectedAction: "start",
		},
		{
			name:           "request with sign_in in the path",
			url:            "/sign_in",
			expectedAction: "sign_in",
		},
		{
			name:           "request with sign_out in the path",
			url:            "/sign_out",
			expectedAction: "sign_out",
		},
		{
			name:           "request with callback in the path",
			url:            "/callback?code=abc&state=def",
			expectedAction: "callback",
		},
		{
			name:           "request with profile in the path",
			url:            "/profile?user=alice&groups=a,b",
			expectedAction: "profile",
		},
		{
			name:           "request with validate in the path",
			url:            "/validate",
			expectedAction: "validate",
		},
		{
			name:           "request with redeem in the path",
			url:            "/redeem",
			expectedAction: "redeem",
		},
		{
			name:           "request with refresh in the path",
			url:            "/refresh",
			expectedAction: "refresh",
		},
		{
			name:           "request for static",
			url:            "/static/some_file_path",
			expectedAction: "static",
		},
		{
			name:           "request for ping",
			url:            "/ping",
			expectedAction: "ping",
		},
		{
			name:           "unknown action",
			url:            "/omg_what_do_i_do",
			expectedAction: "unknown",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.url, nil)
			action := GetActionTag(req)
			if action != tc.expectedAction {
				t.Errorf("expected action to be %s but was %s", tc.expectedAction, action)
			}
		})
	}
}
