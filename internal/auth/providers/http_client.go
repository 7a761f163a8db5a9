package providers

import (
	"net"
	"net/http"
	"time"
)

// httpClient is the default client used by provider requests that are not
// pinned to a specific certificate bundle.
var httpClient = &http.Client{
	Timeout: time.Second * 5,
	Transport: &http.Transport{
		Dial: (&net.Dialer{
			Timeout: 2 * time.Second,
		}).Dial,
		TLSHandshakeTimeout: 2 * time.Second,
	},
}
