package cabundle

import (
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"math/rand"
	"sync"
	"time"

	log "github.com/notebookhub/hubauth/internal/pkg/logging"

	"github.com/benbjohnson/clock"
	"github.com/datadog/datadog-go/statsd"
)

const (
	defaultMaxJitter = 50 * time.Millisecond
)

// Store caches parsed certificate pools by bundle path, filling them
// on-demand. Service-account CA bundles rotate in-cluster, so each path can
// be kept fresh with a background refresh loop.
type Store struct {
	pools     map[string]*x509.CertPool
	inflight  map[string]struct{}
	maxJitter time.Duration

	refreshTTL       time.Duration
	refreshLoopPaths map[string]struct{}

	clock clock.Clock

	StatsdClient *statsd.Client

	mu     sync.RWMutex
	stopCh chan struct{}
}

// NewStore creates a Store whose refresh loops reload bundles every refreshTTL
func NewStore(refreshTTL time.Duration) *Store {
	return &Store{
		pools:            make(map[string]*x509.CertPool),
		inflight:         make(map[string]struct{}),
		refreshLoopPaths: make(map[string]struct{}),
		refreshTTL:       refreshTTL,
		clock:            clock.New(),
		stopCh:           make(chan struct{}),
	}
}

// Pool returns the cached cert pool for the given bundle path, loading it as
// necessary
func (s *Store) Pool(path string) (*x509.CertPool, bool) {
	s.mu.RLock()
	pool, found := s.pools[path]
	s.mu.RUnlock()
	if found {
		return pool, true
	}

	if !s.Load(path) {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, found = s.pools[path]
	return pool, found
}

// Load re-reads and re-parses the bundle at the given path, unless another
// goroutine is already loading it, and returns a bool indicating whether the
// cached pool was updated
func (s *Store) Load(path string) bool {
	logger := log.NewLogEntry()

	s.mu.Lock()
	if _, waiting := s.inflight[path]; waiting {
		s.mu.Unlock()
		return false
	}

	s.inflight[path] = struct{}{}
	s.mu.Unlock()
	pool, err := loadPool(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, path)

	if err == nil {
		s.pools[path] = pool
		return true
	}

	if s.StatsdClient != nil {
		s.StatsdClient.Incr("cabundle.error",
			[]string{
				fmt.Sprintf("ca_bundle:%s", path),
				fmt.Sprintf("error:%s", err),
			}, 1.0)
	}
	logger.WithCABundle(path).Error(err, "error loading ca bundle")
	return false
}

func loadPool(path string) (*x509.CertPool, error) {
	pem, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates parsed from %q", path)
	}
	return pool, nil
}

// RefreshLoop runs in a separate goroutine for the path in the store and
// reloads the bundle for that path every refreshTTL
func (s *Store) RefreshLoop(path string) bool {
	maxJitter := defaultMaxJitter
	// Add jitter before starting each refresh loop so bundles sharing a
	// refreshTTL don't reload in lockstep (tests control maxJitter to ensure
	// they run deterministically)
	if s.maxJitter != 0 {
		maxJitter = s.maxJitter
	}
	time.Sleep(time.Duration(rand.Float64() * float64(maxJitter)))

	s.mu.Lock()

	// check that a refresh loop isn't already running for this path
	if _, waiting := s.refreshLoopPaths[path]; waiting {
		s.mu.Unlock()
		return false
	}

	s.refreshLoopPaths[path] = struct{}{}
	s.mu.Unlock()

	ticker := s.clock.Ticker(s.refreshTTL)
	go func() {
		logger := log.NewLogEntry()
		// cleanup if this goroutine exits
		defer func() {
			ticker.Stop()
			s.mu.Lock()
			delete(s.refreshLoopPaths, path)
			s.mu.Unlock()
		}()

		// we load the bundle once before looping to ensure the pool is filled
		// immediately, instead of only after s.refreshTTL
		updated := s.Load(path)
		if !updated {
			logger.WithCABundle(path).Info("ca bundle was not updated")
		}

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				updated = s.Load(path)
				if !updated {
					logger.WithCABundle(path).Info("ca bundle was not updated")
				}
			}
		}
	}()
	return true
}

// Stop halts all refresh loop goroutines
func (s *Store) Stop() {
	close(s.stopCh)
}
