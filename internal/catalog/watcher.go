package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// defaultPollInterval controls how often the catalog file is re-read.
const defaultPollInterval = 2 * time.Second

// Watcher polls the catalog file and swaps a fresh snapshot into the store
// when the file contents change.
type Watcher struct {
	path  string
	store *Store

	pollInterval time.Duration

	mu     sync.Mutex
	hash   string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher builds a watcher for the given catalog file.
func NewWatcher(path string, store *Store) *Watcher {
	return &Watcher{
		path:         strings.TrimSpace(path),
		store:        store,
		pollInterval: defaultPollInterval,
	}
}

// Start launches the polling goroutine. It is a no-op without a path.
func (w *Watcher) Start(ctx context.Context) {
	if w == nil || w.path == "" || w.store == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(runCtx)
	}()
	log.Infof("catalog watcher started (path=%s poll_interval=%s)", w.path, w.pollInterval)
}

// Stop cancels the polling goroutine and waits for it to exit.
func (w *Watcher) Stop() {
	if w == nil || w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
}

// run executes the periodic polling loop until the context is canceled.
func (w *Watcher) run(ctx context.Context) {
	w.poll()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll reloads the catalog file when its contents change. An unreadable or
// invalid file keeps the previous snapshot.
func (w *Watcher) poll() {
	data, errRead := os.ReadFile(w.path)
	if errRead != nil || len(data) == 0 {
		return
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	w.mu.Lock()
	prevHash := w.hash
	w.mu.Unlock()
	if prevHash != "" && prevHash == hash {
		return
	}

	snap, errLoad := parseFile(data)
	if errLoad != nil {
		log.WithError(errLoad).Warn("catalog watcher: load catalog failed")
		return
	}

	w.mu.Lock()
	w.hash = hash
	w.mu.Unlock()

	w.store.Swap(snap)
	log.Infof("catalog reloaded (packages=%d prompts=%d)", len(snap.Packages()), len(snap.Prompts()))
}
