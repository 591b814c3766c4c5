package history

import (
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	// DefaultWindow is how long a document's edit log stays relevant.
	DefaultWindow = 10 * time.Second
	// maxEditsPerDoc bounds each document's log.
	maxEditsPerDoc = 50
)

// Edit is one recorded change to a document.
type Edit struct {
	Time         time.Time
	Line         int // 0-indexed line of the first changed character
	CharsAdded   int
	CharsRemoved int
}

type docLog struct {
	mu    sync.Mutex
	edits []Edit
}

// Tracker records recent edits per document. Its consumer is the trigger
// heuristic: a document under active modification may be completed more
// eagerly (e.g. mid-identifier) than one the user is merely reading.
type Tracker struct {
	window time.Duration
	docs   *ttlcache.Cache[string, *docLog]
	dmp    *diffmatchpatch.DiffMatchPatch

	// acceptances records the last accepted completion per document.
	acceptMu    sync.Mutex
	acceptances map[string]time.Time

	stopJanitor chan struct{}
	janitor     sync.WaitGroup
	closeOnce   sync.Once

	now func() time.Time // overridable in tests
}

// NewTracker creates a tracker whose per-document logs expire after window.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	docs := ttlcache.New[string, *docLog](
		ttlcache.WithTTL[string, *docLog](window),
	)
	t := &Tracker{
		window:      window,
		docs:        docs,
		dmp:         diffmatchpatch.New(),
		acceptances: make(map[string]time.Time),
		stopJanitor: make(chan struct{}),
		now:         time.Now,
	}
	// The store's own Start/Stop pair can miss the stop signal when Stop
	// lands before the Start goroutine is scheduled, so expiry sweeps run
	// on a ticker owned here.
	t.janitor.Add(1)
	go func() {
		defer t.janitor.Done()
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-t.stopJanitor:
				return
			case <-ticker.C:
				docs.DeleteExpired()
			}
		}
	}()
	return t
}

// Close stops the expiration sweep.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		close(t.stopJanitor)
		t.janitor.Wait()
	})
}

// RecordChange diffs two document snapshots and logs the edit's position and
// size. A no-op change records nothing.
func (t *Tracker) RecordChange(uri, oldText, newText string) {
	if oldText == newText {
		return
	}

	diffs := t.dmp.DiffMain(oldText, newText, false)

	offset := 0
	added := 0
	removed := 0
	firstChange := -1
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if firstChange == -1 {
				offset += len(d.Text)
			}
		case diffmatchpatch.DiffInsert:
			if firstChange == -1 {
				firstChange = offset
			}
			added += len(d.Text)
		case diffmatchpatch.DiffDelete:
			if firstChange == -1 {
				firstChange = offset
			}
			removed += len(d.Text)
		}
	}
	if firstChange == -1 {
		return
	}

	edit := Edit{
		Time:         t.now(),
		Line:         strings.Count(oldText[:min(firstChange, len(oldText))], "\n"),
		CharsAdded:   added,
		CharsRemoved: removed,
	}

	log := t.logFor(uri)
	log.mu.Lock()
	log.edits = append(log.edits, edit)
	if len(log.edits) > maxEditsPerDoc {
		log.edits = log.edits[len(log.edits)-maxEditsPerDoc:]
	}
	log.mu.Unlock()
}

func (t *Tracker) logFor(uri string) *docLog {
	// Set refreshes the TTL so an actively edited document never expires.
	if item := t.docs.Get(uri); item != nil {
		t.docs.Set(uri, item.Value(), ttlcache.DefaultTTL)
		return item.Value()
	}
	log := &docLog{}
	t.docs.Set(uri, log, ttlcache.DefaultTTL)
	return log
}

// LastEditWithin reports whether the document saw an edit in the last d.
func (t *Tracker) LastEditWithin(uri string, d time.Duration) bool {
	item := t.docs.Get(uri)
	if item == nil {
		return false
	}
	log := item.Value()
	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.edits) == 0 {
		return false
	}
	return t.now().Sub(log.edits[len(log.edits)-1].Time) <= d
}

// EditsWithin counts edits to the document in the last d.
func (t *Tracker) EditsWithin(uri string, d time.Duration) int {
	item := t.docs.Get(uri)
	if item == nil {
		return 0
	}
	log := item.Value()
	log.mu.Lock()
	defer log.mu.Unlock()
	cutoff := t.now().Add(-d)
	n := 0
	for i := len(log.edits) - 1; i >= 0; i-- {
		if log.edits[i].Time.Before(cutoff) {
			break
		}
		n++
	}
	return n
}

// RecordAcceptance notes that a completion was accepted in the document.
func (t *Tracker) RecordAcceptance(uri string) {
	t.acceptMu.Lock()
	t.acceptances[uri] = t.now()
	t.acceptMu.Unlock()
}

// LastAcceptance returns the time of the last accepted completion for the
// document, if any.
func (t *Tracker) LastAcceptance(uri string) (time.Time, bool) {
	t.acceptMu.Lock()
	defer t.acceptMu.Unlock()
	ts, ok := t.acceptances[uri]
	return ts, ok
}
