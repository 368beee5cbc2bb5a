package execution

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// walEntry mirrors the donor's persistent_queue.go shape exactly
// (Action/Order/Timestamp), generalized from order-id tracking to
// decision-id tracking for spec.md §9's at-most-once submission guarantee.
type walEntry struct {
	Action     string    `json:"action"` // "SUBMIT" or "COMPLETE"
	DecisionID string    `json:"decision_id"`
	Order      Order     `json:"order"`
	Timestamp  time.Time `json:"timestamp"`
}

// WAL is a write-ahead log of in-flight decision submissions, letting the
// coordinator recover exactly which decisions were mid-submission across a
// restart without double-sending (spec.md §9's "(decision id -> in-flight
// flag) CAS ... with restart reconciliation").
type WAL struct {
	mu         sync.Mutex
	path       string
	file       *os.File
	processing map[string]bool
}

// OpenWAL opens (creating if necessary) the WAL file under dir.
func OpenWAL(dir string) (*WAL, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create WAL directory: %w", err)
	}
	path := filepath.Join(dir, "execution.wal")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open WAL file: %w", err)
	}
	return &WAL{path: path, file: f, processing: make(map[string]bool)}, nil
}

// Recover replays the WAL, returning orders whose submission never
// terminated (SUBMIT logged, no matching COMPLETE) so the coordinator can
// reconcile them against chain state before accepting new work.
func (w *WAL) Recover() ([]Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open WAL for recovery: %w", err)
	}
	defer f.Close()

	submitted := make(map[string]Order)
	completed := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		var entry walEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			log.Printf("[EXEC] WAL parse error (skipping): %v", err)
			continue
		}
		switch entry.Action {
		case "SUBMIT":
			submitted[entry.DecisionID] = entry.Order
		case "COMPLETE":
			completed[entry.DecisionID] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("WAL scan error: %w", err)
	}

	var pending []Order
	for id, o := range submitted {
		if !completed[id] {
			w.processing[id] = true
			pending = append(pending, o)
		}
	}
	if len(pending) > 0 {
		log.Printf("[EXEC] recovered %d in-flight decisions from WAL", len(pending))
	}
	if len(pending) > 0 || len(completed) > 10 {
		if err := w.compact(submitted, completed); err != nil {
			log.Printf("[EXEC] WAL compaction failed: %v", err)
		}
	}
	return pending, nil
}

func (w *WAL) compact(submitted map[string]Order, completed map[string]bool) error {
	tmpPath := w.path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	for id, o := range submitted {
		if completed[id] {
			continue
		}
		if err := enc.Encode(walEntry{Action: "SUBMIT", DecisionID: id, Order: o, Timestamp: o.CreatedAt}); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return err
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	tmp.Close()
	w.file.Close()
	if err := os.Rename(tmpPath, w.path); err != nil {
		return err
	}
	w.file, err = os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	return err
}

// MarkSubmitting logs a SUBMIT entry and claims the decision id. Returns
// false if the decision is already in flight, implementing the "duplicate
// submissions with the same decision id are suppressed" requirement.
func (w *WAL) MarkSubmitting(o Order) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.processing[o.DecisionID] {
		return false
	}
	entry := walEntry{Action: "SUBMIT", DecisionID: o.DecisionID, Order: o, Timestamp: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[EXEC] WAL marshal failed: %v", err)
		return false
	}
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		log.Printf("[EXEC] WAL write failed: %v", err)
		return false
	}
	if err := w.file.Sync(); err != nil {
		log.Printf("[EXEC] WAL sync failed: %v", err)
		return false
	}
	w.processing[o.DecisionID] = true
	return true
}

// MarkComplete logs a COMPLETE entry, releasing the decision id for future
// (distinct) submissions. Idempotent: completing an unknown id is a no-op.
func (w *WAL) MarkComplete(decisionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.processing[decisionID] {
		return
	}
	entry := walEntry{Action: "COMPLETE", DecisionID: decisionID, Timestamp: time.Now()}
	data, _ := json.Marshal(entry)
	w.file.Write(append(data, '\n'))
	delete(w.processing, decisionID)
}

// Close flushes and closes the WAL file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.file.Sync()
	return w.file.Close()
}
