package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

// JSONStore keeps the whole subscription document in a single JSON file.
// Every mutation is a full read-modify-write of the document, serialized
// behind a mutex so concurrent requests cannot drop each other's updates.
type JSONStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewJSONStore creates a store backed by the JSON document at path. The file
// is created lazily on first write.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path, now: time.Now}
}

func (s *JSONStore) Save(ctx context.Context, sub domain.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}

	now := domain.Timestamp(s.now())

	if i := findByEmail(doc.Subscribers, sub.Email); i >= 0 {
		existing := &doc.Subscribers[i]
		existing.MergeCountries(sub.Countries)
		existing.Active = true
		existing.UpdatedAt = now
	} else {
		doc.Subscribers = append(doc.Subscribers, sub)
	}

	doc.LastUpdated = now

	return s.writeDocument(doc)
}

func (s *JSONStore) Load(ctx context.Context, activeOnly bool) ([]domain.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return nil, err
	}

	subscribers := make([]domain.Subscriber, 0, len(doc.Subscribers))
	for _, sub := range doc.Subscribers {
		if activeOnly && !sub.Active {
			continue
		}
		subscribers = append(subscribers, sub)
	}
	return subscribers, nil
}

func (s *JSONStore) Deactivate(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}

	if i := findByEmail(doc.Subscribers, email); i >= 0 {
		doc.Subscribers[i].Active = false
	}

	doc.LastUpdated = domain.Timestamp(s.now())

	return s.writeDocument(doc)
}

func (s *JSONStore) Close() {}

// readDocument loads the backing file, or the default empty document if it
// does not exist yet. A file that exists but fails to parse is an error, not
// a silent reset — resetting would wipe valid prior subscriptions.
func (s *JSONStore) readDocument() (*domain.SubscriptionDocument, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return domain.NewSubscriptionDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading subscription document: %w", err)
	}

	var doc domain.SubscriptionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing subscription document: %w", err)
	}
	if doc.Subscribers == nil {
		doc.Subscribers = []domain.Subscriber{}
	}
	if doc.Version == "" {
		doc.Version = domain.DocumentVersion
	}
	return &doc, nil
}

func (s *JSONStore) writeDocument(doc *domain.SubscriptionDocument) error {
	return WriteJSONAtomic(s.path, doc)
}

func findByEmail(subscribers []domain.Subscriber, email string) int {
	email = strings.ToLower(strings.TrimSpace(email))
	for i := range subscribers {
		if strings.ToLower(subscribers[i].Email) == email {
			return i
		}
	}
	return -1
}

// WriteJSONAtomic pretty-prints v to path via a temp file in the same
// directory followed by a rename, so an interrupted write never truncates
// previously valid content. Parent directories are created as needed.
func WriteJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
