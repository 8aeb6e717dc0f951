package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/logfields"
	"git.home.luguber.info/inful/refbuilder/internal/retry"
)

// FileName is the per-library search artifact name.
const FileName = "search.json"

// Sink receives the search records of one library.
type Sink interface {
	Publish(ctx context.Context, library string, records []Record) error
	Close() error
}

// FileSink writes <Dir>/<library>/search.json.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// Publish replaces the library's search file atomically.
func (s *FileSink) Publish(_ context.Context, library string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	return WriteJSON(filepath.Join(s.Dir, library, FileName), records)
}

func (s *FileSink) Close() error { return nil }

// WriteJSON marshals v with indentation and renames it into place.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directory").
			WithContext("path", filepath.Dir(path)).Build()
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write temp file").
			WithContext("path", tmp).Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "atomic rename").
			WithContext("path", path).Build()
	}
	return nil
}

// publisher is the subset of jetstream.JetStream used by NATSSink.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSSink publishes every record to JetStream on <prefix>.<library>.
// Records carry their objectID as message id so republishing within the
// stream's duplicate window is deduplicated.
type NATSSink struct {
	conn    *nats.Conn
	js      publisher
	prefix  string
	policy  retry.Policy
	timeout time.Duration
}

// NewNATSSink connects to url and prepares a JetStream publisher.
func NewNATSSink(url, prefix string, policy retry.Policy) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("refbuilder"))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryPublish, "failed to connect to NATS").
			WithContext("url", url).Retryable().Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	slog.Info("NATS search sink initialized", logfields.URL(url), slog.String("subject_prefix", prefix))
	return newNATSSink(conn, js, prefix, policy), nil
}

func newNATSSink(conn *nats.Conn, js publisher, prefix string, policy retry.Policy) *NATSSink {
	return &NATSSink{conn: conn, js: js, prefix: prefix, policy: policy, timeout: 5 * time.Second}
}

// Subject returns the subject records of library are published on.
func (s *NATSSink) Subject(library string) string {
	token := strings.ReplaceAll(Slugify(library), "-", "_")
	if token == "" {
		token = "_"
	}
	return s.prefix + "." + token
}

func (s *NATSSink) Publish(ctx context.Context, library string, records []Record) error {
	subject := s.Subject(library)
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", rec.ObjectID, err)
		}
		err = s.policy.Do(ctx, func(ctx context.Context) error {
			pubCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if _, err := s.js.Publish(pubCtx, subject, data, jetstream.WithMsgID(rec.ObjectID)); err != nil {
				return ferrors.WrapError(err, ferrors.CategoryPublish, "failed to publish search record").
					WithContext("subject", subject).
					WithContext("object_id", rec.ObjectID).
					Retryable().Build()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	slog.Debug("Published search records", logfields.Library(library), logfields.Count(len(records)), slog.String("subject", subject))
	return nil
}

func (s *NATSSink) Close() error {
	if s.conn != nil {
		if err := s.conn.Drain(); err != nil {
			s.conn.Close()
			return err
		}
	}
	return nil
}

// MultiSink fans records out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, library string, records []Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, library, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
