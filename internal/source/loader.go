// Package source fetches workbook bytes for a dataset and hands back the
// raw cell grid. Fetched bytes are cached for a bounded TTL keyed by
// (source URI, normalization version); invalidation is explicit. Failures
// surface immediately, with no retries.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"recebiveis/internal"
	"recebiveis/internal/storage"
)

// NormalizationVersion keys cached loads; bump it when the normalizer
// changes meaning so stale canonical tables are refetched.
const NormalizationVersion = "v1"

type Descriptor struct {
	URI       string
	Sheet     string
	AuthToken string
}

type Loader struct {
	client *http.Client
	db     *storage.DB
	rawDir string
	ttl    time.Duration
	log    zerolog.Logger

	mu   sync.Mutex
	memo map[string]memoEntry
}

type memoEntry struct {
	raw       []byte
	fetchedAt time.Time
}

func NewLoader(db *storage.DB, rawDir string, timeout, ttl time.Duration, log zerolog.Logger) *Loader {
	return &Loader{
		client: &http.Client{Timeout: timeout},
		db:     db,
		rawDir: rawDir,
		ttl:    ttl,
		log:    log,
		memo:   map[string]memoEntry{},
	}
}

// Load fetches (or reuses) the workbook bytes behind desc and decodes the
// requested sheet.
func (l *Loader) Load(ctx context.Context, desc Descriptor, force bool) ([][]string, error) {
	raw, err := l.fetch(ctx, desc, force)
	if err != nil {
		return nil, err
	}
	return DecodeWorkbook(raw, desc.Sheet)
}

func (l *Loader) fetch(ctx context.Context, desc Descriptor, force bool) ([]byte, error) {
	key := desc.URI + "|" + NormalizationVersion
	now := time.Now()

	if !force {
		l.mu.Lock()
		entry, ok := l.memo[key]
		l.mu.Unlock()
		if ok && now.Sub(entry.fetchedAt) < l.ttl {
			return entry.raw, nil
		}

		if l.db != nil {
			row, found, err := l.db.GetSource(desc.URI, NormalizationVersion)
			if err == nil && found && now.Sub(row.FetchedAt) < l.ttl {
				raw, err := os.ReadFile(row.RawRef)
				if err == nil {
					l.remember(key, raw, row.FetchedAt)
					return raw, nil
				}
			}
		}
	}

	raw, err := l.download(ctx, desc)
	if err != nil {
		return nil, err
	}

	l.remember(key, raw, now)
	if l.db != nil {
		ref, err := l.writeSidecar(desc.URI, raw)
		if err == nil {
			_ = l.db.UpsertSource(storage.SourceRow{
				URI:       desc.URI,
				Version:   NormalizationVersion,
				RawRef:    ref,
				ByteCount: len(raw),
				FetchedAt: now,
			})
		}
	}

	l.log.Debug().Str("uri", desc.URI).Int("bytes", len(raw)).Msg("source fetched")
	return raw, nil
}

func (l *Loader) download(ctx context.Context, desc Descriptor) ([]byte, error) {
	uri := strings.TrimSpace(desc.URI)
	if uri == "" {
		return nil, fmt.Errorf("%w: empty source uri", internal.ErrSourceUnavailable)
	}

	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		raw, err := os.ReadFile(uri)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", internal.ErrSourceUnavailable, err)
		}
		return raw, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrSourceUnavailable, err)
	}
	if desc.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+desc.AuthToken)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", internal.ErrSourceUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrSourceUnavailable, err)
	}
	return raw, nil
}

// Invalidate drops the cache entry for a URI, forcing the next load to
// refetch.
func (l *Loader) Invalidate(uri string) {
	l.mu.Lock()
	delete(l.memo, uri+"|"+NormalizationVersion)
	l.mu.Unlock()
	if l.db != nil {
		_ = l.db.DeleteSource(uri)
	}
}

func (l *Loader) remember(key string, raw []byte, fetchedAt time.Time) {
	l.mu.Lock()
	l.memo[key] = memoEntry{raw: raw, fetchedAt: fetchedAt}
	l.mu.Unlock()
}

func (l *Loader) writeSidecar(uri string, raw []byte) (string, error) {
	if err := os.MkdirAll(l.rawDir, 0o755); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(uri))
	path := filepath.Join(l.rawDir, hex.EncodeToString(sum[:8])+".bin")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
