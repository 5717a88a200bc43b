// Package upload keeps uploaded and recorded audio clips for the web
// service. Clip bytes go to a [storage.FileStore]; a msgpack record per
// clip is indexed in a [kv.Store] under upload:<id>.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/wespeaker/pkg/kv"
	"github.com/haivivi/wespeaker/pkg/storage"
	"github.com/haivivi/wespeaker/pkg/voiceprint"
)

var (
	ErrNotFound = errors.New("upload: not found")
	ErrTooLarge = errors.New("upload: file too large")
	ErrEmpty    = errors.New("upload: empty file")
)

const keyPrefix = "upload"

// Record describes one stored clip.
type Record struct {
	ID          string    `json:"id" msgpack:"id"`
	Name        string    `json:"name" msgpack:"name"`
	Path        string    `json:"path" msgpack:"path"`
	ContentType string    `json:"content_type" msgpack:"content_type"`
	Size        int64     `json:"size" msgpack:"size"`
	CreatedAt   time.Time `json:"created_at" msgpack:"created_at"`
}

// Ref returns the audio reference for the clip.
func (r *Record) Ref() voiceprint.AudioRef {
	return voiceprint.AudioRef{Path: r.Path, Name: r.Name}
}

// Registry stores clips and their records.
type Registry struct {
	Files storage.FileStore
	Index kv.Store

	// MaxBytes caps a single clip. Zero means no limit.
	MaxBytes int64

	// TTL expires index records. Zero keeps them until deleted or swept.
	TTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (g *Registry) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Save stores the clip read from r. filename is the client's name for
// it and is kept only for display.
func (g *Registry) Save(ctx context.Context, filename, contentType string, r io.Reader) (*Record, error) {
	src := r
	if g.MaxBytes > 0 {
		src = io.LimitReader(r, g.MaxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("upload: read: %w", err)
	}
	if g.MaxBytes > 0 && int64(len(data)) > g.MaxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, g.MaxBytes)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(filename))
	name := filepath.Base(filename)
	if name == "." || name == "/" || name == "" {
		name = id + ext
	}
	if contentType == "" || contentType == "application/octet-stream" {
		if t := mime.TypeByExtension(ext); t != "" {
			contentType = t
		} else {
			contentType = "application/octet-stream"
		}
	}

	created := g.now().UTC()
	rec := &Record{
		ID:          id,
		Name:        name,
		Path:        fmt.Sprintf("uploads/%s/%s%s", created.Format("2006/01/02"), id, ext),
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   created,
	}
	if err := g.Files.Put(ctx, rec.Path, data, contentType); err != nil {
		return nil, fmt.Errorf("upload: store %s: %w", name, err)
	}
	if err := g.put(ctx, rec); err != nil {
		g.Files.Delete(context.WithoutCancel(ctx), rec.Path)
		return nil, err
	}
	return rec, nil
}

func (g *Registry) put(ctx context.Context, rec *Record) error {
	b, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("upload: marshal record: %w", err)
	}
	if err := g.Index.Put(ctx, kv.Key{keyPrefix, rec.ID}, b, g.TTL); err != nil {
		return fmt.Errorf("upload: index %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record for id, or ErrNotFound. A record whose file has
// gone from the store is dropped and reported as not found.
func (g *Registry) Get(ctx context.Context, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	b, err := g.Index.Get(ctx, kv.Key{keyPrefix, id})
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("upload: get %s: %w", id, err)
	}
	var rec Record
	if err := msgpack.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("upload: decode record %s: %w", id, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	ok, err := g.Files.Exists(ctx, rec.Path)
	if err != nil {
		return nil, fmt.Errorf("upload: stat %s: %w", id, err)
	}
	if !ok {
		g.Index.Delete(ctx, kv.Key{keyPrefix, id})
		return nil, fmt.Errorf("%w: %s has no stored file", ErrNotFound, id)
	}
	return &rec, nil
}

// Open returns the stored bytes of a clip.
func (g *Registry) Open(ctx context.Context, id string) (*Record, []byte, error) {
	rec, err := g.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := storage.ReadFile(ctx, g.Files, rec.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("upload: read %s: %w", id, err)
	}
	return rec, data, nil
}

// Delete removes a clip and its record. Unknown ids return ErrNotFound.
func (g *Registry) Delete(ctx context.Context, id string) error {
	rec, err := g.Get(ctx, id)
	if err != nil {
		return err
	}
	return g.remove(ctx, rec)
}

func (g *Registry) remove(ctx context.Context, rec *Record) error {
	if err := g.Files.Delete(ctx, rec.Path); err != nil {
		return fmt.Errorf("upload: delete %s: %w", rec.ID, err)
	}
	return g.Index.Delete(ctx, kv.Key{keyPrefix, rec.ID})
}

// List returns all records, oldest key first. Records that fail to decode
// are skipped.
func (g *Registry) List(ctx context.Context) ([]*Record, error) {
	var out []*Record
	for e, err := range g.Index.Scan(ctx, kv.Key{keyPrefix}) {
		if err != nil {
			return out, fmt.Errorf("upload: list: %w", err)
		}
		var rec Record
		if err := msgpack.NewDecoder(bytes.NewReader(e.Value)).Decode(&rec); err != nil {
			continue
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, &rec)
	}
	return out, nil
}

// Sweep removes clips created more than olderThan ago and returns how
// many were removed.
func (g *Registry) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	recs, err := g.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := g.now().Add(-olderThan)
	n := 0
	for _, rec := range recs {
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if err := g.remove(ctx, rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
