// Package source acquires the stability workbook from a local file, an
// uploaded payload or a remote share link with a local cache fallback.
package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/stability-cli/internal/utils"
	"github.com/KaramelBytes/stability-cli/internal/workbook"
)

// Kind selects how a workbook is acquired.
type Kind string

const (
	KindFile   Kind = "file"
	KindUpload Kind = "upload"
	KindRemote Kind = "remote"
)

// Spec describes where a workbook comes from.
type Spec struct {
	Kind Kind   `json:"kind" yaml:"kind"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
	// Name is the original file name of an upload; it selects the format.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Data []byte `json:"-" yaml:"-"`
	// CachePath receives every successful remote download and is read back
	// when a later download fails.
	CachePath string `json:"cache_path,omitempty" yaml:"cache_path,omitempty"`
}

// Info describes the workbook that was actually loaded.
type Info struct {
	Description  string
	LastModified time.Time
	FromCache    bool
}

// Loader resolves a Spec into a workbook.
type Loader struct {
	client *Client
	log    zerolog.Logger
}

// NewLoader returns a Loader that downloads with client.
func NewLoader(client *Client, log zerolog.Logger) *Loader {
	if client == nil {
		client = NewClient(0, 0, 0, 0)
	}
	return &Loader{client: client, log: log.With().Str("component", "source").Logger()}
}

// Load acquires and parses the workbook named by spec.
func (l *Loader) Load(ctx context.Context, spec Spec) (*workbook.Workbook, Info, error) {
	switch spec.Kind {
	case KindFile:
		return l.loadFile(spec.Path)
	case KindUpload:
		if len(spec.Data) == 0 || spec.Name == "" {
			return nil, Info{}, fmt.Errorf("upload without name or data: %w", ErrInvalidSource)
		}
		wb, err := workbook.OpenReader(spec.Name, bytes.NewReader(spec.Data))
		if err != nil {
			return nil, Info{}, err
		}
		return wb, Info{Description: "Uploaded file: " + spec.Name, LastModified: time.Now()}, nil
	case KindRemote:
		return l.loadRemote(ctx, spec)
	}
	return nil, Info{}, fmt.Errorf("kind %q: %w", spec.Kind, ErrInvalidSource)
}

func (l *Loader) loadFile(p string) (*workbook.Workbook, Info, error) {
	if p == "" {
		return nil, Info{}, fmt.Errorf("file source without path: %w", ErrInvalidSource)
	}
	st, err := os.Stat(p)
	if err != nil {
		return nil, Info{}, fmt.Errorf("stat workbook: %w", err)
	}
	wb, err := workbook.Open(p)
	if err != nil {
		return nil, Info{}, err
	}
	return wb, Info{Description: "Local file: " + filepath.Base(p), LastModified: st.ModTime()}, nil
}

func (l *Loader) loadRemote(ctx context.Context, spec Spec) (*workbook.Workbook, Info, error) {
	if spec.URL == "" {
		return nil, Info{}, fmt.Errorf("remote source without url: %w", ErrInvalidSource)
	}
	wb, info, err := l.download(ctx, spec)
	if err == nil {
		return wb, info, nil
	}
	l.log.Warn().Err(err).Str("url", spec.URL).Msg("download failed")
	if spec.CachePath == "" {
		return nil, Info{}, fmt.Errorf("download failed and %w: %w", ErrNoCache, err)
	}
	st, statErr := os.Stat(spec.CachePath)
	if statErr != nil {
		return nil, Info{}, fmt.Errorf("download failed and %w: %w", ErrNoCache, err)
	}
	cached, openErr := workbook.Open(spec.CachePath)
	if openErr != nil {
		return nil, Info{}, fmt.Errorf("download failed (%v) and cache unreadable: %w", err, openErr)
	}
	l.log.Info().Str("cache", spec.CachePath).Time("modified", st.ModTime()).Msg("using cached workbook")
	return cached, Info{
		Description:  "Cached copy: " + filepath.Base(spec.CachePath),
		LastModified: st.ModTime(),
		FromCache:    true,
	}, nil
}

// download fetches and parses the remote workbook and refreshes the cache.
// The cache is only written once the body parsed as a workbook, so a sign-in
// page served with status 200 never replaces a good copy.
func (l *Loader) download(ctx context.Context, spec Spec) (*workbook.Workbook, Info, error) {
	body, modified, err := l.client.Download(ctx, spec.URL)
	if err != nil {
		return nil, Info{}, err
	}
	wb, err := workbook.OpenReader(remoteName(spec), bytes.NewReader(body))
	if err != nil {
		return nil, Info{}, fmt.Errorf("downloaded content is not a workbook: %w", err)
	}
	if spec.CachePath != "" {
		if err := utils.EnsureDir(filepath.Dir(spec.CachePath)); err != nil {
			return nil, Info{}, err
		}
		if err := utils.SafeWriteFile(spec.CachePath, body); err != nil {
			l.log.Warn().Err(err).Str("cache", spec.CachePath).Msg("could not update cache")
		}
	}
	if modified.IsZero() {
		modified = time.Now()
	}
	l.log.Info().Int("bytes", len(body)).Str("url", spec.URL).Msg("downloaded workbook")
	return wb, Info{Description: "Remote file: " + remoteName(spec), LastModified: modified}, nil
}

// remoteName picks a file name for format detection: the URL's last path
// segment when it carries an extension, else the cache name, else .xlsx.
func remoteName(spec Spec) string {
	if u, err := url.Parse(spec.URL); err == nil {
		if base := path.Base(u.Path); path.Ext(base) != "" {
			return base
		}
	}
	if spec.CachePath != "" {
		return filepath.Base(spec.CachePath)
	}
	return "download.xlsx"
}

// String renders info for the CLI.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Description)
	if !i.LastModified.IsZero() {
		b.WriteString(" (modified ")
		b.WriteString(i.LastModified.Format("2006-01-02 15:04"))
		b.WriteString(")")
	}
	return b.String()
}
