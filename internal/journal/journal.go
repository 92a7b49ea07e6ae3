// Package journal keeps a date-partitioned JSONL record of every message the
// bot tried to send, and gzips files past the retention window.
package journal

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"econ-calendar-bot/internal/types"
)

const ext = ".jsonl"

type Entry struct {
	Time      string        `json:"time"`
	Title     string        `json:"title"`
	Color     int           `json:"color"`
	Fields    []types.Field `json:"fields,omitempty"`
	TTL       string        `json:"ttl,omitempty"`
	Delivered bool          `json:"delivered"`
	Error     string        `json:"error,omitempty"`
}

type Journal struct {
	mu  sync.Mutex
	dir string
	loc *time.Location
	now func() time.Time
}

func New(dir string, loc *time.Location) *Journal {
	if dir == "" {
		dir = "logs"
	}
	if loc == nil {
		loc = time.Local
	}
	return &Journal{dir: dir, loc: loc, now: time.Now}
}

func (j *Journal) Dir() string { return j.dir }

func (j *Journal) dailyFilepath(t time.Time) string {
	return filepath.Join(j.dir, t.In(j.loc).Format(types.DateLayout)+ext)
}

// Append records msg with its delivery outcome.
func (j *Journal) Append(msg types.Message, sendErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().In(j.loc)
	e := Entry{
		Time:      now.Format("2006-01-02 15:04:05"),
		Title:     msg.Title,
		Color:     msg.Color,
		Fields:    msg.Fields,
		Delivered: sendErr == nil,
	}
	if msg.TTL > 0 {
		e.TTL = msg.TTL.String()
	}
	if sendErr != nil {
		e.Error = sendErr.Error()
	}

	p := j.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips journal files last modified before the retention
// window and removes the originals. Returns the number of files compressed.
func (j *Journal) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := j.now().AddDate(0, 0, -retentionDays)
	compressed := 0

	err := filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(p, ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		// already compressed by an earlier run that failed to remove the original
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		_ = os.Remove(p)
		compressed++
		return nil
	})
	return compressed, err
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
