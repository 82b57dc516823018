// Package archive implements `grove archive`, the standalone journal
// retention command spec.md §1 defers to ("retention or compaction policy
// for the journal" is explicitly out of the hook dispatcher's scope).
//
// Grounded on the teacher's internal/sync/s3.go (S3Destination, built on
// github.com/aws/aws-sdk-go-v2 + config + service/s3), adapted from a
// generic JSONL sink into a journal-splitting archival command. Unlike
// every hook-path component, this package is deliberately fail-closed: see
// Run's doc comment.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bivory/grove/internal/core"
	"github.com/bivory/grove/internal/stats"
)

// Options configures a single archive run.
type Options struct {
	JournalPath string
	Bucket      string
	Region      string
	Endpoint    string // non-empty enables path-style addressing, for MinIO
	Before      time.Time
}

// Result reports what Run did.
type Result struct {
	Archived int    `json:"archived"`
	Kept     int    `json:"kept"`
	Object   string `json:"object,omitempty"`
}

// Run splits journalPath's lines by timestamp relative to opts.Before,
// uploads the older lines to S3 as a gzip-compressed object, and rewrites
// the local journal to keep only the rest.
//
// This fails closed, not open: if the upload errors, the local journal is
// left completely untouched and Run returns the error. spec.md's fail-open
// discipline exists so infrastructure failures never block the agent mid
// turn; archival is an explicit, operator-invoked, offline maintenance
// verb with no agent waiting on it, so data safety wins over availability
// here.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := stats.NewLogger(opts.JournalPath)
	events, err := logger.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return &Result{}, nil
	}

	content, err := core.ReadFileLimited(opts.JournalPath)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		if strings.TrimSpace(raw) != "" {
			lines = append(lines, raw)
		}
	}

	var archivedLines, keptLines []string
	var oldest, newest time.Time
	for i, e := range events {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		if e.TS.Before(opts.Before) {
			if oldest.IsZero() || e.TS.Before(oldest) {
				oldest = e.TS
			}
			if e.TS.After(newest) {
				newest = e.TS
			}
			archivedLines = append(archivedLines, line)
		} else {
			keptLines = append(keptLines, line)
		}
	}

	if len(archivedLines) == 0 {
		return &Result{Kept: len(keptLines)}, nil
	}

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	if _, err := w.Write([]byte(strings.Join(archivedLines, "\n") + "\n")); err != nil {
		return nil, core.BackendErr("compressing journal segment: %v", err)
	}
	if err := w.Close(); err != nil {
		return nil, core.BackendErr("compressing journal segment: %v", err)
	}

	key := fmt.Sprintf("grove/stats-%s-%s.jsonl.gz", oldest.UTC().Format("20060102T150405Z"), newest.UTC().Format("20060102T150405Z"))
	if err := upload(ctx, opts.Bucket, key, opts.Region, opts.Endpoint, gz.Bytes()); err != nil {
		return nil, err
	}

	if err := rewriteJournal(opts.JournalPath, keptLines); err != nil {
		return nil, err
	}

	return &Result{Archived: len(archivedLines), Kept: len(keptLines), Object: fmt.Sprintf("s3://%s/%s", opts.Bucket, key)}, nil
}

// upload puts data at bucket/key, enabling path-style addressing when
// endpoint is set (MinIO and other S3-compatible stores).
func upload(ctx context.Context, bucket, key, region, endpoint string, data []byte) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return core.BackendErr("loading AWS config: %v", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, s3opts...)
	contentType := "application/gzip"
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return core.BackendErr("uploading %s to s3://%s: %v", key, bucket, err)
	}
	return nil
}

// rewriteJournal replaces path's contents with keptLines using the same
// temp-file-then-rename discipline storage.FileStore.Put uses, so a reader
// never observes a partially written journal.
func rewriteJournal(path string, keptLines []string) error {
	var data []byte
	if len(keptLines) > 0 {
		data = []byte(strings.Join(keptLines, "\n") + "\n")
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return core.StorageErr(tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return core.StorageErr(tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return core.StorageErr(tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return core.StorageErr(tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return core.StorageErr(path, err)
	}

	if parent := filepath.Dir(path); parent != "." {
		if d, err := os.Open(parent); err == nil {
			_ = d.Sync()
			d.Close()
		}
	}
	return nil
}
