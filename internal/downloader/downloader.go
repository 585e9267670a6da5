// Package downloader fetches vendor feed workbooks to local disk. Downloads
// are bounded in time and bytes and land atomically: the body streams to a
// temp file in the destination directory and is renamed into place only after
// a full, fsynced write.
package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/baignoire/fitmatch/pkg/httpclient"
)

var downloadBytesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "feed_download_bytes_total",
		Help: "Bytes of vendor feed downloaded",
	},
)

// Downloader streams feed workbooks from the vendor's export URL.
type Downloader struct {
	client   *httpclient.CircuitBreakerClient
	timeout  time.Duration
	maxBytes int64
	logger   *slog.Logger
}

// New creates a downloader. timeout bounds one whole fetch including the
// body stream; maxBytes caps the accepted body size.
func New(client *httpclient.CircuitBreakerClient, timeout time.Duration, maxBytes int64, logger *slog.Logger) *Downloader {
	return &Downloader{
		client:   client,
		timeout:  timeout,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Fetch downloads url into destPath and returns the byte count. destPath is
// never left partially written: failures discard the temp file and leave any
// previous feed file untouched.
func (d *Downloader) Fetch(ctx context.Context, url, destPath string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.client.Get(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("download feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := httpclient.ParseResponseError(resp, "vendor export")
		// A 4xx means the export link itself is bad (expired, revoked, or
		// malformed); that needs operator attention, not a retry.
		if httpclient.IsClientError(resp.StatusCode) {
			d.logger.ErrorContext(ctx, "feed export rejected the request",
				slog.Int("status", resp.StatusCode),
				slog.String("error", err.Error()),
			)
		}
		return 0, fmt.Errorf("download feed: %w", err)
	}
	if resp.ContentLength > d.maxBytes {
		return 0, fmt.Errorf("download feed: advertised size %d exceeds limit %d", resp.ContentLength, d.maxBytes)
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create feed directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".feed-*.xlsx")
	if err != nil {
		return 0, fmt.Errorf("create temp feed file: %w", err)
	}
	tmpName := tmp.Name()

	// Read one byte past the cap so an oversized body is distinguishable
	// from one that is exactly at it.
	written, err := io.Copy(tmp, io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("stream feed body: %w", err)
	}
	if written > d.maxBytes {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("download feed: body exceeds limit %d bytes", d.maxBytes)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("sync temp feed file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("close temp feed file: %w", err)
	}

	if err := os.Rename(tmpName, destPath); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("rename feed file into place: %w", err)
	}

	downloadBytesTotal.Add(float64(written))
	d.logger.InfoContext(ctx, "feed downloaded",
		slog.String("path", destPath),
		slog.Int64("bytes", written),
		slog.Duration("elapsed", time.Since(start)),
	)
	return written, nil
}
