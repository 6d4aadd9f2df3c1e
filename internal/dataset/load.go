package dataset

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/basekick-labs/linkview/internal/storage"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// Load fetches path from backend and parses it into a Store. Gzip-compressed
// objects are detected by magic bytes and decompressed transparently.
func Load(ctx context.Context, backend storage.Backend, path string, schema Schema, opts ParseOptions, logger zerolog.Logger) (*Store, ParseReport, error) {
	start := time.Now()

	rc, err := backend.Open(ctx, path)
	if err != nil {
		return nil, ParseReport{}, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	var src io.Reader = br
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, ParseReport{}, fmt.Errorf("invalid gzip dataset %s: %w", path, err)
		}
		defer zr.Close()
		src = zr
	} else if strings.HasSuffix(path, ".gz") {
		logger.Warn().Str("path", path).Msg("Dataset has .gz suffix but is not gzip-compressed")
	}

	store, report, err := Parse(src, schema, opts)
	if err != nil {
		return nil, report, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}

	event := logger.Info()
	if report.MalformedRows > 0 || report.SkippedRows > 0 {
		event = logger.Warn()
	}
	event.
		Str("path", path).
		Str("backend", backend.Type()).
		Int("rows", report.Rows).
		Int("malformed_rows", report.MalformedRows).
		Int("malformed_cells", report.MalformedCells).
		Int("skipped_rows", report.SkippedRows).
		Dur("duration", time.Since(start)).
		Msg("Dataset loaded")

	return store, report, nil
}
