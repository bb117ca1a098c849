package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rmax-ai/pathlord/pkg/blob"
)

// archiveStamp sorts lexically in time order.
const archiveStamp = "20060102T150405.000000000Z"

// ArchiveKey names an export of reportType taken at ts, e.g.
// "results/20261014T120000.000000000Z.csv".
func ArchiveKey(reportType ReportType, format ReportFormat, ts time.Time) string {
	if format == "" {
		format = ReportFormatCSV
	}
	return fmt.Sprintf("%s/%s.%s", reportType, ts.UTC().Format(archiveStamp), format)
}

// Archive stores a generated report under ArchiveKey and then deletes the
// oldest archives of the same type beyond keep. keep <= 0 keeps everything.
func Archive(ctx context.Context, store blob.BlobStore, reportType ReportType, format ReportFormat, report io.Reader, ts time.Time, keep int) (string, error) {
	key := ArchiveKey(reportType, format, ts)
	if err := store.Put(ctx, key, report); err != nil {
		return "", fmt.Errorf("failed to archive report: %w", err)
	}
	if keep <= 0 {
		return key, nil
	}

	keys, err := store.List(ctx, string(reportType))
	if err != nil {
		return key, fmt.Errorf("failed to list archives: %w", err)
	}
	for len(keys) > keep {
		if err := store.Delete(ctx, keys[0]); err != nil {
			return key, fmt.Errorf("failed to prune archive %s: %w", keys[0], err)
		}
		keys = keys[1:]
	}
	return key, nil
}
