package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/utils"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/gcsblob"
	"gocloud.dev/gcerrors"
)

func (d *BlobDownloader) Download(ctx context.Context, job *utils.DownloadJob) error {
	bucketURL := job.Metadata["bucketURL"].(string)
	key := job.Metadata["key"].(string)
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return fmt.Errorf("%w: error opening bucket %s: %w", utils.ErrTransfer, bucketURL, err)
	}
	defer bucket.Close()

	timeout := job.Config.HTTPClientConfig.Timeout
	if timeout <= 0 {
		timeout = utils.DefaultTimeout
	}
	log.Info().Str("op", "blob/download").Msgf("starting download of %s", job.Descriptor.Source)
	_, err = downloadFromBucket(ctx, bucket, key, job.OutputPath, timeout, job.Config.BufferSize, job.ProgressFunc)
	return err
}

func downloadFromBucket(ctx context.Context, bucket *blob.Bucket, key, outputPath string, timeout time.Duration, bufferSize int, progress func(downloaded, total int64)) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return 0, fmt.Errorf("%w: error creating output directory: %w", utils.ErrTransfer, err)
	}
	ctx, watch, stop := utils.WatchIdle(ctx, timeout)
	defer stop()

	reader, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return 0, fmt.Errorf("%w: object %s does not exist: %w", utils.ErrTransfer, key, err)
		}
		return 0, fmt.Errorf("%w: error opening object %s: %w", utils.ErrTransfer, key, err)
	}
	defer reader.Close()
	total := max(reader.Size(), 0)

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("%w: error creating output file: %w", utils.ErrTransfer, err)
	}
	defer file.Close()

	written, err := utils.StreamCopy(file, watch.Reader(reader), bufferSize, total, progress)
	if err != nil {
		if watch.Fired() {
			return written, fmt.Errorf("%w: %w: %w", utils.ErrTransfer, err, context.Cause(ctx))
		}
		return written, fmt.Errorf("%w: %w", utils.ErrTransfer, err)
	}
	if err := file.Close(); err != nil {
		return written, fmt.Errorf("%w: error closing output file: %w", utils.ErrTransfer, err)
	}
	log.Info().Str("op", "blob/download").Msgf("downloaded %s (%d bytes) to %s", key, written, outputPath)
	return written, nil
}
