package s3

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/utils"
)

func (d *S3Downloader) Download(ctx context.Context, job *utils.DownloadJob) error {
	bucket := job.Metadata["bucket"].(string)
	key := job.Metadata["key"].(string)
	client, err := getS3Client(ctx, job.Config.S3)
	if err != nil {
		return fmt.Errorf("%w: error creating S3 client: %w", utils.ErrTransfer, err)
	}
	timeout := job.Config.HTTPClientConfig.Timeout
	if timeout <= 0 {
		timeout = utils.DefaultTimeout
	}
	log.Info().Str("op", "s3/download").Msgf("starting download of s3://%s/%s", bucket, key)
	_, err = performS3Download(ctx, client, bucket, key, job.OutputPath, timeout, job.Config.BufferSize, job.ProgressFunc)
	return err
}
