package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/utils"
)

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func getS3Client(ctx context.Context, cfg utils.S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMode(aws.RetryModeAdaptive),
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// performS3Download streams one object into outputPath. The idle timeout
// guards the body read the same way it does for HTTP sources.
func performS3Download(ctx context.Context, client objectGetter, bucket, key, outputPath string, timeout time.Duration, bufferSize int, progress func(downloaded, total int64)) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return 0, fmt.Errorf("%w: error creating output directory: %w", utils.ErrTransfer, err)
	}
	ctx, watch, stop := utils.WatchIdle(ctx, timeout)
	defer stop()

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: error getting object s3://%s/%s: %w", utils.ErrTransfer, bucket, key, err)
	}
	defer result.Body.Close()
	total := max(aws.ToInt64(result.ContentLength), 0)

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("%w: error creating output file: %w", utils.ErrTransfer, err)
	}
	defer file.Close()

	written, err := utils.StreamCopy(file, watch.Reader(result.Body), bufferSize, total, progress)
	if err != nil {
		if watch.Fired() {
			return written, fmt.Errorf("%w: %w: %w", utils.ErrTransfer, err, context.Cause(ctx))
		}
		return written, fmt.Errorf("%w: %w", utils.ErrTransfer, err)
	}
	if total > 0 && written != total {
		return written, fmt.Errorf("%w: short body: got %d of %d bytes", utils.ErrTransfer, written, total)
	}
	if err := file.Close(); err != nil {
		return written, fmt.Errorf("%w: error closing output file: %w", utils.ErrTransfer, err)
	}
	log.Info().Str("op", "s3/helpers").Msgf("downloaded s3://%s/%s (%d bytes) to %s", bucket, key, written, outputPath)
	return written, nil
}
