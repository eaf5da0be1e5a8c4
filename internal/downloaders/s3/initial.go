package s3

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/utils"
)

type S3Downloader struct{}

func (d *S3Downloader) ValidateJob(job *utils.DownloadJob) error {
	bucket, key, err := parseS3URL(job.Descriptor.Source)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrTransfer, err)
	}
	job.Metadata["bucket"] = bucket
	job.Metadata["key"] = key
	log.Debug().Str("op", "s3/initial").Msgf("job validated for s3://%s/%s", bucket, key)
	return nil
}

func (d *S3Downloader) BuildJob(job *utils.DownloadJob) error {
	key := job.Metadata["key"].(string)
	dir, err := utils.ResolveDir(job.Descriptor.DestinationDir)
	if err != nil {
		return fmt.Errorf("%w: error resolving destination directory: %w", utils.ErrTransfer, err)
	}
	job.OutputPath = filepath.Join(dir, utils.RemoteFileName(key))
	log.Debug().Str("op", "s3/initial").Msgf("job built for %s -> %s", job.Descriptor.Source, job.OutputPath)
	return nil
}

// parseS3URL splits s3://bucket/path/to/key. Prefixes ("folders") are not
// downloadable, so the key must name an object.
func parseS3URL(source string) (string, string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URL: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("invalid S3 URL scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("S3 URL has no bucket")
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("S3 URL does not name an object: %s", source)
	}
	return u.Host, key, nil
}
