package blob

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/utils"
)

// BlobDownloader fetches single objects from gs:// and azblob:// URLs
// through the portable gocloud bucket API.
type BlobDownloader struct{}

func (d *BlobDownloader) ValidateJob(job *utils.DownloadJob) error {
	bucketURL, key, err := splitObjectURL(job.Descriptor.Source)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrTransfer, err)
	}
	job.Metadata["bucketURL"] = bucketURL
	job.Metadata["key"] = key
	log.Debug().Str("op", "blob/initial").Msgf("job validated for %s key %s", bucketURL, key)
	return nil
}

func (d *BlobDownloader) BuildJob(job *utils.DownloadJob) error {
	key := job.Metadata["key"].(string)
	dir, err := utils.ResolveDir(job.Descriptor.DestinationDir)
	if err != nil {
		return fmt.Errorf("%w: error resolving destination directory: %w", utils.ErrTransfer, err)
	}
	job.OutputPath = filepath.Join(dir, utils.RemoteFileName(key))
	log.Debug().Str("op", "blob/initial").Msgf("job built for %s -> %s", job.Descriptor.Source, job.OutputPath)
	return nil
}

// splitObjectURL turns scheme://bucket/key?opts into the bucket URL the
// driver opens (query kept) and the object key.
func splitObjectURL(source string) (string, string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", "", fmt.Errorf("invalid object URL: %w", err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("object URL has no bucket: %s", source)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("object URL does not name an object: %s", source)
	}
	bucketURL := url.URL{Scheme: strings.ToLower(u.Scheme), Host: u.Host, RawQuery: u.RawQuery}
	return bucketURL.String(), key, nil
}
