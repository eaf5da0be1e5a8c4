package dlhttp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/utils"
)

type HTTPDownloader struct{}

func (d *HTTPDownloader) ValidateJob(job *utils.DownloadJob) error {
	parsedURL, err := url.Parse(job.Descriptor.Source)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %w", utils.ErrTransfer, err)
	}
	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme: %s", utils.ErrTransfer, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%w: URL has no host", utils.ErrTransfer)
	}
	job.Metadata["url"] = parsedURL
	return nil
}

// BuildJob names the output after the last URL path segment inside the
// job's destination directory, resolved now rather than at parse time.
func (d *HTTPDownloader) BuildJob(job *utils.DownloadJob) error {
	parsedURL := job.Metadata["url"].(*url.URL)
	dir, err := utils.ResolveDir(job.Descriptor.DestinationDir)
	if err != nil {
		return fmt.Errorf("%w: error resolving destination directory: %w", utils.ErrTransfer, err)
	}
	job.OutputPath = filepath.Join(dir, utils.RemoteFileName(parsedURL.Path))
	log.Debug().Str("op", "http/initial").Msgf("job built for %s -> %s", job.Descriptor.Source, job.OutputPath)
	return nil
}
