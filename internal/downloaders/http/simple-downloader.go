package dlhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/utils"
)

func (d *HTTPDownloader) Download(ctx context.Context, job *utils.DownloadJob) error {
	client := utils.NewHTTPClient(job.Config.HTTPClientConfig)
	return PerformSimpleDownload(ctx, job.Descriptor.Source, job.OutputPath, client, job.Config.BufferSize, job.ProgressFunc)
}

// PerformSimpleDownload streams one GET response body into outputPath. The
// file is written in place, so a failure can leave a partial file behind.
func PerformSimpleDownload(ctx context.Context, url, outputPath string, client *utils.DownloaderHTTPClient, bufferSize int, progress func(downloaded, total int64)) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("%w: error creating output directory: %w", utils.ErrTransfer, err)
	}
	ctx, watch, stop := utils.WatchIdle(ctx, client.Timeout())
	defer stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: error creating GET request: %w", utils.ErrTransfer, err)
	}
	log.Debug().Str("op", "http/simple-downloader").Msgf("starting download of %s", url)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: error executing GET request: %w", utils.ErrTransfer, idleCause(ctx, watch, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status code: %d", utils.ErrTransfer, resp.StatusCode)
	}

	total := max(resp.ContentLength, 0)
	outFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("%w: error creating output file: %w", utils.ErrTransfer, err)
	}
	defer outFile.Close()

	written, err := utils.StreamCopy(outFile, watch.Reader(resp.Body), bufferSize, total, progress)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrTransfer, idleCause(ctx, watch, err))
	}
	if total > 0 && written != total {
		return fmt.Errorf("%w: short body: got %d of %d bytes", utils.ErrTransfer, written, total)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("%w: error closing output file: %w", utils.ErrTransfer, err)
	}
	log.Info().Str("op", "http/simple-downloader").Msgf("download of %s finished, %d bytes written to %s", url, written, outputPath)
	return nil
}

func idleCause(ctx context.Context, watch *utils.IdleWatch, err error) error {
	if watch.Fired() {
		return errors.Join(err, context.Cause(ctx))
	}
	return err
}
