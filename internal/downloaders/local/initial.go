package local

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/utils"
)

type LocalDownloader struct{}

func (d *LocalDownloader) ValidateJob(job *utils.DownloadJob) error {
	sourcePath, err := filepath.Abs(utils.LocalSourcePath(job.Descriptor.Source))
	if err != nil {
		return fmt.Errorf("%w: error resolving source path: %w", utils.ErrTransfer, err)
	}
	info, err := os.Stat(sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: source file %s: %w", utils.ErrNotFound, sourcePath, err)
		}
		return fmt.Errorf("%w: error reading source file: %w", utils.ErrTransfer, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: source is not a regular file: %s", utils.ErrTransfer, sourcePath)
	}
	job.Metadata["sourcePath"] = sourcePath
	return nil
}

func (d *LocalDownloader) BuildJob(job *utils.DownloadJob) error {
	sourcePath := job.Metadata["sourcePath"].(string)
	dir, err := utils.ResolveDir(job.Descriptor.DestinationDir)
	if err != nil {
		return fmt.Errorf("%w: error resolving destination directory: %w", utils.ErrTransfer, err)
	}
	job.OutputPath = filepath.Join(dir, filepath.Base(sourcePath))
	log.Debug().Str("op", "local/initial").Msgf("job built for %s -> %s", sourcePath, job.OutputPath)
	return nil
}
