package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/utils"
)

func (d *LocalDownloader) Download(ctx context.Context, job *utils.DownloadJob) error {
	sourcePath := job.Metadata["sourcePath"].(string)
	_, err := copyFile(ctx, sourcePath, job.OutputPath, job.Config.BufferSize, job.ProgressFunc)
	return err
}

// copyFile streams src into dst, replacing dst. A copy onto the same file
// leaves it untouched and reports it as complete.
func copyFile(ctx context.Context, src, dst string, bufferSize int, progress func(done, total int64)) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", utils.ErrTransfer, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%w: error opening source file: %w", utils.ErrTransfer, err)
	}
	defer in.Close()
	srcInfo, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: error reading source file: %w", utils.ErrTransfer, err)
	}
	total := srcInfo.Size()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("%w: error creating output directory: %w", utils.ErrTransfer, err)
	}
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(srcInfo, dstInfo) {
		log.Debug().Str("op", "local/copy").Msgf("%s is already in place", dst)
		if progress != nil {
			progress(total, total)
		}
		return total, nil
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("%w: error creating output file: %w", utils.ErrTransfer, err)
	}
	defer out.Close()

	written, err := utils.StreamCopy(out, in, bufferSize, total, progress)
	if err != nil {
		return written, fmt.Errorf("%w: %w", utils.ErrTransfer, err)
	}
	if err := out.Close(); err != nil {
		return written, fmt.Errorf("%w: error closing output file: %w", utils.ErrTransfer, err)
	}
	if total == 0 && progress != nil {
		progress(0, 0)
	}
	log.Info().Str("op", "local/copy").Msgf("copied %s (%d bytes) to %s", src, written, dst)
	return written, nil
}
