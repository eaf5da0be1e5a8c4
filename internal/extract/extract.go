// Package extract unpacks downloaded archives next to where they were
// saved and removes the archive once every entry is on disk.
package extract

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/utils"
)

type format int

const (
	formatNone format = iota
	formatZip
	formatTarGz
	formatTarZst
)

var suffixes = []struct {
	suffix string
	format format
}{
	{".zip", formatZip},
	{".tar.gz", formatTarGz},
	{".tgz", formatTarGz},
	{".tar.zst", formatTarZst},
	{".tzst", formatTarZst},
}

func detect(path string) format {
	lower := strings.ToLower(path)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format
		}
	}
	return formatNone
}

// IsArchive reports whether path has an extension Extract understands.
func IsArchive(path string) bool {
	return detect(path) != formatNone
}

// Extract unpacks archivePath into its containing directory and deletes the
// archive. Entry names are checked before anything is written; a failure
// after that point keeps the archive and leaves entries already written.
func Extract(archivePath string) (string, error) {
	dest := filepath.Dir(archivePath)
	var err error
	switch detect(archivePath) {
	case formatZip:
		err = extractZip(archivePath, dest)
	case formatTarGz:
		err = extractTar(archivePath, dest, func(r io.Reader) (io.Reader, func(), error) {
			gz, err := gzip.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return gz, func() { gz.Close() }, nil
		})
	case formatTarZst:
		err = extractTar(archivePath, dest, func(r io.Reader) (io.Reader, func(), error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return zr, zr.Close, nil
		})
	default:
		return "", fmt.Errorf("%w: not a supported archive: %s", utils.ErrExtraction, archivePath)
	}
	if err != nil {
		log.Error().Str("op", "extract/extract").Err(err).Msgf("extraction of %s failed", archivePath)
		return "", fmt.Errorf("%w: %s: %w", utils.ErrExtraction, filepath.Base(archivePath), err)
	}
	if err := os.Remove(archivePath); err != nil {
		return "", fmt.Errorf("%w: error removing archive after extraction: %w", utils.ErrExtraction, err)
	}
	log.Info().Str("op", "extract/extract").Msgf("extracted %s into %s", archivePath, dest)
	return dest, nil
}

// safeJoin resolves an entry name under dest, refusing names that would
// land outside it or on top of the archive being read.
func safeJoin(dest, archivePath, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry escapes destination: %s", name)
	}
	if strings.EqualFold(target, filepath.Clean(archivePath)) {
		return "", fmt.Errorf("entry would overwrite the archive itself: %s", name)
	}
	return target, nil
}

func writeEntry(target string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if mode.Perm() == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	targets := make([]string, len(reader.File))
	for i, file := range reader.File {
		if targets[i], err = safeJoin(dest, archivePath, file.Name); err != nil {
			return err
		}
	}
	for i, file := range reader.File {
		target := targets[i]
		mode := file.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case mode&fs.ModeSymlink != 0:
			log.Debug().Str("op", "extract/zip").Msgf("skipping symlink %s", file.Name)
		default:
			rc, err := file.Open()
			if err != nil {
				return err
			}
			err = writeEntry(target, rc, mode)
			rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

type decompressor func(io.Reader) (io.Reader, func(), error)

// extractTar reads the stream twice: once to check every entry name, then
// to write the entries.
func extractTar(archivePath, dest string, decompress decompressor) error {
	err := walkTar(archivePath, decompress, func(header *tar.Header, _ io.Reader) error {
		_, err := safeJoin(dest, archivePath, header.Name)
		return err
	})
	if err != nil {
		return err
	}
	return walkTar(archivePath, decompress, func(header *tar.Header, r io.Reader) error {
		target, err := safeJoin(dest, archivePath, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(target, 0755)
		case tar.TypeReg:
			return writeEntry(target, r, header.FileInfo().Mode())
		default:
			log.Debug().Str("op", "extract/tar").Msgf("skipping %s (type %c)", header.Name, header.Typeflag)
			return nil
		}
	})
}

func walkTar(archivePath string, decompress decompressor, visit func(*tar.Header, io.Reader) error) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	stream, closeStream, err := decompress(file)
	if err != nil {
		return err
	}
	defer closeStream()

	tr := tar.NewReader(stream)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := visit(header, tr); err != nil {
			return err
		}
	}
}
