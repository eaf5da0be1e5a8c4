package utils

import "errors"

const (
	DefaultBufferSize = 256 * 1024
	MinBufferSize     = 8 * 1024
	MaxBufferSize     = 800 * 1024
)

const ToolUserAgent = "downloader/1.0"
const DefaultFileName = "download"

const (
	JobTypeHTTP  = "http"
	JobTypeLocal = "local"
	JobTypeS3    = "s3"
	JobTypeBlob  = "blob"
)

var (
	ErrUsage      = errors.New("usage error")
	ErrNotFound   = errors.New("not found")
	ErrTransfer   = errors.New("transfer failed")
	ErrExtraction = errors.New("extraction failed")
)

var blobSchemes = map[string]bool{
	"gs":     true,
	"azblob": true,
}
