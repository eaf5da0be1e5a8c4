package utils

import (
	"context"
	"time"
)

type Downloader interface {
	ValidateJob(job *DownloadJob) error
	BuildJob(job *DownloadJob) error
	Download(ctx context.Context, job *DownloadJob) error
}

// JobDescriptor is one requested transfer as written on the command line.
// It is never modified after the resolver returns it.
type JobDescriptor struct {
	Source         string
	DestinationDir string
	Extract        bool
}

type DownloadJob struct {
	ID           string
	JobType      string
	Descriptor   JobDescriptor
	OutputPath   string
	ProgressFunc func(downloaded, total int64)
	Metadata     map[string]any
	Config       TransferConfig
}

type TransferConfig struct {
	HTTPClientConfig HTTPClientConfig
	BufferSize       int
	S3               S3Config
}

type S3Config struct {
	Profile      string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

type TransferOutcome struct {
	Source           string
	FilePath         string
	BytesTransferred int64
	TotalBytes       int64
	ExtractedTo      string
	Duration         time.Duration
	Err              error
}

func (o TransferOutcome) Failed() bool {
	return o.Err != nil
}
