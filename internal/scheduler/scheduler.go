package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/downloader/internal/downloaders/blob"
	dlhttp "github.com/tanq16/downloader/internal/downloaders/http"
	"github.com/tanq16/downloader/internal/downloaders/local"
	"github.com/tanq16/downloader/internal/downloaders/s3"
	"github.com/tanq16/downloader/internal/extract"
	"github.com/tanq16/downloader/internal/output"
	"github.com/tanq16/downloader/internal/utils"
)

// downloaderRegistry maps job types to their backend
var downloaderRegistry = map[string]utils.Downloader{
	utils.JobTypeHTTP:  &dlhttp.HTTPDownloader{},
	utils.JobTypeLocal: &local.LocalDownloader{},
	utils.JobTypeS3:    &s3.S3Downloader{},
	utils.JobTypeBlob:  &blob.BlobDownloader{},
}

type Options struct {
	// Workers caps concurrent jobs; zero runs every job at once.
	Workers int
	Output  io.Writer
	Config  utils.TransferConfig
	// UpdateInterval overrides the display tick when positive.
	UpdateInterval time.Duration
}

type task struct {
	index  int
	funcID int
	job    utils.DownloadJob
}

// Run transfers every descriptor concurrently and waits for all of them. A
// failing job never stops its siblings; the returned error only says how
// many failed, each failure having been reported on its own line.
func Run(descriptors []utils.JobDescriptor, opts Options) ([]utils.TransferOutcome, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	outputMgr := output.NewManager(out)
	if opts.UpdateInterval > 0 {
		outputMgr.SetUpdateInterval(opts.UpdateInterval)
	}
	outputMgr.StartDisplay()

	tasks := make(chan task, len(descriptors))
	for i, desc := range descriptors {
		tasks <- task{
			index:  i,
			funcID: outputMgr.RegisterFunction(desc.Source),
			job: utils.DownloadJob{
				ID:         uuid.New().String(),
				JobType:    utils.DetermineJobType(desc.Source),
				Descriptor: desc,
				Metadata:   make(map[string]any),
				Config:     opts.Config,
			},
		}
	}
	close(tasks)

	numWorkers := len(descriptors)
	if opts.Workers > 0 {
		numWorkers = min(opts.Workers, len(descriptors))
	}
	log.Debug().Str("op", "scheduler/run").Msgf("running %d jobs with %d workers", len(descriptors), numWorkers)

	outcomes := make([]utils.TransferOutcome, len(descriptors))
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				outcomes[t.index] = processJob(t.job, t.funcID, outputMgr)
			}
		}()
	}
	wg.Wait()
	outputMgr.StopDisplay()

	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return outcomes, fmt.Errorf("%d of %d jobs failed", failed, len(outcomes))
	}
	return outcomes, nil
}

// processJob runs one job through validate, build, download and the
// optional extraction, reporting the single outcome to the output manager.
func processJob(job utils.DownloadJob, funcID int, outputMgr *output.Manager) utils.TransferOutcome {
	start := time.Now()
	outcome := utils.TransferOutcome{Source: job.Descriptor.Source}
	fail := func(err error) utils.TransferOutcome {
		outcome.Err = err
		outcome.Duration = time.Since(start)
		log.Error().Str("op", "scheduler/process").Str("job", job.ID).Err(err).Msgf("job for %s failed", job.Descriptor.Source)
		outputMgr.ReportError(funcID, err)
		return outcome
	}

	downloader, exists := downloaderRegistry[job.JobType]
	if !exists {
		return fail(fmt.Errorf("%w: unknown job type: %s", utils.ErrTransfer, job.JobType))
	}

	outputMgr.SetMessage(funcID, fmt.Sprintf("Validating %s job", job.JobType))
	if err := downloader.ValidateJob(&job); err != nil {
		return fail(err)
	}
	if err := downloader.BuildJob(&job); err != nil {
		return fail(err)
	}
	outcome.FilePath = job.OutputPath

	var downloaded, total atomic.Int64
	job.ProgressFunc = func(d, t int64) {
		downloaded.Store(d)
		total.Store(t)
		outputMgr.UpdateProgress(funcID, d, t)
	}
	outputMgr.SetStatus(funcID, output.StatusActive)
	outputMgr.SetMessage(funcID, fmt.Sprintf("Transferring %s", job.Descriptor.Source))
	log.Info().Str("op", "scheduler/process").Str("job", job.ID).Msgf("starting %s job %s -> %s", job.JobType, job.Descriptor.Source, job.OutputPath)
	err := downloader.Download(context.Background(), &job)
	outcome.BytesTransferred = downloaded.Load()
	outcome.TotalBytes = total.Load()
	if err != nil {
		return fail(err)
	}

	message := fmt.Sprintf("File downloaded and saved to: %s", job.OutputPath)
	if job.JobType == utils.JobTypeLocal {
		message = fmt.Sprintf("File copied to: %s", job.OutputPath)
	}
	if job.Descriptor.Extract && extract.IsArchive(job.OutputPath) {
		outputMgr.SetMessage(funcID, fmt.Sprintf("Extracting %s", job.OutputPath))
		dir, err := extract.Extract(job.OutputPath)
		if err != nil {
			return fail(err)
		}
		outcome.ExtractedTo = dir
		message = fmt.Sprintf("Archive extracted to: %s", dir)
	}

	outcome.Duration = time.Since(start)
	outputMgr.Complete(funcID, message)
	return outcome
}
