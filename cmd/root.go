package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/downloader/internal/config"
	"github.com/tanq16/downloader/internal/output"
	"github.com/tanq16/downloader/internal/resolver"
	"github.com/tanq16/downloader/internal/scheduler"
	"github.com/tanq16/downloader/internal/utils"
)

var DownloaderVersion = "dev"

const configHelp = `Settings are read from $DOWNLOADER_CONFIG (or <user config dir>/downloader/config.yaml),
then .env in the working directory, then DOWNLOADER_* environment variables:
  DOWNLOADER_TIMEOUT, DOWNLOADER_KEEP_ALIVE_TIMEOUT, DOWNLOADER_BUFFER_SIZE,
  DOWNLOADER_WORKERS, DOWNLOADER_USER_AGENT, DOWNLOADER_DEBUG, DOWNLOADER_LOG_FILE,
  DOWNLOADER_S3_PROFILE, DOWNLOADER_S3_REGION, DOWNLOADER_S3_ENDPOINT, DOWNLOADER_S3_USE_PATH_STYLE`

// Flag parsing is off: -L and -E are positional and belong to the job
// grammar, so the raw arguments go straight to the resolver.
var rootCmd = &cobra.Command{
	Use:                "downloader <source1> [-L <dir1>] [<source2> [-L <dir2>] ...] [-E|--Extract]",
	Short:              "Downloader fetches URLs and copies local files concurrently",
	Version:            DownloaderVersion,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	Run: func(cmd *cobra.Command, args []string) {
		if code := run(args, cmd.OutOrStdout()); code != 0 {
			os.Exit(code)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes one batch and returns the process exit code.
func run(args []string, stdout io.Writer) int {
	if len(args) == 1 {
		switch args[0] {
		case "-h", "--help":
			fmt.Fprintln(stdout, resolver.Usage)
			fmt.Fprintln(stdout)
			output.PrintInfo(stdout, configHelp)
			return 0
		case "--version":
			output.PrintInfo(stdout, "downloader version "+DownloaderVersion)
			return 0
		}
	}

	descriptors, extract, err := resolver.Resolve(args)
	if err != nil {
		if errors.Is(err, utils.ErrUsage) {
			fmt.Fprintln(stdout, resolver.Usage)
			return 1
		}
		output.PrintError(stdout, err.Error())
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		output.PrintError(stdout, fmt.Sprintf("Invalid configuration: %v", err))
		return 1
	}
	closer, err := utils.InitLogger(cfg.Debug, cfg.LogFile)
	if err != nil {
		output.PrintError(stdout, err.Error())
		return 1
	}
	defer closer.Close()
	log.Info().Str("op", "cmd/root").Msgf("resolved %d jobs (extract=%t)", len(descriptors), extract)

	_, err = scheduler.Run(descriptors, scheduler.Options{
		Workers: cfg.Workers,
		Output:  stdout,
		Config:  cfg.TransferConfig(),
	})
	if err != nil {
		log.Error().Str("op", "cmd/root").Err(err).Msg("batch finished with failures")
		return 1
	}
	return 0
}
