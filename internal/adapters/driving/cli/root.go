// Package cli implements the brokerdesk command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/brokerdesk/internal/core/ports/driving"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// verbose enables debug logging for every command.
var verbose bool

// Services wired in by main.
var (
	ingestService   driving.IngestService
	librarySync     driving.LibrarySync
	searchService   driving.RetrievalService
	answerService   driving.AnswerService
	documentService driving.DocumentService
	settingsService driving.SettingsService
	syncScheduler   driving.SyncScheduler
	libraryDir      string
)

// Services holds the driving ports the commands call.
// Any field may be nil; commands that need a missing service fail with a clear error.
type Services struct {
	Ingest     driving.IngestService
	Sync       driving.LibrarySync
	Search     driving.RetrievalService
	Answer     driving.AnswerService
	Document   driving.DocumentService
	Settings   driving.SettingsService
	Scheduler  driving.SyncScheduler
	LibraryDir string
}

var rootCmd = &cobra.Command{
	Use:   "brokerdesk",
	Short: "Policy library assistant for mortgage brokers",
	Long: `brokerdesk keeps a library of lender policy documents, indexes them for
semantic search and answers questions with cited excerpts.

Drop PDFs and text files into the library folder, run 'brokerdesk sync',
then 'brokerdesk ask' or 'brokerdesk search'.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices wires the core services into the commands.
func SetServices(s Services) {
	ingestService = s.Ingest
	librarySync = s.Sync
	searchService = s.Search
	answerService = s.Answer
	documentService = s.Document
	settingsService = s.Settings
	syncScheduler = s.Scheduler
	libraryDir = s.LibraryDir
}

// SetVersion sets the version reported by 'brokerdesk version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
