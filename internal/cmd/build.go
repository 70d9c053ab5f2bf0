package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wfrun/cratebuilder/internal/builder"
	"github.com/wfrun/cratebuilder/internal/crate"
	"github.com/wfrun/cratebuilder/internal/log"
)

// cratePrefix names the produced sub-folder, completed with the run id
const cratePrefix = "COMPSs_RO-Crate_"

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the provenance crate for a workflow run",
	Long: `Build reads the run manifest and the runtime's execution log and produces
a provenance crate folder named after the run's generated identifier. With
data_persistence enabled in the manifest, dataset files are physically copied
into the crate; otherwise they are referenced by URL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestPath, _ := cmd.Flags().GetString("manifest")
		logPath, _ := cmd.Flags().GetString("log")
		outputDir, _ := cmd.Flags().GetString("output")
		workDir, _ := cmd.Flags().GetString("work-dir")

		logger := log.DefaultLogger()
		if workDir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			workDir = cwd
		}

		result, err := builder.Build(builder.Options{
			ManifestPath: manifestPath,
			LogPath:      logPath,
			WorkDir:      workDir,
			Logger:       logger,
		})
		if err != nil {
			return err
		}

		folder := filepath.Join(outputDir, cratePrefix+result.RunID)
		checksum, err := crate.Write(result.Crate, folder, logger)
		if err != nil {
			return err
		}

		printSummary(cmd, result, folder, checksum)
		return nil
	},
}

func printSummary(cmd *cobra.Command, result *builder.Result, folder, checksum string) {
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	mode := "referenced by URL"
	if result.Persisted {
		mode = "copied into the crate"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("✓ Workflow provenance crate generated"))
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("Folder:"), folder)
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("Workflow:"), result.MainEntity)
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("Run id:"), result.RunID)
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("Datasets:"), mode)
	fmt.Fprintf(out, "  %s sha256:%s\n", labelStyle.Render("Metadata:"), checksum)
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().String("manifest", "crate-info.yaml", "Run manifest describing the application")
	buildCmd.Flags().String("log", "dataprovenance.log", "Execution log written by the workflow runtime")
	buildCmd.Flags().String("output", ".", "Directory the crate sub-folder is created under")
	buildCmd.Flags().String("work-dir", "", "Directory the run was started from (defaults to the current directory)")
}
