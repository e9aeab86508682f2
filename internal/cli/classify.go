package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var uploaderID string

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Classify a single local document",
	Long: `Classify runs one local file through extraction, normalization and
classification, stores the result and notifies recipients.

Examples:
  documentclassifier classify memo.docx --uploader u-17
  documentclassifier classify scan.png`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

var archiveCmd = &cobra.Command{
	Use:   "archive <file.zip>",
	Short: "Expand a zip archive and classify every supported entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchive,
}

func init() {
	classifyCmd.Flags().StringVarP(&uploaderID, "uploader", "u", "", "uploader user id")
	archiveCmd.Flags().StringVarP(&uploaderID, "uploader", "u", "", "uploader user id")
}

func runClassify(cmd *cobra.Command, args []string) error {
	resp, err := application.ClassifyFile(cmd.Context(), args[0], uploaderID)
	if err != nil {
		return fmt.Errorf("classify %s: %w", args[0], err)
	}
	return printJSON(cmd, resp)
}

func runArchive(cmd *cobra.Command, args []string) error {
	result, err := application.ProcessArchiveFile(cmd.Context(), args[0], uploaderID)
	if err != nil {
		return fmt.Errorf("archive %s: %w", args[0], err)
	}
	return printJSON(cmd, result)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
