package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewUploadCmd creates the upload command
func NewUploadCmd() *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverFlag, _ := cmd.Flags().GetString("server")
			return runUpload(cmd, serverFlag, args[0], title, description)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Video title (defaults to the file name)")
	cmd.Flags().StringVar(&description, "description", "", "Video description")

	return cmd
}

func runUpload(cmd *cobra.Command, serverFlag, path, title, description string) error {
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	server, err := resolveServer(serverFlag)
	if err != nil {
		return err
	}

	apiClient, err := authedClient(server)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Uploading %s...\n", filepath.Base(path))

	video, err := apiClient.UploadVideo(path, title, description)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Upload complete")
	fmt.Fprintf(out, "  ID:         %s\n", video.ID)
	fmt.Fprintf(out, "  Title:      %s\n", video.Title)
	fmt.Fprintf(out, "  Size:       %s → %s (%d%% smaller)\n",
		humanize.Bytes(uint64(max(video.OriginalSize, 0))),
		humanize.Bytes(uint64(max(video.CompressedSize, 0))),
		video.CompressionPercent,
	)
	fmt.Fprintf(out, "  URL:        %s\n", video.URL)

	return nil
}
