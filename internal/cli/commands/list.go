package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var all bool
	var limit int

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverFlag, _ := cmd.Flags().GetString("server")
			return runList(cmd, serverFlag, !all, limit)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "List every user's videos")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of videos (1-100)")

	return cmd
}

func runList(cmd *cobra.Command, serverFlag string, mine bool, limit int) error {
	server, err := resolveServer(serverFlag)
	if err != nil {
		return err
	}

	apiClient, err := authedClient(server)
	if err != nil {
		return err
	}

	videos, err := apiClient.ListVideos(mine, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(videos) == 0 {
		fmt.Fprintln(out, "No videos found.")
		fmt.Fprintln(out, "\nUpload one with: clipvault upload <file> --title <title>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSIZE\tSAVED\tUPLOADED")
	fmt.Fprintln(w, "──\t─────\t────\t─────\t────────")

	for _, video := range videos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\n",
			video.ID,
			video.Title,
			humanize.Bytes(uint64(max(video.CompressedSize, 0))),
			video.CompressionPercent,
			humanize.Time(video.CreatedAt),
		)
	}

	return w.Flush()
}
