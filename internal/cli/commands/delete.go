package commands

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// confirmDelete asks before deleting; replaced in tests
var confirmDelete = func(videoID string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Delete video %s", videoID),
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewDeleteCmd creates the delete command
func NewDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <video-id>",
		Aliases: []string{"delete"},
		Short:   "Delete one of your videos",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverFlag, _ := cmd.Flags().GetString("server")
			return runDelete(cmd, serverFlag, args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runDelete(cmd *cobra.Command, serverFlag, videoID string, yes bool) error {
	server, err := resolveServer(serverFlag)
	if err != nil {
		return err
	}

	apiClient, err := authedClient(server)
	if err != nil {
		return err
	}

	if !yes {
		ok, err := confirmDelete(videoID)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if err := apiClient.DeleteVideo(videoID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", videoID)
	return nil
}
