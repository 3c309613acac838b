package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"swingcoach/internal/api"
	"swingcoach/internal/apiclient"
)

const (
	waitPollInterval = 2 * time.Second
	defaultWait      = 15 * time.Minute
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var club, player string
	var wait bool
	var waitTimeout time.Duration
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "upload <video>",
		Short: "Upload a swing clip for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Upload(cmd.Context(), apiclient.UploadOptions{
					VideoPath: args[0],
					Club:      club,
					PlayerID:  player,
				})
				if err != nil {
					return err
				}
				if !wait {
					if jsonOut {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Uploaded swing %s (%s)\n", resp.ID, resp.Status)
					return nil
				}
				if !jsonOut {
					fmt.Fprintf(cmd.OutOrStdout(), "Uploaded swing %s, waiting for analysis...\n", resp.ID)
				}
				detail, err := waitForTerminal(cmd.Context(), client, resp.ID, waitTimeout)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, detail)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderDetail(cmd.OutOrStdout(), detail))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&club, "club", "", "Club used for the swing (driver, wood, hybrid, long_iron, mid_iron, short_iron, wedge, putter)")
	cmd.Flags().StringVar(&player, "player", "", "Player identifier")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the pipeline to finish and print the result")
	cmd.Flags().DurationVar(&waitTimeout, "timeout", defaultWait, "Maximum time to wait with --wait")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("club")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

// waitForTerminal polls a swing until its run ends in analyzed or
// unanalyzed.
func waitForTerminal(ctx context.Context, client *apiclient.Client, id string, timeout time.Duration) (api.SwingDetail, error) {
	if timeout <= 0 {
		timeout = defaultWait
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()
	for {
		detail, err := client.Get(waitCtx, id)
		if err != nil {
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return api.SwingDetail{}, fmt.Errorf("swing %s still processing after %s", id, timeout)
			}
			return api.SwingDetail{}, err
		}
		if isTerminal(detail.Swing.Status) {
			return detail, nil
		}
		select {
		case <-waitCtx.Done():
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return detail, fmt.Errorf("swing %s still %s after %s", id, detail.Swing.Status, timeout)
			}
			return detail, waitCtx.Err()
		case <-ticker.C:
		}
	}
}

func isTerminal(status string) bool {
	return status == "analyzed" || status == "unanalyzed"
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var opts apiclient.ListOptions
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List swings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				items, err := client.List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if jsonOut {
					if items == nil {
						items = []api.SwingSummary{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No swings found")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSwingTable(cmd.OutOrStdout(), items))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.PlayerID, "player", "", "Only show swings for this player")
	cmd.Flags().BoolVar(&opts.FavoritesOnly, "favorites", false, "Only show favorite swings")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Maximum number of swings to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <swing-id>",
		Short: "Show a swing with its analysis and coaching roadmaps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				detail, err := client.Get(cmd.Context(), args[0])
				if err != nil {
					return notFoundHint(err, args[0])
				}
				if jsonOut {
					return writeJSON(cmd, detail)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderDetail(cmd.OutOrStdout(), detail))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

func newFavoriteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <swing-id>",
		Short: "Toggle the favorite flag of a swing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.ToggleFavorite(cmd.Context(), args[0])
				if err != nil {
					return notFoundHint(err, args[0])
				}
				state := "removed from"
				if resp.Favorite {
					state = "added to"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Swing %s %s favorites\n", resp.ID, state)
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <swing-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a swing and its media",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				if err := client.Delete(cmd.Context(), args[0]); err != nil {
					return notFoundHint(err, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted swing %s\n", args[0])
				return nil
			})
		},
	}
}

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <swing-id>",
		Short: "Run the analysis pipeline again for a swing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Reprocess(cmd.Context(), args[0])
				if err != nil {
					return notFoundHint(err, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Swing %s scheduled (%s)\n", resp.ID, resp.Status)
				return nil
			})
		},
	}
}

func newAttachCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "attach <swing-id> <screenshot>",
		Short: "Read a launch monitor screenshot and attach it to a swing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				reading, err := client.AttachLaunchMonitor(cmd.Context(), args[0], args[1])
				if err != nil {
					return notFoundHint(err, args[0])
				}
				if jsonOut {
					return writeJSON(cmd, reading)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderLaunchMonitor(reading))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

func notFoundHint(err error, id string) error {
	if apiclient.IsNotFound(err) {
		return fmt.Errorf("swing %s not found; run `swingcoach list` to see known swings", strings.TrimSpace(id))
	}
	return err
}
