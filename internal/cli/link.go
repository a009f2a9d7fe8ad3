package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLinkCmd groups quiz link commands.
func NewLinkCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage quiz links",
	}
	cmd.AddCommand(newLinkCreateCmd(configPath))
	return cmd
}

func newLinkCreateCmd(configPath *string) *cobra.Command {
	var (
		adminID    string
		quizID     string
		maxAllowed int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a quiz link and print its URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == "memory" {
				return errors.New("link create needs a persistent storage driver (sqlite or postgres)")
			}
			if maxAllowed == 0 {
				maxAllowed = cfg.Links.DefaultMaxAllowed
			}

			c, err := buildComponents(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			link, err := c.registry.CreateLink(cmd.Context(), adminID, quizID, maxAllowed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s/quiz/%s\n", link.ID, cfg.Server.PublicBaseURL, link.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&adminID, "admin", "", "admin email that owns the link")
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz ID")
	cmd.Flags().IntVar(&maxAllowed, "max", 0, "maximum distinct students (defaults to links.default_max_allowed)")
	_ = cmd.MarkFlagRequired("admin")
	_ = cmd.MarkFlagRequired("quiz")
	return cmd
}
