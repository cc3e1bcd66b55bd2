package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/va-pc/buildscout/pkg/vk"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Resolve configured group IDs to their VK community names",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.VK.Token == "" {
			return eris.New("VK token not configured (set BUILDSCOUT_VK_TOKEN)")
		}

		groupIDs, err := cfg.LoadGroupIDs()
		if err != nil {
			return err
		}
		if len(groupIDs) == 0 {
			return eris.New("no group IDs configured")
		}

		vkOpts := []vk.Option{vk.WithRateLimit(cfg.VK.RateRPS)}
		if len(cfg.VK.Endpoints) > 0 {
			vkOpts = append(vkOpts, vk.WithEndpoints(cfg.VK.Endpoints...))
		}
		client := vk.NewClient(cfg.VK.Token, vkOpts...)

		fmt.Printf("%-12s %s\n", "GROUP ID", "NAME")
		for _, id := range groupIDs {
			fmt.Printf("%-12d %s\n", id, client.GroupName(ctx, id))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(groupsCmd)
}
