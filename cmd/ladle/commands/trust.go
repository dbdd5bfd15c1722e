package commands

import (
	"github.com/spf13/cobra"

	"go.trai.ch/ladle/internal/core/domain"
)

func (c *CLI) newTrustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Inspect and update recipe trust information",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify [recipes...]",
		Short: "Check stored trust digests against the current recipe chains",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := c.settings(cmd)
			if err != nil {
				return err
			}
			states, err := c.app.TrustVerify(cmd.Context(), settings, toRecipeIDs(args))
			if err != nil {
				return err
			}
			for _, state := range states {
				if state != domain.TrustTrusted {
					return domain.ErrUntrusted
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update [recipes...]",
		Short: "Recompute and store trust digests for the given recipes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := c.settings(cmd)
			if err != nil {
				return err
			}
			return c.app.TrustUpdate(cmd.Context(), settings, toRecipeIDs(args))
		},
	})

	return cmd
}

func toRecipeIDs(args []string) []domain.RecipeID {
	ids := make([]domain.RecipeID, len(args))
	for i, arg := range args {
		ids[i] = domain.RecipeID(arg)
	}
	return ids
}
