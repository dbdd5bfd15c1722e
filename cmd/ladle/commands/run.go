package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"go.trai.ch/ladle/internal/core/domain"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [recipes...]",
		Short: "Run recipes, skipping those already cached",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := c.settings(cmd)
			if err != nil {
				return err
			}
			if prune, _ := cmd.Flags().GetBool("prune"); prune {
				settings.Prune = true
			}
			if cold, _ := cmd.Flags().GetBool("cold-start"); cold {
				settings.ColdStart = true
			}

			listPath, _ := cmd.Flags().GetString("recipe-list")
			ids, err := gatherRecipes(args, listPath)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}

			report, err := c.app.Run(cmd.Context(), settings, ids)
			if err != nil {
				return err
			}
			if report.Failed() {
				return domain.ErrRunFailed
			}
			return nil
		},
	}

	cmd.Flags().String("recipe-list", "", "Path to a JSON array of recipe identifiers")
	cmd.Flags().Bool("prune", false, "Remove cache entries not touched by this run")
	cmd.Flags().Bool("cold-start", false, "Tolerate an unreachable backend and start with an empty cache")
	return cmd
}

// gatherRecipes merges positional arguments with the optional recipe list
// file, preserving order and dropping duplicates.
func gatherRecipes(args []string, listPath string) ([]domain.RecipeID, error) {
	names := append([]string{}, args...)

	if listPath != "" {
		data, err := os.ReadFile(listPath)
		if err != nil {
			return nil, zerr.Wrap(err, "reading recipe list")
		}
		var fromFile []string
		if err := json.Unmarshal(data, &fromFile); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "parsing recipe list"), "path", listPath)
		}
		names = append(names, fromFile...)
	}

	seen := make(map[string]struct{}, len(names))
	ids := make([]domain.RecipeID, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}
		ids = append(ids, domain.RecipeID(name))
	}
	return ids, nil
}
