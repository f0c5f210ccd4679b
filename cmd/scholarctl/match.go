package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/scholarship-matcher/internal/app"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
	"github.com/fairyhunter13/scholarship-matcher/internal/usecase"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run one matching pipeline and print the result as JSON",
	Long:  "Runs the search variant (web search then model ranking) or the catalog variant (model re-ranking of the configured catalog) for a profile read from a JSON file or stdin.",
	RunE:  runMatch,
}

var (
	matchVariant string
	matchProfile string
	matchUserID  string
	matchLimit   int
)

func init() {
	matchCmd.Flags().StringVar(&matchVariant, "variant", string(domain.VariantSearch), "Pipeline variant: search or catalog")
	matchCmd.Flags().StringVarP(&matchProfile, "profile", "p", "-", "Profile JSON file, - for stdin")
	matchCmd.Flags().StringVarP(&matchUserID, "user-id", "u", "", "Persist catalog recommendations for this user")
	matchCmd.Flags().IntVar(&matchLimit, "limit", 0, "Lower the catalog recommendation cap")

	rootCmd.AddCommand(matchCmd)
}

func readProfile(path string, stdin io.Reader) (usecase.RawProfile, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return usecase.RawProfile{}, fmt.Errorf("read profile: %w", err)
	}
	var raw usecase.RawProfile
	if err := json.Unmarshal(b, &raw); err != nil {
		return usecase.RawProfile{}, fmt.Errorf("%w: profile json: %v", domain.ErrInvalidArgument, err)
	}
	return raw, nil
}

func runMatch(cmd *cobra.Command, _ []string) error {
	variant := domain.Variant(matchVariant)
	if variant != domain.VariantSearch && variant != domain.VariantCatalog {
		return fmt.Errorf("%w: unknown variant %q", domain.ErrInvalidArgument, matchVariant)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	raw, err := readProfile(matchProfile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	rt, err := app.Wire(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	var out any
	if variant == domain.VariantCatalog {
		out, err = rt.Matcher.MatchCatalog(ctx, usecase.CatalogRequest{Profile: raw, UserID: matchUserID, Limit: matchLimit})
	} else {
		out, err = rt.Matcher.MatchSearch(ctx, raw)
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
