package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"homerank/internal/model"
)

var (
	queryTopK       int
	queryJSON       bool
	queryNoLexical  bool
	queryNoSemantic bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run a query against the built indexes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 10, "number of results")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the full response as JSON")
	queryCmd.Flags().BoolVar(&queryNoLexical, "no-lexical", false, "skip lexical scoring")
	queryCmd.Flags().BoolVar(&queryNoSemantic, "no-semantic", false, "skip semantic scoring")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	useLexical, useSemantic := !queryNoLexical, !queryNoSemantic
	svc := a.SearchService(a.Registry())
	resp, err := svc.Search(commandContext(cmd), &model.SearchRequest{
		Query:       strings.Join(args, " "),
		TopK:        queryTopK,
		UseLexical:  &useLexical,
		UseSemantic: &useSemantic,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printResults(cmd, resp)
	return nil
}

func printResults(cmd *cobra.Command, resp *model.SearchResponse) {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return
	}
	if len(resp.Degraded) > 0 {
		cmd.Printf("Degraded: %s\n", strings.Join(resp.Degraded, ", "))
	}
	cmd.Printf("%d of %d candidates (%d ms)\n\n", len(resp.Results), resp.TotalCandidates, resp.Took)
	for i, r := range resp.Results {
		price := "-"
		if r.TotalPrice != nil {
			price = fmt.Sprintf("%.0f万", *r.TotalPrice)
		}
		cmd.Printf("[%d] %s  %s%s  %s  score=%.3f (quality %.2f, lexical %.2f, semantic %.2f, x%.2f)\n",
			i+1, r.ID, r.City, r.District, price, r.Score,
			r.Scores.QualityScore, r.Scores.LexicalNorm, r.Scores.SemanticNorm, r.Scores.PromotionMultiplier)
		cmd.Printf("    %s\n", strings.Join(r.MatchedReasons, ", "))
	}
}
