package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the course assistant a question",
	Long: `Answers a question about the indexed courses. The assistant searches
the course materials when the question needs them and prints the answer
with its sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Bool("json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := buildComponents(cfg, buildOptions{withLLM: true})
	if err != nil {
		return err
	}
	defer c.Close()

	if c.store.CourseCount() == 0 {
		fmt.Fprintln(os.Stderr, "No courses indexed yet. Run `courserag ingest` first.")
	}

	answer, err := c.system.Query(ctx, args[0], "")
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range answer.Sources {
			if src.URL != "" {
				fmt.Printf("  - %s (%s)\n", src.Text, src.URL)
			} else {
				fmt.Printf("  - %s\n", src.Text)
			}
		}
	}
	return nil
}
