package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/courserag/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index course documents into the vector database",
	Long: `Parses every course document under the folder (docs_dir by default),
chunks the lessons and stores them with their catalog entries. Courses
whose file has not changed since the last run are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("clear", false, "remove all indexed courses before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()
	clearFirst, _ := cmd.Flags().GetBool("clear")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.DocsDir
	if len(args) == 1 {
		dir = args[0]
	}

	c, err := buildComponents(cfg, buildOptions{progress: progress.NewReporter("Indexing courses")})
	if err != nil {
		return err
	}
	defer c.Close()

	report, err := c.system.AddCourseFolder(ctx, dir, clearFirst)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Indexing complete!")
	fmt.Printf("  Files found:     %d\n", report.Files)
	fmt.Printf("  Courses added:   %d\n", report.Added)
	fmt.Printf("  Courses updated: %d\n", report.Replaced)
	fmt.Printf("  Unchanged:       %d\n", report.Skipped)
	fmt.Printf("  Chunks stored:   %d\n", report.Chunks)
	fmt.Printf("  Total courses:   %d\n", c.store.CourseCount())
	fmt.Printf("  Duration:        %s\n", time.Since(start).Round(time.Millisecond))

	if len(report.Failures) > 0 {
		fmt.Fprintf(os.Stderr, "\nSkipped files (%d):\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Fprintf(os.Stderr, "  - %s: %s\n", f.Path, f.Error)
		}
	}
	return nil
}
