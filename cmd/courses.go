package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List the indexed courses",
	RunE:  runCourses,
}

func init() {
	coursesCmd.Flags().Bool("json", false, "output the catalog as JSON")
	rootCmd.AddCommand(coursesCmd)
}

func runCourses(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := buildComponents(cfg, buildOptions{})
	if err != nil {
		return err
	}
	defer c.Close()

	courses, err := c.system.Courses(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(courses)
	}

	if len(courses) == 0 {
		fmt.Println("No courses indexed. Run `courserag ingest` first.")
		return nil
	}

	fmt.Printf("%d course(s):\n\n", len(courses))
	for _, info := range courses {
		fmt.Printf("  %s\n", info.Title)
		if info.Instructor != "" {
			fmt.Printf("     Instructor: %s\n", info.Instructor)
		}
		if info.Link != "" {
			fmt.Printf("     Link:       %s\n", info.Link)
		}
		fmt.Printf("     Lessons:    %d\n\n", len(info.Lessons))
	}
	return nil
}
