package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/ziadkadry99/courserag/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing the
course search tool to AI agents. When an LLM provider is configured it
also offers list_courses and ask_course_assistant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		c, err := buildComponents(cfg, buildOptions{withLLM: true})
		if err != nil {
			logger.Warn("LLM unavailable, serving search only", zap.Error(err))
			c, err = buildComponents(cfg, buildOptions{})
			if err != nil {
				return err
			}
		}
		defer c.Close()

		if c.store.CourseCount() == 0 {
			fmt.Fprintf(os.Stderr, "No courses indexed. Run `courserag ingest` first.\n")
		}

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "courserag MCP server started on stdio (courses=%d, chunks=%d)\n", c.store.CourseCount(), c.store.ContentCount())

		var backend mcpserver.Backend
		if c.hasLLM {
			backend = c.system
		}
		return mcpserver.NewServer(c.search, backend).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
