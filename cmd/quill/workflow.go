package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quillworks/quill/internal/config"
)

var workflowShowSteps bool

var workflowCmd = &cobra.Command{
	Use:   "workflow <goal>",
	Short: "Run a multi-step goal through the specialists",
	Long: `Plan a goal into ordered steps, dispatch each step to the matching
specialist, and synthesize a single answer from the step results.

The final answer is judged against the goal and refined before being
returned; an answer that still fails after the refinement rounds is
returned with a warning.

Examples:
  quill workflow "Check which items are low on stock and estimate the restock cost"
  quill workflow "Quote 500 units of cardstock and report the cash impact if sold" --steps`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWorkflow,
}

func init() {
	workflowCmd.Flags().BoolVar(&workflowShowSteps, "steps", false, "Print each step's result, not just the final answer")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.orchestrator.RunWorkflow(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	if workflowShowSteps {
		bold := color.New(color.Bold).SprintFunc()
		for i, step := range result.Steps {
			fmt.Printf("%s %s\n%s\n\n", bold(fmt.Sprintf("[%d/%d]", i+1, len(result.Steps))), step.Step, step.Output)
		}
		fmt.Println(bold("final:"))
	}

	fmt.Println(result.Final)
	if !result.Accepted {
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("warning: answer did not pass review, treat as best effort"))
	}
	return nil
}
