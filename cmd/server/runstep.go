package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"blogflow/backend/internal/workflow"
)

type runStepOptions struct {
	postID      int64
	sectionID   int64
	stepID      int64
	stage       string
	subStage    string
	step        string
	provider    string
	model       string
	temperature float64
	maxTokens   int
}

func newRunStepCommand(opts *rootOptions) *cobra.Command {
	var o runStepOptions
	cmd := &cobra.Command{
		Use:   "run-step",
		Short: "Run one workflow step for a post and print the result",
		Example: `  blogflow run-step --post 12 --step-id 4
  blogflow run-step --post 12 --stage Idea --sub-stage Basics --step "Idea Scope" --model llama3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := workflow.RunRequest{
				PostID:      o.postID,
				Step:        workflow.StepRef{ID: o.stepID, Stage: o.stage, SubStage: o.subStage, Step: o.step},
				Provider:    o.provider,
				Model:       o.model,
				MaxTokens:   o.maxTokens,
				TriggeredBy: "cli",
			}
			if o.postID <= 0 {
				return errors.New("--post is required")
			}
			if o.stepID == 0 && (o.stage == "" || o.subStage == "" || o.step == "") {
				return errors.New("either --step-id or --stage, --sub-stage and --step are required")
			}
			if o.sectionID > 0 {
				req.SectionID = &o.sectionID
			}
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &o.temperature
			}

			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, runErr := a.engine.Run(cmd.Context(), req)
			if res != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			if runErr != nil && res != nil && workflow.IsWritePhase(runErr) {
				fmt.Fprintln(cmd.ErrOrStderr(), "the generated text above was not saved")
			}
			return runErr
		},
	}
	f := cmd.Flags()
	f.Int64Var(&o.postID, "post", 0, "Post id")
	f.Int64Var(&o.sectionID, "section", 0, "Section id for section-scoped steps")
	f.Int64Var(&o.stepID, "step-id", 0, "Step id")
	f.StringVar(&o.stage, "stage", "", "Stage name")
	f.StringVar(&o.subStage, "sub-stage", "", "Substage name")
	f.StringVar(&o.step, "step", "", "Step name")
	f.StringVar(&o.provider, "provider", "", "LLM provider override")
	f.StringVar(&o.model, "model", "", "Model override")
	f.Float64Var(&o.temperature, "temperature", 0, "Temperature override")
	f.IntVar(&o.maxTokens, "max-tokens", 0, "Max tokens override")
	return cmd
}
