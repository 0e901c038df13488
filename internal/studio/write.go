package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abdulachik/storyforge/internal/archive"
	"github.com/abdulachik/storyforge/internal/critic"
	"github.com/abdulachik/storyforge/internal/writer"
)

// Stage selects the production drafts Write produces.
type Stage string

const (
	StageTreatment Stage = "treatment"
	StageEpisode   Stage = "episode"
	StageAll       Stage = "all"
)

// ParseStage accepts a stage name; empty means all.
func ParseStage(s string) (Stage, error) {
	switch Stage(strings.ToLower(strings.TrimSpace(s))) {
	case "", StageAll:
		return StageAll, nil
	case StageTreatment:
		return StageTreatment, nil
	case StageEpisode:
		return StageEpisode, nil
	default:
		return "", fmt.Errorf("unknown stage %q (want treatment, episode or all)", s)
	}
}

// WriteRequest describes one production job.
type WriteRequest struct {
	Project string
	Episode int
	Stage   Stage
}

// WriteResult holds the drafts that were saved. A stage that did not run
// leaves its draft nil.
type WriteResult struct {
	Project   *archive.Project
	Treatment *writer.Draft
	Episode   *writer.Draft
}

// Write drafts the treatment and/or manuscript of an episode of a saved
// project. The episode stage on its own works from the saved treatment.
func (a *App) Write(ctx context.Context, req WriteRequest) (*WriteResult, error) {
	if a.Writer == nil {
		return nil, errors.New("writer is not configured")
	}
	stage := req.Stage
	if stage == "" {
		stage = StageAll
	}
	episode := req.Episode
	if episode == 0 {
		episode = 1
	}

	project, err := a.Archive.Load(req.Project)
	if err != nil {
		return nil, err
	}
	res := &WriteResult{Project: project}

	var treatment string
	if stage == StageTreatment || stage == StageAll {
		if res.Treatment, err = a.Writer.Treatment(ctx, project, episode); err != nil {
			return res, err
		}
		treatment = res.Treatment.Text
	}
	if stage == StageEpisode || stage == StageAll {
		if res.Episode, err = a.Writer.Episode(ctx, project, episode, treatment); err != nil {
			return res, err
		}
	}
	return res, nil
}

// RubricResult is a built rubric and where it was saved. Path is empty on
// a dry run.
type RubricResult struct {
	*critic.BuiltRubric
	Path string
}

// BuildRubric builds the evaluation rubric from the knowledge library and,
// unless dryRun is set, saves it at RUBRIC_PATH for the planner and critic.
func (a *App) BuildRubric(ctx context.Context, dryRun bool) (*RubricResult, error) {
	if a.Rubrics == nil {
		return nil, errors.New("rubric maker is not configured")
	}

	built, err := a.Rubrics.Build(ctx)
	if err != nil {
		return nil, err
	}
	res := &RubricResult{BuiltRubric: built}
	if dryRun {
		return res, nil
	}

	if a.Config.RubricPath == "" {
		return res, errors.New("RUBRIC_PATH is not set")
	}
	if err := critic.SaveRubric(a.Config.RubricPath, built.JSON); err != nil {
		return res, err
	}
	res.Path = a.Config.RubricPath
	return res, nil
}
