package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/va-pc/buildscout/internal/model"
	"github.com/va-pc/buildscout/internal/parser"
	"github.com/va-pc/buildscout/internal/store"
	"github.com/va-pc/buildscout/internal/vision"
	"github.com/va-pc/buildscout/pkg/embed"
	"github.com/va-pc/buildscout/pkg/vk"
)

var (
	parseGroups []int64
	parseSource string
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Fetch and ingest build listings from configured VK groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := newParser()
		if err != nil {
			return err
		}

		groupIDs := parseGroups
		if len(groupIDs) == 0 {
			groupIDs, err = cfg.LoadGroupIDs()
			if err != nil {
				return err
			}
		}
		if len(groupIDs) == 0 {
			return eris.New("no group IDs given or configured")
		}

		source := model.Source(parseSource)
		if !source.Valid() {
			return eris.Errorf("--source must be market or wall (got %q)", parseSource)
		}

		runID := uuid.NewString()
		stored, err := runIngest(ctx, st, p, runID, groupIDs, source)
		if err != nil {
			return eris.Wrapf(err, "run %s", runID)
		}

		zap.L().Info("ingest complete",
			zap.String("run_id", runID),
			zap.Int("stored", stored),
		)
		return nil
	},
}

// newParser assembles the ingest pipeline from config: VK client,
// optional visual classifier, extraction settings.
func newParser() (*parser.Parser, error) {
	if cfg.VK.Token == "" {
		return nil, eris.New("VK token not configured (set BUILDSCOUT_VK_TOKEN)")
	}

	vkOpts := []vk.Option{vk.WithRateLimit(cfg.VK.RateRPS)}
	if len(cfg.VK.Endpoints) > 0 {
		vkOpts = append(vkOpts, vk.WithEndpoints(cfg.VK.Endpoints...))
	}
	if cfg.VK.APIVersion != "" {
		vkOpts = append(vkOpts, vk.WithAPIVersion(cfg.VK.APIVersion))
	}
	client := vk.NewClient(cfg.VK.Token, vkOpts...)

	var classifier parser.ColorClassifier
	if cfg.Vision.Enabled {
		if cfg.Vision.EmbedURL == "" {
			return nil, eris.New("vision enabled but embed_url not configured")
		}
		classifier = vision.New(embed.NewClient(cfg.Vision.EmbedURL))
		zap.L().Info("visual case-color classifier enabled",
			zap.String("embed_url", cfg.Vision.EmbedURL),
		)
	}

	return parser.New(client, classifier,
		parser.WithMinPrice(cfg.Parse.MinPrice),
		parser.WithFetchLimit(cfg.Parse.FetchLimit),
		parser.WithConcurrency(cfg.Parse.Workers),
	), nil
}

// runIngest executes one full ingest run with an audit record: parse
// the groups, upsert whatever was produced, mark the run complete or
// failed. Partial results from a failed fetch are still stored.
func runIngest(ctx context.Context, st store.Store, p *parser.Parser, runID string, groupIDs []int64, source model.Source) (int, error) {
	run := &model.ParseRun{
		ID:        runID,
		GroupIDs:  groupIDs,
		Source:    source,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := st.CreateRun(ctx, run); err != nil {
		return 0, eris.Wrap(err, "create run record")
	}

	builds, parseErr := p.ParseGroups(ctx, groupIDs, source)

	stored := 0
	var storeErr error
	if len(builds) > 0 {
		stored, storeErr = st.UpsertBuilds(ctx, builds)
	}

	err := errors.Join(parseErr, storeErr)
	if err != nil {
		if cerr := st.CompleteRun(ctx, runID, model.RunStatusFailed, stored, err.Error()); cerr != nil {
			zap.L().Error("mark run failed", zap.String("run_id", runID), zap.Error(cerr))
		}
		return stored, err
	}

	if err := st.CompleteRun(ctx, runID, model.RunStatusComplete, stored, ""); err != nil {
		return stored, eris.Wrap(err, "complete run record")
	}
	return stored, nil
}

func init() {
	parseCmd.Flags().Int64SliceVar(&parseGroups, "groups", nil, "group IDs to parse (default from config)")
	parseCmd.Flags().StringVar(&parseSource, "source", "market", "listing source: market or wall")
	rootCmd.AddCommand(parseCmd)
}
