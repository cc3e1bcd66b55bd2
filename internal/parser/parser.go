// Package parser coordinates the ingest pipeline: fetch raw listings
// per group, reduce each to a canonical build record, enforce the price
// floor, and aggregate results in deterministic order.
package parser

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/va-pc/buildscout/internal/extract"
	"github.com/va-pc/buildscout/internal/model"
	"github.com/va-pc/buildscout/pkg/vk"
)

// ColorClassifier is the visual fallback for case-color resolution.
// *vision.Classifier satisfies it.
type ColorClassifier interface {
	Classify(ctx context.Context, imageURL string) model.CaseColor
	Disabled() bool
}

// ourBuildMarker flags listings from our own group as first-party.
const ourBuildMarker = "VA-PC"

// defaultFetchLimit caps listings pulled per group in one invocation.
const defaultFetchLimit = 1000

// Option configures the parser.
type Option func(*Parser)

// WithMinPrice sets the price floor in major units. Listings strictly
// below it are dropped before any extraction work.
func WithMinPrice(floor float64) Option {
	return func(p *Parser) {
		p.minPrice = floor
	}
}

// WithFetchLimit caps listings fetched per group.
func WithFetchLimit(limit int) Option {
	return func(p *Parser) {
		p.limit = limit
	}
}

// WithConcurrency bounds parallel per-item conversion within a group.
// The default of 1 keeps processing strictly sequential; output order
// is preserved either way.
func WithConcurrency(workers int) Option {
	return func(p *Parser) {
		if workers > 0 {
			p.workers = workers
		}
	}
}

// WithClock overrides the parsed_at timestamp source (for testing).
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// Parser is the pipeline orchestrator. It holds no per-run state; one
// instance serves any number of ParseGroups invocations.
type Parser struct {
	client     vk.Client
	classifier ColorClassifier
	minPrice   float64
	limit      int
	workers    int
	now        func() time.Time
}

// New creates a Parser. classifier may be nil when visual color
// resolution is disabled.
func New(client vk.Client, classifier ColorClassifier, opts ...Option) *Parser {
	p := &Parser{
		client:     client,
		classifier: classifier,
		minPrice:   40000,
		limit:      defaultFetchLimit,
		workers:    1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseGroups fetches and converts listings for each group in the given
// order. Records preserve fetch order within a group and group order
// across groups. A failed group fetch surfaces the error together with
// records collected from earlier groups; per-item failures are logged
// and skipped.
func (p *Parser) ParseGroups(ctx context.Context, groupIDs []int64, source model.Source) ([]model.Build, error) {
	if !source.Valid() {
		return nil, eris.Errorf("parser: unknown source %q", source)
	}

	var all []model.Build
	for _, groupID := range groupIDs {
		zap.L().Info("parser: parsing group",
			zap.Int64("group_id", groupID),
			zap.String("source", string(source)),
		)

		company := p.client.GroupName(ctx, groupID)

		var (
			items []vk.MarketItem
			err   error
		)
		if source == model.SourceMarket {
			items, err = p.client.MarketItems(ctx, groupID, p.limit)
		} else {
			items, err = p.client.WallItems(ctx, groupID, p.limit)
		}
		if err != nil {
			return all, eris.Wrapf(err, "parser: fetch group %d", groupID)
		}

		builds := p.convertItems(ctx, items, groupID, company)
		zap.L().Info("parser: group complete",
			zap.Int64("group_id", groupID),
			zap.Int("fetched", len(items)),
			zap.Int("kept", len(builds)),
		)
		all = append(all, builds...)
	}

	return all, nil
}

// convertItems reduces raw listings to build records, preserving input
// order. Conversion runs sequentially unless WithConcurrency raised the
// worker bound.
func (p *Parser) convertItems(ctx context.Context, items []vk.MarketItem, groupID int64, company string) []model.Build {
	results := make([]*model.Build, len(items))

	if p.workers <= 1 {
		for i, item := range items {
			results[i] = p.convertOne(ctx, item, groupID, company)
		}
	} else {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for i, item := range items {
			g.Go(func() error {
				results[i] = p.convertOne(gCtx, item, groupID, company)
				return nil
			})
		}
		_ = g.Wait()
	}

	builds := make([]model.Build, 0, len(items))
	for _, b := range results {
		if b != nil {
			builds = append(builds, *b)
		}
	}
	return builds
}

// convertOne runs the per-item pipeline. It returns nil both for
// listings dropped by the price floor and for malformed listings; the
// latter are logged so a bad item never aborts the batch.
func (p *Parser) convertOne(ctx context.Context, item vk.MarketItem, groupID int64, company string) *model.Build {
	build, err := p.buildFromItem(ctx, item, groupID, company)
	if err != nil {
		zap.L().Warn("parser: skipping malformed listing",
			zap.Int64("group_id", groupID),
			zap.Int64("item_id", item.ID),
			zap.Error(err),
		)
		return nil
	}
	return build
}

func (p *Parser) buildFromItem(ctx context.Context, item vk.MarketItem, groupID int64, company string) (*model.Build, error) {
	price := float64(item.Price.Amount) / 100

	// Price floor first: no extraction cost for listings we discard.
	if price < p.minPrice {
		return nil, nil
	}

	if item.ID == 0 {
		return nil, eris.New("parser: listing has no id")
	}

	text := item.Title + "\n" + item.Description
	photoURL := item.PhotoURL()

	color := extract.CaseColor(item.Description)
	if color == model.ColorNone && photoURL != "" && p.classifier != nil && !p.classifier.Disabled() {
		color = p.classifier.Classify(ctx, photoURL)
	}

	return &model.Build{
		ID:          model.BuildID(groupID, item.ID),
		Company:     company,
		Title:       item.Title,
		Description: item.Description,
		Price:       price,
		CPU:         extract.CPU(text),
		GPU:         extract.GPU(text),
		RAM:         extract.RAM(text),
		CaseColor:   color,
		PhotoURL:    photoURL,
		VKURL:       model.ListingURL(groupID, item.ID),
		ParsedAt:    p.now(),
		IsOurBuild:  strings.Contains(strings.ToUpper(company), ourBuildMarker),
	}, nil
}
