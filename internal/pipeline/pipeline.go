// Package pipeline runs one full export: fetch the top posts, fetch their
// comment forests, flatten everything and write the workbook.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"subsheet/internal/config"
	"subsheet/internal/excel"
	"subsheet/internal/normalize"
	"subsheet/internal/reddit"
)

// Run executes the pipeline once. Posts appear in the output in descending
// score order; comment forests are fetched in parallel but records are
// assembled strictly in post order, so the output is deterministic for a
// given fetch. Any error terminates the run and no output file is written.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	started := time.Now()

	client, err := reddit.New(&reddit.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		UserAgent:    cfg.UserAgent,
		BaseURL:      cfg.BaseURL,
		AuthURL:      cfg.AuthURL,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}

	logger.Info("fetching top posts",
		"subreddit", cfg.Subreddit,
		"start", cfg.Start.Format("2006-01-02"),
		"end", cfg.End.Format("2006-01-02"))

	posts, err := client.TopPosts(ctx, &reddit.TopPostsQuery{
		Subreddit: cfg.Subreddit,
		Start:     cfg.Start,
		End:       cfg.End,
		Limit:     cfg.TopPosts,
	})
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return fmt.Errorf("no posts found for the given subreddit and date range; try widening the date range")
	}

	logger.Info("fetching comment forests", "posts", len(posts))

	type result struct {
		index    int
		comments []*reddit.Comment
		err      error
	}
	resultChan := make(chan result, len(posts))

	for i, post := range posts {
		go func(index int, postID string) {
			comments, err := client.CommentForest(ctx, &reddit.ForestQuery{
				Subreddit: cfg.Subreddit,
				PostID:    postID,
			})
			resultChan <- result{index: index, comments: comments, err: err}
		}(i, post.ID)
	}

	forests := make([][]*reddit.Comment, len(posts))
	var firstError error
	for range posts {
		res := <-resultChan
		if res.err != nil && firstError == nil {
			firstError = res.err
		}
		forests[res.index] = res.comments
	}
	if firstError != nil {
		return firstError
	}

	var records []normalize.Record
	var totalComments, totalOrphans int
	for i, post := range posts {
		totalComments += len(forests[i])
		result, err := normalize.Normalize(cfg.Subreddit, post, forests[i])
		if err != nil {
			return err
		}
		if len(result.Orphaned) > 0 {
			totalOrphans += len(result.Orphaned)
			logger.Warn("skipped comments with unresolvable parents",
				"post_id", post.ID,
				"comment_ids", result.Orphaned)
		}
		records = append(records, result.Records...)
	}

	path := filepath.Join(cfg.OutputDir, excel.Filename(cfg.Subreddit, cfg.Start, cfg.End))
	if err := excel.Write(path, records); err != nil {
		return err
	}

	logger.Info("export written",
		"path", path,
		"posts", len(posts),
		"comments", totalComments,
		"orphans", totalOrphans,
		"records", len(records),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return nil
}
