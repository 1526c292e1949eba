// Package collector enumerates statement files at a batch location, fetches
// them concurrently and aggregates the per-file outcomes into a processing
// summary.
package collector

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"swisscluster/camt-import/internal/archive"
	"swisscluster/camt-import/internal/camt"
	"swisscluster/camt-import/internal/importerror"
	"swisscluster/camt-import/internal/logging"
	"swisscluster/camt-import/internal/models"
	"swisscluster/camt-import/internal/source"
)

const (
	defaultWorkers     = 4
	defaultFileTimeout = 30 * time.Second
)

// Collector runs batch collection over a source.
type Collector struct {
	parser      *camt.Parser
	expander    *archive.Expander
	logger      logging.Logger
	workers     int
	fileTimeout time.Duration
}

// Option configures a Collector.
type Option func(*Collector)

// WithWorkers sets the number of concurrent fetch+parse workers.
func WithWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithFileTimeout sets the soft per-file timeout after which a file is
// skipped with reason Timeout. Zero disables the timeout.
func WithFileTimeout(d time.Duration) Option {
	return func(c *Collector) {
		c.fileTimeout = d
	}
}

// New creates a Collector.
func New(parser *camt.Parser, expander *archive.Expander, logger logging.Logger, opts ...Option) *Collector {
	c := &Collector{
		parser:      parser,
		expander:    expander,
		logger:      logger,
		workers:     defaultWorkers,
		fileTimeout: defaultFileTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect resolves the location to a source and collects from it.
func (c *Collector) Collect(ctx context.Context, location string) ([]models.StatementFile, models.ProcessingSummary, error) {
	return c.CollectFrom(ctx, source.Resolve(location, c.logger), location)
}

// outcome is the result of processing one candidate. A plain XML file
// yields one entry; a ZIP archive yields one entry per member.
type outcome struct {
	index   int
	entries []outcomeEntry
}

type outcomeEntry struct {
	name string
	file *models.StatementFile
	skip string
}

// CollectFrom lists the source and processes every XML/ZIP candidate
// through a bounded worker pool. Individual fetch or parse failures become
// summary skips; only a failed listing aborts the run. Output order follows
// the listing order regardless of worker scheduling.
func (c *Collector) CollectFrom(ctx context.Context, src source.Source, location string) ([]models.StatementFile, models.ProcessingSummary, error) {
	var summary models.ProcessingSummary

	refs, err := src.List(ctx)
	if err != nil {
		return nil, summary, &importerror.LocationUnreachableError{Location: location, Err: err}
	}

	candidates := make([]source.FileRef, 0, len(refs))
	for _, ref := range refs {
		switch strings.ToLower(path.Ext(ref.Name)) {
		case ".xml", ".zip":
			candidates = append(candidates, ref)
		}
	}

	c.logger.Info("Collecting statement files",
		logging.Field{Key: logging.FieldSource, Value: location},
		logging.Field{Key: logging.FieldCount, Value: len(candidates)})

	outcomes := c.processAll(ctx, src, candidates)

	var files []models.StatementFile
	for _, oc := range outcomes {
		for _, entry := range oc.entries {
			if entry.skip != "" {
				summary.RecordSkip(entry.name, entry.skip)
				continue
			}
			summary.RecordProcessed()
			files = append(files, *entry.file)
		}
	}

	c.logger.Info("Batch collection finished",
		logging.Field{Key: logging.FieldSource, Value: location},
		logging.Field{Key: "processed", Value: summary.ProcessedFiles},
		logging.Field{Key: "skipped", Value: len(summary.SkippedFiles)})

	return files, summary, nil
}

// processAll fans the candidates out over the worker pool and returns the
// outcomes indexed by candidate position, so aggregation stays ordered and
// single-threaded.
func (c *Collector) processAll(ctx context.Context, src source.Source, candidates []source.FileRef) []outcome {
	outcomes := make([]outcome, len(candidates))
	if len(candidates) == 0 {
		return outcomes
	}

	workers := c.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}

	type job struct {
		index int
		ref   source.FileRef
	}
	jobs := make(chan job)
	results := make(chan outcome, len(candidates))

	for i := 0; i < workers; i++ {
		go func() {
			for j := range jobs {
				results <- outcome{
					index:   j.index,
					entries: c.processOne(ctx, src, j.ref),
				}
			}
		}()
	}

	// The feeder hands jobs out in listing order and reports how many it
	// dispatched. On cancellation it stops early; the receive loop then waits
	// only for the dispatched jobs and records the remainder as skips, so the
	// summary still accounts for every candidate.
	dispatched := make(chan int, 1)
	go func() {
		defer close(jobs)
		for i, ref := range candidates {
			select {
			case jobs <- job{index: i, ref: ref}:
			case <-ctx.Done():
				dispatched <- i
				return
			}
		}
		dispatched <- len(candidates)
	}()

	handed := <-dispatched
	for i := 0; i < handed; i++ {
		oc := <-results
		outcomes[oc.index] = oc
	}
	for i := handed; i < len(candidates); i++ {
		outcomes[i] = outcome{index: i, entries: []outcomeEntry{{
			name: candidates[i].Name,
			skip: fetchSkipReason(ctx.Err()),
		}}}
	}
	return outcomes
}

// processOne fetches and parses a single candidate under the soft per-file
// timeout.
func (c *Collector) processOne(ctx context.Context, src source.Source, ref source.FileRef) []outcomeEntry {
	fileCtx := ctx
	if c.fileTimeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeout(ctx, c.fileTimeout)
		defer cancel()
	}

	data, err := src.Fetch(fileCtx, ref)
	if err != nil {
		return []outcomeEntry{{name: ref.Name, skip: fetchSkipReason(err)}}
	}
	// The timeout covers fetch and parse. A fetch that returns data after
	// the deadline still skips the file instead of parsing it.
	if err := fileCtx.Err(); err != nil {
		return []outcomeEntry{{name: ref.Name, skip: fetchSkipReason(err)}}
	}
	if len(data) == 0 {
		return []outcomeEntry{{name: ref.Name, skip: importerror.SkipEmptyFile}}
	}

	if strings.EqualFold(path.Ext(ref.Name), ".zip") {
		return c.processArchive(ref.Name, data)
	}

	file, err := c.parser.Parse(data, ref.Name)
	if err != nil {
		c.logger.WithError(err).Warn("Skipping unparsable file",
			logging.Field{Key: logging.FieldFile, Value: ref.Name})
		return []outcomeEntry{{name: ref.Name, skip: importerror.SkipWithDetail(importerror.SkipParseFailed, err.Error())}}
	}
	return []outcomeEntry{{name: ref.Name, file: file}}
}

// processArchive flattens the per-member outcomes of a ZIP candidate.
func (c *Collector) processArchive(name string, data []byte) []outcomeEntry {
	members, err := c.expander.Expand(data)
	if err != nil {
		c.logger.WithError(err).Warn("Skipping unreadable archive",
			logging.Field{Key: logging.FieldFile, Value: name})
		return []outcomeEntry{{name: name, skip: importerror.SkipWithDetail(importerror.SkipParseFailed, err.Error())}}
	}

	entries := make([]outcomeEntry, 0, len(members))
	for _, member := range members {
		if member.Skipped() {
			entries = append(entries, outcomeEntry{name: member.Name, skip: member.SkipReason})
			continue
		}
		entries = append(entries, outcomeEntry{name: member.Name, file: member.File})
	}
	return entries
}

// fetchSkipReason maps a fetch error to its summary skip reason.
func fetchSkipReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return importerror.SkipTimeout
	}
	if errors.Is(err, source.ErrNotFound) {
		return importerror.SkipWithDetail(importerror.SkipFetchFailed, "not found")
	}
	return importerror.SkipWithDetail(importerror.SkipFetchFailed, err.Error())
}
