package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tabula-labs/tabula/internal/chart"
	"github.com/tabula-labs/tabula/internal/dataset"
	"github.com/tabula-labs/tabula/internal/engine"
	"github.com/tabula-labs/tabula/internal/errors"
	"github.com/tabula-labs/tabula/internal/observability"
	"github.com/tabula-labs/tabula/internal/session"
	"github.com/tabula-labs/tabula/internal/storage"
	"github.com/tabula-labs/tabula/pkg/models"
)

// outcome values stored in history and logs.
const (
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeRejected = "rejected"
)

// ask runs the full pipeline for one question: schema summary → generate
// → validate → execute → chart. Exactly one history record and one log
// entry are emitted whether the pipeline succeeds or fails.
func (g *Gateway) ask(ctx context.Context, s *session.Session, question string) (*models.AskResponse, error) {
	queryID := uuid.NewString()
	started := time.Now()

	rec := &storage.QueryRecord{
		ID:        queryID,
		SessionID: s.ID,
		Question:  question,
		Generator: g.generator.Name(),
	}

	resp, err := g.runAsk(ctx, s, question, rec)

	rec.Duration = time.Since(started)
	if err != nil {
		rec.Error = err.Error()
		if rec.Outcome == "" {
			rec.Outcome = outcomeError
		}
	} else {
		rec.Outcome = outcomeSuccess
	}
	g.record(ctx, rec)

	if err != nil {
		return nil, err
	}
	resp.QueryID = queryID
	resp.Duration = rec.Duration.String()
	return resp, nil
}

// runAsk is the fallible part of the pipeline. It fills rec as it goes
// so failures still leave a useful record.
func (g *Gateway) runAsk(ctx context.Context, s *session.Session, question string, rec *storage.QueryRecord) (*models.AskResponse, error) {
	ds := s.Dataset()
	if ds == nil {
		rec.Outcome = outcomeRejected
		return nil, errors.NewNoDataset()
	}
	rec.Dataset = ds.Name

	analysis, err := g.generator.GenerateAnalysis(ctx, ds.SchemaSummary(), ds.Name, question)
	if err != nil {
		if _, ok := err.(*errors.ErrQueryRejected); ok {
			rec.Outcome = outcomeRejected
		}
		return nil, err
	}
	rec.SQL = analysis.SQL
	rec.Pandas = analysis.Pandas

	checked, err := g.validator.Validate(analysis.SQL, ds.Name)
	if err != nil {
		rec.Outcome = outcomeRejected
		return nil, err
	}
	rec.SQL = checked.SQL

	eng, engineName := s.Engine()
	if eng == nil {
		return nil, errors.NewEngineUnavailable("session has no loaded engine")
	}
	rec.Engine = engineName

	result, err := eng.Execute(ctx, checked.SQL)
	if err != nil {
		return nil, err
	}
	rec.RowCount = result.RowCount

	resp := &models.AskResponse{
		Question:  question,
		SQL:       checked.SQL,
		Pandas:    analysis.Pandas,
		Generator: g.generator.Name(),
		Engine:    engineName,
		Columns:   result.Columns,
		Rows:      result.Rows,
		RowCount:  result.RowCount,
	}

	// Charting is best-effort: an unchartable result is not a failure.
	if chart.WantsChart(question) {
		if spec, err := chart.Build(question, result); err == nil {
			rec.ChartType = string(spec.Type)
			resp.Chart = &models.ChartSpec{
				Type:   string(spec.Type),
				Title:  spec.Title,
				Label:  spec.Label,
				Value:  spec.Value,
				Labels: spec.Labels,
				Values: spec.Values,
			}
		}
	}

	s.SetExport(result.CSV())
	return resp, nil
}

// record persists the history record and emits the structured log entry.
// Persistence failures must not mask the pipeline result, but they are
// never silent either.
func (g *Gateway) record(ctx context.Context, rec *storage.QueryRecord) {
	if err := g.repo.Save(ctx, rec); err != nil {
		g.logger.LogQuery(ctx, observability.QueryLogEntry{
			QueryID:  rec.ID,
			Session:  rec.SessionID,
			Question: rec.Question,
			Outcome:  outcomeError,
			Error:    "history save failed: " + err.Error(),
		})
	}

	g.logger.LogQuery(ctx, observability.QueryLogEntry{
		QueryID:       rec.ID,
		Session:       rec.SessionID,
		Question:      rec.Question,
		Dataset:       rec.Dataset,
		Generator:     rec.Generator,
		Engine:        rec.Engine,
		ExecutionTime: rec.Duration,
		Outcome:       rec.Outcome,
		Error:         rec.Error,
		ChartType:     rec.ChartType,
	})
}

// loadDataset opens a fresh engine for the dataset via the router and
// registry, loading the table before the session adopts it.
func (g *Gateway) loadDataset(ctx context.Context, ds *dataset.Dataset) (engine.Engine, string, error) {
	name, err := g.router.Select(ctx)
	if err != nil {
		return nil, "", err
	}

	eng, err := g.registry.Open(name)
	if err != nil {
		// The selected engine failed to open (e.g. driver missing on
		// this platform). Mark it unavailable and try the next one.
		g.router.SetAvailability(name, false)
		fallback, ferr := g.router.Select(ctx)
		if ferr != nil {
			return nil, "", errors.NewEngineUnavailable("no engine could be opened: " + err.Error())
		}
		name = fallback
		eng, err = g.registry.Open(name)
		if err != nil {
			return nil, "", errors.NewEngineUnavailable("no engine could be opened: " + err.Error())
		}
	}

	if err := eng.Load(ctx, ds); err != nil {
		eng.Close()
		return nil, "", err
	}
	return eng, name, nil
}
