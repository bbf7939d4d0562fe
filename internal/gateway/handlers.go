package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tabula-labs/tabula/internal/dataset"
	"github.com/tabula-labs/tabula/internal/errors"
	"github.com/tabula-labs/tabula/internal/llm"
	"github.com/tabula-labs/tabula/internal/session"
	"github.com/tabula-labs/tabula/pkg/api"
	"github.com/tabula-labs/tabula/pkg/models"
)

// historyLimit is the number of stored interactions returned by the
// history endpoint.
const historyLimit = 10

// maxStatusSessions bounds the session scan behind the status endpoint.
const maxStatusSessions = 1000

// handleUpload accepts a multipart CSV upload, parses and loads it into a
// fresh engine, and attaches it to the session.
func (g *Gateway) handleUpload(w http.ResponseWriter, r *http.Request) {
	s := g.sessionFor(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, g.config.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		g.writeError(w, http.StatusBadRequest,
			errors.NewInvalidDataset("", "missing form file 'file'", err))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		g.writeError(w, http.StatusBadRequest,
			errors.NewInvalidDataset(header.Filename, "only .csv files are accepted", nil))
		return
	}

	ds, err := dataset.Parse(header.Filename, file)
	if err != nil {
		g.writeError(w, statusForError(err), err)
		return
	}

	eng, engineName, err := g.loadDataset(r.Context(), ds)
	if err != nil {
		g.writeError(w, statusForError(err), err)
		return
	}
	s.SetDataset(ds, eng, engineName)

	resp := models.UploadResponse{
		Dataset:  ds.Name,
		Filename: ds.Filename,
		Columns:  columnInfos(ds),
		RowCount: ds.RowCount(),
		Engine:   engineName,
	}
	if g.config.SuggestOnUpload {
		resp.Suggested = g.suggest(r, s)
	}
	g.writeJSON(w, http.StatusOK, resp)
}

// handleAsk runs the ask pipeline for the session's dataset.
func (g *Gateway) handleAsk(w http.ResponseWriter, r *http.Request) {
	s := g.sessionFor(w, r)

	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, fmt.Errorf("request body is not valid JSON: %w", err))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		g.writeError(w, http.StatusBadRequest, fmt.Errorf("question must not be empty"))
		return
	}

	resp, err := g.ask(r.Context(), s, req.Question)
	if err != nil {
		g.writeError(w, statusForError(err), err)
		return
	}
	w.Header().Set(api.HeaderQueryID, resp.QueryID)
	g.writeJSON(w, http.StatusOK, resp)
}

// handleSuggest returns starter questions for the loaded dataset.
func (g *Gateway) handleSuggest(w http.ResponseWriter, r *http.Request) {
	s := g.sessionFor(w, r)
	g.writeJSON(w, http.StatusOK, models.SuggestResponse{Questions: g.suggest(r, s)})
}

// suggest asks the generator for starter questions, degrading to the
// static fallback list when no dataset is loaded.
func (g *Gateway) suggest(r *http.Request, s *session.Session) []string {
	ds := s.Dataset()
	if ds == nil {
		return llm.FallbackSuggestions()
	}
	questions, err := g.generator.SuggestQuestions(r.Context(), ds.SchemaSummary())
	if err != nil || len(questions) == 0 {
		return llm.FallbackSuggestions()
	}
	return questions
}

// handleHistory returns the recent questions plus stored interaction
// records for the session. Both come from the repository, so history
// survives gateway restarts when a persistent store is configured.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	s := g.sessionFor(w, r)

	records, err := g.repo.Recent(r.Context(), s.ID, historyLimit)
	if err != nil {
		g.writeError(w, http.StatusInternalServerError, err)
		return
	}
	questions, err := g.repo.RecentQuestions(r.Context(), s.ID, historyLimit)
	if err != nil {
		g.writeError(w, http.StatusInternalServerError, err)
		return
	}

	entries := make([]models.HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, models.HistoryEntry{
			ID:        rec.ID,
			Question:  rec.Question,
			SQL:       rec.SQL,
			Pandas:    rec.Pandas,
			Generator: rec.Generator,
			Engine:    rec.Engine,
			Outcome:   rec.Outcome,
			Error:     rec.Error,
			RowCount:  rec.RowCount,
			ChartType: rec.ChartType,
			CreatedAt: rec.CreatedAt,
		})
	}
	g.writeJSON(w, http.StatusOK, models.HistoryResponse{
		Questions: questions,
		Entries:   entries,
	})
}

// handleExport streams the CSV of the last successful result.
func (g *Gateway) handleExport(w http.ResponseWriter, r *http.Request) {
	s := g.sessionFor(w, r)

	csv := s.Export()
	if len(csv) == 0 {
		g.writeError(w, http.StatusNotFound, errors.NewNothingToExport())
		return
	}
	w.Header().Set(api.HeaderContentType, api.ContentTypeCSV)
	w.Header().Set("Content-Disposition", `attachment; filename="query_result.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(csv)
}

// handleStatus reports operational status: repository connectivity,
// available engines, and whether a generator is configured.
func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := models.StatusResponse{
		Ready:            true,
		RepositoryHealth: "ok",
		EnginesAvailable: len(g.router.AvailableEngines()),
		ModelConfigured:  g.generator.Name() != "baseline",
		Version:          g.config.Version,
	}
	if err := g.repo.CheckConnectivity(r.Context()); err != nil {
		resp.Ready = false
		resp.Reason = "history repository unreachable: " + err.Error()
		resp.RepositoryHealth = "unreachable"
	}
	if sessions, err := g.repo.ListSessions(r.Context(), maxStatusSessions); err == nil {
		resp.SessionsRecorded = len(sessions)
	}
	if resp.EnginesAvailable == 0 {
		resp.Ready = false
		resp.Reason = "no execution engine available"
	}
	g.writeJSON(w, http.StatusOK, resp)
}

// handleAuditSummary returns aggregated audit counts from the configured
// query logger. Only counts leave the gateway; raw questions stay in the
// logs.
func (g *Gateway) handleAuditSummary(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, g.logger.GetAuditSummary())
}

func columnInfos(ds *dataset.Dataset) []models.ColumnInfo {
	out := make([]models.ColumnInfo, len(ds.Columns))
	for i, c := range ds.Columns {
		out[i] = models.ColumnInfo{Name: c.Name, Type: string(c.Type)}
	}
	return out
}
