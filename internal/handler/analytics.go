package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/collab-sync/internal/analytics"
	"github.com/angeloszaimis/collab-sync/internal/auth"
	"github.com/angeloszaimis/collab-sync/internal/docstore"
)

// Analytics serves the aggregated edit metrics of a document to
// authenticated callers.
type Analytics struct {
	aggregator *analytics.Aggregator
	store      docstore.Store
	verifier   *auth.Verifier
	logger     *slog.Logger
	now        func() time.Time
}

func NewAnalytics(agg *analytics.Aggregator, store docstore.Store, verifier *auth.Verifier, logger *slog.Logger) *Analytics {
	return &Analytics{
		aggregator: agg,
		store:      store,
		verifier:   verifier,
		logger:     logger.With(slog.String("component", "analytics_api")),
		now:        time.Now,
	}
}

// VisualizationResponse is the body of the visualization endpoint.
type VisualizationResponse struct {
	DocumentID      string            `json:"documentId"`
	DocumentTitle   string            `json:"documentTitle"`
	DataPoints      []analytics.Point `json:"dataPoints"`
	TotalParagraphs int               `json:"totalParagraphs"`
	GeneratedAt     time.Time         `json:"generatedAt"`
}

// Authenticate rejects requests without a valid bearer token.
func (a *Analytics) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.verifier.FromRequest(r)
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			writeError(w, a.logger, http.StatusUnauthorized, "Authentication required")
			return
		case err != nil:
			a.logger.Debug("Rejected bearer token", slog.Any("err", err))
			writeError(w, a.logger, http.StatusUnauthorized, "Invalid token")
			return
		}

		a.logger.Debug("Authenticated request",
			slog.String("user_id", identity.UserID),
			slog.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

// Visualization returns one data point per edited paragraph of the document.
func (a *Analytics) Visualization(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["documentId"]

	title, err := a.store.Title(r.Context(), documentID)
	if errors.Is(err, docstore.ErrNotFound) {
		writeError(w, a.logger, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		a.logger.Error("Failed to look up document",
			slog.String("document_id", documentID),
			slog.Any("err", err))
		writeError(w, a.logger, http.StatusInternalServerError, "Failed to fetch visualization data")
		return
	}

	points := a.aggregator.VisualizationSnapshot(documentID)
	writeJSON(w, a.logger, http.StatusOK, VisualizationResponse{
		DocumentID:      documentID,
		DocumentTitle:   title,
		DataPoints:      points,
		TotalParagraphs: len(points),
		GeneratedAt:     a.now().UTC(),
	})
}

// Summary returns document-wide totals.
func (a *Analytics) Summary(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["documentId"]

	summary, ok := a.aggregator.DocumentSummary(documentID)
	if !ok {
		writeError(w, a.logger, http.StatusNotFound, "No analytics data")
		return
	}

	writeJSON(w, a.logger, http.StatusOK, summary)
}
