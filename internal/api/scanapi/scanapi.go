package scanapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/BearBump/ScanDesk/internal/capture"
	"github.com/BearBump/ScanDesk/internal/dispatcher"
	"github.com/BearBump/ScanDesk/internal/history"
	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup"
	"github.com/BearBump/ScanDesk/internal/models"
	"github.com/BearBump/ScanDesk/internal/toast"
	"github.com/go-chi/chi/v5"
)

type KeyHandler interface {
	Handle(ev capture.KeyEvent)
}

type Submitter interface {
	Submit(ctx context.Context, token string)
	Stats() dispatcher.Stats
}

type ToastView interface {
	Snapshot() []toast.Entry
	Remove(id uint64)
}

type HistoryView interface {
	Records() []models.HistoryRecord
	Stats() history.Stats
}

type TrainingStats interface {
	Get(ctx context.Context) (orderlookup.TrainingStats, error)
}

// ScanAPI — локальная HTTP-поверхность станции: оболочка приложения шлёт сюда
// сырые нажатия и ручные сканы, а страницы читают тосты/историю/статистику.
type ScanAPI struct {
	keys     KeyHandler
	scans    Submitter
	toasts   ToastView
	history  HistoryView
	training TrainingStats
}

func New(keys KeyHandler, scans Submitter, toasts ToastView, hist HistoryView, training TrainingStats) *ScanAPI {
	return &ScanAPI{keys: keys, scans: scans, toasts: toasts, history: hist, training: training}
}

func (a *ScanAPI) Routes(r chi.Router) {
	r.Post("/keys", a.postKey)
	r.Post("/scans", a.postScan)
	r.Get("/toasts", a.getToasts)
	r.Delete("/toasts/{id}", a.deleteToast)
	r.Get("/history", a.getHistory)
	r.Get("/history/stats", a.getHistoryStats)
	r.Get("/training/stats", a.getTrainingStats)
	r.Get("/stats", a.getStats)
}

func (a *ScanAPI) postKey(w http.ResponseWriter, r *http.Request) {
	var ev capture.KeyEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid key event")
		return
	}
	a.keys.Handle(ev)
	w.WriteHeader(http.StatusAccepted)
}

type scanRequest struct {
	TrackingNumber string `json:"trackingNumber"`
}

func (a *ScanAPI) postScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan request")
		return
	}
	if req.TrackingNumber == "" {
		writeError(w, http.StatusBadRequest, "trackingNumber is required")
		return
	}
	// Ручной ввод и страница сканера заходят сюда, минуя capture/tokenizer.
	a.scans.Submit(r.Context(), req.TrackingNumber)
	w.WriteHeader(http.StatusAccepted)
}

func (a *ScanAPI) getToasts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.toasts.Snapshot())
}

func (a *ScanAPI) deleteToast(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid toast id")
		return
	}
	a.toasts.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *ScanAPI) getHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.history.Records())
}

func (a *ScanAPI) getHistoryStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.history.Stats())
}

func (a *ScanAPI) getTrainingStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.training.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "training stats unavailable")
		return
	}
	writeJSON(w, st)
}

func (a *ScanAPI) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.scans.Stats())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
