package scanapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BearBump/ScanDesk/internal/capture"
	"github.com/BearBump/ScanDesk/internal/dispatcher"
	"github.com/BearBump/ScanDesk/internal/history"
	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup"
	"github.com/BearBump/ScanDesk/internal/models"
	"github.com/BearBump/ScanDesk/internal/toast"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type fakeKeys struct {
	events []capture.KeyEvent
}

func (k *fakeKeys) Handle(ev capture.KeyEvent) { k.events = append(k.events, ev) }

type fakeSubmitter struct {
	tokens []string
}

func (s *fakeSubmitter) Submit(ctx context.Context, token string) { s.tokens = append(s.tokens, token) }
func (s *fakeSubmitter) Stats() dispatcher.Stats {
	return dispatcher.Stats{TotalSubmitted: int64(len(s.tokens))}
}

type fakeToasts struct {
	entries []toast.Entry
	removed []uint64
}

func (t *fakeToasts) Snapshot() []toast.Entry { return t.entries }
func (t *fakeToasts) Remove(id uint64)        { t.removed = append(t.removed, id) }

type fakeHistory struct {
	records []models.HistoryRecord
}

func (h *fakeHistory) Records() []models.HistoryRecord { return h.records }
func (h *fakeHistory) Stats() history.Stats {
	return history.Stats{TotalToday: len(h.records)}
}

type fakeTraining struct {
	st  orderlookup.TrainingStats
	err error
}

func (t *fakeTraining) Get(ctx context.Context) (orderlookup.TrainingStats, error) {
	return t.st, t.err
}

func newTestServer(a *ScanAPI) *httptest.Server {
	r := chi.NewRouter()
	a.Routes(r)
	return httptest.NewServer(r)
}

func TestScanAPI_PostKey(t *testing.T) {
	keys := &fakeKeys{}
	srv := newTestServer(New(keys, &fakeSubmitter{}, &fakeToasts{}, &fakeHistory{}, &fakeTraining{}))
	defer srv.Close()

	body := bytes.NewBufferString(`{"key":"T","editable":false}`)
	resp, err := http.Post(srv.URL+"/keys", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, keys.events, 1)
	require.Equal(t, "T", keys.events[0].Key)
}

func TestScanAPI_PostScan(t *testing.T) {
	sub := &fakeSubmitter{}
	srv := newTestServer(New(&fakeKeys{}, sub, &fakeToasts{}, &fakeHistory{}, &fakeTraining{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/scans", "application/json",
		bytes.NewBufferString(`{"trackingNumber":"TRK-000123"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, []string{"TRK-000123"}, sub.tokens)
}

func TestScanAPI_PostScan_missingToken(t *testing.T) {
	srv := newTestServer(New(&fakeKeys{}, &fakeSubmitter{}, &fakeToasts{}, &fakeHistory{}, &fakeTraining{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/scans", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScanAPI_GetToastsAndHistory(t *testing.T) {
	toasts := &fakeToasts{entries: []toast.Entry{{ID: 1, Token: "A", State: toast.StateLoading}}}
	hist := &fakeHistory{records: []models.HistoryRecord{{ID: 2, Token: "B", Outcome: models.OutcomeReturned}}}
	srv := newTestServer(New(&fakeKeys{}, &fakeSubmitter{}, toasts, hist, &fakeTraining{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/toasts")
	require.NoError(t, err)
	var es []toast.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&es))
	resp.Body.Close()
	require.Len(t, es, 1)
	require.Equal(t, toast.StateLoading, es[0].State)

	resp, err = http.Get(srv.URL + "/history/stats")
	require.NoError(t, err)
	var st history.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	require.Equal(t, 1, st.TotalToday)
}

func TestScanAPI_DeleteToast(t *testing.T) {
	toasts := &fakeToasts{}
	srv := newTestServer(New(&fakeKeys{}, &fakeSubmitter{}, toasts, &fakeHistory{}, &fakeTraining{}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/toasts/42", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, []uint64{42}, toasts.removed)
}

func TestScanAPI_TrainingStats(t *testing.T) {
	tr := &fakeTraining{st: orderlookup.TrainingStats{Total: 1200, Threshold: 500}}
	srv := newTestServer(New(&fakeKeys{}, &fakeSubmitter{}, &fakeToasts{}, &fakeHistory{}, tr))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/training/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st orderlookup.TrainingStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.Equal(t, 1200, st.Total)
}

func TestScanAPI_TrainingStatsUnavailable(t *testing.T) {
	tr := &fakeTraining{err: errors.New("down")}
	srv := newTestServer(New(&fakeKeys{}, &fakeSubmitter{}, &fakeToasts{}, &fakeHistory{}, tr))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/training/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
