package legal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/lawdesk/lawdesk-client/internal/testutil"
	"github.com/lawdesk/lawdesk-client/pkg/client"
	"github.com/lawdesk/lawdesk-client/pkg/envelope"
	"github.com/lawdesk/lawdesk-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServices(t *testing.T) (*Services, *testutil.MockBackend) {
	t.Helper()
	mock := testutil.NewMockBackend()
	t.Cleanup(mock.Close)

	logger := zerolog.Nop()
	cfg := client.DefaultConfig(mock.URL() + "/api")
	cfg.Logger = &logger
	api, err := client.New(cfg)
	require.NoError(t, err)

	return New(api), mock
}

func TestCases_List(t *testing.T) {
	svc, mock := newTestServices(t)
	mock.SetResponse("/api/cases/list", testutil.NewPageResponse(
		`[{"id":1,"number":"120","year":2026,"status":"Open","clientId":7,"createdAt":"2026-01-02T00:00:00Z","isDeleted":false}]`,
		1, 20, 1))

	page, err := svc.Cases.List(context.Background(), CaseSearch{Q: "land", Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "120", page.Items[0].Number)
	assert.Equal(t, int64(7), page.Items[0].ClientID)
	assert.Equal(t, 1, page.TotalPages)

	last, _ := mock.LastRequest()
	assert.Equal(t, http.MethodPost, last.Method)
	assert.JSONEq(t, `{"q":"land","page":1,"pageSize":20}`, string(last.Body))
}

func TestCases_ListCached(t *testing.T) {
	svc, mock := newTestServices(t)
	mock.SetResponse("/api/cases/list", testutil.NewPageResponse(`[]`, 1, 20, 0))

	ctx := context.Background()
	_, err := svc.Cases.List(ctx, CaseSearch{Page: 1})
	require.NoError(t, err)
	_, err = svc.Cases.List(ctx, CaseSearch{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, mock.PathCount("/api/cases/list"))

	_, err = svc.Cases.List(ctx, CaseSearch{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.PathCount("/api/cases/list"), "different search is a different key")
}

func TestClients_Get(t *testing.T) {
	svc, mock := newTestServices(t)
	mock.SetResponse("/api/clients/get", testutil.NewEnvelopeResponse(`{"id":5,"fullName":"Lina Kassem","isActive":true}`))

	got, err := svc.Clients.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Lina Kassem", got.FullName)
	assert.True(t, got.IsActive)

	last, _ := mock.LastRequest()
	assert.JSONEq(t, `{"id":5}`, string(last.Body))

	_, err = svc.Clients.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.PathCount("/api/clients/get"))
}

func TestGet_UnsuccessfulEnvelope(t *testing.T) {
	svc, mock := newTestServices(t)
	mock.SetResponse("/api/courts/get", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"success":false,"message":"Court not found","code":"NOT_FOUND","data":null}`,
	})

	_, err := svc.Courts.Get(context.Background(), 99)
	var envErr *envelope.Error
	require.True(t, errors.As(err, &envErr))
	assert.Equal(t, "Court not found", envErr.Message)
	assert.Equal(t, "NOT_FOUND", envErr.Code)
}

func TestGet_NotFoundIsNotRetried(t *testing.T) {
	svc, mock := newTestServices(t)
	mock.SetResponse("/api/sessions/get", testutil.NewErrorResponse(http.StatusNotFound, "Session not found"))

	_, err := svc.Sessions.Get(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, client.StatusCode(err))
	assert.Equal(t, 1, mock.PathCount("/api/sessions/get"))
}

func TestCreate_InvalidatesResourceCache(t *testing.T) {
	svc, mock := newTestServices(t)
	mock.SetResponse("/api/cases/list", testutil.NewPageResponse(`[]`, 1, 20, 0))
	mock.SetResponse("/api/courts/list", testutil.NewPageResponse(`[]`, 1, 20, 0))
	mock.SetResponse("/api/cases/create", testutil.NewEnvelopeResponse(`{"id":11,"number":"77","year":2026,"status":"Open","clientId":1}`))

	ctx := context.Background()
	_, err := svc.Cases.List(ctx, CaseSearch{})
	require.NoError(t, err)
	_, err = svc.Courts.List(ctx, CourtSearch{})
	require.NoError(t, err)

	created, err := svc.Cases.Create(ctx, CreateCase{Number: "77", Year: 2026, ClientID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)

	_, err = svc.Cases.List(ctx, CaseSearch{})
	require.NoError(t, err)
	_, err = svc.Courts.List(ctx, CourtSearch{})
	require.NoError(t, err)

	assert.Equal(t, 2, mock.PathCount("/api/cases/list"), "case list refetched after create")
	assert.Equal(t, 1, mock.PathCount("/api/courts/list"), "other resources stay cached")
}

func TestUpdate_UsesPut(t *testing.T) {
	svc, mock := newTestServices(t)
	mock.SetResponse("/api/courts/update", testutil.NewEnvelopeResponse(`{"id":4,"nameAr":"محكمة","nameEn":"North Court","isActive":true}`))

	court, err := svc.Courts.Update(context.Background(), UpdateCourt{ID: 4, CreateCourt: CreateCourt{NameAr: "محكمة", NameEn: "North Court", IsActive: true}})
	require.NoError(t, err)
	assert.Equal(t, "North Court", court.Name())

	last, _ := mock.LastRequest()
	assert.Equal(t, http.MethodPut, last.Method)

	var body map[string]any
	require.NoError(t, json.Unmarshal(last.Body, &body))
	assert.Equal(t, float64(4), body["id"])
	assert.Equal(t, "North Court", body["nameEn"])
}

func TestDelete_SendsIDBody(t *testing.T) {
	svc, mock := newTestServices(t)
	mock.SetResponse("/api/clients/list", testutil.NewPageResponse(`[]`, 1, 20, 0))

	ctx := context.Background()
	_, err := svc.Clients.List(ctx, ClientSearch{})
	require.NoError(t, err)

	require.NoError(t, svc.Clients.Delete(ctx, 8))

	last, _ := mock.LastRequest()
	assert.Equal(t, http.MethodDelete, last.Method)
	assert.Equal(t, "/api/clients/delete", last.Path)
	assert.JSONEq(t, `{"id":8}`, string(last.Body))
	assert.Equal(t, "application/json", last.Header.Get("Content-Type"))

	_, err = svc.Clients.List(ctx, ClientSearch{})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.PathCount("/api/clients/list"))
}

func TestDelete_Unsuccessful(t *testing.T) {
	svc, mock := newTestServices(t)
	mock.SetResponse("/api/cases/delete", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"success":false,"message":"Case has active sessions"}`,
	})

	err := svc.Cases.Delete(context.Background(), 1)
	var envErr *envelope.Error
	require.True(t, errors.As(err, &envErr))
	assert.Equal(t, "Case has active sessions", envErr.Message)
}

func TestRestore(t *testing.T) {
	svc, mock := newTestServices(t)

	require.NoError(t, svc.Sessions.Restore(context.Background(), 12))

	last, _ := mock.LastRequest()
	assert.Equal(t, http.MethodPatch, last.Method)
	assert.Equal(t, "/api/sessions/restore", last.Path)
	assert.JSONEq(t, `{"id":12}`, string(last.Body))
}

func TestRestore_CasesUnsupported(t *testing.T) {
	svc, mock := newTestServices(t)

	err := svc.Cases.Restore(context.Background(), 1)
	assert.ErrorIs(t, err, ErrRestoreUnsupported)
	assert.Zero(t, mock.RequestCount())
}

func TestListAll(t *testing.T) {
	svc, mock := newTestServices(t)

	const total = 23
	mock.SetHandler("/api/courts/list", func(w http.ResponseWriter, r *http.Request) {
		var search CourtSearch
		if err := json.NewDecoder(r.Body).Decode(&search); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var items []string
		for i := (search.Page-1)*search.PageSize + 1; i <= search.Page*search.PageSize && i <= total; i++ {
			items = append(items, fmt.Sprintf(`{"id":%d,"nameAr":"court-%d","isActive":true}`, i, i))
		}
		body := fmt.Sprintf(`{"success":true,"data":{"items":[%s],"totalCount":%d,"page":%d,"pageSize":%d,"totalPages":%d}}`,
			strings.Join(items, ","), total, search.Page, search.PageSize, (total+search.PageSize-1)/search.PageSize)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})

	svc.Courts.SetBatchConfig(pagination.Config{MaxConcurrency: 2})
	courts, err := svc.Courts.ListAll(context.Background(), CourtSearch{Governorate: "Cairo"}, 5)
	require.NoError(t, err)
	require.Len(t, courts, total)
	for i, c := range courts {
		assert.Equal(t, int64(i+1), c.ID)
	}
	assert.Equal(t, 5, mock.PathCount("/api/courts/list"))

	for _, req := range mock.Requests() {
		var search CourtSearch
		require.NoError(t, json.Unmarshal(req.Body, &search))
		assert.Equal(t, "Cairo", search.Governorate)
		assert.Equal(t, 5, search.PageSize)
	}
}
