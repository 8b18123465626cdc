package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/variables-admin/internal/adminsvc/models"
)

const testBase = "https://abc.supabase.co"

func newTestStore(t *testing.T) *RestStore {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	s, err := NewRestStore(testBase+"/", "anon-key", WithHTTPClient(client))
	require.NoError(t, err)
	return s
}

func TestNewRestStore_Validation(t *testing.T) {
	_, err := NewRestStore("", "key")
	require.Error(t, err)

	_, err = NewRestStore(testBase, "")
	require.Error(t, err)

	s, err := NewRestStore(testBase, "key", WithTable("settings"))
	require.NoError(t, err)
	require.Equal(t, testBase+"/rest/v1/settings", s.tableURL(nil))
}

func TestFetchLatest_ReturnsNewest(t *testing.T) {
	s := newTestStore(t)

	httpmock.RegisterResponder(http.MethodGet, testBase+"/rest/v1/variables",
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			require.Equal(t, "*", q.Get("select"))
			require.Equal(t, "created_at.desc", q.Get("order"))
			require.Equal(t, "1", q.Get("limit"))
			require.Equal(t, "anon-key", req.Header.Get("apikey"))
			require.Equal(t, "Bearer anon-key", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(200,
				`[{"id":"7","variable_1":"abc","variable_2":"def","created_at":"2024-05-01T10:00:00.123456+00:00","updated_at":null}]`), nil
		})

	rec, err := s.FetchLatest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "7", rec.ID)
	require.Equal(t, "abc", rec.VariableOne)
	require.Equal(t, "def", rec.VariableTwo)
	require.Equal(t, 2024, rec.CreatedAt.Year())
	require.True(t, rec.UpdatedAt.IsZero())
}

func TestFetchLatest_EmptyTable(t *testing.T) {
	s := newTestStore(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/rest/v1/variables",
		httpmock.NewStringResponder(200, `[]`))

	rec, err := s.FetchLatest(context.Background())
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestFetchLatest_NullFields(t *testing.T) {
	s := newTestStore(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/rest/v1/variables",
		httpmock.NewStringResponder(200, `[{"id":"1","variable_1":null,"variable_2":"x"}]`))

	rec, err := s.FetchLatest(context.Background())
	require.NoError(t, err)
	require.Equal(t, "", rec.VariableOne)
	require.Equal(t, "x", rec.VariableTwo)
}

func TestFetchLatest_BackendMessage(t *testing.T) {
	s := newTestStore(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/rest/v1/variables",
		httpmock.NewStringResponder(401, `{"code":"42501","message":"permission denied for table variables"}`))

	_, err := s.FetchLatest(context.Background())
	var be *BackendError
	require.True(t, errors.As(err, &be))
	require.Equal(t, "permission denied for table variables", be.Error())
	require.Equal(t, "FetchLatest", be.Op)
	require.Equal(t, 401, be.StatusCode)
}

func TestFetchLatest_Malformed(t *testing.T) {
	s := newTestStore(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/rest/v1/variables",
		httpmock.NewStringResponder(200, `<html>`))

	_, err := s.FetchLatest(context.Background())
	var be *BackendError
	require.True(t, errors.As(err, &be))
	require.Contains(t, be.Error(), "malformed response")
}

func TestFetchLatest_ConnectivityFailure(t *testing.T) {
	s := newTestStore(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/rest/v1/variables",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := s.FetchLatest(context.Background())
	var be *BackendError
	require.True(t, errors.As(err, &be))
	require.Contains(t, be.Error(), "connection refused")
}

func TestInsert_ReturnsCreatedRow(t *testing.T) {
	s := newTestStore(t)

	httpmock.RegisterResponder(http.MethodPost, testBase+"/rest/v1/variables",
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.JSONEq(t, `[{"variable_1":"bhi/b","variable_2":"ok"}]`, string(body))
			require.Equal(t, "return=representation", req.Header.Get("Prefer"))
			require.Equal(t, "application/vnd.pgrst.object+json", req.Header.Get("Accept"))
			return httpmock.NewStringResponse(201,
				`{"id":"8","variable_1":"bhi/b","variable_2":"ok","created_at":"2024-05-02T10:00:00Z","updated_at":"2024-05-02T10:00:00Z"}`), nil
		})

	rec, err := s.Insert(context.Background(), models.VariablesInput{VariableOne: "bhi/b", VariableTwo: "ok"})
	require.NoError(t, err)
	require.Equal(t, "8", rec.ID)
	require.Equal(t, "bhi/b", rec.VariableOne)
	require.Equal(t, time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC), rec.CreatedAt.UTC())
	require.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestInsert_ConstraintViolation(t *testing.T) {
	s := newTestStore(t)
	httpmock.RegisterResponder(http.MethodPost, testBase+"/rest/v1/variables",
		httpmock.NewStringResponder(409, `{"code":"23505","message":"duplicate key"}`))

	_, err := s.Insert(context.Background(), models.VariablesInput{VariableOne: "a"})
	require.EqualError(t, err, "duplicate key")
}

func TestInsert_StatusWithoutBody(t *testing.T) {
	s := newTestStore(t)
	httpmock.RegisterResponder(http.MethodPost, testBase+"/rest/v1/variables",
		httpmock.NewStringResponder(503, ``))

	_, err := s.Insert(context.Background(), models.VariablesInput{})
	require.EqualError(t, err, "POST request failed with status 503")
}

func TestFetchAll(t *testing.T) {
	s := newTestStore(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/rest/v1/variables",
		func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "created_at.desc", req.URL.Query().Get("order"))
			require.Empty(t, req.URL.Query().Get("limit"))
			return httpmock.NewStringResponse(200,
				`[{"id":"2","variable_1":"new"},{"id":"1","variable_1":"old"}]`), nil
		})

	rows, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "new", rows[0].VariableOne)
	require.Equal(t, "old", rows[1].VariableOne)
}

func TestFetchAll_Empty(t *testing.T) {
	s := newTestStore(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/rest/v1/variables",
		httpmock.NewStringResponder(200, `[]`))

	rows, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}

func TestFetchAll_LargeTable(t *testing.T) {
	s := newTestStore(t)

	const n = 2200
	value := strings.Repeat("x", 500)
	var sb strings.Builder
	sb.WriteString("[")
	for i := n; i > 0; i-- {
		if i != n {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"id":"%d","variable_1":"%s","variable_2":"%s"}`, i, value, value)
	}
	sb.WriteString("]")
	require.Greater(t, sb.Len(), 2<<20)

	httpmock.RegisterResponder(http.MethodGet, testBase+"/rest/v1/variables",
		httpmock.NewStringResponder(200, sb.String()))

	rows, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, n)
	require.Equal(t, fmt.Sprint(n), rows[0].ID)
	require.Equal(t, "1", rows[n-1].ID)
	require.Equal(t, value, rows[n-1].VariableTwo)
}
