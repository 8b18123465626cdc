package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avvvet/variables-admin/internal/adminsvc/models"
	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// restError is the error body returned by the REST endpoint.
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// RestStore talks to a hosted PostgREST style endpoint (Supabase).
type RestStore struct {
	baseURL    string
	apiKey     string
	table      string
	httpClient *http.Client
}

type Option func(*RestStore)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *RestStore) {
		s.httpClient = httpClient
	}
}

func WithTable(table string) Option {
	return func(s *RestStore) {
		if table = strings.TrimSpace(table); table != "" {
			s.table = table
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *RestStore) {
		s.httpClient = &http.Client{Timeout: d}
	}
}

func NewRestStore(baseURL, apiKey string, opts ...Option) (*RestStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("rest store: base url must not be empty")
	}
	if apiKey == "" {
		return nil, errors.New("rest store: api key must not be empty")
	}
	s := &RestStore{
		baseURL:    baseURL,
		apiKey:     apiKey,
		table:      "variables",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RestStore) tableURL(q url.Values) string {
	u := s.baseURL + "/rest/v1/" + s.table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (s *RestStore) FetchLatest(ctx context.Context) (*models.Variables, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	q.Set("limit", "1")

	var rows []models.Variables
	if err := s.do(ctx, http.MethodGet, s.tableURL(q), nil, nil, &rows); err != nil {
		log.Errorf("error [FetchLatest] %v", err)
		return nil, backendErr("FetchLatest", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *RestStore) Insert(ctx context.Context, in models.VariablesInput) (*models.Variables, error) {
	body, err := json.Marshal([]models.VariablesInput{in})
	if err != nil {
		return nil, backendErr("Insert", fmt.Errorf("marshal request: %w", err))
	}

	headers := map[string]string{
		"Prefer": "return=representation",
		// single object instead of an array
		"Accept": "application/vnd.pgrst.object+json",
	}

	var row models.Variables
	if err := s.do(ctx, http.MethodPost, s.tableURL(nil), headers, body, &row); err != nil {
		log.Errorf("error [Insert] %v", err)
		return nil, backendErr("Insert", err)
	}
	return &row, nil
}

func (s *RestStore) FetchAll(ctx context.Context) ([]models.Variables, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	var rows []models.Variables
	if err := s.do(ctx, http.MethodGet, s.tableURL(q), nil, nil, &rows); err != nil {
		log.Errorf("error [FetchAll] %v", err)
		return nil, backendErr("FetchAll", err)
	}

	if rows == nil {
		rows = []models.Variables{}
	}
	return rows, nil
}

func (s *RestStore) do(ctx context.Context, method, u string, headers map[string]string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return statusError(req.Method, res.StatusCode, buf)
	}

	// success bodies are not capped, FetchAll returns the whole table
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}

func statusError(method string, status int, body []byte) *BackendError {
	var re restError
	msg := ""
	if err := json.Unmarshal(body, &re); err == nil {
		msg = re.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("%s request failed with status %d", method, status)
	}
	return &BackendError{
		Message:    msg,
		StatusCode: status,
	}
}
