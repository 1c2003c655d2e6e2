package alphavantage_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stockapi/internal/provider"
	alphavantage "stockapi/internal/provider/alphavantage"
)

const globalQuoteBody = `{
	"Global Quote": {
		"01. symbol": "AAPL",
		"02. open": "192.10",
		"03. high": "195.00",
		"04. low": "191.50",
		"05. price": "193.25",
		"06. volume": "52814519",
		"07. latest trading day": "2026-08-27",
		"08. previous close": "194.40",
		"09. change": "-1.15",
		"10. change percent": "-0.5916%"
	}
}`

const dailySeriesBody = `{
	"Meta Data": {"2. Symbol": "AAPL"},
	"Time Series (Daily)": {
		"2026-08-27": {"1. open": "192.10", "2. high": "195.00", "3. low": "191.50", "4. close": "193.25", "5. volume": "52814519"},
		"2026-08-26": {"1. open": "193.00", "2. high": "196.20", "3. low": "192.80", "4. close": "194.40", "5. volume": "48120033"}
	}
}`

const searchBody = `{
	"bestMatches": [
		{"1. symbol": "AAPL", "2. name": "Apple Inc.", "3. type": "Equity", "4. region": "United States"},
		{"1. symbol": "APLE", "2. name": "Apple Hospitality REIT", "3. type": "Equity", "4. region": "United States"}
	]
}`

func newAdapter(t *testing.T, httpClient alphavantage.HTTPClient) *alphavantage.Adapter {
	t.Helper()

	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)

	return alphavantage.NewAdapter(client)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := alphavantage.NewClient("  ")
	require.Error(t, err)
}

func TestQuote(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "test-key", req.URL.Query().Get("apikey"))
			require.Equal(t, "GLOBAL_QUOTE", req.URL.Query().Get("function"))
			require.Equal(t, "AAPL", req.URL.Query().Get("symbol"))

			return jsonResponse(http.StatusOK, globalQuoteBody), nil
		}).
		Times(1)

	adapter := newAdapter(t, httpClient)

	// Act: fetch a quote
	q, err := adapter.Quote(t.Context(), "AAPL")
	require.NoError(t, err)

	// Assert: fields are parsed from the stringly payload
	require.Equal(t, "AAPL", q.Symbol)
	require.InEpsilon(t, 193.25, q.Price, 0.0001)
	require.InEpsilon(t, -1.15, q.Change, 0.0001)
	require.InEpsilon(t, -0.5916, q.ChangePercent, 0.0001)
	require.InEpsilon(t, 194.40, q.PrevClose, 0.0001)
	require.Equal(t, int64(52814519), q.Volume)
	require.Equal(t, provider.SourceReal, q.Source)
}

func TestQuote_EmptyPayloadIsNotFound(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, `{"Global Quote": {}}`), nil).
		Times(1)

	adapter := newAdapter(t, httpClient)

	_, err := adapter.Quote(t.Context(), "NOPE")
	require.ErrorIs(t, err, provider.ErrNotFound)
}

func TestQuote_NotePayloadIsRateLimited(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// The API reports throttling as a 200 with a Note body.
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, `{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`), nil).
		Times(1)

	adapter := newAdapter(t, httpClient)

	_, err := adapter.Quote(t.Context(), "AAPL")
	require.ErrorIs(t, err, provider.ErrRateLimited)
}

func TestQuote_TransportFailureIsUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(nil, errors.New("connection refused")).
		Times(1)

	adapter := newAdapter(t, httpClient)

	_, err := adapter.Quote(t.Context(), "AAPL")
	require.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
}

func TestQuote_ServerErrorIsUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusBadGateway, "upstream error"), nil).
		Times(1)

	adapter := newAdapter(t, httpClient)

	_, err := adapter.Quote(t.Context(), "AAPL")
	require.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
}

func TestQuote_GarbageBodyIsMalformed(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, "<html>maintenance</html>"), nil).
		Times(1)

	adapter := newAdapter(t, httpClient)

	_, err := adapter.Quote(t.Context(), "AAPL")
	require.ErrorIs(t, err, provider.ErrMalformedResponse)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "TIME_SERIES_DAILY", req.URL.Query().Get("function"))
			require.Empty(t, req.URL.Query().Get("outputsize"))

			return jsonResponse(http.StatusOK, dailySeriesBody), nil
		}).
		Times(1)

	adapter := newAdapter(t, httpClient)

	series, err := adapter.History(t.Context(), "AAPL", provider.Period1M)
	require.NoError(t, err)
	require.Len(t, series, 2)

	// Assert: bars arrive oldest first
	require.True(t, series[0].Timestamp.Before(series[1].Timestamp))
	require.InEpsilon(t, 194.40, series[0].Close, 0.0001)
	require.InEpsilon(t, 193.25, series[1].Close, 0.0001)
}

func TestHistory_LongPeriodRequestsFullOutput(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "full", req.URL.Query().Get("outputsize"))

			return jsonResponse(http.StatusOK, dailySeriesBody), nil
		}).
		Times(1)

	adapter := newAdapter(t, httpClient)

	_, err := adapter.History(t.Context(), "AAPL", provider.Period1Y)
	require.NoError(t, err)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "SYMBOL_SEARCH", req.URL.Query().Get("function"))
			require.Equal(t, "apple", req.URL.Query().Get("keywords"))

			return jsonResponse(http.StatusOK, searchBody), nil
		}).
		Times(1)

	adapter := newAdapter(t, httpClient)

	results, err := adapter.Search(t.Context(), "apple")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "AAPL", results[0].Symbol)
	require.Equal(t, "Apple Inc.", results[0].Name)
	require.Equal(t, "STOCK", results[0].Type)
}

func TestQuota(t *testing.T) {
	t.Parallel()

	adapter := newAdapter(t, http.DefaultClient)
	quota := adapter.Quota()
	require.Equal(t, "alphavantage", quota.Provider)
	require.Equal(t, 5, quota.PerMinute)
	require.Equal(t, 500, quota.PerDay)
}
