package bingx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPositionsSignsAndUnwraps(t *testing.T) {
	const secret = "topsecret"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key123", r.Header.Get("X-BX-APIKEY"))

		q := r.URL.Query()
		sig := q.Get("signature")
		require.NotEmpty(t, sig)
		q.Del("signature")

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(q.Encode()))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), sig)

		w.Write([]byte(`{"code":0,"data":[{"symbol":"BTC-USDT","positionAmt":"0.5"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key123", secret, time.Second)
	recs, err := c.FetchPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "BTC-USDT", recs[0]["symbol"])
}

func TestFetchPositionsFallsBackToNextPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == positionPaths[0] {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"code":0,"data":{"positions":[{"symbol":"ETH-USDT"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "s", time.Second)
	recs, err := c.FetchPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ETH-USDT", recs[0]["symbol"])
}

func TestFetchSettlementsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":100403,"msg":"permission denied","data":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "s", time.Second)
	_, err := c.FetchSettlements(context.Background(), "BTC-USDT", 0, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "100403")
}

func TestCoerceRecordsShapes(t *testing.T) {
	recs, err := coerceRecords([]byte(`[{"a":1}]`), "income")
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	recs, err = coerceRecords([]byte(`{"rows":[{"a":1},{"a":2}]}`), "income")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = coerceRecords([]byte(`{"somethingElse":true}`), "income")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
