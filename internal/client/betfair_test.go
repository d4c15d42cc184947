package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bfsp/ingestion/internal/models"
	"bfsp/ingestion/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `EVENT_ID,MENU_HINT,EVENT_NAME,EVENT_DT,SELECTION_ID,SELECTION_NAME,WIN_LOSE,BSP,PPWAP,MORNINGWAP,PPMAX,PPMIN,IPMAX,IPMIN,MORNINGTRADEDVOL,PPTRADEDVOL,IPTRADEDVOL
101,UK / Asc 13th Nov,13:45 Asc 2m Hcap,13-11-2020 13:45,2001,3. Fast Horse,1,4.5,4.4,5.0,5.2,4.1,6.0,1.01,1000,25000,80000
101,UK / Asc 13th Nov,13:45 Asc 2m Hcap,13-11-2020 13:45,2002,Slow Horse,0,12.0,11.5,10.0,13.0,9.8,50.0,10.0,500,12000,30000
`

func testKey() models.ArtifactKey {
	return models.NewArtifactKey(
		time.Date(2020, 11, 13, 0, 0, 0, 0, time.UTC), "gb", models.MarketWin)
}

func fastPolicy(attempts int) retry.Policy {
	return retry.NewPolicy(attempts, time.Millisecond)
}

func TestClient_FetchDayParsesAndNormalizes(t *testing.T) {
	key := testKey()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// GB files are published under the legacy uk code
		assert.Equal(t, "/dwbfpricesukwin13112020.csv", r.URL.Path)
		fmt.Fprint(w, sampleCSV)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, fastPolicy(3))
	day, err := c.FetchDay(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, day.Records, 2)

	first := day.Records[0]
	assert.Equal(t, int64(101), first.EventID)
	assert.Equal(t, int64(2001), first.SelectionID)
	assert.Equal(t, 1, first.WinLose)
	assert.Equal(t, 4.5, first.BSP)
	assert.Equal(t, time.Date(2020, 11, 13, 13, 45, 0, 0, time.UTC), first.EventDT)

	// Derived columns
	assert.Equal(t, "gb", first.Country)
	assert.Equal(t, models.MarketWin, first.Market)
	assert.Equal(t, "fasthorse_gb", first.SelectionNameCleaned, "leading digits and symbols stripped")
	assert.Equal(t, "2020-11-13", first.EventDate)
	assert.Equal(t, 2020, first.Year)
}

func TestClient_404IsNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, fastPolicy(5))
	_, err := c.FetchDay(context.Background(), testKey())

	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load(), "404 must not be retried")
}

func TestClient_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, sampleCSV)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, fastPolicy(5))
	day, err := c.FetchDay(context.Background(), testKey())

	require.NoError(t, err)
	assert.Len(t, day.Records, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, fastPolicy(3))
	_, err := c.FetchDay(context.Background(), testKey())

	require.Error(t, err)
	assert.Equal(t, models.ErrTransient, models.KindOf(err))
	assert.Equal(t, int32(3), calls.Load(), "attempt budget is bounded")
}

func TestClient_UnexpectedStatusIsFormatError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, fastPolicy(5))
	_, err := c.FetchDay(context.Background(), testKey())

	require.Error(t, err)
	assert.Equal(t, models.ErrFormat, models.KindOf(err))
	assert.Equal(t, int32(1), calls.Load(), "non-retryable status must not be retried")
}

func TestClient_HeaderOnlyFileIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "EVENT_ID,MENU_HINT,EVENT_NAME,EVENT_DT,SELECTION_ID,SELECTION_NAME,WIN_LOSE,BSP")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, fastPolicy(3))
	_, err := c.FetchDay(context.Background(), testKey())

	require.Error(t, err)
	assert.True(t, models.IsNotFound(err), "no rows means no racing, not a failure")
}

func TestClient_MissingColumnsIsFormatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "<html>not a csv at all</html>")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, fastPolicy(3))
	_, err := c.FetchDay(context.Background(), testKey())

	require.Error(t, err)
	assert.Equal(t, models.ErrFormat, models.KindOf(err))
}

func TestClient_BadRowIsFormatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "EVENT_ID,EVENT_DT,SELECTION_ID,SELECTION_NAME,WIN_LOSE,BSP")
		fmt.Fprintln(w, "not-a-number,13-11-2020 13:45,2001,Horse,1,4.5")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, fastPolicy(3))
	_, err := c.FetchDay(context.Background(), testKey())

	require.Error(t, err)
	assert.Equal(t, models.ErrFormat, models.KindOf(err))
}

func TestClient_OlderFilesWithoutVolumeColumnsParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "EVENT_ID,EVENT_DT,SELECTION_ID,SELECTION_NAME,WIN_LOSE,BSP")
		fmt.Fprintln(w, "55,01-03-2015 15:00,900,Old Horse,0,7.8")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, fastPolicy(3))
	day, err := c.FetchDay(context.Background(), testKey())

	require.NoError(t, err)
	require.Len(t, day.Records, 1)
	assert.Equal(t, 7.8, day.Records[0].BSP)
	assert.Zero(t, day.Records[0].PPTradedVol)
}
