package beaconapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStateRootBySlot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eth/v1/beacon/states/42/root", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"root": "0xabc"},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	root, err := client.GetStateRootBySlot(context.Background(), slots.Slot(42))
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, "0xabc", *root)
}

func TestGetStateRootBySlotMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	root, err := client.GetStateRootBySlot(context.Background(), slots.Slot(42))
	require.NoError(t, err)
	assert.Nil(t, root)
}

func TestGetHeaderBySlotRefusesFuture(t *testing.T) {
	client := NewHTTPClient("http://unused.invalid", nil)
	far := slots.FromDateTimeRoundedDown(time.Now().Add(365 * 24 * time.Hour))
	_, err := client.GetHeaderBySlot(context.Background(), far)
	require.Error(t, err)
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}

func TestStreamHeadEventsGapFree(t *testing.T) {
	body := "event: head\n" +
		"data: {\"slot\":\"101\",\"block\":\"0xb101\",\"state\":\"0xs101\"}\n\n" +
		"event: chain_reorg\n" +
		"data: {\"slot\":\"101\"}\n\n" +
		"event: head\n" +
		"data: {\"slot\":\"102\",\"block\":\"0xb102\",\"state\":\"0xs102\"}\n\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, errs := client.StreamHeadEvents(ctx, slots.Slot(100))

	var got []HeadEvent
	for e := range events {
		got = append(got, e)
	}
	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, got, 2)
	assert.Equal(t, slots.Slot(101), got[0].Slot)
	assert.Equal(t, slots.Slot(102), got[1].Slot)
}
