package mlservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/domain/core"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL:        url,
		TrainTimeout:   time.Second,
		PredictTimeout: time.Second,
	})
}

func TestTrain_OK(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Train(context.Background(), core.DatasetID("d1"))
	require.NoError(t, err)
	assert.Equal(t, "/train", gotPath)
	assert.Equal(t, "d1", gotBody["dataset_id"])
}

func TestTrain_PayloadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// 200 with an error payload is still a model failure.
		w.Write([]byte(`{"status":"error","error":"not enough history"}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Train(context.Background(), core.DatasetID("d1"))
	assert.ErrorIs(t, err, core.ErrPipelineModel)
	assert.Contains(t, err.Error(), "not enough history")
}

func TestTrain_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Train(context.Background(), core.DatasetID("d1"))
	assert.ErrorIs(t, err, core.ErrPipelineModel)
}

func TestTrain_Unreachable(t *testing.T) {
	// Port 1 on loopback has no listener.
	client := NewClient(Config{
		BaseURL:        "http://127.0.0.1:1",
		TrainTimeout:   time.Second,
		PredictTimeout: time.Second,
	})
	err := client.Train(context.Background(), core.DatasetID("d1"))
	assert.ErrorIs(t, err, core.ErrPipelineTransport)
}

func TestTrain_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:        srv.URL,
		TrainTimeout:   20 * time.Millisecond,
		PredictTimeout: time.Second,
	})
	err := client.Train(context.Background(), core.DatasetID("d1"))
	assert.ErrorIs(t, err, core.ErrPipelineTimeout)
}

func TestPredict_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		w.Write([]byte(`{
			"status": "ok",
			"temporada_objetivo": "PV26",
			"modelo_ganador": "lightgbm",
			"mape": 18.5,
			"plan_compras": [
				{"SECCION": "VESTIDOS", "UDS": 120, "PVP": 6000, "COSTE": 2400}
			]
		}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Predict(context.Background(), core.DatasetID("d1"), "next_PV")
	require.NoError(t, err)
	assert.Equal(t, "PV26", res.TargetSeasonLabel)
	assert.Equal(t, "lightgbm", res.ModelName)
	require.NotNil(t, res.MAPE)
	assert.InDelta(t, 18.5, *res.MAPE, 1e-9)
	require.Len(t, res.PlanRows, 1)
	assert.Equal(t, "VESTIDOS", res.PlanRows[0].Section)
}

func TestPredict_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Predict(context.Background(), core.DatasetID("d1"), "next_PV")
	assert.ErrorIs(t, err, core.ErrPipelineModel)
}
