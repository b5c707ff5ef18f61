package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"dishwise"
	"dishwise/notify"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func sampleResult() *dishwise.ComposedResult {
	return &dishwise.ComposedResult{
		Dish: []dishwise.DishCandidate{{Dish: "Paneer Butter Masala", Confidence: 0.85}},
		Ingredients: dishwise.IngredientList{
			Dish:               "Paneer Butter Masala",
			ServingsAssumption: 2,
			Variant:            "veg",
			Ingredients:        []dishwise.IngredientItem{{Item: "paneer"}, {Item: "butter"}},
		},
		Recipe: dishwise.Recipe{
			Dish:        "Paneer Butter Masala",
			TimeMinutes: 40,
			Steps:       []string{"Blend.", "Simmer.", "Serve."},
		},
		Nutrition: dishwise.Nutrition{
			Servings:   2,
			PerServing: dishwise.NutritionPerServing{CaloriesKcal: 450},
		},
		Commerce: dishwise.CommerceResult{
			Status:  dishwise.CommerceMock,
			Results: []dishwise.CommerceOffer{{Name: "Classic Paneer Butter Masala"}},
		},
	}
}

func TestPostResult(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr bool
	}{
		{
			name: "success",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
			},
		},
		{
			name: "failure status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("bad request"))}, nil
			},
			wantErr: true,
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := notify.NewClient("http://hooks.example/dishwise", &mockDoer{doFunc: tt.doFunc})
			err := client.PostResult(context.Background(), sampleResult())
			if tt.wantErr {
				should.Error(t, err)
			} else {
				should.NoError(t, err)
			}
		})
	}
}

func TestPostResultPayload(t *testing.T) {
	var captured []byte
	client := notify.NewClient("http://hooks.example/dishwise", &mockDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			var err error
			captured, err = io.ReadAll(req.Body)
			must.NoError(t, err)
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
		},
	})

	must.NoError(t, client.PostResult(context.Background(), sampleResult()))

	var payload map[string]string
	must.NoError(t, json.Unmarshal(captured, &payload))
	should.Contains(t, payload["text"], "Paneer Butter Masala")
	should.Contains(t, payload["text"], "2 servings")
	should.Contains(t, payload["text"], "450 kcal")
}

func TestSummarize(t *testing.T) {
	text := notify.Summarize(sampleResult())
	should.Contains(t, text, "3 steps")
	should.Contains(t, text, "1 offers (mock)")
}
