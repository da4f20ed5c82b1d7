package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NickolasKemp/ordify/pkg/client"
)

func TestRefreshOnceOn401(t *testing.T) {
	var refreshCalls, orderCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			refreshCalls.Add(1)
			var body struct {
				RefreshToken string `json:"refreshToken"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "stale-refresh", body.RefreshToken)
			json.NewEncoder(w).Encode(map[string]string{
				"accessToken":  "fresh-access",
				"refreshToken": "fresh-refresh",
			})
		case "/orders":
			orderCalls.Add(1)
			if r.Header.Get("Authorization") != "Bearer fresh-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode([]map[string]string{{"id": "o1"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	c.TokenStore().SetTokens("stale-access", "stale-refresh")

	orders, err := c.Orders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)

	assert.Equal(t, int32(1), refreshCalls.Load(), "exactly one refresh")
	assert.Equal(t, int32(2), orderCalls.Load(), "original call plus one retry")

	access, refresh := c.TokenStore().Tokens()
	assert.Equal(t, "fresh-access", access)
	assert.Equal(t, "fresh-refresh", refresh)
}

func TestFailedRefreshSurfacesOriginal401(t *testing.T) {
	var refreshCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			refreshCalls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	c.TokenStore().SetTokens("stale-access", "stale-refresh")

	_, err := c.Orders(context.Background())
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(1), refreshCalls.Load(), "never more than one refresh attempt")
}

func TestNoRefreshWithoutRefreshToken(t *testing.T) {
	var refreshCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := client.New(srv.URL)

	_, err := c.Orders(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestClientTokenHeaderAttached(t *testing.T) {
	var gotToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("x-client-token")
		json.NewEncoder(w).Encode(map[string]any{"flowId": "f1", "order": map[string]string{"id": "o1"}})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	c.TokenStore().SetClientToken("agreement-token")

	result, err := c.PlaceOrderWithToken(context.Background(), "p1", 2, "PICKUP")
	require.NoError(t, err)
	assert.Equal(t, "agreement-token", gotToken)
	assert.Equal(t, "o1", result.Order.ID)
}

func TestPlacementStoresIssuedClientToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"flowId":      "f1",
			"order":       map[string]string{"id": "o1"},
			"clientToken": "issued-token",
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.PlaceOrderWithAgreement(context.Background(), "c1", "p1", client.AgreementPlacement{
		Quantity:    1,
		DeliveryWay: "PICKUP",
		LegalEntity: client.LegalEntity{Name: "Acme", RegistrationNumber: "R1"},
		Period:      "6_months",
	})
	require.NoError(t, err)
	assert.Equal(t, "issued-token", c.TokenStore().ClientToken())
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "not_found",
			"message": "product missing",
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.Product(context.Background(), "missing")

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Equal(t, "product missing", apiErr.Message)
}
