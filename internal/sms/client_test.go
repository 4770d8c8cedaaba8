package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsMessageAndReturnsID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sms/send", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body sendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "+2348012345678", body.To)
		assert.Equal(t, "AjoPay", body.From)
		assert.Equal(t, "Your code is 123456", body.Body)
		assert.Equal(t, "plain", body.Type)
		assert.Equal(t, "tk_live_xyz", body.APIKey)

		w.Write([]byte(`{"message_id":"msg-42","code":"ok","message":"Successfully Sent"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tk_live_xyz", "AjoPay")

	id, err := client.Send(context.Background(), "+2348012345678", "Your code is 123456")

	require.NoError(t, err)
	assert.Equal(t, "msg-42", id)
}

func TestSendSurfacesProviderMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"invalid","message":"Invalid phone number"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tk_live_xyz", "AjoPay")

	_, err := client.Send(context.Background(), "not-a-phone", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid phone number")
	assert.Contains(t, err.Error(), "400")
}

func TestSendNonJSONErrorStillReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream timeout"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tk_live_xyz", "AjoPay")

	_, err := client.Send(context.Background(), "+2348012345678", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
