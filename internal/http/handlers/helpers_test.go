package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func requestWithPathParam(key, value string) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestReadPathInt64(t *testing.T) {
	cases := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{value: "15", want: 15},
		{value: "12abc", wantErr: true},
		{value: "abc", wantErr: true},
		{value: "1.5", wantErr: true},
		{value: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := readPathInt64(requestWithPathParam("kotId", tc.value), "kotId")
		if tc.wantErr {
			if err == nil {
				t.Errorf("readPathInt64(%q) accepted invalid input as %d", tc.value, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("readPathInt64(%q) = %d, %v; want %d", tc.value, got, err, tc.want)
		}
	}
}

func TestFormatOrderNumber(t *testing.T) {
	cases := []struct {
		sequence int64
		want     string
	}{
		{1, "ORD-000001"},
		{42, "ORD-000042"},
		{999999, "ORD-999999"},
		{1000000, "ORD-1000000"},
	}
	for _, tc := range cases {
		if got := formatOrderNumber(tc.sequence); got != tc.want {
			t.Errorf("formatOrderNumber(%d) = %q, want %q", tc.sequence, got, tc.want)
		}
	}
}

func TestNullIfEmptyPtr(t *testing.T) {
	if nullIfEmptyPtr(nil) != nil {
		t.Error("nil stays nil")
	}
	empty := "   "
	if nullIfEmptyPtr(&empty) != nil {
		t.Error("blank string becomes nil")
	}
	value := "corner table"
	if got := nullIfEmptyPtr(&value); got == nil || *got != "corner table" {
		t.Errorf("non-empty value lost: %v", got)
	}
}
