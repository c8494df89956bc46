package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"jobcal/internal/api"
	"jobcal/internal/diff"
	"jobcal/internal/store"
)

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", &diff.ValidationError{Field: "start_at", Err: diff.ErrStartRequired}, "入力エラー"},
		{"gmail", &api.Error{Status: 401, Data: map[string]any{"detail": map[string]any{"error": "x", "needs_auth": true}}}, "Gmail"},
		{"login", fmt.Errorf("failed: %w", &api.Error{Status: 401, Data: map[string]any{}}), "ログイン"},
		{"not found", store.ErrNotFound, "見つかりません"},
		{"busy", store.ErrBusy, "処理中"},
		{"network", &api.Error{Data: map[string]any{}, Err: errors.New("refused")}, "接続"},
		{"detail", &api.Error{Status: 500, Data: map[string]any{"detail": "boom"}}, "boom"},
		{"plain", errors.New("something else"), "something else"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, describeError(tt.err), tt.want)
		})
	}
}
