package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"claim-comments/internal/domain"
	"claim-comments/internal/metrics"
	"claim-comments/internal/middleware"
	"claim-comments/internal/mocks"
	"claim-comments/internal/pkg/i18n"
	"claim-comments/internal/service"
)

const (
	adminSecret = "test-secret"
	testClaimID = "1d8a5cc39ca02e55782d619e67131c0a20843be8"
)

type fakeSnapshotter struct {
	calls int
	err   error
}

func (f *fakeSnapshotter) Snapshot(context.Context) error {
	f.calls++
	return f.err
}

type testApp struct {
	app      *fiber.App
	comments *mocks.CommentService
	backup   *fakeSnapshotter
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	require.NoError(t, i18n.Load())

	log := zaptest.NewLogger(t)
	comments := new(mocks.CommentService)
	backup := &fakeSnapshotter{}
	status := NewStatusHandler("test")
	h := &Handlers{
		RPC:    NewRPCHandler(comments, status, log),
		Status: status,
		Admin:  NewAdminHandler(backup),
	}

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	app := NewApp(h, AppConfig{
		CORSOrigins:    "*",
		AdminJWTSecret: adminSecret,
		Services:       &service.Services{Metrics: m},
	}, log)
	return &testApp{app: app, comments: comments, backup: backup}
}

func adminToken(t *testing.T, role string, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

type rpcResult struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	} `json:"error"`
}

func (ta *testApp) call(t *testing.T, body string, headers map[string]string) rpcResult {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out rpcResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "2.0", out.JSONRPC)
	return out
}

func TestRPC_ProtocolErrors(t *testing.T) {
	ta := setupApp(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"not json", `{"jsonrpc":`, -32700},
		{"batch", `[{"jsonrpc":"2.0","id":1,"method":"status"}]`, -32600},
		{"no method", `{"jsonrpc":"2.0","id":1}`, -32600},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"mine_bitcoin"}`, -32601},
		{"params not an object", `{"jsonrpc":"2.0","id":1,"method":"create_comment","params":[1,2]}`, -32602},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ta.call(t, tt.body, nil)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.code, out.Error.Code)
			assert.Nil(t, out.Result)
		})
	}
}

func TestRPC_CreateComment(t *testing.T) {
	ta := setupApp(t)
	created := &domain.Comment{ID: "abc", ClaimID: testClaimID, Body: "hello", Timestamp: 1700000000}

	ta.comments.On("Create", mock.Anything, domain.CreateCommentInput{ClaimID: testClaimID, Comment: "hello"}).
		Return(created, nil).Once()

	out := ta.call(t, `{"jsonrpc":"2.0","id":7,"method":"create_comment","params":{"claim_id":"`+testClaimID+`","comment":"hello"}}`, nil)

	require.Nil(t, out.Error)
	assert.JSONEq(t, `7`, string(out.ID))
	var got domain.Comment
	require.NoError(t, json.Unmarshal(out.Result, &got))
	assert.Equal(t, *created, got)
	ta.comments.AssertExpectations(t)
}

func TestRPC_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      int
		dataCode  string
		retryable bool
	}{
		{"capacity", domain.NewCapacityError("busy"), -32002, domain.CodeCapacityExceeded, true},
		{"authentication", domain.NewAuthenticationError("bad signature"), -32001, domain.CodeAuthenticationFailed, false},
		{"validation", domain.NewValidationError("comment", "must not be empty"), -32602, domain.CodeInvalidParams, false},
		{"resolution", domain.NewResolutionError("claim resolution yields error", map[string]any{"error": "x"}, nil), -32603, domain.CodeResolutionFailed, true},
		{"unknown", errors.New("boom"), -32603, domain.CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := setupApp(t)
			ta.comments.On("Create", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			out := ta.call(t, `{"jsonrpc":"2.0","id":"a","method":"create_comment","params":{}}`, nil)

			require.NotNil(t, out.Error)
			assert.Equal(t, tt.code, out.Error.Code)
			assert.Equal(t, tt.dataCode, out.Error.Data["code"])
			assert.Equal(t, tt.retryable, out.Error.Data["retryable"] == true)
			assert.NotContains(t, out.Error.Message, "boom")
		})
	}
}

func TestRPC_ErrorMessagesAreLocalized(t *testing.T) {
	ta := setupApp(t)
	ta.comments.On("Create", mock.Anything, mock.Anything).Return(nil, domain.NewCapacityError("busy")).Once()

	out := ta.call(t, `{"jsonrpc":"2.0","id":1,"method":"create_comment","params":{}}`, map[string]string{"Accept-Language": "id-ID"})

	require.NotNil(t, out.Error)
	assert.Equal(t, "Server sedang sibuk, coba lagi", out.Error.Message)
}

func TestRPC_GetClaimComments(t *testing.T) {
	ta := setupApp(t)
	page := domain.NewPage([]domain.Comment{{ID: "abc", ClaimID: testClaimID}}, 2, 20, 21)

	ta.comments.On("List", mock.Anything, domain.ListCommentsParams{ClaimID: testClaimID, Page: 2, PageSize: 20, TopLevel: true}).
		Return(page, nil).Once()

	out := ta.call(t, `{"jsonrpc":"2.0","id":1,"method":"get_claim_comments","params":{"claim_id":"`+testClaimID+`","page":2,"page_size":20,"top_level":1}}`, nil)

	require.Nil(t, out.Error)
	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Result, &got))
	assert.Equal(t, float64(2), got["total_pages"])
	assert.Equal(t, float64(21), got["total_items"])
	assert.Len(t, got["items"], 1)
	ta.comments.AssertExpectations(t)
}

func TestRPC_GetCommentsByID(t *testing.T) {
	ta := setupApp(t)
	ta.comments.On("GetByIDs", mock.Anything, []string{"abc"}).Return([]domain.Comment{{ID: "abc"}}, nil).Once()

	out := ta.call(t, `{"jsonrpc":"2.0","id":1,"method":"get_comments_by_id","params":{"comment_ids":["abc"]}}`, nil)

	require.Nil(t, out.Error)
	assert.Contains(t, string(out.Result), `"comment_id":"abc"`)
}

func TestRPC_DeleteComment(t *testing.T) {
	ta := setupApp(t)
	input := domain.DeleteCommentInput{CommentID: "abc", ChannelID: testClaimID, ChannelName: "@bob", Signature: "00"}
	ta.comments.On("Delete", mock.Anything, input).Return(&domain.Comment{ID: "abc"}, nil).Once()

	out := ta.call(t, `{"jsonrpc":"2.0","id":1,"method":"delete_comment","params":{"comment_id":"abc","channel_id":"`+testClaimID+`","channel_name":"@bob","signature":"00"}}`, nil)

	require.Nil(t, out.Error)
	assert.JSONEq(t, `{"deleted":true,"comment_id":"abc"}`, string(out.Result))
}

func TestRPC_HideComments(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"method":"hide_comments","params":{"comment_ids":["abc"]}}`

	t.Run("anonymous caller", func(t *testing.T) {
		ta := setupApp(t)
		out := ta.call(t, body, nil)
		require.NotNil(t, out.Error)
		assert.Equal(t, -32003, out.Error.Code)
		ta.comments.AssertNotCalled(t, "Hide", mock.Anything, mock.Anything)
	})

	t.Run("non-admin role", func(t *testing.T) {
		ta := setupApp(t)
		out := ta.call(t, body, map[string]string{"Authorization": "Bearer " + adminToken(t, "viewer", adminSecret)})
		require.NotNil(t, out.Error)
		assert.Equal(t, -32003, out.Error.Code)
	})

	t.Run("admin", func(t *testing.T) {
		ta := setupApp(t)
		ta.comments.On("Hide", mock.Anything, domain.HideCommentsInput{CommentIDs: []string{"abc"}}).
			Return([]domain.Comment{{ID: "abc", IsHidden: true}}, nil).Once()

		out := ta.call(t, body, map[string]string{"Authorization": "Bearer " + adminToken(t, middleware.RoleAdmin, adminSecret)})

		require.Nil(t, out.Error)
		assert.JSONEq(t, `{"hidden":["abc"]}`, string(out.Result))
	})
}

func TestAdminAuth_RejectsForgedToken(t *testing.T) {
	ta := setupApp(t)
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"status"}`))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, middleware.RoleAdmin, "wrong-secret"))

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body middleware.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.CodeUnauthorized, body.Code)
	assert.NotEmpty(t, body.RequestID)
}

func TestStatusEndpoints(t *testing.T) {
	ta := setupApp(t)

	for _, path := range []string{"/", "/api"} {
		resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		var status map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		resp.Body.Close()
		assert.Equal(t, true, status["is_running"], path)
		assert.Equal(t, "test", status["version"], path)
	}

	out := ta.call(t, `{"jsonrpc":"2.0","id":1,"method":"status"}`, nil)
	require.Nil(t, out.Error)
	assert.Contains(t, string(out.Result), `"is_running":true`)

	resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ta := setupApp(t)

	resp, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "comments_write_job_duration_seconds")
}

func TestAdminBackup(t *testing.T) {
	ta := setupApp(t)

	resp, err := ta.app.Test(httptest.NewRequest(http.MethodPost, "/admin/backup", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, ta.backup.calls)

	req := httptest.NewRequest(http.MethodPost, "/admin/backup", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, middleware.RoleAdmin, adminSecret))
	resp, err = ta.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, ta.backup.calls)

	ta.backup.err = errors.New("disk full")
	req = httptest.NewRequest(http.MethodPost, "/admin/backup", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, middleware.RoleAdmin, adminSecret))
	resp, err = ta.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
