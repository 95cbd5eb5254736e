package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/workflow"
	"github.com/noah-isme/hostel-out-api/pkg/client"
	"github.com/noah-isme/hostel-out-api/pkg/session"
)

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func newTestCLI(t *testing.T, h http.Handler, s *session.Session) (*cli, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	holder := session.NewHolder(nil)
	if s != nil {
		require.NoError(t, holder.Set(*s))
	}
	out := &bytes.Buffer{}
	return &cli{api: client.New(srv.URL, holder), out: out}, out
}

func TestLoginCommand(t *testing.T) {
	app, out := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teachers/login", r.URL.Path)
		respond(w, http.StatusOK, models.LoginResponse{
			AccessToken: "a",
			User:        models.UserInfo{ID: "t1", Role: models.RoleTeacher, FullName: "Ravi"},
		})
	}), nil)

	err := app.run(context.Background(), []string{"login", "-role", "teacher", "-email", "ravi@hostel.test", "-password", "secret"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "logged in as Ravi (TEACHER, t1)")
	assert.True(t, app.api.Session().IsLoggedIn())
}

func TestLoginCommandRequiresFlags(t *testing.T) {
	app, out := newTestCLI(t, http.NotFoundHandler(), nil)
	err := app.run(context.Background(), []string{"login", "-email", "x@hostel.test"})
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out.String(), "usage: hostelctl login")
}

func TestUnknownCommand(t *testing.T) {
	app, out := newTestCLI(t, http.NotFoundHandler(), nil)
	err := app.run(context.Background(), []string{"fly"})
	require.Error(t, err)
	assert.Contains(t, out.String(), "delete-notice")
}

func TestLeavesCommandShowsActionableOnly(t *testing.T) {
	app, out := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, []models.LeaveRequest{
			{ID: "l1", StudentID: "s1", Status: models.LeaveStatusApplied, Reason: "wedding"},
			{ID: "l2", StudentID: "s2", Status: models.LeaveStatusApprovedByWarden, Reason: "exam"},
		})
	}), &session.Session{UserID: "t1", Role: models.RoleTeacher, AccessToken: "a"})

	require.NoError(t, app.run(context.Background(), []string{"leaves"}))
	assert.Contains(t, out.String(), "wedding")
	assert.NotContains(t, out.String(), "exam")
}

func TestApproveRefusedBeforeDecisionCall(t *testing.T) {
	var puts int32
	app, _ := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			atomic.AddInt32(&puts, 1)
		}
		respond(w, http.StatusOK, models.LeaveRequest{ID: "l1", Status: models.LeaveStatusApplied})
	}), &session.Session{UserID: "w1", Role: models.RoleWarden, AccessToken: "a"})

	err := app.run(context.Background(), []string{"approve", "l1"})
	assert.ErrorIs(t, err, workflow.ErrNotActionable)
	assert.Zero(t, atomic.LoadInt32(&puts))
	assert.Contains(t, describe(err), "cannot act")
}

func TestRejectCommand(t *testing.T) {
	app, out := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			assert.Equal(t, "/leaves/l1/teacher/t1", r.URL.Path)
			assert.Equal(t, "false", r.URL.Query().Get("isApproved"))
			respond(w, http.StatusOK, models.LeaveRequest{ID: "l1", Status: models.LeaveStatusRejectedByTeacher})
			return
		}
		respond(w, http.StatusOK, models.LeaveRequest{ID: "l1", Status: models.LeaveStatusApplied})
	}), &session.Session{UserID: "t1", Role: models.RoleTeacher, AccessToken: "a"})

	require.NoError(t, app.run(context.Background(), []string{"reject", "l1"}))
	assert.Contains(t, out.String(), "Rejected by Teacher")
}

func TestResolveDefaultsToResolved(t *testing.T) {
	app, out := newTestCLI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		respond(w, http.StatusOK, models.Complaint{ID: "c1", Status: body["status"]})
	}), &session.Session{UserID: "w1", Role: models.RoleWarden, AccessToken: "a"})

	require.NoError(t, app.run(context.Background(), []string{"resolve", "c1"}))
	assert.Contains(t, out.String(), "complaint c1: Resolved")
}

func TestDescribeAPIError(t *testing.T) {
	err := &client.APIError{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: "teachers cannot view complaints"}
	assert.Equal(t, "teachers cannot view complaints", describe(err))
	assert.Contains(t, describe(client.ErrNotLoggedIn), "hostelctl login")
}
