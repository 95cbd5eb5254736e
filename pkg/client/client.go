// Package client is a typed consumer of the hostel-out REST API. Every call
// is a single request; nothing is retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/workflow"
	"github.com/noah-isme/hostel-out-api/pkg/session"
)

// ErrNotLoggedIn is returned by calls that need a session when none is held.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *APIError              `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

// Client talks to one API base URL on behalf of the session in Holder.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Holder
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for baseURL, e.g. http://localhost:8080/api/v1.
func New(baseURL string, holder *session.Holder, opts ...Option) *Client {
	if holder == nil {
		holder = session.NewHolder(nil)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		session: holder,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session exposes the holder backing the client.
func (c *Client) Session() *session.Holder { return c.session }

// Login authenticates against the endpoint of role and stores the session.
func (c *Client) Login(ctx context.Context, role models.UserRole, email, password string) (*session.Session, error) {
	path, err := loginPath(role)
	if err != nil {
		return nil, err
	}
	var resp models.LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, path, nil, body, &resp, false); err != nil {
		return nil, err
	}
	s := session.Session{
		UserID:       resp.User.ID,
		Role:         resp.User.Role,
		Email:        resp.User.Email,
		FullName:     resp.User.FullName,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if err := c.session.Set(s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &s, nil
}

// Logout revokes the refresh token and clears the session. The local session
// is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	s, ok := c.session.Current()
	if !ok {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, map[string]string{"refresh_token": s.RefreshToken}, nil, true)
	if clearErr := c.session.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

// Refresh rotates the stored refresh token and keeps the signed-in identity.
func (c *Client) Refresh(ctx context.Context) error {
	s, ok := c.session.Current()
	if !ok {
		return ErrNotLoggedIn
	}
	var res models.RefreshTokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, map[string]string{"refresh_token": s.RefreshToken}, &res, false); err != nil {
		return err
	}
	return c.session.UpdateTokens(res.AccessToken, res.RefreshToken)
}

// Me returns the identity bound to the access token.
func (c *Client) Me(ctx context.Context) (*models.UserInfo, error) {
	var info models.UserInfo
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &info, true); err != nil {
		return nil, err
	}
	return &info, nil
}

// RegisterStudent creates a student account. No session is required.
func (c *Client) RegisterStudent(ctx context.Context, req dto.RegisterStudentRequest) (*dto.StudentResponse, error) {
	var out dto.StudentResponse
	if err := c.do(ctx, http.MethodPost, "/students", nil, req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStudent fetches a student profile.
func (c *Client) GetStudent(ctx context.Context, id string) (*dto.StudentResponse, error) {
	var out dto.StudentResponse
	if err := c.do(ctx, http.MethodGet, "/students/"+url.PathEscape(id), nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTeacher fetches a teacher profile.
func (c *Client) GetTeacher(ctx context.Context, id string) (*dto.TeacherResponse, error) {
	var out dto.TeacherResponse
	if err := c.do(ctx, http.MethodGet, "/teachers/"+url.PathEscape(id), nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWarden fetches a warden profile.
func (c *Client) GetWarden(ctx context.Context, id string) (*dto.WardenResponse, error) {
	var out dto.WardenResponse
	if err := c.do(ctx, http.MethodGet, "/wardens/"+url.PathEscape(id), nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyLeave submits a leave request for the signed-in student.
func (c *Client) ApplyLeave(ctx context.Context, req dto.ApplyLeaveRequest) (*models.LeaveRequest, error) {
	var out models.LeaveRequest
	if err := c.do(ctx, http.MethodPost, "/leaves/apply", nil, req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListLeaves returns the role-scoped leave list the server computes.
func (c *Client) ListLeaves(ctx context.Context) ([]models.LeaveRequest, error) {
	var out []models.LeaveRequest
	if err := c.do(ctx, http.MethodGet, "/leaves", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// ListLeavesByStudent returns every request of one student.
func (c *Client) ListLeavesByStudent(ctx context.Context, studentID string) ([]models.LeaveRequest, error) {
	var out []models.LeaveRequest
	if err := c.do(ctx, http.MethodGet, "/leaves/student/"+url.PathEscape(studentID), nil, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// GetLeave fetches one leave request.
func (c *Client) GetLeave(ctx context.Context, id string) (*models.LeaveRequest, error) {
	var out models.LeaveRequest
	if err := c.do(ctx, http.MethodGet, "/leaves/"+url.PathEscape(id), nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Inbox is what the signed-in user sees first: students get their own
// requests, staff get only the requests they can act on now.
func (c *Client) Inbox(ctx context.Context) ([]models.LeaveRequest, error) {
	s, ok := c.session.Current()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	if s.Role == models.RoleStudent {
		return c.ListLeavesByStudent(ctx, s.UserID)
	}
	all, err := c.ListLeaves(ctx)
	if err != nil {
		return nil, err
	}
	actionable := make([]models.LeaveRequest, 0, len(all))
	for _, leave := range all {
		if workflow.CanAct(s.Role, leave.Status) {
			actionable = append(actionable, leave)
		}
	}
	return actionable, nil
}

// DecideLeave records the decision of role on leave as the signed-in user.
// It returns workflow.ErrNotActionable without calling the server when role
// cannot act on the request's current status.
func (c *Client) DecideLeave(ctx context.Context, role models.UserRole, leave models.LeaveRequest, approve bool) (*models.LeaveRequest, error) {
	if _, err := workflow.Next(role, leave.Status, approve); err != nil {
		return nil, err
	}
	s, ok := c.session.Current()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	var segment string
	switch role {
	case models.RoleTeacher:
		segment = "teacher"
	case models.RoleWarden:
		segment = "warden"
	}
	path := fmt.Sprintf("/leaves/%s/%s/%s", url.PathEscape(leave.ID), segment, url.PathEscape(s.UserID))
	query := url.Values{"isApproved": {strconv.FormatBool(approve)}}

	var out models.LeaveRequest
	if err := c.do(ctx, http.MethodPut, path, query, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateComplaint files a complaint as the signed-in student.
func (c *Client) CreateComplaint(ctx context.Context, message string) (*models.Complaint, error) {
	var out models.Complaint
	if err := c.do(ctx, http.MethodPost, "/complaints", nil, dto.CreateComplaintRequest{Message: message}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListComplaints returns own complaints for students and all for wardens.
func (c *Client) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	var out []models.Complaint
	if err := c.do(ctx, http.MethodGet, "/complaints", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateComplaintStatus sets the status text of a complaint.
func (c *Client) UpdateComplaintStatus(ctx context.Context, id, status string) (*models.Complaint, error) {
	var out models.Complaint
	body := dto.UpdateComplaintStatusRequest{Status: status}
	if err := c.do(ctx, http.MethodPatch, "/complaints/"+url.PathEscape(id)+"/status", nil, body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNotices returns the notice board, newest first.
func (c *Client) ListNotices(ctx context.Context) ([]models.Notice, error) {
	var out []models.Notice
	if err := c.do(ctx, http.MethodGet, "/notices", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// PublishNotice publishes a notice as the signed-in warden.
func (c *Client) PublishNotice(ctx context.Context, title, body string) (*models.Notice, error) {
	s, ok := c.session.Current()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	var out models.Notice
	path := "/notices/warden/" + url.PathEscape(s.UserID) + "/publish"
	if err := c.do(ctx, http.MethodPost, path, nil, dto.PublishNoticeRequest{Title: title, Body: body}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteNotice removes a notice.
func (c *Client) DeleteNotice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notices/warden/"+url.PathEscape(id), nil, nil, nil, true)
}

func loginPath(role models.UserRole) (string, error) {
	switch role {
	case models.RoleStudent:
		return "/students/login", nil
	case models.RoleTeacher:
		return "/teachers/login", nil
	case models.RoleWarden:
		return "/wardens/login", nil
	}
	return "", fmt.Errorf("unknown role %q", role)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, reqBody, out interface{}, authed bool) error {
	var body io.Reader
	if reqBody != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = &buf
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		s, ok := c.session.Current()
		if !ok || s.AccessToken == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			if env.Error.Message != "" {
				apiErr.Message = env.Error.Message
			}
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
