package handlers_test

import (
	"net/http"
	"testing"

	"github.com/dom/chatrelay/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSignup(t *testing.T) {
	ts := testutil.NewTestServer(t, nil)

	tests := []struct {
		name           string
		request        map[string]string
		setup          func()
		expectedStatus int
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name: "successful signup",
			request: map[string]string{
				"email":           "new@example.com",
				"password":        "password123",
				"confirmPassword": "password123",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var body struct {
					Success bool `json:"success"`
					User    struct {
						Email string `json:"email"`
					} `json:"user"`
				}
				testutil.DecodeJSON(t, resp, &body)
				assert.True(t, body.Success)
				assert.Equal(t, "new@example.com", body.User.Email)
			},
		},
		{
			name: "missing confirm password",
			request: map[string]string{
				"email":    "new@example.com",
				"password": "password123",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "mismatched passwords",
			request: map[string]string{
				"email":           "new@example.com",
				"password":        "password123",
				"confirmPassword": "password456",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "weak password",
			request: map[string]string{
				"email":           "new@example.com",
				"password":        "short",
				"confirmPassword": "short",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate email",
			request: map[string]string{
				"email":           "existing@example.com",
				"password":        "password123",
				"confirmPassword": "password123",
			},
			setup: func() {
				testutil.NewUserBuilder().
					WithEmail("existing@example.com").
					Build(t, ts.DB.DB)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "empty request body",
			request:        map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.DB.Truncate(t)

			if tt.setup != nil {
				tt.setup()
			}

			resp := testutil.PostJSON(t, ts.APIURL("/signup"), tt.request, nil)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			} else {
				var body struct {
					Error string `json:"error"`
				}
				testutil.DecodeJSON(t, resp, &body)
				assert.NotEmpty(t, body.Error, "error responses must carry an error field")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	ts := testutil.NewTestServer(t, nil)

	testutil.NewUserBuilder().
		WithEmail("login@example.com").
		WithPassword("correctpassword").
		Build(t, ts.DB.DB)

	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
	}{
		{
			name: "successful login",
			request: map[string]string{
				"email":    "login@example.com",
				"password": "correctpassword",
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "wrong password",
			request: map[string]string{
				"email":    "login@example.com",
				"password": "wrongpassword",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown user",
			request: map[string]string{
				"email":    "missing@example.com",
				"password": "whatever123",
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "missing password",
			request: map[string]string{
				"email": "login@example.com",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.PostJSON(t, ts.APIURL("/login"), tt.request, nil)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body struct {
					Success bool   `json:"success"`
					Token   string `json:"token"`
				}
				testutil.DecodeJSON(t, resp, &body)
				assert.True(t, body.Success)
				assert.NotEmpty(t, body.Token)
			}
		})
	}
}
