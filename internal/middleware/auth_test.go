package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inkwellcms/inkwell/internal/auth"
	"github.com/inkwellcms/inkwell/internal/middleware"

	"github.com/stretchr/testify/assert"
)

func TestAuthMiddlewareHandler_AuthCheck(t *testing.T) {
	loginChecker := auth.NewLoginTestChecker()
	loginChecker.LoggedSessions["valid-token"] = true
	authMiddleware := middleware.NewAuthMiddlewareHandler(loginChecker)

	testCases := []struct {
		name               string
		path               string
		method             string
		token              string
		expectedStatusCode int
	}{
		{
			name:               "PublicPostsListWithoutToken",
			path:               "/blog/posts",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "PublicPostDetailWithoutToken",
			path:               "/blog/posts/slug/my-first-post",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "PublicCoverImageWithoutToken",
			path:               "/blog/covers/42",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "RegisterWithoutToken",
			path:               "/a/register",
			method:             "POST",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "AdminPostsListWithoutToken",
			path:               "/posts/all",
			method:             "GET",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "AdminPostsListValidToken",
			path:               "/posts/all",
			method:             "GET",
			token:              "valid-token",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "AdminPostsListInvalidToken",
			path:               "/posts/all",
			method:             "GET",
			token:              "invalid-token",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "DeletePostWithoutToken",
			path:               "/posts/13",
			method:             "DELETE",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "OptionsAlwaysAllowed",
			path:               "/posts/all",
			method:             "OPTIONS",
			expectedStatusCode: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, tc.path, nil)
			assert.NoError(t, err)
			if tc.token != "" {
				req.Header.Add("X-INKWELL-TOKEN", tc.token)
			}

			rr := httptest.NewRecorder()
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
			authMiddleware.AuthCheck()(handler).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
		})
	}
}
