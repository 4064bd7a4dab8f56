package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func newCallbackRequest(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/callback?"+query, nil)
}

func TestOAuthHandler(t *testing.T) {
	config := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: "http://localhost/token"},
	}

	t.Run("routes", func(t *testing.T) {
		handler := NewOAuthHandler(config, "state1")
		routes := handler.Routes()
		if len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("routes = %v", routes)
		}
	})

	t.Run("rejects a mismatched state", func(t *testing.T) {
		handler := NewOAuthHandler(config, "expected")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, newCallbackRequest("state=forged&code=abc"))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Fatal("expected state validation error")
		}
		if !strings.Contains(result.Error().Error(), "invalid state") {
			t.Errorf("error = %v", result.Error())
		}
	})

	t.Run("surfaces provider denial", func(t *testing.T) {
		handler := NewOAuthHandler(config, "state1")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, newCallbackRequest("state=state1&error=access_denied&error_description=User+denied"))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("error = %v", result.Error())
		}
	})

	t.Run("ignores a second callback", func(t *testing.T) {
		handler := NewOAuthHandler(config, "expected")

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, newCallbackRequest("state=forged"))

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, newCallbackRequest("state=forged"))

		if second.Code != http.StatusBadRequest {
			t.Errorf("second callback status = %d, want 400", second.Code)
		}
		if !strings.Contains(second.Body.String(), "already processed") {
			t.Errorf("second callback body = %q", second.Body.String())
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("routes by method", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Errorf("body = %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("applies middleware in order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		want := []string{"first", "second", "handler"}
		if len(order) != len(want) {
			t.Fatalf("order = %v", order)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Errorf("order = %v, want %v", order, want)
			}
		}
	})
}
