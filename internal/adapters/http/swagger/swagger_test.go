package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/smartystreets/goconvey/convey"
)

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given a swagger handler", t, func() {
		ctx := context.Background()

		routers := []struct {
			name string
			mux  interface {
				Mux
				http.Handler
			}
		}{
			{"ServeMux", http.NewServeMux()},
			{"chi router", chi.NewRouter()},
		}
		for _, rt := range routers {
			mux := rt.mux
			convey.Convey("When registering on a "+rt.name, func() {
				Register(ctx, mux)

				convey.Convey("Then it should handle /openapi.yaml route", func() {
					req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody)
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, req)

					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
					convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
					convey.So(w.Body.String(), convey.ShouldContainSubstring, "/eligibility")
				})

				convey.Convey("And it should handle /api-docs route", func() {
					req := httptest.NewRequest(http.MethodGet, "/api-docs", http.NoBody)
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, req)

					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
					convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
					convey.So(w.Body.String(), convey.ShouldContainSubstring, "redoc-container")
					convey.So(w.Body.String(), convey.ShouldContainSubstring, "/openapi.yaml")
				})
			})
		}
	})
}

func TestRegisterNilMux(t *testing.T) {
	convey.Convey("Given a nil mux", t, func() {
		convey.So(func() { Register(context.Background(), nil) }, convey.ShouldPanic)
	})
}
