package server

import (
	"net/http"
	"time"

	"github.com/applounge/lounge/internal/utils"
	"github.com/applounge/lounge/pkg/fused"
	"github.com/applounge/lounge/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultSessionTTL = 15 * time.Minute

type Server struct {
	Aggregator *fused.Aggregator
	DB         *storage.DB // optional; /api/changes and /api/stats need it
	Username   string
	Password   string

	sessions *sessionStore
}

func New(agg *fused.Aggregator, db *storage.DB, user, pass string, sessionTTL time.Duration) *Server {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Server{
		Aggregator: agg,
		DB:         db,
		Username:   user,
		Password:   pass,
		sessions:   newSessionStore(sessionTTL),
	}
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(s.basicAuth)

		r.Route("/api", func(r chi.Router) {
			r.Get("/home", s.handleHome)
			r.Get("/categories", s.handleCategories)
			r.Get("/search", s.handleSearch)
			r.Post("/search/{id}/more", s.handleSearchMore)
			r.Post("/browse", s.handleBrowse)
			r.Post("/browse/{id}/more", s.handleBrowseMore)
			r.Get("/apps/{source}/{id}", s.handleAppDetails)
			r.Get("/changes", s.handleChanges)
			r.Get("/stats", s.handleStats)
		})
		r.Handle("/metrics", promhttp.Handler())
	})

	return r
}

func (s *Server) Start(addr string) error {
	utils.Log.Infof("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
