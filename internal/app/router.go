package app

import (
	"html/template"
	"net/http"
	"path"
	"time"

	"quizrunner/internal/app/observability"
	"quizrunner/internal/catalog"
	"quizrunner/internal/exam"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(cfg Config, content *Content, sessions *Sessions, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	collector := observability.NewCollector(content.DB, log)
	r.Use(collector.Middleware)
	if sessions.Memory != nil {
		mem := sessions.Memory
		collector.AddGauge("sessions_stored", func() float64 { return float64(mem.Len()) })
	}

	tmpl := template.Must(template.New("quizrunner").Funcs(exam.TemplateFuncs(cfg.AssetBaseURL)).ParseGlob("web/templates/layout/*.html"))
	template.Must(tmpl.ParseGlob("web/templates/pages/*.html"))

	examSvc := exam.NewService(sessions.Store, content.Loader, exam.DefaultRand, log)
	examHandler := exam.NewHandler(examSvc)
	pages := exam.NewPages(examSvc, tmpl, log, exam.PagesConfig{
		CSRFToken:    CSRFToken,
		SecureCookie: cfg.IsProduction(),
	})

	limiter := NewIPRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Group(func(web chi.Router) {
		web.Use(CSRFMiddleware(cfg.CSRFEnforced))
		web.Get("/", pages.Index)
		web.Post("/exam", pages.SelectExam)
		web.Post("/answer", pages.Answer)
		web.Post("/next", pages.Next)
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(CSRFMiddleware(cfg.CSRFEnforced))
		api.With(RateLimitMiddleware(limiter)).Post("/sessions", examHandler.Create)
		api.Get("/sessions/{id}", examHandler.Get)
		api.Post("/sessions/{id}/exam", examHandler.SelectExam)
		api.Post("/sessions/{id}/answer", examHandler.Answer)
		api.Post("/sessions/{id}/next", examHandler.Next)
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	if content.Dir != "" {
		r.Handle(contentMountPath+"/*", http.StripPrefix(contentMountPath+"/", imageOnly(http.FileServer(http.Dir(content.Dir)))))
	}

	return r
}

// imageOnly lets through passage images and nothing else, so exam documents
// with their answers stay private.
func imageOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !catalog.IsImagePath(path.Clean("/" + r.URL.Path)) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
