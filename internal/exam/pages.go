package exam

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const SessionCookieName = "quizrunner_session"

// Pages serves the server-rendered quiz. Every form action redirects back to
// the index page, which renders whatever state the session is in.
type Pages struct {
	svc          sessionService
	tmpl         *template.Template
	log          *zap.Logger
	csrfToken    func(*http.Request) string
	secureCookie bool
}

type PagesConfig struct {
	CSRFToken    func(*http.Request) string
	SecureCookie bool
}

type pageData struct {
	Title     string
	View      View
	CSRFToken string
}

func NewPages(svc sessionService, tmpl *template.Template, log *zap.Logger, cfg PagesConfig) *Pages {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.CSRFToken == nil {
		cfg.CSRFToken = func(*http.Request) string { return "" }
	}
	return &Pages{svc: svc, tmpl: tmpl, log: log, csrfToken: cfg.CSRFToken, secureCookie: cfg.SecureCookie}
}

// TemplateFuncs returns the helpers the page templates use. Relative passage
// images resolve against assetBase.
func TemplateFuncs(assetBase string) template.FuncMap {
	return template.FuncMap{
		"assetURL": func(src string) string { return AssetURL(assetBase, src) },
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
		"percent":  func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) + "%" },
	}
}

func AssetURL(base, src string) string {
	if base == "" {
		return src
	}
	u, err := url.Parse(src)
	if err != nil || u.IsAbs() || strings.HasPrefix(src, "/") {
		return src
	}
	b, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return src
	}
	return b.ResolveReference(u).String()
}

func (p *Pages) Index(w http.ResponseWriter, r *http.Request) {
	var view View
	id := p.sessionID(r)
	if id != "" {
		v, err := p.svc.View(r.Context(), id)
		switch {
		case err == nil:
			view = v
		case errors.Is(err, ErrSessionNotFound):
			id = ""
		default:
			p.fail(w, r, err)
			return
		}
	}
	if id == "" {
		created, err := p.svc.Create(r.Context())
		if err != nil {
			p.fail(w, r, err)
			return
		}
		p.setSessionCookie(w, created.SessionID)
		view = created.View
	}

	data := pageData{Title: "Quiz", View: view, CSRFToken: p.csrfToken(r)}
	if view.Quiz != nil {
		data.Title = view.Quiz.ExamTitle
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.tmpl.ExecuteTemplate(w, "base", data); err != nil {
		p.log.Error("render page", zap.Error(err))
	}
}

func (p *Pages) SelectExam(w http.ResponseWriter, r *http.Request) {
	entry, err := strconv.Atoi(strings.TrimSpace(r.FormValue("entry")))
	if err != nil {
		http.Error(w, "invalid entry", http.StatusBadRequest)
		return
	}
	p.act(w, r, func(id string) error {
		_, err := p.svc.SelectExam(r.Context(), id, entry)
		return err
	})
}

func (p *Pages) Answer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if raw, ok := r.PostForm["option"]; ok && len(raw) > 0 {
		button, err := strconv.Atoi(strings.TrimSpace(raw[0]))
		if err != nil {
			http.Error(w, "invalid option", http.StatusBadRequest)
			return
		}
		p.act(w, r, func(id string) error {
			_, err := p.svc.SubmitChoice(r.Context(), id, button)
			return err
		})
		return
	}
	text := r.PostFormValue("text")
	p.act(w, r, func(id string) error {
		_, err := p.svc.SubmitText(r.Context(), id, text)
		return err
	})
}

func (p *Pages) Next(w http.ResponseWriter, r *http.Request) {
	p.act(w, r, func(id string) error {
		_, err := p.svc.Next(r.Context(), id)
		return err
	})
}

// act runs fn for the caller's session and redirects to the index. A missing
// session or an out-of-order form post just shows the current page again.
func (p *Pages) act(w http.ResponseWriter, r *http.Request, fn func(id string) error) {
	id := p.sessionID(r)
	if id != "" {
		err := fn(id)
		switch {
		case err == nil, errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConcurrentUpdate):
		case errors.Is(err, ErrEntryOutOfRange), errors.Is(err, ErrOptionOutOfRange):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		default:
			p.fail(w, r, err)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (p *Pages) sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func (p *Pages) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p *Pages) fail(w http.ResponseWriter, r *http.Request, err error) {
	p.log.Error("page request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
