// Package cmsmock is an in-memory stand-in for the CMS API. It accepts every
// edit call, serves seeded list rows and records what it was sent.
package cmsmock

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tidwall/gjson"

	"cmskit/domain/cms"
)

// Call is one request the mock received
type Call struct {
	Method   string
	Path     string
	RawQuery string
	Query    url.Values
	Body     []byte
	Header   http.Header
}

// JSON looks up a field of a JSON body
func (c Call) JSON(path string) gjson.Result {
	return gjson.GetBytes(c.Body, path)
}

// Param returns a parameter from the query string or the JSON body
func (c Call) Param(key string) string {
	if c.Method == http.MethodGet {
		return c.Query.Get(key)
	}
	return c.JSON(key).String()
}

// Reply is a canned response
type Reply struct {
	Status int
	Body   string
}

// Responder may override the reply for a call; returning nil keeps the default
type Responder func(Call) *Reply

// Server is the mock CMS
type Server struct {
	mu        sync.Mutex
	router    chi.Router
	calls     []Call
	rows      map[string][]string
	totals    map[string]int64
	responder Responder
	cookie    string
}

// New creates a mock with no seeded rows. verbose enables request logging.
func New(verbose bool) *Server {
	s := &Server{
		rows:   make(map[string][]string),
		totals: make(map[string]int64),
	}

	r := chi.NewRouter()
	if verbose {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/*", s.handleEdit)
	r.Post("/api/*", s.handleEdit)
	r.Post("/zinject/*", s.handleList)
	r.Post("/query/*", s.handleList)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RequireCookie makes every call without exactly this Cookie header fail
func (s *Server) RequireCookie(cookie string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookie = cookie
}

// Respond installs a reply override
func (s *Server) Respond(fn Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responder = fn
}

// Seed sets the rows served for a list path. Each row is a JSON object.
// total defaults to the number of rows when zero.
func (s *Server) Seed(path string, total int64, rows ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[path] = rows
	if total == 0 {
		total = int64(len(rows))
	}
	s.totals[path] = total
}

// Calls returns a copy of every recorded call in arrival order
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the recorded calls for one path
func (s *Server) CallsTo(path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) record(r *http.Request) (Call, *Reply) {
	body, _ := io.ReadAll(r.Body)
	call := Call{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Query:    r.URL.Query(),
		Body:     body,
		Header:   r.Header.Clone(),
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	responder, cookie := s.responder, s.cookie
	s.mu.Unlock()

	if cookie != "" && r.Header.Get("Cookie") != cookie {
		return call, &Reply{Status: http.StatusOK, Body: `{"code":"B000401","msg":"not logged in"}`}
	}
	if responder != nil {
		if reply := responder(call); reply != nil {
			return call, reply
		}
	}
	return call, nil
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	_, reply := s.record(r)
	if reply == nil {
		reply = &Reply{Status: http.StatusOK, Body: fmt.Sprintf(`{"code":%q,"msg":"success"}`, cms.SuccessCode)}
	}
	write(w, reply)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	call, reply := s.record(r)
	if reply != nil {
		write(w, reply)
		return
	}

	s.mu.Lock()
	rows := s.rows[call.Path]
	total := s.totals[call.Path]
	s.mu.Unlock()

	if cids := call.JSON("cid_list"); cids.IsArray() && len(cids.Array()) > 0 {
		wanted := make(map[string]bool)
		for _, c := range cids.Array() {
			wanted[c.String()] = true
		}
		var filtered []string
		for _, row := range rows {
			if wanted[gjson.Get(row, "cid").String()] {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
		total = int64(len(filtered))
	}
	if limit := call.JSON("limit"); limit.Exists() && limit.Int() >= 0 && int64(len(rows)) > limit.Int() {
		rows = rows[:limit.Int()]
	}

	var b strings.Builder
	b.WriteString(`{"code":"` + cms.SuccessCode + `","msg":"success","total":`)
	b.WriteString(strconv.FormatInt(total, 10))
	b.WriteString(`,"rows":[`)
	b.WriteString(strings.Join(rows, ","))
	b.WriteString("]}")
	write(w, &Reply{Status: http.StatusOK, Body: b.String()})
}

func write(w http.ResponseWriter, reply *Reply) {
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply.Body)
}
