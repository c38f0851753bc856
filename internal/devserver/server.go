// Package devserver serves generated modules to a browser or bundler during
// development. Values come from JSON documents in a directory; each
// <name>.json is exposed as /@modules/<name>.js.
package devserver

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"closuregen/internal/modules"
)

const routePrefix = "/@modules/"

var moduleName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

type Server struct {
	mgr *modules.Manager
	dir string

	mu     sync.Mutex
	stamps map[string]time.Time
}

func New(mgr *modules.Manager, dir string) *Server {
	return &Server{mgr: mgr, dir: dir, stamps: make(map[string]time.Time)}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+routePrefix+"{$}", s.handleList)
	mux.HandleFunc("GET "+routePrefix+"ws", s.handleEventsWS)
	mux.HandleFunc("GET "+routePrefix+"{file}", s.handleModule)
	return mux
}

type moduleInfo struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	URL  string `json:"url"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := struct {
		Modules []moduleInfo `json:"modules"`
	}{Modules: []moduleInfo{}}
	for _, e := range ents {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok || !moduleName.MatchString(name) {
			continue
		}
		out.Modules = append(out.Modules, moduleInfo{Name: name, ID: s.mgr.Prefix() + name, URL: routePrefix + name + ".js"})
	}
	sort.Slice(out.Modules, func(i, j int) bool { return out.Modules[i].Name < out.Modules[j].Name })
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".js")
	if !ok || !moduleName.MatchString(name) {
		http.Error(w, "invalid module name", http.StatusBadRequest)
		return
	}
	id, status, err := s.prepare(name)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	gen, err := s.mgr.Load(r.Context(), id)
	if err != nil {
		log.Printf("devserver: load %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(gen.Text))
}

// prepare (re)registers name when its document changed since the last
// request and returns the module id.
func (s *Server) prepare(name string) (string, int, error) {
	path := filepath.Join(s.dir, name+".json")
	id := s.mgr.Prefix() + name

	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", http.StatusNotFound, errors.New("module not found: " + name)
		}
		return "", http.StatusInternalServerError, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if stamp, ok := s.stamps[name]; ok && stamp.Equal(st.ModTime()) && s.mgr.Resolve(id) {
		return id, 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", http.StatusInternalServerError, err
	}
	v, err := s.mgr.Realm().FromJSON(data)
	if err != nil {
		return "", http.StatusUnprocessableEntity, err
	}
	s.mgr.Prepare(id, modules.Options{Default: v})
	s.stamps[name] = st.ModTime()
	return id, 0, nil
}
