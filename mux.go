package authcore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
)

// MaxBodyBytes bounds request bodies read by FromHTTPRequest.
const MaxBodyBytes = 1 << 20

// SessionUserKey is the server-session key the signed-in user id is
// mirrored under when Config.ServerSession is set.
const SessionUserKey = "loggedInUserId"

// FromHTTPRequest converts r. Form and JSON bodies are both accepted; JSON
// scalars are stringified and nested values kept as JSON text.
func FromHTTPRequest(r *http.Request, basePath string) (*Request, error) {
	body := url.Values{}
	if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
		r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "application/json" {
			var raw map[string]any
			if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("invalid json body: %w", err)
			}
			for k, v := range raw {
				body.Set(k, stringify(v))
			}
		} else {
			if err := r.ParseForm(); err != nil {
				return nil, fmt.Errorf("invalid form body: %w", err)
			}
			body = r.PostForm
		}
	}
	req, err := NewRequest(r.Method, r.URL.RequestURI(), basePath, r.Header, body)
	if err != nil {
		return nil, err
	}
	if r.Host != "" {
		req.URL.Host = r.Host
	}
	return req, nil
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool, float64:
		return fmt.Sprint(v)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// WriteResponse writes resp onto w. The returned error comes from encoding
// the body, after the status line has been sent.
func WriteResponse(w http.ResponseWriter, resp *Response) error {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	for _, c := range resp.Cookies {
		http.SetCookie(w, c)
	}
	w.Header().Set("Cache-Control", "no-store")
	if resp.Redirect != "" {
		w.Header().Set("Location", resp.Redirect)
		w.WriteHeader(resp.Status)
		return nil
	}
	if resp.Body == nil {
		w.WriteHeader(resp.Status)
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	return json.NewEncoder(w).Encode(resp.Body)
}

// Handler serves every action under the base path. When a ServerSession is
// configured the handler loads it and mirrors sign-ins and sign-outs into it.
func (a *Auth) Handler() http.Handler {
	router := mux.NewRouter()
	sub := router.PathPrefix(a.cfg.BasePath).Subrouter()
	sub.HandleFunc("/{action}", a.serveHTTP)
	sub.HandleFunc("/{action}/{provider}", a.serveHTTP)

	if a.cfg.ServerSession != nil {
		return a.cfg.ServerSession.LoadAndSave(router)
	}
	return router
}

func (a *Auth) serveHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := FromHTTPRequest(r, a.cfg.BasePath)
	if err != nil {
		a.logger.Debug("bad request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	vars := mux.Vars(r)
	req.Action = Action(vars["action"])
	req.ProviderID = vars["provider"]

	resp := a.Handle(r.Context(), req)
	if sm := a.cfg.ServerSession; sm != nil {
		ctx := r.Context()
		switch {
		case resp.signedInUser != "":
			if err := sm.RenewToken(ctx); err != nil {
				a.logger.Warn("renewing server session failed", "error", err)
			}
			sm.Put(ctx, SessionUserKey, resp.signedInUser)
		case resp.signedOut:
			if err := sm.Destroy(ctx); err != nil {
				a.logger.Warn("destroying server session failed", "error", err)
			}
		}
	}
	if err := WriteResponse(w, resp); err != nil {
		a.logger.ErrorContext(r.Context(), "writing response failed", "action", req.Action, "error", err)
	}
}
