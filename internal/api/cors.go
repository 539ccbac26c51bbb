package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig lists what browsers on other origins may do with the API.
type CORSConfig struct {
	AllowOrigins []string // "*" allows any origin
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
}

// DefaultCORSConfig lets any origin read state and post commands.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization", "Accept", "Origin", "Last-Event-ID", "X-Control-Source"},
		MaxAge:       24 * time.Hour,
	}
}

// ParseOrigins splits the api.cors_origin setting on commas and spaces.
func ParseOrigins(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

type cors struct {
	any     bool
	origins []string
	methods string
	headers string
	maxAge  string
}

func newCORS(cfg CORSConfig) *cors {
	return &cors{
		any:     slices.Contains(cfg.AllowOrigins, "*"),
		origins: cfg.AllowOrigins,
		methods: strings.Join(cfg.AllowMethods, ", "),
		headers: strings.Join(cfg.AllowHeaders, ", "),
		maxAge:  strconv.Itoa(int(cfg.MaxAge.Seconds())),
	}
}

// allow returns the Access-Control-Allow-Origin value for a request from
// origin, or "" when the origin is not listed.
func (c *cors) allow(origin string) string {
	switch {
	case c.any:
		return "*"
	case origin != "" && slices.Contains(c.origins, origin):
		return origin
	}
	return ""
}

func (c *cors) apply(set func(key, value string), origin string) {
	if !c.any {
		set("Vary", "Origin")
	}
	allowed := c.allow(origin)
	if allowed == "" {
		return
	}
	set("Access-Control-Allow-Origin", allowed)
	set("Access-Control-Allow-Methods", c.methods)
	set("Access-Control-Allow-Headers", c.headers)
	set("Access-Control-Max-Age", c.maxAge)
}

// middleware adds the headers to every huma response.
func (c *cors) middleware(ctx huma.Context, next func(huma.Context)) {
	c.apply(ctx.SetHeader, ctx.Header("Origin"))
	if ctx.Method() == http.MethodOptions {
		ctx.SetStatus(http.StatusNoContent)
		return
	}
	next(ctx)
}

// preflight answers OPTIONS on the mux, since huma routes never see them.
func (c *cors) preflight(w http.ResponseWriter, r *http.Request) {
	c.apply(w.Header().Set, r.Header.Get("Origin"))
	w.WriteHeader(http.StatusNoContent)
}
