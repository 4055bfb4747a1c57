package server

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	AllowOriginHeader       = "Access-Control-Allow-Origin"
	AllowHeadersHeader      = "Access-Control-Allow-Headers"
	AllowMethodsHeader      = "Access-Control-Allow-Methods"
	AllControlRequestHeader = "Access-Control-Request-Method"
	AllowCredentialsHeader  = "Access-Control-Allow-Credentials"
	MaxAgeHeader            = "Access-Control-Max-Age"
	Separator               = ", "

	defaultAllowHeaders = "Content-Type, Mcp-Session-Id, Last-Event-ID"
)

// Cors defines the cross origin policy of the HTTP endpoints.
type Cors struct {
	AllowCredentials *bool    `yaml:"AllowCredentials,omitempty"`
	AllowHeaders     []string `yaml:"AllowHeaders,omitempty"`
	AllowOrigins     []string `yaml:"AllowOrigins,omitempty"`
	MaxAge           *int64   `yaml:"MaxAge,omitempty"`
}

// Allows reports whether origin may access the server.
func (c *Cors) Allows(origin string) bool {
	for _, candidate := range c.AllowOrigins {
		if candidate == "*" || candidate == origin {
			return true
		}
	}
	return false
}

type corsHandler struct {
	*Cors
}

func (h *corsHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Cors.setHeaders(w, r)
		if r.Method == http.MethodOptions && r.Header.Get(AllControlRequestHeader) != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Cors) setHeaders(writer http.ResponseWriter, request *http.Request) {
	if c == nil {
		return
	}
	origin := request.Header.Get("Origin")
	switch {
	case origin == "" && c.Allows("*"):
		writer.Header().Set(AllowOriginHeader, "*")
	case origin != "" && c.Allows(origin):
		writer.Header().Set(AllowOriginHeader, origin)
		writer.Header().Add("Vary", "Origin")
	}
	if requestMethod := request.Header.Get(AllControlRequestHeader); requestMethod != "" {
		writer.Header().Set(AllowMethodsHeader, requestMethod)
	}
	allowedHeaders := strings.Join(c.AllowHeaders, Separator)
	if allowedHeaders == "" || allowedHeaders == "*" {
		allowedHeaders = defaultAllowHeaders
	}
	writer.Header().Set(AllowHeadersHeader, allowedHeaders)
	if c.AllowCredentials != nil {
		writer.Header().Set(AllowCredentialsHeader, strconv.FormatBool(*c.AllowCredentials))
	}
	if c.MaxAge != nil {
		writer.Header().Set(MaxAgeHeader, strconv.FormatInt(*c.MaxAge, 10))
	}
}

// LocalCors allows only the loopback UI origins for the given port.
func LocalCors(port string) *Cors {
	return &Cors{
		AllowOrigins: []string{
			"http://localhost:" + port,
			"http://127.0.0.1:" + port,
		},
	}
}
