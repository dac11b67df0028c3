package server

import (
	"io"
	"log"
	"net/http"
	"os"
	"runtime"

	"github.com/go-chi/chi/v5/middleware"
)

// credentialParams are query parameters whose values never reach the
// request log. Browsers cannot set headers on websocket upgrades, so the
// studio passes its bearer token as ?token=.
var credentialParams = []string{"token"}

// redactingFormatter wraps chi's default formatter and masks credential
// query parameters before the request line is written.
type redactingFormatter struct {
	inner middleware.LogFormatter
}

func newRequestLogger(out io.Writer) func(http.Handler) http.Handler {
	color := runtime.GOOS != "windows"
	if out == nil {
		out = os.Stdout
	} else {
		color = false
	}
	return middleware.RequestLogger(&redactingFormatter{
		inner: &middleware.DefaultLogFormatter{Logger: log.New(out, "", log.LstdFlags), NoColor: !color},
	})
}

func (f *redactingFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return f.inner.NewLogEntry(redactRequest(r))
}

// redactRequest returns r unchanged when it carries no credentials, and
// otherwise a shallow copy whose URL and RequestURI have them masked.
func redactRequest(r *http.Request) *http.Request {
	q := r.URL.Query()
	found := false
	for _, p := range credentialParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
			found = true
		}
	}
	if !found {
		return r
	}
	u := *r.URL
	u.RawQuery = q.Encode()
	clone := new(http.Request)
	*clone = *r
	clone.URL = &u
	clone.RequestURI = u.RequestURI()
	return clone
}
