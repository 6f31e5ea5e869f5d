package httpcache

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
)

// responseRecorder tees the handler's response so the body can be stored
// after it has been sent to the client.
type responseRecorder struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
	prev   http.ResponseWriter
}

func newResponseRecorder(c echo.Context) *responseRecorder {
	r := &responseRecorder{
		ResponseWriter: c.Response().Writer,
		status:         http.StatusOK,
		prev:           c.Response().Writer,
	}
	c.Response().Writer = r
	return r
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}

func (r *responseRecorder) restore(c echo.Context) {
	c.Response().Writer = r.prev
}
