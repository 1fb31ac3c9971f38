package httpcache

import (
	"bytes"
	"net/http"
)

// bufferedWriter holds a response until the middleware has decided what to
// do with it. Headers live in the underlying writer's map, which is safe
// because nothing reaches the client before flush.
type bufferedWriter struct {
	w           http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newBufferedWriter(w http.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{w: w, status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header {
	return b.w.Header()
}

func (b *bufferedWriter) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

// flush sends the buffered status and body.
func (b *bufferedWriter) flush() {
	b.w.WriteHeader(b.status)
	if b.body.Len() > 0 {
		_, _ = b.w.Write(b.body.Bytes())
	}
}
