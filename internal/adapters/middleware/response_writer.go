package middleware

import (
	"bufio"
	"net"
	"net/http"
)

// RecordingResponseWriter captures the status code and body size written by a handler.
type RecordingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func NewRecordingResponseWriter(w http.ResponseWriter) *RecordingResponseWriter {
	return &RecordingResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (r *RecordingResponseWriter) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}

	r.statusCode = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *RecordingResponseWriter) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}

	n, err := r.ResponseWriter.Write(b)
	r.bytesWritten += int64(n)

	return n, err
}

func (r *RecordingResponseWriter) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *RecordingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := r.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}

	return nil, nil, http.ErrNotSupported
}

func (r *RecordingResponseWriter) StatusCode() int {
	return r.statusCode
}

func (r *RecordingResponseWriter) BytesWritten() int64 {
	return r.bytesWritten
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *RecordingResponseWriter) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
