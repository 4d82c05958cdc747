// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"bytes"
	"io"
	"net/http"
)

// RoundTripperFunc lets a test stand in for an HTTP transport.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Response builds an in-memory HTTP response for the given request.
func Response(status int, body string, req *http.Request) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
		Request:    req,
	}
}

// ClientForResponse returns a client that answers every request with
// the same canned response.
func ClientForResponse(status int, body string) *http.Client {
	return &http.Client{Transport: RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return Response(status, body, r), nil
	})}
}
