package apitest

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// BaseURL is the base URL clients should use with Transport.
const BaseURL = "http://agora.test/api"

type fiberTransport struct {
	app *fiber.App
}

// RoundTrip hands the request to the fiber app in-process.
func (t fiberTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req.Clone(req.Context()), -1)
}

// Transport routes requests to the fake API without opening a socket.
func (s *Server) Transport() http.RoundTripper {
	return fiberTransport{app: s.app}
}

// HTTPClient returns an http.Client wired to Transport.
func (s *Server) HTTPClient() *http.Client {
	return &http.Client{Transport: s.Transport()}
}
