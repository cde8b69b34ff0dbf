package main

import (
	"net/http"
	"time"
)

const externalHTTPTimeout = 45 * time.Second

// Shared client for documentation fetching and the hand-rolled OpenAI
// calls; the Anthropic SDK manages its own transport.
var externalHTTPClient = &http.Client{
	Timeout: externalHTTPTimeout,
}
