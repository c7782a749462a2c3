package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "80"
	}

	client := &http.Client{
		Timeout: 5 * time.Second,
		// The front server redirects every plain-HTTP request to HTTPS;
		// any well-formed response means the stack is up.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/", port))
	if err != nil || resp.StatusCode >= 500 {
		os.Exit(1) // Docker marks as UNHEALTHY
	}
	resp.Body.Close()
	os.Exit(0) // Docker marks as HEALTHY
}
