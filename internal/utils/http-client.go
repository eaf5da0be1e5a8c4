package utils

import (
	"net"
	"net/http"
	"time"
)

const DefaultTimeout = 100 * time.Second

type HTTPClientConfig struct {
	Timeout   time.Duration
	KATimeout time.Duration
	UserAgent string
}

type DownloaderHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

// NewHTTPClient builds a client whose timeouts cover connecting and waiting
// for response headers. The body is not bounded by http.Client.Timeout so
// long downloads survive; callers pair it with WatchIdle for stalled reads.
func NewHTTPClient(cfg HTTPClientConfig) *DownloaderHTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 90 * time.Second
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		IdleConnTimeout:       cfg.KATimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		DisableCompression:    true,
	}
	return &DownloaderHTTPClient{
		client: &http.Client{Transport: transport},
		config: cfg,
	}
}

func (d *DownloaderHTTPClient) Timeout() time.Duration {
	return d.config.Timeout
}

func (d *DownloaderHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if d.config.UserAgent != "" {
		req.Header.Set("User-Agent", d.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", ToolUserAgent)
	}
	return d.client.Do(req)
}
