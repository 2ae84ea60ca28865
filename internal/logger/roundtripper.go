package logger

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RoundTripper logs every outbound HTTP request made to an external
// collaborator (bot-challenge verifier, CRM webhook).
type RoundTripper struct {
	next http.RoundTripper
	log  *zap.Logger
}

func NewRoundTripper(log *zap.Logger) *RoundTripper {
	return &RoundTripper{next: http.DefaultTransport, log: log}
}

func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		rt.log.Warn("outbound request failed",
			zap.String("method", req.Method),
			zap.String("host", req.URL.Host),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	rt.log.Info("outbound request",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}
