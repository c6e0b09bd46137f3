package logic

import (
	"errors"
	"net/http"

	"cointrack/pkg/market"
)

const (
	msgMarketsFailed       = "Failed to fetch markets from upstream"
	msgGlobalFailed        = "Failed to fetch global stats"
	msgCoinFailed          = "Failed to fetch coin data"
	msgMissingCoinID       = "Missing coin id"
	msgInvalidDays         = "Invalid days"
	msgUnsupportedCurrency = "Unsupported currency"
)

// ProxyError is a failure reported to API callers as {"message": Message}.
type ProxyError struct {
	Status  int
	Message string
}

func (e *ProxyError) Error() string {
	return e.Message
}

func badRequest(message string) *ProxyError {
	return &ProxyError{Status: http.StatusBadRequest, Message: message}
}

// upstreamFailure keeps the upstream status for HTTP failures and reports
// transport or decode failures as 502.
func upstreamFailure(err error, message string) *ProxyError {
	status := http.StatusBadGateway
	var ue *market.UpstreamError
	if errors.As(err, &ue) && ue.Status >= http.StatusBadRequest {
		status = ue.Status
	}
	return &ProxyError{Status: status, Message: message}
}
