package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/Echohint/dev-prop-firm/internal/config"
	"github.com/Echohint/dev-prop-firm/internal/logger"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const _priceURL = "/price"

type priceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// HTTPSource pulls current prices from an external quote service.
type HTTPSource struct {
	c   *resty.Client
	cfg config.QuotesConfig

	rateLimiter ratelimit.Limiter

	logger logger.Logger
}

func NewHTTPSource(cfg config.QuotesConfig, logger logger.Logger) *HTTPSource {
	client := resty.New().
		SetLogger(logger).
		SetBaseURL(cfg.Address)

	return &HTTPSource{
		c:           client,
		cfg:         cfg,
		rateLimiter: ratelimit.New(cfg.RequestsPerMin, ratelimit.Per(1*time.Minute)),
		logger:      logger,
	}
}

func (s *HTTPSource) Price(ctx context.Context, symbol string) (float64, error) {
	if symbol == "" {
		return 0, fmt.Errorf("%w: empty symbol", ErrNoQuote)
	}

	s.rateLimiter.Take()

	req := s.c.R().
		SetQueryParam("symbol", symbol).
		SetResult(&priceResponse{}).
		SetError(&errorResponse{}).
		SetContext(ctx)

	resp, err := req.Get(_priceURL)
	if err != nil {
		return 0, fmt.Errorf("%w: can't send request for quote", err)
	}
	defer resp.Body.Close()

	s.logger.Debugf("got quote response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if resp.IsError() {
		response := resp.Error().(*errorResponse)
		return 0, fmt.Errorf("%w: %s", ErrNoQuote, response.Message)
	}
	if resp.IsSuccess() {
		out := resp.Result().(*priceResponse)
		if out.Price <= 0 {
			return 0, fmt.Errorf("%w: non-positive price for %s", ErrNoQuote, symbol)
		}
		return out.Price, nil
	}

	return 0, fmt.Errorf("quote request unexpected error: %s", resp.Status())
}
