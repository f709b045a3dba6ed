package serve

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/aggregate"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

// FailuresHeader lists "provider:kind" pairs for providers missing from an array response.
const FailuresHeader = "X-Provider-Failures"

type handler struct {
	agg    *aggregate.Aggregator
	engine Versioner
}

type billingResponse struct {
	TotalCost decimal.Decimal           `json:"total_cost"`
	Currency  string                    `json:"currency"`
	Services  []inventory.Row           `json:"services"`
	Failures  []*inventory.QueryFailure `json:"failures"`
}

func (h *handler) engineHealth(c echo.Context) error {
	v, err := h.engine.Version(c.Request().Context())
	if err != nil {
		slog.Warn("serve.engine.unhealthy", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "version": v})
}

func (h *handler) inventory(c echo.Context) error {
	d, err := inventory.ParseDomain(c.Param("domain"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	providers, err := inventory.ParseScope(c.Param("provider"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	res, err := h.agg.Aggregate(c.Request().Context(), d, providers)
	if err != nil {
		if errors.Is(err, inventory.ErrUnknownDomain) || errors.Is(err, inventory.ErrUnknownProvider) {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
		}
		return err
	}

	if len(providers) == 1 && len(res.Failures) == 1 {
		f := res.Failures[0]
		return c.JSON(http.StatusBadGateway, map[string]any{
			"error":    f.Message,
			"provider": f.Provider,
			"kind":     f.Kind,
		})
	}

	if detail, _ := strconv.ParseBool(c.QueryParam("detail")); detail {
		return c.JSON(http.StatusOK, res)
	}

	if d == inventory.Billing {
		body := billingResponse{
			TotalCost: decimal.Zero,
			Services:  res.Rows,
			Failures:  res.Failures,
		}
		if res.Totals != nil {
			if res.Totals.TotalCost != nil {
				body.TotalCost = *res.Totals.TotalCost
			}
			body.Currency = res.Totals.Currency
		}
		return c.JSON(http.StatusOK, body)
	}

	if len(res.Failures) > 0 {
		c.Response().Header().Set(FailuresHeader, failureHeader(res.Failures))
	}
	return c.JSON(http.StatusOK, res.Rows)
}

func failureHeader(failures []*inventory.QueryFailure) string {
	return strings.Join(lo.Map(failures, func(f *inventory.QueryFailure, _ int) string {
		return fmt.Sprintf("%s:%s", f.Provider, f.Kind)
	}), ",")
}
