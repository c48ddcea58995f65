package reports

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/adityamehra-dev/orderbook-backend/api/middleware"
	"github.com/adityamehra-dev/orderbook-backend/api/responses"
	"github.com/adityamehra-dev/orderbook-backend/api/validators"
	"github.com/adityamehra-dev/orderbook-backend/internal/ledger"
	internalreports "github.com/adityamehra-dev/orderbook-backend/internal/reports"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
	"github.com/adityamehra-dev/orderbook-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func orgFromRequest(r *http.Request) (string, error) {
	org := middleware.OrgFromContext(r.Context())
	if org == "" {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "tenant missing")
	}
	return org, nil
}

func buildFilters(r *http.Request) (ledger.OrderFilters, error) {
	var filters ledger.OrderFilters

	status, err := validators.ParseQueryOrderStatus(r, "status")
	if err != nil {
		return filters, err
	}
	filters.Status = status

	filters.CustomerName = validators.SanitizeString(r.URL.Query().Get("customer"))
	filters.ProductName = validators.SanitizeString(r.URL.Query().Get("product"))

	from, err := validators.ParseQueryDate(r, "from")
	if err != nil {
		return filters, err
	}
	filters.From = from

	to, err := validators.ParseQueryDate(r, "to")
	if err != nil {
		return filters, err
	}
	filters.To = to

	return filters, nil
}

func writeWorkbook(w http.ResponseWriter, file *excelize.File, name string) error {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	return file.Write(w)
}

// Summary returns all-time and current-month aggregates with MoM growth.
func Summary(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), org)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// MonthlyRevenue returns the chronological revenue series.
func MonthlyRevenue(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		series, err := svc.MonthlyRevenue(r.Context(), org)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, series)
	}
}

// RFM scores customers on recency, frequency and monetary value.
func RFM(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.RFM(r.Context(), org)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

// Forecast projects daily revenue over a 7 or 14 day horizon.
func Forecast(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		days, err := validators.ParseQueryInt(r, "days", 7, 1, 365)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		forecast, err := svc.SalesForecast(r.Context(), org, days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, forecast)
	}
}

// OrderSizes returns the order quantity distribution and top customers.
func OrderSizes(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sizes, err := svc.OrderSizes(r.Context(), org)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sizes)
	}
}

// ExportOrders streams the filtered ledger as an xlsx workbook.
func ExportOrders(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := buildFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, err := svc.ExportOrders(r.Context(), org, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		name := fmt.Sprintf("orders_%s.xlsx", time.Now().UTC().Format("20060102"))
		if err := writeWorkbook(w, file, name); err != nil && logg != nil {
			logg.Error(r.Context(), "reports.export_orders.write", err)
		}
	}
}

// ExportRevenue streams the monthly revenue series as an xlsx workbook.
func ExportRevenue(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, err := svc.ExportRevenue(r.Context(), org)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		name := fmt.Sprintf("revenue_%s.xlsx", time.Now().UTC().Format("20060102"))
		if err := writeWorkbook(w, file, name); err != nil && logg != nil {
			logg.Error(r.Context(), "reports.export_revenue.write", err)
		}
	}
}
