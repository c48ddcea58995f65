package orders

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/adityamehra-dev/orderbook-backend/api/responses"
	"github.com/adityamehra-dev/orderbook-backend/internal/ewaybills"
	"github.com/adityamehra-dev/orderbook-backend/pkg/config"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
	"github.com/adityamehra-dev/orderbook-backend/pkg/logger"
)

func parseBillID(r *http.Request) (string, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "billId"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "bill id is required")
	}
	return raw, nil
}

func readBillUpload(r *http.Request, cfg config.BillsConfig) (ewaybills.UploadInput, error) {
	var input ewaybills.UploadInput

	maxBytes := int64(cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes+1)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart payload")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "file field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}

	input.FileName = header.Filename
	input.ContentType = header.Header.Get("Content-Type")
	input.Data = data

	if raw := strings.TrimSpace(r.FormValue("delivery_id")); raw != "" {
		deliveryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || deliveryID <= 0 {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery_id")
		}
		input.DeliveryID = &deliveryID
	}

	return input, nil
}

// UploadBill attaches a transport document to an order or one of its deliveries.
func UploadBill(svc ewaybills.Service, cfg config.BillsConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attachment service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := readBillUpload(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.Upload(r.Context(), org, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, bill)
	}
}

// ReplaceBill swaps the stored blob behind an attachment in place.
func ReplaceBill(svc ewaybills.Service, cfg config.BillsConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attachment service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		billID, err := parseBillID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := readBillUpload(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.Replace(r.Context(), org, orderID, billID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, bill)
	}
}

// ListBills returns the attachments recorded against one order.
func ListBills(svc ewaybills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attachment service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bills, err := svc.List(r.Context(), org, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, bills)
	}
}

// DownloadBill redirects the caller to the blob behind an attachment.
func DownloadBill(svc ewaybills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attachment service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		billID, err := parseBillID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.Get(r.Context(), org, billID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.Redirect(w, r, bill.URL, http.StatusFound)
	}
}

// DeleteBill removes an attachment and its stored blob.
func DeleteBill(svc ewaybills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attachment service unavailable"))
			return
		}

		org, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		billID, err := parseBillID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), org, orderID, billID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
