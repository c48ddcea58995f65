package ewaybills

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adityamehra-dev/orderbook-backend/internal/ledger"
	"github.com/adityamehra-dev/orderbook-backend/pkg/config"
	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
	"github.com/adityamehra-dev/orderbook-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// blobStore is the slice of the object storage client the service uses.
type blobStore interface {
	Upload(ctx context.Context, key, contentType string, payload []byte) (string, error)
	Delete(ctx context.Context, key string) error
	ObjectURL(key string) string
}

// ProbeFunc checks that an uploaded object can actually be fetched back.
type ProbeFunc func(ctx context.Context, url string) error

// UploadInput carries one e-way bill file and its target.
type UploadInput struct {
	DeliveryID  *int64
	FileName    string
	ContentType string
	Data        []byte
}

// BillDTO is the attachment shape returned to clients.
type BillDTO struct {
	PublicID     string                 `json:"public_id"`
	OrderID      int64                  `json:"order_id"`
	DeliveryID   *int64                 `json:"delivery_id,omitempty"`
	URL          string                 `json:"url"`
	ResourceType enums.BillResourceType `json:"resource_type"`
	FileName     string                 `json:"file_name"`
	SizeBytes    int64                  `json:"size_bytes"`
	UploadedAt   time.Time              `json:"uploaded_at"`
}

// Service manages e-way bill attachments: blob first, ledger second.
type Service interface {
	Upload(ctx context.Context, org string, orderID int64, input UploadInput) (*BillDTO, error)
	Replace(ctx context.Context, org string, orderID int64, publicID string, input UploadInput) (*BillDTO, error)
	Get(ctx context.Context, org, publicID string) (*BillDTO, error)
	List(ctx context.Context, org string, orderID int64) ([]BillDTO, error)
	Delete(ctx context.Context, org string, orderID int64, publicID string) error
}

type service struct {
	repo     ledger.Repository
	tx       txRunner
	store    blobStore
	probe    ProbeFunc
	cfg      config.BillsConfig
	logg     *logger.Logger
	maxBytes int64
}

// NewService wires the attachment service. probe may be nil when the
// post-upload accessibility check is disabled in config.
func NewService(repo ledger.Repository, tx txRunner, store blobStore, probe ProbeFunc, cfg config.BillsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.AccessibilityCheck && probe == nil {
		return nil, fmt.Errorf("accessibility probe required when the check is enabled")
	}
	maxMB := cfg.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 25
	}
	return &service{
		repo:     repo,
		tx:       tx,
		store:    store,
		probe:    probe,
		cfg:      cfg,
		logg:     logg,
		maxBytes: int64(maxMB) * 1024 * 1024,
	}, nil
}

// resourceTypeFor derives the stored kind from the file extension.
func resourceTypeFor(fileName string) enums.BillResourceType {
	if strings.EqualFold(path.Ext(fileName), ".pdf") {
		return enums.BillResourceTypeRaw
	}
	return enums.BillResourceTypeImage
}

func contentTypeFor(fileName, declared string) string {
	if declared != "" {
		return declared
	}
	if byExt := mime.TypeByExtension(path.Ext(fileName)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

func (s *service) Upload(ctx context.Context, org string, orderID int64, input UploadInput) (*BillDTO, error) {
	if err := s.checkInput(input); err != nil {
		return nil, err
	}

	order, err := s.repo.FindOrder(ctx, org, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	var deliveryUID *uuid.UUID
	if input.DeliveryID != nil {
		delivery, err := s.repo.FindDeliveryByNumber(ctx, order.ID, *input.DeliveryID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
		}
		deliveryUID = &delivery.ID
	}

	blobID := uuid.New()
	key := fmt.Sprintf("ewaybill/%s/%d/%s", org, orderID, blobID)
	url, err := s.store.Upload(ctx, key, contentTypeFor(input.FileName, input.ContentType), input.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload e-way bill")
	}
	if err := s.verifyAccessible(ctx, url); err != nil {
		s.removeBlob(ctx, key)
		return nil, err
	}

	bill := &models.EwayBill{
		ID:           uuid.New(),
		OrderUID:     order.ID,
		DeliveryUID:  deliveryUID,
		Org:          org,
		OrderID:      orderID,
		PublicID:     fmt.Sprintf("ewaybill_%s_%d_%s", org, orderID, blobID),
		ObjectKey:    key,
		URL:          url,
		ResourceType: resourceTypeFor(input.FileName),
		FileName:     input.FileName,
		SizeBytes:    int64(len(input.Data)),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreateEwayBill(ctx, bill); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record e-way bill")
		}
		return nil
	})
	if err != nil {
		s.removeBlob(ctx, key)
		return nil, err
	}
	return toBillDTO(bill, input.DeliveryID), nil
}

// Replace swaps an order's attachment: the old blob is destroyed first,
// then the new file goes through the regular upload path.
func (s *service) Replace(ctx context.Context, org string, orderID int64, publicID string, input UploadInput) (*BillDTO, error) {
	if err := s.checkInput(input); err != nil {
		return nil, err
	}

	existing, err := s.findOrderBill(ctx, org, orderID, publicID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteEwayBill(ctx, existing.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove e-way bill record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.removeBlob(ctx, existing.ObjectKey)

	replacement := input
	if replacement.DeliveryID == nil && existing.DeliveryUID != nil {
		if delivery, err := s.repo.FindDelivery(ctx, *existing.DeliveryUID); err == nil {
			replacement.DeliveryID = &delivery.DeliveryID
		}
	}
	return s.Upload(ctx, org, orderID, replacement)
}

func (s *service) Get(ctx context.Context, org, publicID string) (*BillDTO, error) {
	bill, err := s.repo.FindEwayBillByPublicID(ctx, org, publicID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "e-way bill not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load e-way bill")
	}
	return toBillDTO(bill, s.deliveryNumber(ctx, bill)), nil
}

func (s *service) List(ctx context.Context, org string, orderID int64) ([]BillDTO, error) {
	order, err := s.repo.FindOrder(ctx, org, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	bills, err := s.repo.ListEwayBills(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list e-way bills")
	}

	deliveryNumbers := make(map[uuid.UUID]int64, len(order.Deliveries))
	for _, d := range order.Deliveries {
		deliveryNumbers[d.ID] = d.DeliveryID
	}
	out := make([]BillDTO, 0, len(bills))
	for i := range bills {
		var num *int64
		if bills[i].DeliveryUID != nil {
			if n, ok := deliveryNumbers[*bills[i].DeliveryUID]; ok {
				num = &n
			}
		}
		out = append(out, *toBillDTO(&bills[i], num))
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, org string, orderID int64, publicID string) error {
	bill, err := s.findOrderBill(ctx, org, orderID, publicID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteEwayBill(ctx, bill.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove e-way bill record")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.removeBlob(ctx, bill.ObjectKey)
	return nil
}

func (s *service) checkInput(input UploadInput) error {
	if strings.TrimSpace(input.FileName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if len(input.Data) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if int64(len(input.Data)) > s.maxBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d byte limit", s.maxBytes))
	}
	return nil
}

func (s *service) findOrderBill(ctx context.Context, org string, orderID int64, publicID string) (*models.EwayBill, error) {
	bill, err := s.repo.FindEwayBillByPublicID(ctx, org, publicID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "e-way bill not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load e-way bill")
	}
	if bill.OrderID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "e-way bill not found")
	}
	return bill, nil
}

// verifyAccessible confirms the object can be fetched back before the
// ledger references it.
func (s *service) verifyAccessible(ctx context.Context, url string) error {
	if !s.cfg.AccessibilityCheck || s.probe == nil {
		return nil
	}
	timeout := s.cfg.AccessibilityTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.probe(probeCtx, url); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "uploaded e-way bill is not retrievable")
	}
	return nil
}

func (s *service) removeBlob(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "object_key", key), "delete e-way bill blob", err)
	}
}

func (s *service) deliveryNumber(ctx context.Context, bill *models.EwayBill) *int64 {
	if bill.DeliveryUID == nil {
		return nil
	}
	delivery, err := s.repo.FindDelivery(ctx, *bill.DeliveryUID)
	if err != nil {
		return nil
	}
	return &delivery.DeliveryID
}

func toBillDTO(bill *models.EwayBill, deliveryID *int64) *BillDTO {
	return &BillDTO{
		PublicID:     bill.PublicID,
		OrderID:      bill.OrderID,
		DeliveryID:   deliveryID,
		URL:          bill.URL,
		ResourceType: bill.ResourceType,
		FileName:     bill.FileName,
		SizeBytes:    bill.SizeBytes,
		UploadedAt:   bill.CreatedAt,
	}
}
