package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"payhere_donations/internal/models"
	"payhere_donations/internal/payhere"
)

const (
	notificationLockTTL = 24 * time.Hour
	donationPageSize    = 20
)

// ReceiptScheduler enqueues the donor receipt once a donation is paid.
// It runs inside the transaction that marks the donation paid.
type ReceiptScheduler interface {
	ScheduleReceipt(tx *gorm.DB, donationID uint) error
}

type DonationService struct {
	db        *gorm.DB
	cache     *RedisCache
	payhere   *PayHereService
	receipts  ReceiptScheduler
	statusTTL time.Duration
}

// NewDonationService wires the donation flow. cache and receipts may be nil.
func NewDonationService(db *gorm.DB, cache *RedisCache, payhereClient *PayHereService, receipts ReceiptScheduler, statusTTL time.Duration) *DonationService {
	return &DonationService{
		db:        db,
		cache:     cache,
		payhere:   payhereClient,
		receipts:  receipts,
		statusTTL: statusTTL,
	}
}

// InitiateDonationInput is what the donation form submits
type InitiateDonationInput struct {
	Amount        string
	Currency      string
	Purpose       string
	Donor         payhere.Donor
	NotifyChannel string
}

// CheckoutResult holds everything the browser needs to redirect to the gateway
type CheckoutResult struct {
	Donation    *models.Donation
	Request     *payhere.PaymentRequest
	CheckoutURL string
	IsExisting  bool
}

// InitiateDonation signs a new checkout request and records the pending donation and its session
func (s *DonationService) InitiateDonation(ctx context.Context, in InitiateDonationInput) (*CheckoutResult, error) {
	req, err := s.payhere.Sign(payhere.Donation{
		Amount:   in.Amount,
		Currency: in.Currency,
		Purpose:  in.Purpose,
	}, in.Donor)
	if err != nil {
		return nil, err
	}

	cents, err := payhere.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	donation := models.Donation{
		UUID:           uuid.NewString(),
		OrderID:        req.OrderID,
		AmountCents:    cents,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Purpose:        req.Items,
		DonorFirstName: strings.TrimSpace(in.Donor.FirstName),
		DonorLastName:  strings.TrimSpace(in.Donor.LastName),
		DonorEmail:     strings.TrimSpace(in.Donor.Email),
		DonorPhone:     strings.TrimSpace(in.Donor.Phone),
		NotifyChannel:  parseNotifyChannel(in.NotifyChannel, in.Donor),
		Status:         models.DonationStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&donation).Error; err != nil {
			return fmt.Errorf("create donation: %w", err)
		}
		return createSession(tx, donation.ID, req)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[payhere] checkout initiated for order %s (%s %s)", req.OrderID, req.Amount, req.Currency)

	return &CheckoutResult{
		Donation:    &donation,
		Request:     req,
		CheckoutURL: s.payhere.CheckoutURL(),
	}, nil
}

// ResumeCheckout returns the signed request of a pending donation so the browser can retry the redirect
func (s *DonationService) ResumeCheckout(ctx context.Context, donationUUID string) (*CheckoutResult, error) {
	donation, err := s.findByUUID(ctx, donationUUID)
	if err != nil {
		return nil, err
	}
	if donation.Status != models.DonationStatusPending {
		return &CheckoutResult{Donation: donation}, &DonationClosedError{Status: donation.Status}
	}

	var session models.PaymentSession
	err = s.db.WithContext(ctx).
		Where("donation_id = ? AND is_active = ?", donation.ID, true).
		Order("created_at desc").
		First(&session).Error
	if err == nil {
		var stored payhere.PaymentRequest
		if err := json.Unmarshal(session.RequestMetadata, &stored); err == nil {
			req, err := s.payhere.Restore(stored)
			if err != nil {
				return nil, err
			}
			return &CheckoutResult{Donation: donation, Request: req, CheckoutURL: s.payhere.CheckoutURL(), IsExisting: true}, nil
		}
		// Broken metadata, deactivate and rebuild below
		if err := s.db.WithContext(ctx).Model(&session).Update("is_active", false).Error; err != nil {
			return nil, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	req, err := s.payhere.SignWithOrderID(payhere.Donation{
		Amount:   donation.Amount,
		Currency: donation.Currency,
		Purpose:  donation.Purpose,
	}, payhere.Donor{
		FirstName: donation.DonorFirstName,
		LastName:  donation.DonorLastName,
		Email:     donation.DonorEmail,
		Phone:     donation.DonorPhone,
	}, donation.OrderID)
	if err != nil {
		return nil, err
	}
	if err := createSession(s.db.WithContext(ctx), donation.ID, req); err != nil {
		return nil, err
	}

	return &CheckoutResult{Donation: donation, Request: req, CheckoutURL: s.payhere.CheckoutURL(), IsExisting: true}, nil
}

// NotificationResult describes what a verified notification did
type NotificationResult struct {
	Donation  *models.Donation
	Applied   bool
	Duplicate bool
}

// HandleNotification verifies an inbound gateway notification and projects it onto the donation.
// Every call is recorded in PaymentCallbackHistory. An unverified notification returns
// payhere.ErrUntrustedNotification and changes nothing.
func (s *DonationService) HandleNotification(ctx context.Context, form url.Values) (result *NotificationResult, err error) {
	n := payhere.ParseNotification(form)
	verified := s.payhere.Verify(n)

	history := models.PaymentCallbackHistory{
		PaymentGateway: models.PaymentGatewayPayHere,
		OrderID:        n.OrderID,
		Verified:       verified,
		Outcome:        "received",
		Metadata:       formMetadata(form),
	}
	if err := s.db.WithContext(ctx).Create(&history).Error; err != nil {
		log.Printf("[payhere] failed to record callback for order %s: %v", n.OrderID, err)
	}

	outcome := "error"
	defer func() {
		if history.ID == 0 {
			return
		}
		if err := s.db.WithContext(ctx).Model(&history).Update("outcome", outcome).Error; err != nil {
			log.Printf("[payhere] failed to update callback %d: %v", history.ID, err)
		}
	}()

	if !verified {
		outcome = "untrusted"
		log.Printf("[payhere] REJECTED notification for order %s payment %s: signature mismatch", n.OrderID, n.PaymentID)
		return nil, payhere.ErrUntrustedNotification
	}

	lockKey := notificationLockKey(n.PaymentID, string(n.StatusCode))
	if s.cache != nil {
		acquired, lockErr := s.cache.SetNX(ctx, lockKey, time.Now().Unix(), notificationLockTTL)
		if lockErr != nil {
			log.Printf("[payhere] dedupe lock unavailable for order %s: %v", n.OrderID, lockErr)
		} else if !acquired {
			outcome = "duplicate"
			return &NotificationResult{Duplicate: true}, nil
		}
		// Release the lock when processing fails so a gateway retry is not swallowed
		defer func() {
			if err != nil && lockErr == nil {
				_ = s.cache.Delete(ctx, lockKey)
			}
		}()
	}

	var donation models.Donation
	if err := s.db.WithContext(ctx).Where("order_id = ?", n.OrderID).First(&donation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = "unknown_order"
			return nil, fmt.Errorf("order %s: %w", n.OrderID, ErrDonationNotFound)
		}
		return nil, err
	}

	if n.MerchantID != s.payhere.MerchantID() || n.Amount != donation.Amount || n.Currency != donation.Currency {
		outcome = "mismatch"
		log.Printf("[payhere] REJECTED notification for order %s: got %s %s merchant %s, expected %s %s",
			n.OrderID, n.Amount, n.Currency, n.MerchantID, donation.Amount, donation.Currency)
		return nil, ErrNotificationMismatch
	}

	next, known := statusFromCode(n.StatusCode)
	if !known || !canTransition(donation.Status, next) {
		outcome = "ignored"
		return &NotificationResult{Donation: &donation}, nil
	}

	from := donation.Status
	applied := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     next,
			"payment_id": n.PaymentID,
		}
		if n.Method != "" {
			updates["payment_method"] = n.Method
		}
		if next == models.DonationStatusPaid {
			now := time.Now()
			updates["paid_at"] = &now
		}

		res := tx.Model(&models.Donation{}).Where("id = ? AND status = ?", donation.ID, from).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another notification moved it first
			return nil
		}
		applied = true

		if err := tx.Model(&models.PaymentSession{}).
			Where("donation_id = ? AND is_active = ?", donation.ID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		if next == models.DonationStatusPaid && s.receipts != nil {
			return s.receipts.ScheduleReceipt(tx, donation.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply notification for order %s: %w", n.OrderID, err)
	}

	if !applied {
		outcome = "ignored"
		return &NotificationResult{Donation: &donation}, nil
	}

	if err := s.db.WithContext(ctx).First(&donation, donation.ID).Error; err != nil {
		return nil, err
	}
	s.storeStatus(ctx, donation.UUID, donation.Status)

	outcome = "applied"
	log.Printf("[payhere] order %s moved %s -> %s (payment %s)", n.OrderID, from, next, n.PaymentID)
	return &NotificationResult{Donation: &donation, Applied: true}, nil
}

// GetStatus returns the donation status, read through the cache when one is configured
func (s *DonationService) GetStatus(ctx context.Context, donationUUID string) (models.DonationStatus, error) {
	load := func() (models.DonationStatus, error) {
		donation, err := s.findByUUID(ctx, donationUUID)
		if err != nil {
			return "", err
		}
		return donation.Status, nil
	}

	if s.cache == nil {
		return load()
	}
	return GetOrSet(s.cache, ctx, donationStatusKey(donationUUID), s.statusTTL, load)
}

// GetDonation loads a donation by its public UUID
func (s *DonationService) GetDonation(ctx context.Context, donationUUID string) (*models.Donation, error) {
	return s.findByUUID(ctx, donationUUID)
}

// GetDonationByOrderID loads a donation by gateway order id
func (s *DonationService) GetDonationByOrderID(ctx context.Context, orderID string) (*models.Donation, error) {
	var donation models.Donation
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&donation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return &donation, nil
}

// DonationFilter narrows the admin listing
type DonationFilter struct {
	Status    string
	Currency  string
	SortBy    string
	SortOrder string
	Page      int
}

// DonationPage is one page of the admin listing
type DonationPage struct {
	Donations  []models.Donation `json:"donations"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	TotalCount int64             `json:"total_count"`
}

// ListDonations returns a filtered, sorted page of donations
func (s *DonationService) ListDonations(ctx context.Context, f DonationFilter) (*DonationPage, error) {
	query := s.db.WithContext(ctx).Model(&models.Donation{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Currency != "" {
		query = query.Where("currency = ?", strings.ToUpper(f.Currency))
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, fmt.Errorf("count donations: %w", err)
	}

	totalPages := int((totalCount + donationPageSize - 1) / donationPageSize)
	if totalPages == 0 {
		totalPages = 1
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	order := "desc"
	if strings.EqualFold(f.SortOrder, "asc") {
		order = "asc"
	}
	switch f.SortBy {
	case "amount":
		query = query.Order("amount_cents " + order)
	case "status":
		query = query.Order("status " + order)
	default:
		query = query.Order("created_at " + order)
	}

	var donations []models.Donation
	if err := query.Limit(donationPageSize).Offset((page - 1) * donationPageSize).Find(&donations).Error; err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}

	return &DonationPage{
		Donations:  donations,
		Page:       page,
		PageSize:   donationPageSize,
		TotalPages: totalPages,
		TotalCount: totalCount,
	}, nil
}

// ExpireStale moves pending donations created before now-olderThan to expired
func (s *DonationService) ExpireStale(ctx context.Context, olderThan time.Duration, now time.Time) (int64, error) {
	var stale []models.Donation
	if err := s.db.WithContext(ctx).
		Select("id").
		Where("status = ? AND created_at < ?", models.DonationStatusPending, now.Add(-olderThan)).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("find stale donations: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(stale))
	for _, d := range stale {
		ids = append(ids, d.ID)
	}

	var expired int64
	var expiredUUIDs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Donation{}).
			Where("id IN ? AND status = ?", ids, models.DonationStatusPending).
			Update("status", models.DonationStatusExpired)
		if res.Error != nil {
			return res.Error
		}
		expired = res.RowsAffected

		if err := tx.Model(&models.Donation{}).
			Where("id IN ? AND status = ?", ids, models.DonationStatusExpired).
			Pluck("uuid", &expiredUUIDs).Error; err != nil {
			return err
		}

		return tx.Model(&models.PaymentSession{}).
			Where("donation_id IN ? AND is_active = ?", ids, true).
			Update("is_active", false).Error
	})
	if err != nil {
		return 0, fmt.Errorf("expire donations: %w", err)
	}

	for _, id := range expiredUUIDs {
		s.storeStatus(ctx, id, models.DonationStatusExpired)
	}
	return expired, nil
}

func (s *DonationService) findByUUID(ctx context.Context, donationUUID string) (*models.Donation, error) {
	var donation models.Donation
	if err := s.db.WithContext(ctx).Where("uuid = ?", donationUUID).First(&donation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return &donation, nil
}

// storeStatus overwrites the cached status after a committed change. Readers
// only fill an empty key, so one that loaded the old row cannot undo this write.
func (s *DonationService) storeStatus(ctx context.Context, donationUUID string, status models.DonationStatus) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, donationStatusKey(donationUUID), status, s.statusTTL); err != nil {
		log.Printf("[payhere] failed to update status cache for %s: %v", donationUUID, err)
	}
}

func createSession(tx *gorm.DB, donationID uint, req *payhere.PaymentRequest) error {
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	session := models.PaymentSession{
		DonationID:      donationID,
		PaymentGateway:  models.PaymentGatewayPayHere,
		OrderID:         req.OrderID,
		IsActive:        true,
		RequestMetadata: reqBytes,
	}
	if err := tx.Create(&session).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func formMetadata(form url.Values) datatypes.JSON {
	flat := make(map[string]string, len(form))
	for k := range form {
		flat[k] = form.Get(k)
	}
	data, _ := json.Marshal(flat)
	return datatypes.JSON(data)
}

func parseNotifyChannel(channel string, donor payhere.Donor) models.NotificationChannel {
	switch models.NotificationChannel(strings.ToLower(strings.TrimSpace(channel))) {
	case models.NotificationChannelWhatsapp:
		if strings.TrimSpace(donor.Phone) != "" {
			return models.NotificationChannelWhatsapp
		}
	case models.NotificationChannelNone:
		return models.NotificationChannelNone
	}
	if strings.TrimSpace(donor.Email) == "" {
		return models.NotificationChannelNone
	}
	return models.NotificationChannelEmail
}

func statusFromCode(code payhere.StatusCode) (models.DonationStatus, bool) {
	switch code {
	case payhere.StatusSuccess:
		return models.DonationStatusPaid, true
	case payhere.StatusPending:
		return models.DonationStatusPending, true
	case payhere.StatusCanceled:
		return models.DonationStatusCanceled, true
	case payhere.StatusFailed:
		return models.DonationStatusFailed, true
	case payhere.StatusChargedBack:
		return models.DonationStatusChargedBack, true
	}
	return "", false
}

// canTransition allows only forward moves. A captured payment wins over a local
// cancel, failure or expiry; a chargeback can only follow a payment.
func canTransition(from, to models.DonationStatus) bool {
	switch to {
	case models.DonationStatusPaid:
		return from == models.DonationStatusPending ||
			from == models.DonationStatusCanceled ||
			from == models.DonationStatusFailed ||
			from == models.DonationStatusExpired
	case models.DonationStatusCanceled, models.DonationStatusFailed:
		return from == models.DonationStatusPending
	case models.DonationStatusChargedBack:
		return from == models.DonationStatusPaid
	}
	return false
}
