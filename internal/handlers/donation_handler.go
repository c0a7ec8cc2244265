package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"payhere_donations/internal/apperrors"
	"payhere_donations/internal/models"
	"payhere_donations/internal/payhere"
	"payhere_donations/internal/services"
	"payhere_donations/web/templates/pages"
)

type DonationHandler struct {
	donations *services.DonationService
	payhere   *services.PayHereService
}

func NewDonationHandler(donations *services.DonationService, payhereClient *services.PayHereService) *DonationHandler {
	return &DonationHandler{donations: donations, payhere: payhereClient}
}

// CreateDonationRequest is accepted as JSON or as a urlencoded form
type CreateDonationRequest struct {
	Amount        string `json:"amount" form:"amount"`
	Currency      string `json:"currency" form:"currency"`
	Purpose       string `json:"purpose" form:"purpose"`
	FirstName     string `json:"first_name" form:"first_name"`
	LastName      string `json:"last_name" form:"last_name"`
	Email         string `json:"email" form:"email"`
	Phone         string `json:"phone" form:"phone"`
	Address       string `json:"address" form:"address"`
	City          string `json:"city" form:"city"`
	Country       string `json:"country" form:"country"`
	NotifyChannel string `json:"notify_channel" form:"notify_channel"`
}

type CreateDonationResponse struct {
	UUID        string              `json:"uuid"`
	OrderID     string              `json:"order_id"`
	CheckoutURL string              `json:"checkout_url"`
	RedirectURL string              `json:"redirect_url"`
	Fields      []payhere.FormField `json:"fields"`
}

// Create signs a checkout request for a new donation
func (h *DonationHandler) Create(c echo.Context) error {
	var req CreateDonationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrInvalidDonation("malformed request body")
	}

	result, err := h.donations.InitiateDonation(c.Request().Context(), services.InitiateDonationInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		Purpose:  req.Purpose,
		Donor: payhere.Donor{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Address:   req.Address,
			City:      req.City,
			Country:   req.Country,
		},
		NotifyChannel: req.NotifyChannel,
	})
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusCreated, CreateDonationResponse{
		UUID:        result.Donation.UUID,
		OrderID:     result.Request.OrderID,
		CheckoutURL: result.CheckoutURL,
		RedirectURL: "/p/" + result.Donation.UUID + "/checkout",
		Fields:      result.Request.Fields(),
	})
}

// CheckoutPage renders the auto-submitting form for a pending donation
func (h *DonationHandler) CheckoutPage(c echo.Context) error {
	uuid := c.Param("uuid")
	if uuid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid donation UUID")
	}

	result, err := h.donations.ResumeCheckout(c.Request().Context(), uuid)
	if errors.Is(err, services.ErrDonationClosed) && result != nil {
		heading, message := resultCopy(result.Donation.Status)
		return renderPage(c, http.StatusOK, pages.DonationResult(pages.DonationResultProps{
			Title:   "Donation",
			Heading: heading,
			Message: message,
			OrderID: result.Donation.OrderID,
		}))
	}
	if errors.Is(err, services.ErrDonationNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Donation not found")
	}
	if err != nil {
		log.Printf("Failed to resume checkout for %s: %v", uuid, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to prepare checkout")
	}

	return renderPage(c, http.StatusOK, pages.CheckoutRedirect(pages.CheckoutRedirectProps{
		Title:    "Redirecting to PayHere",
		Action:   result.CheckoutURL,
		Fields:   result.Request.Fields(),
		OrderID:  result.Request.OrderID,
		Amount:   result.Request.Amount,
		Currency: result.Request.Currency,
	}))
}

// Status returns the current donation status for polling clients
func (h *DonationHandler) Status(c echo.Context) error {
	uuid := c.Param("uuid")
	status, err := h.donations.GetStatus(c.Request().Context(), uuid)
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"uuid":   uuid,
		"status": status,
	})
}

// Notify receives the gateway's server-to-server notification
func (h *DonationHandler) Notify(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return apperrors.ErrUntrustedNotification()
	}

	result, err := h.donations.HandleNotification(c.Request().Context(), form)
	if err != nil {
		return toAppError(err)
	}
	if result.Duplicate {
		log.Printf("[payhere] duplicate notification for order %s ignored", form.Get("order_id"))
	}

	return c.String(http.StatusOK, "ok")
}

// ReturnPage is where the gateway sends the donor after checkout. The outcome comes from the notification, never from here.
func (h *DonationHandler) ReturnPage(c echo.Context) error {
	props := pages.DonationResultProps{
		Title:   "Thank you",
		Heading: "Thank you",
		Message: "We are confirming your payment with PayHere. You will receive a receipt once it is confirmed.",
		OrderID: c.QueryParam("order_id"),
	}

	if donation := h.lookupOrder(c); donation != nil {
		props.Heading, props.Message = resultCopy(donation.Status)
	}

	return renderPage(c, http.StatusOK, pages.DonationResult(props))
}

// CancelPage is shown when the donor abandons checkout
func (h *DonationHandler) CancelPage(c echo.Context) error {
	props := pages.DonationResultProps{
		Title:   "Payment cancelled",
		Heading: "Payment cancelled",
		Message: "Your payment was cancelled and nothing was charged.",
		OrderID: c.QueryParam("order_id"),
	}

	if donation := h.lookupOrder(c); donation != nil && donation.Status == models.DonationStatusPending {
		props.RetryURL = "/p/" + donation.UUID + "/checkout"
	}

	return renderPage(c, http.StatusOK, pages.DonationResult(props))
}

// PayHereConfig exposes the public checkout settings to the donation form
func (h *DonationHandler) PayHereConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.payhere.ClientConfig())
}

func (h *DonationHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DonationHandler) lookupOrder(c echo.Context) *models.Donation {
	orderID := c.QueryParam("order_id")
	if orderID == "" {
		return nil
	}
	donation, err := h.donations.GetDonationByOrderID(c.Request().Context(), orderID)
	if err != nil {
		return nil
	}
	return donation
}

func resultCopy(status models.DonationStatus) (heading, message string) {
	switch status {
	case models.DonationStatusPaid:
		return "Thank you for your donation", "Your payment was received. A receipt is on its way."
	case models.DonationStatusPending:
		return "Thank you", "We are confirming your payment with PayHere. You will receive a receipt once it is confirmed."
	case models.DonationStatusCanceled:
		return "Payment cancelled", "This donation was cancelled and nothing was charged."
	case models.DonationStatusFailed:
		return "Payment failed", "The payment could not be completed. Please start a new donation."
	case models.DonationStatusExpired:
		return "Checkout expired", "This checkout link has expired. Please start a new donation."
	case models.DonationStatusChargedBack:
		return "Payment reversed", "This payment was charged back."
	}
	return "Donation", "Donation status: " + string(status)
}

func renderPage(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response())
}
