package service

import (
	"context"
	"fmt"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// PaymentNumbers maps each network to the business number shoppers pay into
type PaymentNumbers map[models.PaymentMethod]string

var networkNames = map[models.PaymentMethod]string{
	models.PaymentMTN:    "MTN",
	models.PaymentAirtel: "Airtel",
}

var walletNames = map[models.PaymentMethod]string{
	models.PaymentMTN:    "MTN MoMo",
	models.PaymentAirtel: "Airtel Money",
}

var instructionSteps = []string{
	"Open your {{wallet}} app or dial *165#",
	`Select "Send Money" or "Transfer"`,
	"Enter the business number: {{number}}",
	"Enter the amount: {{amount}}",
	"Add reference: {{reference}}",
	"Confirm and complete the transaction",
}

// PaymentInstructions tells the shopper how to pay for an order manually.
type PaymentInstructions struct {
	Reference       string               `json:"reference"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"`
	Network         string               `json:"network"`
	BusinessNumber  string               `json:"businessNumber"`
	Amount          int64                `json:"amount"`
	AmountFormatted string               `json:"amountFormatted"`
	Steps           []string             `json:"steps"`
}

// ConfirmPaymentRequest is submitted by the shopper after paying
type ConfirmPaymentRequest struct {
	Reference string               `json:"-"`
	Name      string               `json:"name" binding:"required"`
	Phone     string               `json:"phone" binding:"required"`
	Network   models.PaymentMethod `json:"network"`
}

// PaymentService produces payment instructions and confirms orders once paid
type PaymentService struct {
	storefront *Storefront
	numbers    PaymentNumbers
	logger     *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(storefront *Storefront, numbers PaymentNumbers) *PaymentService {
	return &PaymentService{
		storefront: storefront,
		numbers:    numbers,
		logger:     util.GetLogger(),
	}
}

// Instructions builds the mobile-money steps for an order
func (ps *PaymentService) Instructions(order models.Order) *PaymentInstructions {
	vars := map[string]string{
		"wallet":    walletNames[order.PaymentMethod],
		"number":    ps.numbers[order.PaymentMethod],
		"amount":    util.FormatUGX(order.Total),
		"reference": order.Reference,
	}

	return &PaymentInstructions{
		Reference:       order.Reference,
		PaymentMethod:   order.PaymentMethod,
		Network:         networkNames[order.PaymentMethod],
		BusinessNumber:  vars["number"],
		Amount:          order.Total,
		AmountFormatted: vars["amount"],
		Steps:           injectVariables(instructionSteps, vars),
	}
}

// InstructionsFor looks the order up and builds its instructions
func (ps *PaymentService) InstructionsFor(reference string) (*PaymentInstructions, error) {
	order, err := ps.storefront.Order(reference)
	if err != nil {
		return nil, err
	}
	return ps.Instructions(order), nil
}

// ConfirmPayment validates the payer details and confirms the order
func (ps *PaymentService) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (models.Order, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ConfirmPayment")
	defer span.End()

	if strings.TrimSpace(req.Name) == "" {
		return models.Order{}, ErrInvalidCustomerName
	}
	if len(strings.TrimSpace(req.Phone)) < MinPhoneLength {
		return models.Order{}, ErrInvalidPhone
	}
	if req.Network != "" && !req.Network.Valid() {
		return models.Order{}, ErrInvalidPaymentMethod
	}

	order, err := ps.storefront.ConfirmOrder(ctx, req.Reference)
	if err != nil {
		return models.Order{}, err
	}

	if req.Network != "" && req.Network != order.PaymentMethod {
		ps.logger.Warn("Payment confirmed on a different network than chosen at checkout",
			zap.String("reference", order.Reference),
			zap.String("chosen", string(order.PaymentMethod)),
			zap.String("paid_with", string(req.Network)))
	}
	return order, nil
}

// HandlePaymentReceived confirms the order named by a reconciliation event.
// Unknown references, short payments and payments on the wrong network are
// acknowledged and counted, and the order stays pending.
func (ps *PaymentService) HandlePaymentReceived(ctx context.Context, event *models.PaymentReceivedEvent) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandlePaymentReceived")
	defer span.End()

	ps.logger.Info("Handling payment received",
		zap.String("event_id", event.EventID),
		zap.String("reference", event.Reference),
		zap.Int64("amount", event.Amount))

	order, err := ps.storefront.Order(event.Reference)
	if err != nil {
		util.PaymentEventsTotal.WithLabelValues("unknown_reference").Inc()
		ps.logger.Warn("Payment for unknown order", zap.String("reference", event.Reference))
		return nil
	}

	if event.Network != "" && event.Network != order.PaymentMethod {
		util.PaymentEventsTotal.WithLabelValues("network_mismatch").Inc()
		ps.logger.Warn("Payment received on a different network than chosen at checkout",
			zap.String("reference", order.Reference),
			zap.String("chosen", string(order.PaymentMethod)),
			zap.String("paid_with", string(event.Network)))
		return nil
	}

	if event.Amount < order.Total {
		util.PaymentEventsTotal.WithLabelValues("underpaid").Inc()
		ps.logger.Warn("Payment amount below order total",
			zap.String("reference", order.Reference),
			zap.Int64("paid", event.Amount),
			zap.Int64("total", order.Total))
		return nil
	}

	if _, err := ps.storefront.ConfirmOrder(ctx, event.Reference); err != nil {
		util.PaymentEventsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to confirm order %s: %w", event.Reference, err)
	}

	util.PaymentEventsTotal.WithLabelValues("confirmed").Inc()
	return nil
}

func injectVariables(steps []string, vars map[string]string) []string {
	result := make([]string, 0, len(steps))
	for _, step := range steps {
		for key, value := range vars {
			step = strings.ReplaceAll(step, "{{"+key+"}}", value)
		}
		result = append(result, step)
	}
	return result
}
