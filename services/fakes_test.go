package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/petalmart/commerce-backend/common/errors"
	"github.com/petalmart/commerce-backend/common/logger"
	"github.com/petalmart/commerce-backend/models"
	"github.com/petalmart/commerce-backend/repository"
)

func TestMain(m *testing.M) {
	logger.Initialize("development")
	os.Exit(m.Run())
}

// --- variant repository fake ---

type fakeVariantRepo struct {
	mu       sync.Mutex
	variants map[primitive.ObjectID]*models.ProductVariant
}

func newFakeVariantRepo(variants ...*models.ProductVariant) *fakeVariantRepo {
	r := &fakeVariantRepo{variants: make(map[primitive.ObjectID]*models.ProductVariant)}
	for _, v := range variants {
		r.variants[v.ID] = v
	}
	return r
}

func (r *fakeVariantRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.variants[id]; ok {
		copied := *v
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeVariantRepo) FindBySKU(ctx context.Context, sku string) (*models.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.variants {
		if v.SKU == sku {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeVariantRepo) FindByShiprocketID(ctx context.Context, externalID string) (*models.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.variants {
		if v.ShiprocketVariantID == externalID {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeVariantRepo) FindByProduct(ctx context.Context, productID primitive.ObjectID, page, limit int) ([]models.ProductVariant, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ProductVariant
	for _, v := range r.variants {
		if v.ProductID == productID {
			out = append(out, *v)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeVariantRepo) Create(ctx context.Context, v *models.ProductVariant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants[v.ID] = v
	return nil
}

func (r *fakeVariantRepo) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok {
		return errors.ErrVariantNotFound
	}
	if stock, ok := updates["stock"].(int); ok {
		v.Stock = stock
	}
	if active, ok := updates["is_active"].(bool); ok {
		v.IsActive = active
	}
	return nil
}

func (r *fakeVariantRepo) SetDefault(ctx context.Context, productID, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.variants {
		if v.ProductID == productID {
			v.IsDefault = v.ID == id
		}
	}
	return nil
}

func (r *fakeVariantRepo) Reserve(ctx context.Context, id primitive.ObjectID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok {
		return errors.ErrVariantNotFound
	}
	if v.Stock < qty {
		return errors.InsufficientStock(v.SKU, v.Stock, qty)
	}
	v.Stock -= qty
	return nil
}

func (r *fakeVariantRepo) Release(ctx context.Context, id primitive.ObjectID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok {
		return errors.ErrVariantNotFound
	}
	v.Stock += qty
	return nil
}

func (r *fakeVariantRepo) stock(id primitive.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.variants[id].Stock
}

// --- cart repository fake ---

type fakeCartRepo struct {
	mu    sync.Mutex
	carts map[primitive.ObjectID]*models.Cart
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: make(map[primitive.ObjectID]*models.Cart)}
}

func (r *fakeCartRepo) FindActiveByOwner(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findActiveLocked(owner), nil
}

func (r *fakeCartRepo) findActiveLocked(owner models.OwnerKey) *models.Cart {
	for _, c := range r.carts {
		if !c.IsActive {
			continue
		}
		if owner.UserID != "" && c.UserID == owner.UserID {
			copied := *c
			return &copied
		}
		if owner.SessionID != "" && c.SessionID == owner.SessionID {
			copied := *c
			return &copied
		}
	}
	return nil
}

func (r *fakeCartRepo) GetOrCreate(ctx context.Context, owner models.OwnerKey, ttl time.Duration) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.findActiveLocked(owner); c != nil {
		return c, nil
	}
	now := time.Now().UTC()
	cart := &models.Cart{
		ID:        primitive.NewObjectID(),
		UserID:    owner.UserID,
		SessionID: owner.SessionID,
		Items:     []models.CartItem{},
		IsActive:  true,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.carts[cart.ID] = cart
	copied := *cart
	return &copied, nil
}

func (r *fakeCartRepo) ReplaceItems(ctx context.Context, cartID primitive.ObjectID, items []models.CartItem, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return nil
	}
	c.Items = append([]models.CartItem(nil), items...)
	c.ExpiresAt = expiresAt
	return nil
}

func (r *fakeCartRepo) SetDiscount(ctx context.Context, cartID primitive.ObjectID, kind models.DiscountKind, d *models.Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return nil
	}
	if kind == models.DiscountCoupon {
		c.AppliedCoupon = d
	} else {
		c.AppliedVoucher = d
	}
	return nil
}

func (r *fakeCartRepo) ClearDiscount(ctx context.Context, cartID primitive.ObjectID, kind models.DiscountKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cartID]
	if !ok {
		return nil
	}
	switch kind {
	case models.DiscountCoupon:
		c.AppliedCoupon = nil
	case models.DiscountVoucher:
		c.AppliedVoucher = nil
	case models.DiscountAll:
		c.AppliedCoupon = nil
		c.AppliedVoucher = nil
	}
	return nil
}

func (r *fakeCartRepo) ClearItems(ctx context.Context, cartID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carts[cartID]; ok {
		c.Items = []models.CartItem{}
	}
	return nil
}

func (r *fakeCartRepo) Deactivate(ctx context.Context, cartID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carts[cartID]; ok {
		c.IsActive = false
	}
	return nil
}

// --- order repository fake ---

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[primitive.ObjectID]*models.Order)}
}

func (r *fakeOrderRepo) Insert(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ShiprocketOrderID == order.ShiprocketOrderID {
			return repository.ErrDuplicateKey
		}
	}
	copied := *order
	r.orders[order.ID] = &copied
	return nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeOrderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderNumber == orderNumber {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) FindByShiprocketOrderID(ctx context.Context, shiprocketOrderID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ShiprocketOrderID == shiprocketOrderID {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) FindByUser(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil
	}
	if v, ok := updates["order_status"].(models.OrderStatus); ok {
		o.OrderStatus = v
	}
	if v, ok := updates["payment_status"].(models.PaymentStatus); ok {
		o.PaymentStatus = v
	}
	if v, ok := updates["cancellation_reason"].(string); ok {
		o.CancellationReason = v
	}
	if v, ok := updates["cancelled_at"].(time.Time); ok {
		o.CancelledAt = &v
	}
	if v, ok := updates["delivered_at"].(time.Time); ok {
		o.DeliveredAt = &v
	}
	if v, ok := updates["tracking_number"].(string); ok {
		o.TrackingNumber = v
	}
	if v, ok := updates["shiprocket_shipment_id"].(string); ok {
		o.ShiprocketShipmentID = v
	}
	if v, ok := updates["courier_name"].(string); ok {
		o.CourierName = v
	}
	return nil
}

// --- payment repository fake ---

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[primitive.ObjectID]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[primitive.ObjectID]*models.Payment)}
}

func (r *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.OrderID == payment.OrderID {
			return repository.ErrDuplicateKey
		}
	}
	copied := *payment
	r.payments[payment.ID] = &copied
	return nil
}

func (r *fakePaymentRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		copied := *p
		copied.Refunds = append([]models.Refund(nil), p.Refunds...)
		return &copied, nil
	}
	return nil, nil
}

func (r *fakePaymentRepo) FindByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.OrderID == orderID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) FindByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.RazorpayOrderID == razorpayOrderID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil
	}
	if v, ok := updates["status"].(models.PaymentState); ok {
		p.Status = v
	}
	if v, ok := updates["failed_at"].(time.Time); ok {
		p.FailedAt = &v
	}
	if v, ok := updates["razorpay_payment_id"].(string); ok {
		p.RazorpayPaymentID = v
	}
	return nil
}

func (r *fakePaymentRepo) MarkCaptured(ctx context.Context, id primitive.ObjectID, razorpayPaymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return false, nil
	}
	if p.Status != models.PaymentStateCreated && p.Status != models.PaymentStatePending {
		return false, nil
	}
	now := time.Now().UTC()
	p.Status = models.PaymentStateCaptured
	p.RazorpayPaymentID = razorpayPaymentID
	p.CapturedAt = &now
	return true, nil
}

func (r *fakePaymentRepo) AppendRefund(ctx context.Context, paymentID primitive.ObjectID, refund models.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[paymentID]; ok {
		p.Refunds = append(p.Refunds, refund)
	}
	return nil
}

func (r *fakePaymentRepo) UpdateRefund(ctx context.Context, paymentID, refundID primitive.ObjectID, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[paymentID]
	if !ok {
		return nil
	}
	for k := range updates {
		if strings.ContainsRune(k, '$') {
			return fmt.Errorf("refund update key %q carries a positional operator", k)
		}
	}
	for i := range p.Refunds {
		if p.Refunds[i].ID == refundID {
			if v, ok := updates["status"].(models.RefundStatus); ok {
				p.Refunds[i].Status = v
			}
		}
	}
	return nil
}

// --- product repository fake ---

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
}

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[primitive.ObjectID]*models.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeProductRepo) FindActive(ctx context.Context, page, limit int) ([]models.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Product
	for _, p := range r.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) Create(ctx context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	return nil
}

// --- collaborator fakes ---

type fakeDiscounts struct {
	amount int64
	err    error
}

func (d *fakeDiscounts) Apply(ctx context.Context, req DiscountRequest) (*models.Discount, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &models.Discount{Code: req.Code, DiscountAmount: d.amount}, nil
}

type fakeProvider struct {
	mu            sync.Mutex
	token         string
	tokenErr      error
	shipment      *ShipmentResult
	shipmentErr   error
	shipments     []ShipmentRequest
	pushed        []CatalogProduct
	pushErr       error
	checkoutCalls []models.CheckoutPayload
}

func (p *fakeProvider) CreateCheckoutToken(ctx context.Context, payload models.CheckoutPayload) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkoutCalls = append(p.checkoutCalls, payload)
	if p.tokenErr != nil {
		return "", p.tokenErr
	}
	if p.token == "" {
		return "tok_test", nil
	}
	return p.token, nil
}

func (p *fakeProvider) CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shipments = append(p.shipments, req)
	if p.shipmentErr != nil {
		return nil, p.shipmentErr
	}
	if p.shipment == nil {
		return &ShipmentResult{ShipmentID: "ship_1", AWBCode: "AWB1", CourierName: "Test Courier"}, nil
	}
	return p.shipment, nil
}

func (p *fakeProvider) PushProductUpdate(ctx context.Context, payload CatalogProduct) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, payload)
	return p.pushErr
}

type fakeGateway struct {
	mu           sync.Mutex
	orderID      string
	orderErr     error
	status       string
	statusErr    error
	refundID     string
	refundErr    error
	orderCalls   int
	fetchCalls   int
	refundCalls  int
	refundAmount int64
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orderCalls++
	if g.orderErr != nil {
		return "", g.orderErr
	}
	if g.orderID == "" {
		return "order_gw_1", nil
	}
	return g.orderID, nil
}

func (g *fakeGateway) FetchPaymentStatus(ctx context.Context, paymentID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchCalls++
	if g.statusErr != nil {
		return "", g.statusErr
	}
	if g.status == "" {
		return "captured", nil
	}
	return g.status, nil
}

func (g *fakeGateway) CreateRefund(ctx context.Context, paymentID string, amount int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	g.refundAmount = amount
	if g.refundErr != nil {
		return "", g.refundErr
	}
	if g.refundID == "" {
		return "rfnd_1", nil
	}
	return g.refundID, nil
}

type fakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: make(map[string]bool)}
}

func (d *fakeDeduper) MarkOnce(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}
