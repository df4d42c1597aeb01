package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/corray333/backend-labs/ledger/internal/service/services/compliancesvc"
	"github.com/corray333/backend-labs/ledger/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/ledger/internal/service/services/reportsvc"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/actor"
	cancelorder "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/cancel_order"
	createorder "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/create_order"
	eodhistory "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/eod_history"
	generateeod "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/generate_eod"
	geteod "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/get_eod"
	getorder "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/get_order"
	listmodified "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/list_modified"
	listorders "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/list_orders"
	modifyorder "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/modify_order"
	orderhistory "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/order_history"
	orderstatus "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/order_status"
	receiptqr "github.com/corray333/backend-labs/ledger/internal/transport/http/v1/receipt_qr"
	"github.com/corray333/backend-labs/ledger/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/ledger/pkg/logger"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const readHeaderTimeout = 10 * time.Second

type orderService interface {
	Create(ctx context.Context, model ordersvc.CreateOrderModel) (order.Order, error)
	Modify(
		ctx context.Context,
		orderID uuid.UUID,
		actorID string,
		modType auditlog.ModificationType,
		patch order.Patch,
	) (order.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actorID, reason string) (order.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (order.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]auditlog.Record, error)
	StatusAt(ctx context.Context, orderID uuid.UUID, t time.Time) (order.Status, error)
	List(ctx context.Context, query order.QueryOrdersModel) (pagination.Result[order.Order], error)
	ListModified(ctx context.Context) ([]order.Order, error)
}

type reportService interface {
	Generate(ctx context.Context, model reportsvc.GenerateModel) (report.EODReport, error)
	GeneratePreset(
		ctx context.Context,
		preset report.Preset,
		includeComparison, persist bool,
		requestedBy string,
	) (report.EODReport, error)
	History(ctx context.Context, query report.HistoryQuery) (pagination.Result[report.EODReport], error)
	Get(ctx context.Context, id uuid.UUID) (report.EODReport, error)
}

type receiptService interface {
	BuildForOrder(ctx context.Context, orderID uuid.UUID, opts compliancesvc.BuildOptions) (compliancesvc.Payload, error)
}

type HTTPTransport struct {
	server   *http.Server
	router   *chi.Mux
	orders   orderService
	reports  reportService
	receipts receiptService
}

func NewHTTPTransport(orders orderService, reports reportService, receipts receiptService) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:   server,
		router:   router,
		orders:   orders,
		reports:  reports,
		receipts: receipts,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api/v1", func(r chi.Router) {
		r.Use(actor.Middleware)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.Get("/modified", h.listModified)
			r.Get("/{id}", h.getOrder)
			r.Patch("/{id}", h.modifyOrder)
			r.Post("/{id}/cancel", h.cancelOrder)
			r.Get("/{id}/history", h.orderHistory)
			r.Get("/{id}/status", h.orderStatus)
			r.Get("/{id}/receipt-qr", h.receiptQR)
		})

		r.Route("/reports/eod", func(r chi.Router) {
			r.Use(actor.RequireRole(actor.ManagerRoles...))
			r.Post("/", h.generateEOD)
			r.Get("/", h.eodHistory)
			r.Get("/{id}", h.getEOD)
		})
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.orders)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orders)
}

func (h *HTTPTransport) listModified(w http.ResponseWriter, r *http.Request) {
	listmodified.ListModified(w, r, h.orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orders)
}

func (h *HTTPTransport) modifyOrder(w http.ResponseWriter, r *http.Request) {
	modifyorder.ModifyOrder(w, r, h.orders)
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	cancelorder.CancelOrder(w, r, h.orders)
}

func (h *HTTPTransport) orderHistory(w http.ResponseWriter, r *http.Request) {
	orderhistory.OrderHistory(w, r, h.orders)
}

func (h *HTTPTransport) orderStatus(w http.ResponseWriter, r *http.Request) {
	orderstatus.OrderStatus(w, r, h.orders)
}

func (h *HTTPTransport) receiptQR(w http.ResponseWriter, r *http.Request) {
	receiptqr.ReceiptQR(w, r, h.receipts)
}

func (h *HTTPTransport) generateEOD(w http.ResponseWriter, r *http.Request) {
	generateeod.GenerateEOD(w, r, h.reports)
}

func (h *HTTPTransport) eodHistory(w http.ResponseWriter, r *http.Request) {
	eodhistory.EODHistory(w, r, h.reports)
}

func (h *HTTPTransport) getEOD(w http.ResponseWriter, r *http.Request) {
	geteod.GetEOD(w, r, h.reports)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(middleware.Recoverer)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
