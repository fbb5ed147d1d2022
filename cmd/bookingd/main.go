package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/booking-platform/internal/booking"
	"github.com/example/booking-platform/internal/config"
	httptransport "github.com/example/booking-platform/internal/http"
	"github.com/example/booking-platform/internal/persistence"
	"github.com/example/booking-platform/internal/persistence/sqlite"
	"github.com/example/booking-platform/internal/recurrence"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	pool, err := sqlite.NewConnectionPool(cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	resourceRepo := sqlite.NewResourceRepository(pool)
	bookingRepo := sqlite.NewBookingRepository(pool)
	exceptionRepo := sqlite.NewExceptionRepository(pool)
	lockManager := sqlite.NewResourceLockManager()

	service := booking.NewService(booking.ServiceDeps{
		Bookings:    newBookingRepositoryAdapter(bookingRepo),
		Exceptions:  newExceptionRepositoryAdapter(exceptionRepo),
		Resources:   newResourceCatalogAdapter(resourceRepo),
		Locker:      lockManager,
		Expander:    recurrence.NewEngine(),
		IDGenerator: idGenerator,
		Now:         now,
	})

	bookingHandler := httptransport.NewBookingHandler(service, logger)
	resourceHandler := httptransport.NewResourceHandler(resourceRepo, idGenerator, now, logger)
	availabilityHandler := httptransport.NewAvailabilityHandler(service, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Bookings:     bookingHandler,
		Resources:    resourceHandler,
		Availability: availabilityHandler,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// bookingRepositoryAdapter bridges the engine's repository interface to the
// persistence layer, translating between the two booking representations.
type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, b booking.Booking) (booking.Booking, error) {
	if err := a.repo.CreateBooking(ctx, toPersistenceBooking(b)); err != nil {
		return booking.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, b.ID)
	if err != nil {
		return booking.Booking{}, err
	}
	return toDomainBooking(stored), nil
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return booking.Booking{}, err
	}
	return toDomainBooking(stored), nil
}

func (a *bookingRepositoryAdapter) DeleteBooking(ctx context.Context, id string) error {
	return a.repo.DeleteBooking(ctx, id)
}

func (a *bookingRepositoryAdapter) ListOverlapping(ctx context.Context, resourceID string, start, end time.Time) ([]booking.Booking, error) {
	stored, err := a.repo.ListOverlapping(ctx, resourceID, start, end)
	if err != nil {
		return nil, err
	}
	return toDomainBookings(stored), nil
}

func (a *bookingRepositoryAdapter) ListRecurringTemplates(ctx context.Context, resourceID string) ([]booking.Booking, error) {
	stored, err := a.repo.ListRecurringTemplates(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return toDomainBookings(stored), nil
}

func (a *bookingRepositoryAdapter) DeleteSeries(ctx context.Context, bookingID, seriesID string) (int, error) {
	return a.repo.DeleteSeries(ctx, bookingID, seriesID)
}

// exceptionRepositoryAdapter bridges per-occurrence override storage.
type exceptionRepositoryAdapter struct {
	repo persistence.ExceptionRepository
}

func newExceptionRepositoryAdapter(repo persistence.ExceptionRepository) *exceptionRepositoryAdapter {
	return &exceptionRepositoryAdapter{repo: repo}
}

func (a *exceptionRepositoryAdapter) UpsertException(ctx context.Context, exc booking.BookingException) (booking.BookingException, error) {
	stored, err := a.repo.UpsertException(ctx, toPersistenceException(exc))
	if err != nil {
		return booking.BookingException{}, err
	}
	return toDomainException(stored), nil
}

func (a *exceptionRepositoryAdapter) ListExceptions(ctx context.Context, bookingID string) ([]booking.BookingException, error) {
	stored, err := a.repo.ListExceptionsForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	out := make([]booking.BookingException, 0, len(stored))
	for _, exc := range stored {
		out = append(out, toDomainException(exc))
	}
	return out, nil
}

func (a *exceptionRepositoryAdapter) DeleteException(ctx context.Context, id string) error {
	return a.repo.DeleteException(ctx, id)
}

// resourceCatalogAdapter exposes resource lookups to the engine.
type resourceCatalogAdapter struct {
	repo persistence.ResourceRepository
}

func newResourceCatalogAdapter(repo persistence.ResourceRepository) *resourceCatalogAdapter {
	return &resourceCatalogAdapter{repo: repo}
}

func (a *resourceCatalogAdapter) GetResource(ctx context.Context, id string) (booking.Resource, error) {
	stored, err := a.repo.GetResource(ctx, id)
	if err != nil {
		return booking.Resource{}, err
	}
	return booking.Resource{
		ID:        stored.ID,
		Name:      stored.Name,
		Capacity:  stored.Capacity,
		Active:    stored.Active,
		Deleted:   stored.Deleted,
		DeletedAt: stored.DeletedAt,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}

func toPersistenceBooking(b booking.Booking) persistence.Booking {
	return persistence.Booking{
		ID:                 b.ID,
		ResourceID:         b.ResourceID,
		Title:              b.Title,
		Description:        optionalString(b.Description),
		StartTime:          b.Start,
		EndTime:            b.End,
		IsRecurring:        b.IsRecurring,
		RecurrenceRule:     optionalString(b.RecurrenceRule),
		RecurrenceParentID: b.RecurrenceParentID,
		SeriesID:           b.SeriesID,
		OriginalStartTime:  b.OriginalStartTime,
		CreatedBy:          optionalString(b.CreatedBy),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toDomainBooking(b persistence.Booking) booking.Booking {
	return booking.Booking{
		ID:                 b.ID,
		ResourceID:         b.ResourceID,
		Title:              b.Title,
		Description:        stringValue(b.Description),
		Start:              b.StartTime,
		End:                b.EndTime,
		IsRecurring:        b.IsRecurring,
		RecurrenceRule:     stringValue(b.RecurrenceRule),
		RecurrenceParentID: b.RecurrenceParentID,
		SeriesID:           b.SeriesID,
		OriginalStartTime:  b.OriginalStartTime,
		CreatedBy:          stringValue(b.CreatedBy),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toDomainBookings(stored []persistence.Booking) []booking.Booking {
	out := make([]booking.Booking, 0, len(stored))
	for _, b := range stored {
		out = append(out, toDomainBooking(b))
	}
	return out
}

func toPersistenceException(exc booking.BookingException) persistence.BookingException {
	return persistence.BookingException{
		ID:             exc.ID,
		BookingID:      exc.BookingID,
		ExceptionDate:  exc.ExceptionDate,
		ExceptionType:  string(exc.ExceptionType),
		NewStartTime:   exc.NewStartTime,
		NewEndTime:     exc.NewEndTime,
		NewTitle:       exc.NewTitle,
		NewDescription: exc.NewDescription,
		CreatedAt:      exc.CreatedAt,
		UpdatedAt:      exc.UpdatedAt,
	}
}

func toDomainException(exc persistence.BookingException) booking.BookingException {
	return booking.BookingException{
		ID:             exc.ID,
		BookingID:      exc.BookingID,
		ExceptionDate:  exc.ExceptionDate,
		ExceptionType:  booking.ExceptionType(exc.ExceptionType),
		NewStartTime:   exc.NewStartTime,
		NewEndTime:     exc.NewEndTime,
		NewTitle:       exc.NewTitle,
		NewDescription: exc.NewDescription,
		CreatedAt:      exc.CreatedAt,
		UpdatedAt:      exc.UpdatedAt,
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
