package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mtiunov/library-service-project/library/internal/errs"
	"github.com/mtiunov/library-service-project/library/internal/model"
	"github.com/mtiunov/library-service-project/library/internal/repository"
	"github.com/mtiunov/library-service-project/pkg/auth"
)

// Notifier is the outbound notification channel. Delivery is best-effort:
// the service never retries and never surfaces delivery errors to callers.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

const notifyTimeout = 10 * time.Second

type Service struct {
	log      *zap.Logger
	repo     repository.Repository
	notifier Notifier
}

func NewService(repo repository.Repository, notifier Notifier, log *zap.Logger) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		notifier: notifier,
	}
}

func (s *Service) CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest) (model.Borrowing, error) {
	borrowDate := model.Today()
	if req.ExpectedReturnDate != nil && req.ExpectedReturnDate.Before(borrowDate) {
		return model.Borrowing{}, errs.ErrInvalidDateRange
	}

	borrowing, book, err := s.repo.CreateBorrowing(ctx, req, borrowDate)
	if err != nil {
		return model.Borrowing{}, err
	}

	expected := "-"
	if borrowing.ExpectedReturnDate.Valid {
		expected = borrowing.ExpectedReturnDate.String()
	}
	s.dispatch(fmt.Sprintf(
		"<b>New borrowings</b>\n"+
			"<b>User:</b> %s\n"+
			"<b>Book:</b> %s\n"+
			"<b>Borrow date:</b> %s\n"+
			"<b>Expected return:</b> %s",
		borrowing.UserEmail, book.Title, borrowing.BorrowDate, expected))

	return borrowing, nil
}

func (s *Service) ReturnBorrowing(ctx context.Context, borrowingUid string, req model.ReturnBorrowingRequest, caller auth.Caller) (model.Borrowing, error) {
	return s.repo.ReturnBorrowing(ctx, borrowingUid, req.ActualReturnDate, caller)
}

func (s *Service) ListBorrowings(ctx context.Context, caller auth.Caller, filter model.BorrowingFilter) ([]model.Borrowing, error) {
	return s.repo.ListBorrowings(ctx, caller, filter)
}

func (s *Service) GetBorrowing(ctx context.Context, borrowingUid string, caller auth.Caller) (model.Borrowing, error) {
	return s.repo.GetBorrowing(ctx, borrowingUid, caller)
}

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	return s.repo.CreateBook(ctx, req)
}

func (s *Service) GetBook(ctx context.Context, id int) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) ListBooks(ctx context.Context, page, size int) (model.ListBooks, error) {
	return s.repo.ListBooks(ctx, page, size)
}

func (s *Service) UpdateBook(ctx context.Context, id int, req model.CreateBookRequest) (model.Book, error) {
	return s.repo.UpdateBook(ctx, id, req)
}

func (s *Service) DeleteBook(ctx context.Context, id int) error {
	return s.repo.DeleteBook(ctx, id)
}

// dispatch hands the message to the notifier off the request path.
// Failures are logged and swallowed.
func (s *Service) dispatch(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, text); err != nil {
			s.log.Warn("notify", zap.Error(err))
		}
	}()
}
