package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mtiunov/library-service-project/library/internal/model"
)

// NotifyOverdue scans for active borrowings past their expected return
// date and reports each one. Read-only: the scan never mutates state.
func (s *Service) NotifyOverdue(ctx context.Context) error {
	today := model.Today()
	items, err := s.repo.ListOverdue(ctx, today)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		s.dispatch("No overdue borrowing today!")
		return nil
	}

	s.log.Info("overdue borrowings found", zap.Int("count", len(items)))
	for _, b := range items {
		s.dispatch(fmt.Sprintf(
			"⚠️ <b>Delay!</b>\n"+
				"👤 <b>User:</b> %s\n"+
				"📖 <b>Book:</b> %s\n"+
				"📅 <b>Borrow date:</b> %s\n"+
				"📆 <b>Expected return:</b> %s",
			b.UserEmail, b.BookTitle, b.BorrowDate, b.ExpectedReturnDate.Date))
	}
	return nil
}
