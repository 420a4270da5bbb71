package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mtiunov/library-service-project/library/internal/errs"
	"github.com/mtiunov/library-service-project/library/internal/model"
	"github.com/mtiunov/library-service-project/pkg/auth"
)

type Repository interface {
	CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest, borrowDate model.Date) (model.Borrowing, model.Book, error)
	ReturnBorrowing(ctx context.Context, borrowingUid string, actualReturnDate model.Date, caller auth.Caller) (model.Borrowing, error)
	ListBorrowings(ctx context.Context, caller auth.Caller, filter model.BorrowingFilter) ([]model.Borrowing, error)
	GetBorrowing(ctx context.Context, borrowingUid string, caller auth.Caller) (model.Borrowing, error)
	ListOverdue(ctx context.Context, today model.Date) ([]model.OverdueBorrowing, error)

	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	ListBooks(ctx context.Context, page, size int) (model.ListBooks, error)
	UpdateBook(ctx context.Context, id int, req model.CreateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName      = `books`
	borrowingsTableName = `borrowings`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var borrowingColumns = []string{"id", "borrowing_uid", "book_id", "user_id", "user_email", "borrow_date", "expected_return_date", "actual_return_date"}

func (r *repository) CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest, borrowDate model.Date) (model.Borrowing, model.Book, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Borrowing{}, model.Book{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	// Check-and-decrement in one statement: with inventory = 1, two
	// concurrent borrows serialize on the row and only one matches
	// inventory > 0.
	q := fmt.Sprintf(`update %s
	set inventory = inventory - 1
	where id = $1 and inventory > 0
	returning id, title, author, cover, inventory, daily_fee`, booksTableName)

	var book model.Book
	if err := tx.GetContext(ctx, &book, q, req.BookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			q := fmt.Sprintf(`select exists(select 1 from %s where id = $1)`, booksTableName)
			if err := tx.GetContext(ctx, &exists, q, req.BookID); err != nil {
				return model.Borrowing{}, model.Book{}, errors.Wrap(err, "book exists")
			}
			if !exists {
				return model.Borrowing{}, model.Book{}, errs.ErrNotFound
			}
			return model.Borrowing{}, model.Book{}, errs.ErrOutOfStock
		}
		return model.Borrowing{}, model.Book{}, errors.Wrap(err, "decrement inventory")
	}

	var expected model.NullDate
	if req.ExpectedReturnDate != nil {
		expected = model.NewNullDate(*req.ExpectedReturnDate)
	}
	q, args, err := qb.Insert(borrowingsTableName).
		Columns("borrowing_uid", "book_id", "user_id", "user_email", "borrow_date", "expected_return_date").
		Values(uuid.New(), req.BookID, req.UserID, req.UserEmail, borrowDate, expected).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Borrowing{}, model.Book{}, err
	}
	var borrowing model.Borrowing
	if err := tx.GetContext(ctx, &borrowing, q, args...); err != nil {
		r.log.Error("CreateBorrowing", zap.String("q", q), zap.Any("args", args))
		return model.Borrowing{}, model.Book{}, mapPgError(err)
	}

	if err := tx.Commit(); err != nil {
		return model.Borrowing{}, model.Book{}, errors.Wrap(err, "commit")
	}
	return borrowing, book, nil
}

func (r *repository) ReturnBorrowing(ctx context.Context, borrowingUid string, actualReturnDate model.Date, caller auth.Caller) (model.Borrowing, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Borrowing{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	q, args, err := qb.Select(borrowingColumns...).
		From(borrowingsTableName).
		Where(sq.Eq{"borrowing_uid": borrowingUid}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.Borrowing{}, err
	}
	var borrowing model.Borrowing
	if err := tx.GetContext(ctx, &borrowing, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Borrowing{}, errs.ErrNotFound
		}
		return model.Borrowing{}, errors.Wrap(err, "select for update")
	}

	// Strict ownership: staff callers get no exemption on return.
	if borrowing.UserID != caller.ID {
		return model.Borrowing{}, errs.ErrPermissionDenied
	}
	if borrowing.ActualReturnDate.Valid {
		return model.Borrowing{}, errs.ErrAlreadyReturned
	}
	if actualReturnDate.Before(borrowing.BorrowDate) {
		return model.Borrowing{}, errs.ErrInvalidDateRange
	}

	q = fmt.Sprintf(`update %s set actual_return_date = $2 where id = $1`, borrowingsTableName)
	if _, err := tx.ExecContext(ctx, q, borrowing.ID, actualReturnDate); err != nil {
		return model.Borrowing{}, mapPgError(err)
	}
	q = fmt.Sprintf(`update %s set inventory = inventory + 1 where id = $1`, booksTableName)
	if _, err := tx.ExecContext(ctx, q, borrowing.BookID); err != nil {
		return model.Borrowing{}, errors.Wrap(err, "increment inventory")
	}

	if err := tx.Commit(); err != nil {
		return model.Borrowing{}, errors.Wrap(err, "commit")
	}
	borrowing.ActualReturnDate = model.NewNullDate(actualReturnDate)
	return borrowing, nil
}

func (r *repository) ListBorrowings(ctx context.Context, caller auth.Caller, filter model.BorrowingFilter) ([]model.Borrowing, error) {
	q := qb.Select(borrowingColumns...).
		From(borrowingsTableName).
		OrderBy("borrow_date asc", "id asc")

	if !caller.IsStaff {
		q = q.Where(sq.Eq{"user_id": caller.ID})
	} else if filter.UserID != nil {
		q = q.Where(sq.Eq{"user_id": *filter.UserID})
	}
	if filter.IsActive != nil {
		if *filter.IsActive {
			q = q.Where("actual_return_date is null")
		} else {
			q = q.Where("actual_return_date is not null")
		}
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListBorrowings", zap.String("query", query), zap.Any("args", args))

	items := make([]model.Borrowing, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) GetBorrowing(ctx context.Context, borrowingUid string, caller auth.Caller) (model.Borrowing, error) {
	q := qb.Select(borrowingColumns...).
		From(borrowingsTableName).
		Where(sq.Eq{"borrowing_uid": borrowingUid})
	// Invisible records look absent: ordinary callers cannot probe for
	// other users' borrowings.
	if !caller.IsStaff {
		q = q.Where(sq.Eq{"user_id": caller.ID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.Borrowing{}, err
	}
	var borrowing model.Borrowing
	if err := r.db.GetContext(ctx, &borrowing, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Borrowing{}, errs.ErrNotFound
		}
		return model.Borrowing{}, err
	}
	return borrowing, nil
}

func (r *repository) ListOverdue(ctx context.Context, today model.Date) ([]model.OverdueBorrowing, error) {
	q, args, err := qb.Select("b.id", "borrowing_uid", "book_id", "user_id", "user_email", "borrow_date", "expected_return_date", "actual_return_date", "bk.title").
		From(borrowingsTableName + " b").
		Join(fmt.Sprintf("%s bk on bk.id = b.book_id", booksTableName)).
		Where("actual_return_date is null").
		Where(sq.Lt{"expected_return_date": today}).
		OrderBy("borrow_date asc").
		ToSql()
	if err != nil {
		return nil, err
	}
	items := make([]model.OverdueBorrowing, 0)
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	q, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "cover", "inventory", "daily_fee").
		Values(req.Title, req.Author, req.Cover, req.Inventory, req.DailyFee).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		r.log.Error("CreateBook", zap.String("q", q), zap.Any("args", args))
		return model.Book{}, mapPgError(err)
	}
	return book, nil
}

func (r *repository) GetBook(ctx context.Context, id int) (model.Book, error) {
	q, args, err := qb.Select("id", "title", "author", "cover", "inventory", "daily_fee").
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) ListBooks(ctx context.Context, page, size int) (model.ListBooks, error) {
	q := qb.Select("id", "title", "author", "cover", "inventory", "daily_fee").
		From(booksTableName).
		OrderBy("id asc")

	if page != 0 && size != 0 {
		q = q.Limit(uint64(size)).Offset(uint64((page - 1) * size))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}

	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return model.ListBooks{}, err
	}

	return model.ListBooks{
		Paging: model.Paging{
			Page:          page,
			PageSize:      size,
			TotalElements: len(books),
		},
		Items: books,
	}, nil
}

func (r *repository) UpdateBook(ctx context.Context, id int, req model.CreateBookRequest) (model.Book, error) {
	q, args, err := qb.Update(booksTableName).
		Set("title", req.Title).
		Set("author", req.Author).
		Set("cover", req.Cover).
		Set("inventory", req.Inventory).
		Set("daily_fee", req.DailyFee).
		Where(sq.Eq{"id": id}).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, mapPgError(err)
	}
	return book, nil
}

func (r *repository) DeleteBook(ctx context.Context, id int) error {
	q, args, err := qb.Delete(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		// Restrict FK: a book with borrowings is never deleted.
		return mapPgError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ForeignKeyViolation:
			return errs.ErrConflict
		case pgerrcode.CheckViolation:
			return errs.ErrInvalidDateRange
		}
	}
	return err
}
