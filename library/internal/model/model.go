package model

type Cover string

const (
	CoverHard Cover = "HARD"
	CoverSoft Cover = "SOFT"
)

type Book struct {
	ID        int     `json:"id" db:"id"`
	Title     string  `json:"title" db:"title"`
	Author    string  `json:"author" db:"author"`
	Cover     Cover   `json:"cover" db:"cover"`
	Inventory int     `json:"inventory" db:"inventory"`
	DailyFee  float64 `json:"dailyFee" db:"daily_fee"`
}

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book `json:"items"`
}

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
}

type Borrowing struct {
	ID                 int      `json:"-" db:"id"`
	BorrowingUid       string   `json:"borrowingUid" db:"borrowing_uid"`
	BookID             int      `json:"bookId" db:"book_id"`
	UserID             int      `json:"userId" db:"user_id"`
	UserEmail          string   `json:"userEmail" db:"user_email"`
	BorrowDate         Date     `json:"borrowDate" db:"borrow_date"`
	ExpectedReturnDate NullDate `json:"expectedReturnDate" db:"expected_return_date"`
	ActualReturnDate   NullDate `json:"actualReturnDate" db:"actual_return_date"`
}

// IsActive reports whether the borrowing is still outstanding.
func (b Borrowing) IsActive() bool {
	return !b.ActualReturnDate.Valid
}

// OverdueBorrowing is a borrowing joined with its book title for reporting.
type OverdueBorrowing struct {
	Borrowing
	BookTitle string `json:"bookTitle" db:"title"`
}

type CreateBorrowingRequest struct {
	BookID             int   `json:"bookId" validate:"required"`
	ExpectedReturnDate *Date `json:"expectedReturnDate"`

	UserID    int    `json:"-"`
	UserEmail string `json:"-"`
}

type ReturnBorrowingRequest struct {
	ActualReturnDate Date `json:"actualReturnDate" validate:"required"`
}

// BorrowingFilter narrows a visibility-scoped listing. Nil fields are
// no-ops. UserID only matters for staff callers; ordinary callers are
// already scoped to themselves.
type BorrowingFilter struct {
	IsActive *bool
	UserID   *int
}

type CreateBookRequest struct {
	Title     string  `json:"title" validate:"required"`
	Author    string  `json:"author" validate:"required"`
	Cover     Cover   `json:"cover" validate:"required,oneof=HARD SOFT"`
	Inventory int     `json:"inventory" validate:"gte=0"`
	DailyFee  float64 `json:"dailyFee" validate:"gte=0"`
}
