package handler

import (
	"context"

	"github.com/mtiunov/library-service-project/library/internal/model"
	"github.com/mtiunov/library-service-project/library/internal/service"
	"github.com/mtiunov/library-service-project/pkg/auth"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest) (model.Borrowing, error)
	ReturnBorrowing(ctx context.Context, borrowingUid string, req model.ReturnBorrowingRequest, caller auth.Caller) (model.Borrowing, error)
	ListBorrowings(ctx context.Context, caller auth.Caller, filter model.BorrowingFilter) ([]model.Borrowing, error)
	GetBorrowing(ctx context.Context, borrowingUid string, caller auth.Caller) (model.Borrowing, error)

	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	ListBooks(ctx context.Context, page, size int) (model.ListBooks, error)
	UpdateBook(ctx context.Context, id int, req model.CreateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
}

var _ LibraryService = (*service.Service)(nil)
