package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mtiunov/library-service-project/library/internal/errs"
	"github.com/mtiunov/library-service-project/library/internal/handler"
	"github.com/mtiunov/library-service-project/library/internal/model"
	"github.com/mtiunov/library-service-project/pkg/auth"
	md "github.com/mtiunov/library-service-project/pkg/middleware"
	"github.com/mtiunov/library-service-project/pkg/validate"

	service_mocks "github.com/mtiunov/library-service-project/library/internal/handler/mocks"
)

const borrowingUid = "5bbb174a-d55c-4c51-9b7d-4ba09b271402"

func newTestRouter(svc *service_mocks.MockLibraryService) *echo.Echo {
	h := handler.New(svc, zap.NewExample().Named("test"))
	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.GET("/api/v1/borrowings", h.ListBorrowings, md.CallerContext)
	e.POST("/api/v1/borrowings", h.CreateBorrowing, md.CallerContext)
	e.GET("/api/v1/borrowings/:borrowingUid", h.GetBorrowing, md.CallerContext)
	e.PATCH("/api/v1/borrowings/:borrowingUid/return", h.ReturnBorrowing, md.CallerContext)
	e.DELETE("/api/v1/books/:id", h.DeleteBook, md.CallerContext)
	return e
}

func setCallerHeaders(r *http.Request, id, email, role string) {
	r.Header.Set(auth.XUserIDHeader, id)
	r.Header.Set(auth.XUserEmailHeader, email)
	r.Header.Set(auth.XUserRoleHeader, role)
}

func TestHandler_CreateBorrowing(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService)

	expected := model.NewDate(2025, time.September, 1)
	wantReq := model.CreateBorrowingRequest{
		BookID:             1,
		ExpectedReturnDate: &expected,
		UserID:             1,
		UserEmail:          "test@test.com",
	}

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			body: `{"bookId":1,"expectedReturnDate":"2025-09-01"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateBorrowing(gomock.Any(), wantReq).
					Return(model.Borrowing{
						BorrowingUid:       borrowingUid,
						BookID:             1,
						UserID:             1,
						UserEmail:          "test@test.com",
						BorrowDate:         model.NewDate(2025, time.August, 1),
						ExpectedReturnDate: model.NewNullDate(expected),
					}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"borrowingUid":"5bbb174a-d55c-4c51-9b7d-4ba09b271402","bookId":1,"userId":1,"userEmail":"test@test.com","borrowDate":"2025-08-01","expectedReturnDate":"2025-09-01","actualReturnDate":null}`,
			},
			wantErr: false,
		},
		{
			name: "err. out of stock",
			body: `{"bookId":1,"expectedReturnDate":"2025-09-01"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateBorrowing(gomock.Any(), wantReq).
					Return(model.Borrowing{}, errs.ErrOutOfStock)
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"the book is out of stock"}`,
			},
			wantErr: true,
		},
		{
			name: "err. invalid date range",
			body: `{"bookId":1,"expectedReturnDate":"2025-09-01"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateBorrowing(gomock.Any(), wantReq).
					Return(model.Borrowing{}, errs.ErrInvalidDateRange)
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"invalid date range"}`,
			},
			wantErr: true,
		},
		{
			name: "err. book not found",
			body: `{"bookId":1,"expectedReturnDate":"2025-09-01"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateBorrowing(gomock.Any(), wantReq).
					Return(model.Borrowing{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
			wantErr: true,
		},
		{
			name:         "err. internal",
			body:         `{"bookId":1,"expectedReturnDate":"2025-09-01"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateBorrowing(gomock.Any(), wantReq).
					Return(model.Borrowing{}, errors.New("db internal"))
			},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"message":"db internal"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			tt.mockBehavior(svc)
			e := newTestRouter(svc)

			r := httptest.NewRequest(http.MethodPost, "/api/v1/borrowings", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			setCallerHeaders(r, "1", "test@test.com", auth.RoleMember)
			w := httptest.NewRecorder()

			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ReturnBorrowing(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService)

	actual := model.NewDate(2025, time.August, 31)
	wantReq := model.ReturnBorrowingRequest{ActualReturnDate: actual}
	caller := auth.Caller{ID: 1, Email: "test@test.com"}

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ReturnBorrowing(gomock.Any(), borrowingUid, wantReq, caller).
					Return(model.Borrowing{
						BorrowingUid:     borrowingUid,
						BookID:           1,
						UserID:           1,
						UserEmail:        "test@test.com",
						BorrowDate:       model.NewDate(2025, time.August, 1),
						ActualReturnDate: model.NewNullDate(actual),
					}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"borrowingUid":"5bbb174a-d55c-4c51-9b7d-4ba09b271402","bookId":1,"userId":1,"userEmail":"test@test.com","borrowDate":"2025-08-01","expectedReturnDate":null,"actualReturnDate":"2025-08-31"}`,
			},
			wantErr: false,
		},
		{
			name: "err. already returned",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ReturnBorrowing(gomock.Any(), borrowingUid, wantReq, caller).
					Return(model.Borrowing{}, errs.ErrAlreadyReturned)
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"this borrowing has already been returned"}`,
			},
			wantErr: true,
		},
		{
			name: "err. permission denied",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ReturnBorrowing(gomock.Any(), borrowingUid, wantReq, caller).
					Return(model.Borrowing{}, errs.ErrPermissionDenied)
			},
			response: response{
				expectedCode: http.StatusForbidden,
				expectedBody: `{"message":"you do not have permission to return this borrowing"}`,
			},
			wantErr: true,
		},
		{
			name: "err. not found",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ReturnBorrowing(gomock.Any(), borrowingUid, wantReq, caller).
					Return(model.Borrowing{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			tt.mockBehavior(svc)
			e := newTestRouter(svc)

			r := httptest.NewRequest(http.MethodPatch, "/api/v1/borrowings/"+borrowingUid+"/return",
				strings.NewReader(`{"actualReturnDate":"2025-08-31"}`))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			setCallerHeaders(r, "1", "test@test.com", auth.RoleMember)
			w := httptest.NewRecorder()

			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ListBorrowings(t *testing.T) {
	t.Parallel()

	isActive := true
	userID := 7

	var tests = []struct {
		name         string
		target       string
		role         string
		mockBehavior func(r *service_mocks.MockLibraryService)
		expectedCode int
		expectedBody string
	}{
		{
			name:   "ok. member scoped to self",
			target: "/api/v1/borrowings?is_active=true",
			role:   auth.RoleMember,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ListBorrowings(gomock.Any(),
						auth.Caller{ID: 1, Email: "test@test.com"},
						model.BorrowingFilter{IsActive: &isActive}).
					Return([]model.Borrowing{
						{
							BorrowingUid: borrowingUid,
							BookID:       1,
							UserID:       1,
							UserEmail:    "test@test.com",
							BorrowDate:   model.NewDate(2025, time.August, 1),
						},
					}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `[{"borrowingUid":"5bbb174a-d55c-4c51-9b7d-4ba09b271402","bookId":1,"userId":1,"userEmail":"test@test.com","borrowDate":"2025-08-01","expectedReturnDate":null,"actualReturnDate":null}]`,
		},
		{
			name:   "ok. staff filters by user",
			target: "/api/v1/borrowings?user_id=7",
			role:   auth.RoleStaff,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ListBorrowings(gomock.Any(),
						auth.Caller{ID: 1, Email: "test@test.com", IsStaff: true},
						model.BorrowingFilter{UserID: &userID}).
					Return([]model.Borrowing{}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `[]`,
		},
		{
			name:         "err. invalid is_active",
			target:       "/api/v1/borrowings?is_active=maybe",
			role:         auth.RoleMember,
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"is_active is invalid"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			tt.mockBehavior(svc)
			e := newTestRouter(svc)

			r := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			setCallerHeaders(r, "1", "test@test.com", tt.role)
			w := httptest.NewRecorder()

			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_DeleteBook(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name         string
		role         string
		mockBehavior func(r *service_mocks.MockLibraryService)
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			role: auth.RoleStaff,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().DeleteBook(gomock.Any(), 1).Return(nil)
			},
			expectedCode: http.StatusNoContent,
			expectedBody: ``,
		},
		{
			name:         "err. member forbidden",
			role:         auth.RoleMember,
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusForbidden,
			expectedBody: `{"message":"staff only"}`,
		},
		{
			name: "err. has borrowings",
			role: auth.RoleStaff,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().DeleteBook(gomock.Any(), 1).Return(errs.ErrConflict)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"message":"record is referenced by borrowings"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			tt.mockBehavior(svc)
			e := newTestRouter(svc)

			r := httptest.NewRequest(http.MethodDelete, "/api/v1/books/1", http.NoBody)
			setCallerHeaders(r, "1", "staff@test.com", tt.role)
			w := httptest.NewRecorder()

			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}
