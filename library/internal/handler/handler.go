package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	md "github.com/mtiunov/library-service-project/pkg/middleware"

	"github.com/mtiunov/library-service-project/library/internal/errs"
	"github.com/mtiunov/library-service-project/library/internal/model"
	"github.com/mtiunov/library-service-project/pkg/auth"
	"github.com/mtiunov/library-service-project/pkg/validate"
)

type Handler struct {
	librarySvc LibraryService
	log        *zap.Logger
}

func New(librarySrv LibraryService, log *zap.Logger) *Handler {
	h := &Handler{
		librarySvc: librarySrv,
		log:        log,
	}
	return h
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/books", h.ListBooks)
	api.GET("/books/:id", h.GetBook)
	api.POST("/books", h.CreateBook, md.CallerContext)
	api.PUT("/books/:id", h.UpdateBook, md.CallerContext)
	api.DELETE("/books/:id", h.DeleteBook, md.CallerContext)

	borrowings := api.Group("/borrowings", md.CallerContext)
	borrowings.GET("", h.ListBorrowings)
	borrowings.POST("", h.CreateBorrowing)
	borrowings.GET("/:borrowingUid", h.GetBorrowing)
	borrowings.PATCH("/:borrowingUid/return", h.ReturnBorrowing)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) CreateBorrowing(c echo.Context) error {
	var req model.CreateBorrowingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	caller, ok := auth.CallerFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no caller")
	}
	req.UserID = caller.ID
	req.UserEmail = caller.Email

	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	borrowing, err := h.librarySvc.CreateBorrowing(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrOutOfStock), errors.Is(err, errs.ErrInvalidDateRange):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, errs.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, borrowing)
}

func (h *Handler) ReturnBorrowing(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no caller")
	}
	borrowingUid := c.Param("borrowingUid")
	if borrowingUid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "borrowingUid is empty")
	}
	var req model.ReturnBorrowingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	borrowing, err := h.librarySvc.ReturnBorrowing(ctx, borrowingUid, req, caller)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, errs.ErrPermissionDenied):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, errs.ErrAlreadyReturned), errors.Is(err, errs.ErrInvalidDateRange):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, borrowing)
}

func (h *Handler) ListBorrowings(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no caller")
	}

	var filter model.BorrowingFilter
	if isActiveParam := c.QueryParam("is_active"); isActiveParam != "" {
		isActive, err := strconv.ParseBool(isActiveParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("is_active is invalid"))
		}
		filter.IsActive = &isActive
	}
	if userIDParam := c.QueryParam("user_id"); userIDParam != "" {
		userID, err := strconv.Atoi(userIDParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("user_id is invalid"))
		}
		filter.UserID = &userID
	}

	borrowings, err := h.librarySvc.ListBorrowings(ctx, caller, filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, borrowings)
}

func (h *Handler) GetBorrowing(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no caller")
	}
	borrowingUid := c.Param("borrowingUid")
	borrowing, err := h.librarySvc.GetBorrowing(ctx, borrowingUid, caller)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, borrowing)
}

func (h *Handler) ListBooks(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		err  error
		page int
		size int
	)
	if pageParam := c.QueryParam("page"); pageParam != "" {
		if page, err = strconv.Atoi(pageParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("page is invalid"))
		}
	}
	if sizeParam := c.QueryParam("size"); sizeParam != "" {
		if size, err = strconv.Atoi(sizeParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("size is invalid"))
		}
	}

	books, err := h.librarySvc.ListBooks(ctx, page, size)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("id is invalid"))
	}
	book, err := h.librarySvc.GetBook(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) CreateBook(c echo.Context) error {
	if err := staffOnly(c); err != nil {
		return err
	}
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	book, err := h.librarySvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	if err := staffOnly(c); err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("id is invalid"))
	}
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	book, err := h.librarySvc.UpdateBook(c.Request().Context(), id, req)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	if err := staffOnly(c); err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("id is invalid"))
	}
	if err := h.librarySvc.DeleteBook(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, errs.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func staffOnly(c echo.Context) error {
	caller, ok := auth.CallerFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no caller")
	}
	if !caller.IsStaff {
		return echo.NewHTTPError(http.StatusForbidden, "staff only")
	}
	return nil
}
