package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/middleware"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/anonto42/concordance/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const permissionDenied = "You do not have permission to perform this action."

// PageResponse is the envelope of every paginated list
type PageResponse[R any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []R     `json:"results"`
}

func newPageResponse[T, R any](c echo.Context, page *pagination.Page[T], convert func(T) R) PageResponse[R] {
	res := PageResponse[R]{
		Count:   page.Total,
		Results: make([]R, 0, len(page.Items)),
	}
	for _, item := range page.Items {
		res.Results = append(res.Results, convert(item))
	}
	if page.HasNext() {
		link := pageLink(c, page.NextNumber())
		res.Next = &link
	}
	if page.HasPrevious() {
		link := pageLink(c, page.PreviousNumber())
		res.Previous = &link
	}
	return res
}

// pageLink rewrites the current URL to point at page n; page 1 drops the parameter
func pageLink(c echo.Context, n int) string {
	u := *c.Request().URL
	q := u.Query()
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	u.RawQuery = q.Encode()
	u.Scheme = c.Scheme()
	u.Host = c.Request().Host
	return u.String()
}

// getUserIDFromContext returns the authenticated caller's id, or 0 for anonymous requests
func getUserIDFromContext(c echo.Context) uint {
	if claims := middleware.ClaimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return 0
}

func parseID(c echo.Context, name, what string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return uint(id), nil
}

// bindAndValidate binds the request body into req and validates it, answering with field errors
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return validationError(err)
	}
	if err := c.Validate(req); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			err = he.Internal
		} else if msg, ok := he.Message.(string); ok {
			err = errors.New(msg)
		}
	}
	return echo.NewHTTPError(http.StatusBadRequest, validators.FieldErrors(err))
}

func fieldError(field, message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, map[string][]string{field: {message}})
}

// storeError maps repository failures to HTTP errors
func storeError(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
}

func publish(p events.Publisher, subject string, actorID, targetID uint, targetType string) {
	if p == nil {
		return
	}
	p.Publish(events.Event{
		Subject:    subject,
		ActorID:    actorID,
		TargetID:   targetID,
		TargetType: targetType,
		OccurredAt: time.Now().UTC(),
	})
	logrus.WithFields(logrus.Fields{"subject": subject, "target_id": targetID}).Debug("Event published")
}
