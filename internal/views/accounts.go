package views

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/concordance/backend/internal/handlers"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/anonto42/concordance/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// safeNext keeps post-login redirects on this site
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, `/\`) {
		return next
	}
	return "/"
}

// Login signs a user in with username and password
func (h *Handler) Login(c echo.Context) error {
	data := &viewData{Title: "Sign in", Values: map[string]string{}, Next: c.QueryParam("next")}
	if c.Request().Method != http.MethodPost {
		return h.render(c, http.StatusOK, "login.html", data)
	}

	data.Next = c.FormValue("next")
	var form models.LoginRequest
	if err := c.Bind(&form); err != nil {
		data.Errors = validators.FieldErrors(err)
		return h.render(c, http.StatusOK, "login.html", data)
	}
	data.Values["username"] = form.Username
	if err := c.Validate(&form); err != nil {
		data.Errors = validators.FieldErrors(err)
		return h.render(c, http.StatusOK, "login.html", data)
	}

	user, err := handlers.Authenticate(c.Request().Context(), h.Users, form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, handlers.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
		data.Errors = map[string][]string{"non_field_errors": {"Please enter a correct username and password."}}
		return h.render(c, http.StatusOK, "login.html", data)
	}

	if err := h.Sessions.Login(c, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return redirect(c, safeNext(data.Next))
}

// Signup creates a local account and signs it in
func (h *Handler) Signup(c echo.Context) error {
	data := &viewData{Title: "Sign up", Values: map[string]string{}}
	if c.Request().Method != http.MethodPost {
		return h.render(c, http.StatusOK, "signup.html", data)
	}

	var form models.SignupRequest
	if err := c.Bind(&form); err != nil {
		data.Errors = validators.FieldErrors(err)
		return h.render(c, http.StatusOK, "signup.html", data)
	}
	data.Values["username"] = form.Username
	data.Values["email"] = form.Email
	data.Values["first_name"] = form.FirstName
	data.Values["last_name"] = form.LastName

	errs := map[string][]string{}
	if err := c.Validate(&form); err != nil {
		errs = validators.FieldErrors(err)
	}
	if c.FormValue("password2") != form.Password {
		errs["password2"] = append(errs["password2"], "The two password fields didn't match.")
	}

	ctx := c.Request().Context()
	if len(errs) == 0 {
		if _, err := h.Users.GetUserByUsername(ctx, form.Username); err == nil {
			errs["username"] = []string{"A user with that username already exists."}
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
	}
	if len(errs) > 0 {
		data.Errors = errs
		return h.render(c, http.StatusOK, "signup.html", data)
	}

	hashed, err := handlers.HashPassword(form.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	user := &models.User{
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  hashed,
	}
	if err := h.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConstraintViolation) {
			data.Errors = map[string][]string{"username": {"A user with that username already exists."}}
			return h.render(c, http.StatusOK, "signup.html", data)
		}
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	logrus.WithField("username", user.Username).Info("User signed up")
	if err := h.Sessions.Login(c, user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return redirect(c, "/")
}

// Logout ends the session
func (h *Handler) Logout(c echo.Context) error {
	if err := h.Sessions.Logout(c); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return redirect(c, "/")
}
